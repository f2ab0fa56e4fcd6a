package sentiment

import "sort"

const (
	// MaxStrength caps a single subject's recommendation strength.
	MaxStrength = 10
	// MinMentions is the mention count a bullish symbol needs to be recommended.
	MinMentions = 2
	// TopN bounds every ranked list.
	TopN = 5
)

// Recommendation is a single subject's bullish call on a symbol.
type Recommendation struct {
	Symbol    string    `json:"symbol"`
	Strength  int       `json:"strength"`
	Sentiment Sentiment `json:"sentiment"`
}

// SubjectRecommendation tags a recommendation with the subject that made it.
type SubjectRecommendation struct {
	SubjectID string
	Recommendation
}

// AggregatedRecommendation combines recommendations for one symbol across
// subjects.
type AggregatedRecommendation struct {
	Symbol          string  `json:"symbol"`
	AggregateScore  int     `json:"aggregate_score"`
	SubjectCount    int     `json:"subject_count"`
	AverageStrength float64 `json:"average_strength"`
}

// DeriveRecommendations keeps bullish records with at least MinMentions,
// ranks them by strength (stable on input order) and returns at most TopN.
func DeriveRecommendations(records []SentimentRecord) []Recommendation {
	recs := make([]Recommendation, 0, len(records))
	for _, r := range records {
		if r.Sentiment != Bullish || r.Mentions < MinMentions {
			continue
		}
		recs = append(recs, Recommendation{
			Symbol:    r.Symbol,
			Strength:  min(MaxStrength, r.BullishScore*r.Mentions/2),
			Sentiment: r.Sentiment,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Strength > recs[j].Strength
	})

	if len(recs) > TopN {
		recs = recs[:TopN]
	}
	return recs
}

// AggregateAcrossSubjects sums strengths per symbol and keeps symbols
// recommended by more than one distinct subject, ranked by aggregate score
// (stable on first appearance) and truncated to TopN.
func AggregateAcrossSubjects(recs []SubjectRecommendation) []AggregatedRecommendation {
	type tally struct {
		score    int
		subjects map[string]bool
	}

	var order []string
	tallies := make(map[string]*tally)
	for _, r := range recs {
		t, ok := tallies[r.Symbol]
		if !ok {
			t = &tally{subjects: make(map[string]bool)}
			tallies[r.Symbol] = t
			order = append(order, r.Symbol)
		}
		t.score += r.Strength
		t.subjects[r.SubjectID] = true
	}

	out := make([]AggregatedRecommendation, 0, len(order))
	for _, sym := range order {
		t := tallies[sym]
		if len(t.subjects) < 2 {
			continue
		}
		out = append(out, AggregatedRecommendation{
			Symbol:          sym,
			AggregateScore:  t.score,
			SubjectCount:    len(t.subjects),
			AverageStrength: float64(t.score) / float64(len(t.subjects)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AggregateScore > out[j].AggregateScore
	})

	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}
