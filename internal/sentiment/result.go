package sentiment

import "time"

// Opinion is an advisory sentiment from an external model. It never
// changes the keyword-derived scores.
type Opinion struct {
	Symbol    string    `json:"symbol"`
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
	Source    string    `json:"source"`
}

// SubjectResult is the analysis of one subject. A result with Error set
// carries no data and must not contribute to aggregates.
type SubjectResult struct {
	SubjectID        string            `json:"subject_id"`
	PostCount        int               `json:"post_count"`
	TotalMentions    int               `json:"total_mentions"`
	MentionCount     MentionCount      `json:"mention_count"`
	SentimentRecords []SentimentRecord `json:"sentiment_records"`
	Recommendations  []Recommendation  `json:"recommendations"`
	Opinions         []Opinion         `json:"llm_opinions,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// OK reports whether the result carries analysed data.
func (r SubjectResult) OK() bool {
	return r.Error == ""
}

// NoData builds the result for a subject whose content could not be
// obtained.
func NoData(subjectID string, err error) SubjectResult {
	msg := "no data"
	if err != nil {
		msg = err.Error()
	}
	return SubjectResult{
		SubjectID:        subjectID,
		MentionCount:     MentionCount{},
		SentimentRecords: []SentimentRecord{},
		Recommendations:  []Recommendation{},
		Error:            msg,
	}
}

// AnalyzeSubject runs the full single-subject pipeline: count, score,
// recommend. Empty input yields an empty, successful result.
func (e *Engine) AnalyzeSubject(subjectID, bio string, posts []TextUnit) SubjectResult {
	counts := e.CountMentions(bio, posts)
	records := e.ScoreAll(counts, posts)

	return SubjectResult{
		SubjectID:        subjectID,
		PostCount:        len(posts),
		TotalMentions:    counts.Total(),
		MentionCount:     counts,
		SentimentRecords: records,
		Recommendations:  DeriveRecommendations(records),
	}
}

// Summary aggregates several subject results.
type Summary struct {
	Timestamp          time.Time                  `json:"timestamp"`
	SubjectsAttempted  int                        `json:"subjects_attempted"`
	SubjectsAnalysed   int                        `json:"subjects_analysed"`
	TotalMentions      int                        `json:"total_mentions"`
	MentionsBySymbol   []SymbolCount              `json:"mentions_by_symbol"`
	TopRecommendations []AggregatedRecommendation `json:"top_recommendations"`
	PerSubjectResults  []SubjectResult            `json:"per_subject_results"`
}

// Summarize folds subject results into a Summary. Failed results are kept
// in PerSubjectResults and counted as attempted, but add no mentions or
// recommendations.
func Summarize(results []SubjectResult) *Summary {
	mentions := make(MentionCount)
	var recs []SubjectRecommendation
	analysed := 0

	for _, r := range results {
		if !r.OK() {
			continue
		}
		analysed++
		for sym, n := range r.MentionCount {
			mentions[sym] += n
		}
		for _, rec := range r.Recommendations {
			recs = append(recs, SubjectRecommendation{SubjectID: r.SubjectID, Recommendation: rec})
		}
	}

	if results == nil {
		results = []SubjectResult{}
	}

	return &Summary{
		SubjectsAttempted:  len(results),
		SubjectsAnalysed:   analysed,
		TotalMentions:      mentions.Total(),
		MentionsBySymbol:   SortCounts(mentions),
		TopRecommendations: AggregateAcrossSubjects(recs),
		PerSubjectResults:  results,
	}
}
