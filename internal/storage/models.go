// Package storage provides database models and repository functions.
package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/user/crypto-analyser/internal/keywords"
	"github.com/user/crypto-analyser/internal/sentiment"
)

// RunKind identifies what a run analysed.
type RunKind string

const (
	RunInfluencers RunKind = "influencers"
	RunFeeds       RunKind = "feeds"
)

// AnalysisRun is one persisted multi-subject aggregation.
type AnalysisRun struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Kind              RunKind        `gorm:"size:20;index;not null" json:"kind"`
	SubjectsAttempted int            `json:"subjects_attempted"`
	SubjectsAnalysed  int            `json:"subjects_analysed"`
	TotalMentions     int            `json:"total_mentions"`
	RunAt             time.Time      `gorm:"index" json:"run_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Subjects   []SubjectAnalysis `gorm:"foreignKey:RunID" json:"subjects,omitempty"`
	Aggregates []AggregateRecord `gorm:"foreignKey:RunID" json:"aggregates,omitempty"`
}

// SubjectAnalysis is the stored result for one subject within a run.
type SubjectAnalysis struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RunID         uint      `gorm:"index;not null" json:"run_id"`
	Position      int       `json:"position"`
	SubjectID     string    `gorm:"size:255;index;not null" json:"subject_id"`
	PostCount     int       `json:"post_count"`
	TotalMentions int       `json:"total_mentions"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Relationships
	Mentions        []MentionRecord        `gorm:"foreignKey:SubjectAnalysisID" json:"mentions,omitempty"`
	Recommendations []RecommendationRecord `gorm:"foreignKey:SubjectAnalysisID" json:"recommendations,omitempty"`
}

// MentionRecord is one symbol's sentiment record for a subject.
type MentionRecord struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	SubjectAnalysisID uint                `gorm:"index;not null" json:"subject_analysis_id"`
	Position          int                 `json:"position"`
	Symbol            string              `gorm:"size:20;index;not null" json:"symbol"`
	Mentions          int                 `json:"mentions"`
	BullishScore      int                 `json:"bullish_score"`
	BearishScore      int                 `json:"bearish_score"`
	Sentiment         sentiment.Sentiment `gorm:"size:10" json:"sentiment"`
}

// RecommendationRecord is one single-subject recommendation.
type RecommendationRecord struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	SubjectAnalysisID uint                `gorm:"index;not null" json:"subject_analysis_id"`
	Position          int                 `json:"position"`
	Symbol            string              `gorm:"size:20;index;not null" json:"symbol"`
	Strength          int                 `json:"strength"`
	Sentiment         sentiment.Sentiment `gorm:"size:10" json:"sentiment"`
}

// AggregateRecord is one cross-subject recommendation of a run.
type AggregateRecord struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	RunID           uint    `gorm:"index;not null" json:"run_id"`
	Position        int     `json:"position"`
	Symbol          string  `gorm:"size:20;index;not null" json:"symbol"`
	AggregateScore  int     `json:"aggregate_score"`
	SubjectCount    int     `json:"subject_count"`
	AverageStrength float64 `json:"average_strength"`
}

// Cryptocurrency is the latest known catalog entry for a symbol.
type Cryptocurrency struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;size:20;not null" json:"symbol"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAnalysisRun flattens a summary into its storage rows. Slice order is
// kept in Position columns so a run reads back exactly as produced.
func NewAnalysisRun(kind RunKind, s *sentiment.Summary) *AnalysisRun {
	run := &AnalysisRun{
		Kind:              kind,
		SubjectsAttempted: s.SubjectsAttempted,
		SubjectsAnalysed:  s.SubjectsAnalysed,
		TotalMentions:     s.TotalMentions,
		RunAt:             s.Timestamp,
	}

	for i, res := range s.PerSubjectResults {
		subject := SubjectAnalysis{
			Position:      i,
			SubjectID:     res.SubjectID,
			PostCount:     res.PostCount,
			TotalMentions: res.TotalMentions,
			Error:         res.Error,
		}
		for j, rec := range res.SentimentRecords {
			subject.Mentions = append(subject.Mentions, MentionRecord{
				Position:     j,
				Symbol:       rec.Symbol,
				Mentions:     rec.Mentions,
				BullishScore: rec.BullishScore,
				BearishScore: rec.BearishScore,
				Sentiment:    rec.Sentiment,
			})
		}
		for j, rec := range res.Recommendations {
			subject.Recommendations = append(subject.Recommendations, RecommendationRecord{
				Position:  j,
				Symbol:    rec.Symbol,
				Strength:  rec.Strength,
				Sentiment: rec.Sentiment,
			})
		}
		run.Subjects = append(run.Subjects, subject)
	}

	for i, agg := range s.TopRecommendations {
		run.Aggregates = append(run.Aggregates, AggregateRecord{
			Position:        i,
			Symbol:          agg.Symbol,
			AggregateScore:  agg.AggregateScore,
			SubjectCount:    agg.SubjectCount,
			AverageStrength: agg.AverageStrength,
		})
	}

	return run
}

// Summary rebuilds the summary a run was stored from. Associations must
// be loaded in Position order.
func (r *AnalysisRun) Summary() *sentiment.Summary {
	s := &sentiment.Summary{
		Timestamp:          r.RunAt,
		SubjectsAttempted:  r.SubjectsAttempted,
		SubjectsAnalysed:   r.SubjectsAnalysed,
		TotalMentions:      r.TotalMentions,
		TopRecommendations: make([]sentiment.AggregatedRecommendation, 0, len(r.Aggregates)),
		PerSubjectResults:  make([]sentiment.SubjectResult, 0, len(r.Subjects)),
	}

	mentions := make(sentiment.MentionCount)
	for _, subject := range r.Subjects {
		res := sentiment.SubjectResult{
			SubjectID:        subject.SubjectID,
			PostCount:        subject.PostCount,
			TotalMentions:    subject.TotalMentions,
			MentionCount:     make(sentiment.MentionCount),
			SentimentRecords: make([]sentiment.SentimentRecord, 0, len(subject.Mentions)),
			Recommendations:  make([]sentiment.Recommendation, 0, len(subject.Recommendations)),
			Error:            subject.Error,
		}
		for _, m := range subject.Mentions {
			res.MentionCount[m.Symbol] = m.Mentions
			res.SentimentRecords = append(res.SentimentRecords, sentiment.SentimentRecord{
				Symbol:   m.Symbol,
				Mentions: m.Mentions,
				Score: sentiment.Score{
					BullishScore: m.BullishScore,
					BearishScore: m.BearishScore,
					Sentiment:    m.Sentiment,
				},
			})
			if res.OK() {
				mentions[m.Symbol] += m.Mentions
			}
		}
		for _, rec := range subject.Recommendations {
			res.Recommendations = append(res.Recommendations, sentiment.Recommendation{
				Symbol:    rec.Symbol,
				Strength:  rec.Strength,
				Sentiment: rec.Sentiment,
			})
		}
		s.PerSubjectResults = append(s.PerSubjectResults, res)
	}
	s.MentionsBySymbol = sentiment.SortCounts(mentions)

	for _, agg := range r.Aggregates {
		s.TopRecommendations = append(s.TopRecommendations, sentiment.AggregatedRecommendation{
			Symbol:          agg.Symbol,
			AggregateScore:  agg.AggregateScore,
			SubjectCount:    agg.SubjectCount,
			AverageStrength: agg.AverageStrength,
		})
	}

	return s
}

// NewCryptocurrencies converts catalog entries into rows.
func NewCryptocurrencies(entries []keywords.Entry) []Cryptocurrency {
	rows := make([]Cryptocurrency, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Cryptocurrency{Symbol: e.Symbol, Name: e.Name, Rank: e.Rank})
	}
	return rows
}
