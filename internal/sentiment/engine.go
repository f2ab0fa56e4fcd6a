package sentiment

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/user/crypto-analyser/internal/keywords"
)

// TextUnit is one piece of authored content, such as a post.
type TextUnit struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MentionCount maps a symbol to its number of whole-word mentions.
// Symbols without mentions are absent.
type MentionCount map[string]int

// Score is the outcome of scoring one symbol.
type Score struct {
	BullishScore int       `json:"bullish_score"`
	BearishScore int       `json:"bearish_score"`
	Sentiment    Sentiment `json:"sentiment"`
}

// SentimentRecord is the per-symbol result for a single subject.
type SentimentRecord struct {
	Symbol   string `json:"symbol"`
	Mentions int    `json:"mentions"`
	Score
}

// Engine applies a keyword index and a lexicon to text. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	index   *keywords.Index
	lexicon Lexicon
}

// NewEngine creates an engine over the given index and lexicon.
func NewEngine(index *keywords.Index, lexicon Lexicon) *Engine {
	return &Engine{
		index:   index,
		lexicon: lexicon,
	}
}

// CountMentions counts whole-word keyword matches across the bio and all
// posts, summed per symbol.
func (e *Engine) CountMentions(bio string, posts []TextUnit) MentionCount {
	parts := make([]string, 0, len(posts)+1)
	parts = append(parts, bio)
	for _, p := range posts {
		parts = append(parts, p.Text)
	}
	blob := strings.ToLower(strings.Join(parts, " "))

	counts := make(MentionCount)
	for _, kw := range e.index.Keywords() {
		n := countWholeWord(blob, kw)
		if n == 0 {
			continue
		}
		sym, _ := e.index.Lookup(kw)
		counts[sym] += n
	}
	return counts
}

// ScoreSentiment scores symbol over the posts that mention any of its
// keywords. Keyword presence and sentiment words are both substring
// matches; a post may add to both scores.
func (e *Engine) ScoreSentiment(symbol string, posts []TextUnit) Score {
	kws := e.index.KeywordsFor(symbol)

	var s Score
	for _, p := range posts {
		text := strings.ToLower(p.Text)
		if !containsAny(text, kws) {
			continue
		}
		s.BullishScore += count(e.lexicon.Bullish, text)
		s.BearishScore += count(e.lexicon.Bearish, text)
	}
	s.Sentiment = Classify(s.BullishScore, s.BearishScore)
	return s
}

// Classify applies the 1.5x dominance rule. Bullish is checked first;
// equal or near-equal scores are neutral.
func Classify(bullish, bearish int) Sentiment {
	// 2a > 3b is a > 1.5b without floating point.
	switch {
	case 2*bullish > 3*bearish:
		return Bullish
	case 2*bearish > 3*bullish:
		return Bearish
	default:
		return Neutral
	}
}

// ScoreAll builds a record for every mentioned symbol, ordered by
// mention count descending and then by symbol.
func (e *Engine) ScoreAll(counts MentionCount, posts []TextUnit) []SentimentRecord {
	records := make([]SentimentRecord, 0, len(counts))
	for _, sc := range SortCounts(counts) {
		records = append(records, SentimentRecord{
			Symbol:   sc.Symbol,
			Mentions: sc.Count,
			Score:    e.ScoreSentiment(sc.Symbol, posts),
		})
	}
	return records
}

// SymbolCount is one entry of an ordered mention tally.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// SortCounts orders counts by count descending, then symbol ascending.
func SortCounts(counts MentionCount) []SymbolCount {
	out := make([]SymbolCount, 0, len(counts))
	for sym, n := range counts {
		out = append(out, SymbolCount{Symbol: sym, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Total sums all mentions.
func (m MentionCount) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// countWholeWord counts non-overlapping occurrences of word in text whose
// neighbouring runes are not letters, digits or underscores. Letters are
// judged by Unicode class, so "bitcoiné" is not a mention of "bitcoin".
func countWholeWord(text, word string) int {
	if word == "" {
		return 0
	}

	n := 0
	for i := 0; i <= len(text)-len(word); {
		j := strings.Index(text[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			n++
			i = end
			continue
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		i = start + size
	}
	return n
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
