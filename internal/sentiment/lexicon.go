// Package sentiment counts cryptocurrency mentions in authored text and
// scores bullish/bearish sentiment per symbol.
package sentiment

import "strings"

// Sentiment is the label assigned to a symbol.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// Lexicon holds the word lists used for scoring. Words are matched as
// substrings of the lowercased post text.
type Lexicon struct {
	Bullish []string
	Bearish []string
}

// DefaultLexicon returns the built-in bullish and bearish word lists.
func DefaultLexicon() Lexicon {
	return NewLexicon(
		[]string{
			"bullish", "buy", "long", "hodl", "moon", "rally", "undervalued",
			"potential", "growth", "accumulate", "opportunity", "breakout", "support",
			"bullrun", "uptrend", "upside", "profit", "gains", "winning", "outperform",
		},
		[]string{
			"bearish", "sell", "short", "dump", "crash", "drop", "correction",
			"overvalued", "avoid", "risk", "bubble", "resistance", "concern",
			"downtrend", "downside", "loss", "losing", "underperform",
		},
	)
}

// NewLexicon lowercases and de-duplicates the given word lists, dropping
// empty entries.
func NewLexicon(bullish, bearish []string) Lexicon {
	return Lexicon{
		Bullish: normalizeWords(bullish),
		Bearish: normalizeWords(bearish),
	}
}

func normalizeWords(words []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// count returns how many words of the list occur in text at least once.
func count(words []string, text string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
