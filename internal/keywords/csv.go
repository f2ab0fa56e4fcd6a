package keywords

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseCSV reads a catalog export with a header row. Recognised columns
// are name/coin, symbol/ticker and rank/#, in any order and case.
// Rows missing both name and symbol are skipped; a missing rank is
// replaced by the row position.
func ParseCSV(reader io.Reader) ([]Entry, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[normalizeColumnName(col)] = i
	}

	_, hasSymbol := lookupColumn(colIndex, "symbol", "ticker")
	if !hasSymbol {
		return nil, errors.New("CSV must contain a Symbol or Ticker column")
	}

	var entries []Entry
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		getValue := func(names ...string) string {
			if idx, ok := lookupColumn(colIndex, names...); ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		symbol := strings.ToUpper(getValue("symbol", "ticker"))
		name := getValue("name", "coin", "coinname")
		if symbol == "" && name == "" {
			continue
		}

		rank, err := strconv.Atoi(getValue("rank", "#", "position"))
		if err != nil || rank <= 0 {
			rank = len(entries) + 1
		}

		entries = append(entries, Entry{Name: name, Symbol: symbol, Rank: rank})
	}

	return entries, nil
}

// LoadCSV reads a catalog from a file on disk.
func LoadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return ParseCSV(f)
}

func lookupColumn(colIndex map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := colIndex[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// normalizeColumnName normalizes a column name for matching.
func normalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}
