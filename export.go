package slr

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// ParseTable reshapes markdown table text into a header and data rows.
// Structural lines are those starting with "|"; separator lines are skipped.
// Fewer than two structural lines is a *ParseError.
func ParseTable(markdown string) ([]string, [][]string, error) {
	var structural []string
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "|") {
			structural = append(structural, line)
		}
	}
	if len(structural) < 2 {
		return nil, nil, &ParseError{Lines: len(structural), Reason: "need a header and at least one more table line"}
	}

	header := splitCells(structural[0])
	var rows [][]string
	for _, line := range structural[1:] {
		if isSeparator(line) {
			continue
		}
		rows = append(rows, splitCells(line))
	}
	return header, rows, nil
}

// splitCells splits "| a | b |" into ["a", "b"].
func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ToCSV converts the accumulated markdown table into CSV: the header row and
// one row per data line, columns matched by position. Rows shorter than the
// header are padded with empty cells.
func ToCSV(markdown string) ([]byte, error) {
	header, rows, err := ParseTable(markdown)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToClipboardText returns the markdown table verbatim.
func ToClipboardText(markdown string) string {
	return markdown
}
