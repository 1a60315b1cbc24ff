package slr

import "strings"

// ExtractRows isolates the data rows of a markdown table in raw model output,
// dropping separator lines and lines that repeat the default header token.
func ExtractRows(raw string) []string {
	return ExtractRowsWithToken(raw, DefaultHeaderToken)
}

// ExtractRowsWithToken keeps lines starting with "|" (after trimming), drops
// lines containing "---" and lines whose lowercase text contains token.
// Order is preserved. Rows are not validated: malformed fragments pass through.
func ExtractRowsWithToken(raw, token string) []string {
	token = strings.ToLower(strings.TrimSpace(token))

	var rows []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if strings.Contains(line, "---") {
			continue
		}
		if token != "" && strings.Contains(strings.ToLower(line), token) {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

// isSeparator reports whether line is a markdown table separator row.
func isSeparator(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "|") && strings.Contains(line, "---")
}
