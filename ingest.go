package slr

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Accepted column aliases, matched case-insensitively after trimming.
// abstract wins over description when both are present.
var (
	idAliases       = []string{"id"}
	titleAliases    = []string{"title"}
	abstractAliases = []string{"abstract", "description"}
)

// IngestCSV converts a delimited file with a header row into the
// "ID <n>: Title: …\nAbstract: …" record text consumed by SplitText.
// Rows with neither title nor abstract are dropped. When no record can be
// recovered an *IngestionError wrapping ErrNoRecognizableColumns is returned.
func IngestCSV(r io.Reader) (string, error) {
	return ingestCSV(r, "")
}

// IngestCSVNamed is IngestCSV with a source name for error messages.
func IngestCSVNamed(r io.Reader, name string) (string, error) {
	return ingestCSV(r, name)
}

func ingestCSV(r io.Reader, source string) (string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", &IngestionError{Source: source, Err: ErrNoRecognizableColumns}
		}
		return "", &IngestionError{Source: source, Err: fmt.Errorf("read header: %w", err)}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol := findColumn(header, idAliases)
	titleCol := findColumn(header, titleAliases)
	absCol := findColumn(header, abstractAliases)
	if titleCol < 0 && absCol < 0 {
		return "", &IngestionError{Source: source, Err: ErrNoRecognizableColumns}
	}

	var records []string
	row := 0
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &IngestionError{Source: source, Err: fmt.Errorf("read row %d: %w", row+2, err)}
		}
		row++

		title := cell(fields, titleCol)
		abstract := cell(fields, absCol)
		if title == "" && abstract == "" {
			continue
		}

		id := cell(fields, idCol)
		if _, convErr := strconv.Atoi(id); convErr != nil {
			id = strconv.Itoa(row)
		}
		records = append(records, fmt.Sprintf("ID %s: Title: %s\nAbstract: %s", id, title, abstract))
	}

	if len(records) == 0 {
		return "", &IngestionError{Source: source, Err: ErrNoRecognizableColumns}
	}
	return strings.Join(records, "\n\n"), nil
}

// findColumn returns the index of the first header matching an alias, in
// alias priority order, or -1.
func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), alias) {
				return i
			}
		}
	}
	return -1
}

func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
