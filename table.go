package slr

import (
	"strings"
	"sync"
)

// Default header used when the instruction carries no table markup.
const (
	DefaultHeaderLine    = "| Study ID | Paper title | Data |"
	DefaultSeparatorLine = "|---|---|---|"
)

// TableHeader is the header and separator line pair of the result table.
type TableHeader struct {
	Header    string
	Separator string
}

// DefaultHeader returns the three-column fallback header.
func DefaultHeader() TableHeader {
	return TableHeader{Header: DefaultHeaderLine, Separator: DefaultSeparatorLine}
}

// String renders the two header lines.
func (h TableHeader) String() string {
	return h.Header + "\n" + h.Separator
}

// HeaderFromInstruction returns the first header+separator line pair found in
// the instruction, or DefaultHeader when there is none.
func HeaderFromInstruction(instruction string) TableHeader {
	lines := strings.Split(instruction, "\n")
	for i := 0; i+1 < len(lines); i++ {
		head := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(head, "|") || isSeparator(head) {
			continue
		}
		if sep := strings.TrimSpace(lines[i+1]); isSeparator(sep) {
			return TableHeader{Header: head, Separator: sep}
		}
	}
	return DefaultHeader()
}

// AppendRows appends rows to current, newline-joined. No dedup, no reordering.
func AppendRows(current string, rows []string) string {
	if len(rows) == 0 {
		return current
	}
	joined := strings.Join(rows, "\n")
	if current == "" {
		return joined
	}
	return current + "\n" + joined
}

// Table is the accumulated result: a fixed header plus every row extracted
// so far, in completion order. It is safe for concurrent readers.
type Table struct {
	mu     sync.RWMutex
	header TableHeader
	rows   []string
}

// NewTable creates an empty table with header.
func NewTable(header TableHeader) *Table {
	return &Table{header: header}
}

func (t *Table) Header() TableHeader {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.header
}

// Append adds one fragment atomically.
func (t *Table) Append(rows []string) {
	if len(rows) == 0 {
		return
	}
	t.mu.Lock()
	t.rows = append(t.rows, rows...)
	t.mu.Unlock()
}

// Rows returns a copy of the data rows.
func (t *Table) Rows() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.rows...)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Markdown renders header, separator and rows.
func (t *Table) Markdown() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return AppendRows(t.header.String(), t.rows)
}

// Reset drops all rows and installs a new header.
func (t *Table) Reset(header TableHeader) {
	t.mu.Lock()
	t.header = header
	t.rows = nil
	t.mu.Unlock()
}
