package slr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// recordMarker starts a record in text mode, e.g. "ID 12:".
var recordMarker = regexp.MustCompile(`ID\s+(\d+)\s*:`)

// RawRecord is one input item of text mode.
type RawRecord struct {
	ID   string // number from the "ID <n>:" marker, empty for unmarked text
	Text string // record text including its marker
}

// InputFile is one uploaded document of file mode.
type InputFile struct {
	Name     string
	Data     []byte
	MimeType string // sniffed from Data when empty
}

// WorkUnit is the atomic item submitted to the model in one request:
// a batch of text records, or one file. It is not modified after creation.
type WorkUnit struct {
	ID    string
	Kind  Mode
	Index int // position in the work sequence, 0-based

	Records []RawRecord // ModeText

	Name     string // ModeFile
	Payload  []byte // ModeFile
	MimeType string // ModeFile
}

// Content returns the batch text sent to the model for a text unit.
func (u WorkUnit) Content() string {
	texts := make([]string, len(u.Records))
	for i, r := range u.Records {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n")
}

// Label is the human-readable name of the unit used in logs and status.
func (u WorkUnit) Label() string {
	if u.Kind == ModeFile && u.Name != "" {
		return u.Name
	}
	return u.ID
}

// SplitRecords cuts text into records, each starting at an "ID <n>:" marker
// and running up to the next one. Blank records are dropped. Text before the
// first marker, or text without any marker, is kept as a record of its own.
func SplitRecords(text string) []RawRecord {
	locs := recordMarker.FindAllStringSubmatchIndex(text, -1)

	var records []RawRecord
	add := func(id, s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		records = append(records, RawRecord{ID: id, Text: s})
	}

	if len(locs) == 0 {
		add("", text)
		return records
	}

	add("", text[:locs[0][0]])
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		add(text[loc[2]:loc[3]], text[loc[0]:end])
	}
	return records
}

// SplitText partitions text into batches of up to batchSize consecutive
// records. A batchSize below 1 falls back to DefaultBatchSize.
func SplitText(text string, batchSize int) []WorkUnit {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	records := SplitRecords(text)
	if len(records) == 0 {
		return nil
	}

	units := make([]WorkUnit, 0, (len(records)+batchSize-1)/batchSize)
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		idx := len(units)
		units = append(units, WorkUnit{
			ID:      fmt.Sprintf("batch-%d", idx+1),
			Kind:    ModeText,
			Index:   idx,
			Records: append([]RawRecord(nil), records[start:end]...),
		})
	}
	return units
}

// SplitFiles produces one work unit per file, in upload order. Each unit
// gets a generated opaque id.
func SplitFiles(files []InputFile) []WorkUnit {
	if len(files) == 0 {
		return nil
	}
	units := make([]WorkUnit, 0, len(files))
	for i, f := range files {
		mt := f.MimeType
		if mt == "" {
			mt = detectMIME(f.Data)
		}
		units = append(units, WorkUnit{
			ID:       uuid.New().String(),
			Kind:     ModeFile,
			Index:    i,
			Name:     f.Name,
			Payload:  f.Data,
			MimeType: mt,
		})
	}
	return units
}

// detectMIME sniffs the content type and drops parameters such as charset.
func detectMIME(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mt)
}
