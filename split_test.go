package slr

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "ID %d: Title: Paper %d\nAbstract: About %d\n\n", i, i, i)
	}
	return sb.String()
}

func TestSplitRecords(t *testing.T) {
	t.Run("marked records", func(t *testing.T) {
		recs := SplitRecords("ID 1: Title: X\nAbstract: Y\n\nID 2: Title: Z\nAbstract: W")
		require.Len(t, recs, 2)
		assert.Equal(t, "1", recs[0].ID)
		assert.Equal(t, "ID 1: Title: X\nAbstract: Y", recs[0].Text)
		assert.Equal(t, "2", recs[1].ID)
		assert.Equal(t, "ID 2: Title: Z\nAbstract: W", recs[1].Text)
	})

	t.Run("preamble kept", func(t *testing.T) {
		recs := SplitRecords("Papers follow.\nID 3: A")
		require.Len(t, recs, 2)
		assert.Equal(t, "", recs[0].ID)
		assert.Equal(t, "Papers follow.", recs[0].Text)
		assert.Equal(t, "3", recs[1].ID)
	})

	t.Run("no markers", func(t *testing.T) {
		recs := SplitRecords("  a single abstract  ")
		require.Len(t, recs, 1)
		assert.Equal(t, "a single abstract", recs[0].Text)
	})

	t.Run("blank input", func(t *testing.T) {
		assert.Empty(t, SplitRecords(" \n\t "))
	})

	t.Run("multi digit ids", func(t *testing.T) {
		recs := SplitRecords("ID 10: a ID 11: b")
		require.Len(t, recs, 2)
		assert.Equal(t, "10", recs[0].ID)
		assert.Equal(t, "ID 10: a", recs[0].Text)
		assert.Equal(t, "ID 11: b", recs[1].Text)
	})
}

func TestSplitText_BatchCount(t *testing.T) {
	tests := []struct {
		records, batch, want int
	}{
		{records: 1, batch: 10, want: 1},
		{records: 10, batch: 10, want: 1},
		{records: 11, batch: 10, want: 2},
		{records: 25, batch: 10, want: 3},
		{records: 7, batch: 3, want: 3},
		{records: 4, batch: 1, want: 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.records, tt.batch), func(t *testing.T) {
			units := SplitText(makeRecords(tt.records), tt.batch)
			require.Len(t, units, tt.want)

			// every record exactly once, contiguous, in order
			next := 1
			for i, u := range units {
				assert.Equal(t, ModeText, u.Kind)
				assert.Equal(t, i, u.Index)
				assert.Equal(t, fmt.Sprintf("batch-%d", i+1), u.ID)
				assert.LessOrEqual(t, len(u.Records), tt.batch)
				for _, r := range u.Records {
					assert.Equal(t, fmt.Sprint(next), r.ID)
					next++
				}
			}
			assert.Equal(t, tt.records+1, next)
		})
	}
}

func TestSplitText_DefaultsAndEmpty(t *testing.T) {
	assert.Empty(t, SplitText("", 10))
	assert.Empty(t, SplitText("   ", 10))

	units := SplitText(makeRecords(12), 0)
	require.Len(t, units, 2)
	assert.Len(t, units[0].Records, DefaultBatchSize)
}

func TestWorkUnit_Content(t *testing.T) {
	units := SplitText("ID 1: Title: X\nAbstract: Y\n\nID 2: Title: Z\nAbstract: W", 10)
	require.Len(t, units, 1)
	assert.Equal(t, "ID 1: Title: X\nAbstract: Y\n\nID 2: Title: Z\nAbstract: W", units[0].Content())
	assert.Equal(t, "batch-1", units[0].Label())
}

func TestSplitFiles(t *testing.T) {
	files := []InputFile{
		{Name: "a.pdf", Data: []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj\n")},
		{Name: "b.txt", Data: []byte("plain words"), MimeType: "text/plain"},
		{Name: "c.pdf", Data: []byte("%PDF-1.4\n")},
	}
	units := SplitFiles(files)
	require.Len(t, units, 3)

	seen := map[string]bool{}
	for i, u := range units {
		assert.Equal(t, ModeFile, u.Kind)
		assert.Equal(t, i, u.Index)
		assert.Equal(t, files[i].Name, u.Name)
		assert.Equal(t, files[i].Name, u.Label())
		_, err := uuid.Parse(u.ID)
		assert.NoError(t, err, "unit id should be a uuid")
		assert.False(t, seen[u.ID], "unit ids must be unique")
		seen[u.ID] = true
	}
	assert.Equal(t, "application/pdf", units[0].MimeType)
	assert.Equal(t, "text/plain", units[1].MimeType)

	assert.Empty(t, SplitFiles(nil))
}
