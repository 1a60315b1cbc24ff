package slr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCSV(t *testing.T) {
	csv := "ID,Title,Abstract\n1,Sleep and memory,\"Adults, n=40\"\n2,Caffeine,Randomized trial\n"
	text, err := IngestCSV(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t,
		"ID 1: Title: Sleep and memory\nAbstract: Adults, n=40\n\nID 2: Title: Caffeine\nAbstract: Randomized trial",
		text)

	recs := SplitRecords(text)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "2", recs[1].ID)
}

func TestIngestCSV_Aliases(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{
			name: "description alias and case",
			csv:  "id,TITLE,Description\n7,T,D\n",
			want: "ID 7: Title: T\nAbstract: D",
		},
		{
			name: "abstract wins over description",
			csv:  "Title,Description,Abstract\nT,desc,abs\n",
			want: "ID 1: Title: T\nAbstract: abs",
		},
		{
			name: "missing id uses row number",
			csv:  "Title\nFirst\nSecond\n",
			want: "ID 1: Title: First\nAbstract: \n\nID 2: Title: Second\nAbstract: ",
		},
		{
			name: "non numeric id uses row number",
			csv:  "ID,Abstract\nabc,text\n",
			want: "ID 1: Title: \nAbstract: text",
		},
		{
			name: "byte order mark and blank rows",
			csv:  "\ufeffID,Title\n3,A\n4,\n",
			want: "ID 3: Title: A\nAbstract: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IngestCSV(strings.NewReader(tt.csv))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIngestCSV_NoRecognizableColumns(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"empty", ""},
		{"unknown columns", "Author,Year\nSmith,2020\n"},
		{"only id", "ID\n1\n"},
		{"header only", "Title,Abstract\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IngestCSVNamed(strings.NewReader(tt.csv), "papers.csv")
			var ie *IngestionError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, "papers.csv", ie.Source)
			assert.ErrorIs(t, err, ErrNoRecognizableColumns)
			assert.Contains(t, err.Error(), "papers.csv")
		})
	}
}
