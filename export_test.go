package slr

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportTable = "| Study ID | Paper title | Data |\n|---|---|---|\n| 1 | X | ok |\n| 2 | Z | fine |"

func TestToCSV(t *testing.T) {
	out, err := ToCSV(exportTable)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus exactly two data rows")
	assert.Equal(t, []string{"Study ID", "Paper title", "Data"}, records[0])
	assert.Equal(t, []string{"1", "X", "ok"}, records[1])
	assert.Equal(t, []string{"2", "Z", "fine"}, records[2])
}

func TestToCSV_PadsShortRowsAndQuotes(t *testing.T) {
	md := "| a | b | c |\n|---|---|---|\n| 1 |\n| x, y | \"q\" | z |"
	out, err := ToCSV(md)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "", ""}, records[1])
	assert.Equal(t, []string{"x, y", "\"q\"", "z"}, records[2])
}

func TestParseTable(t *testing.T) {
	header, rows, err := ParseTable("noise\n" + exportTable + "\ntrailing")
	require.NoError(t, err)
	assert.Equal(t, []string{"Study ID", "Paper title", "Data"}, header)
	assert.Equal(t, [][]string{{"1", "X", "ok"}, {"2", "Z", "fine"}}, rows)
}

func TestParseTable_TooFewLines(t *testing.T) {
	for _, md := range []string{"", "no table", "| only header |"} {
		_, _, err := ParseTable(md)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, "input %q", md)
	}

	_, err := ToCSV("| only header |")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Lines)
}

func TestToClipboardText(t *testing.T) {
	assert.Equal(t, exportTable, ToClipboardText(exportTable))
}
