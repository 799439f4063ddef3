package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type clubRow struct {
	Name string
	Code string
	Note string
}

func clubTable() Table[clubRow] {
	return NewTable("clubs", "Clubs",
		Column[clubRow]{Key: "name", Header: "Club", Kind: KindText, SortKey: "club_name", Value: func(r clubRow) string { return r.Name }},
		Column[clubRow]{Key: "code", Header: "Code", Kind: KindText, Value: func(r clubRow) string { return r.Code }},
		Column[clubRow]{Key: "note", Header: "Note", Kind: KindText, Value: func(r clubRow) string { return r.Note }},
	)
}

func TestCSVRoundTripPreservesCommasAndQuotes(t *testing.T) {
	rows := []clubRow{
		{Name: "Ballet, Junior", Code: "BJ-01", Note: `She said "bring shoes"`},
		{Name: "Street Dance", Code: "SD-02", Note: "plain"},
	}

	payload, err := NewCSVExporter().Render(clubTable().Dataset(rows))
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"Ballet, Junior"`)
	assert.Contains(t, string(payload), `"She said ""bring shoes"""`)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Club", "Code", "Note"}, records[0])
	assert.Equal(t, []string{"Ballet, Junior", "BJ-01", `She said "bring shoes"`}, records[1])
	assert.Equal(t, []string{"Street Dance", "SD-02", "plain"}, records[2])
}

func TestCSVRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"only-one"}}})
	assert.Error(t, err)
}

func TestTableSelectAndSortColumn(t *testing.T) {
	table := clubTable()

	sortKey, ok := table.SortColumn("name")
	assert.True(t, ok)
	assert.Equal(t, "club_name", sortKey)

	_, ok = table.SortColumn("code")
	assert.False(t, ok)

	narrowed, err := table.Select([]string{"note", "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Note", "Club"}, narrowed.Headers())

	_, err = table.Select([]string{"missing"})
	assert.Error(t, err)
}

func TestNewTablePanicsOnDuplicateKeys(t *testing.T) {
	assert.Panics(t, func() {
		NewTable("dup", "Dup",
			Column[clubRow]{Key: "a", Value: func(r clubRow) string { return r.Name }},
			Column[clubRow]{Key: "a", Value: func(r clubRow) string { return r.Code }},
		)
	})
}

func TestXLSXExporterWritesRows(t *testing.T) {
	payload, err := NewXLSXExporter().Render(clubTable().Dataset([]clubRow{{Name: "Tap", Code: "T1", Note: "x"}}))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Clubs")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Club", "Code", "Note"}, rows[0])
	assert.Equal(t, []string{"Tap", "T1", "x"}, rows[1])
}

func TestPDFExporterProducesDocument(t *testing.T) {
	payload, err := NewPDFExporter().Render(clubTable().Dataset([]clubRow{{Name: "Tap", Code: "T1"}}))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("EXCEL")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}
