package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = "name\tid\tregion\tlat\tlon\r\n" +
	"ROMA TERMINI\tS08409\tLAZIO\t41.9010\t12.5016\r\n" +
	"ROMA TIBURTINA\tS08217\tLAZIO\t41.9104\t12.5309\n" +
	"ROMA TERM.\tS08409\tLAZIO\t\t\n" +
	"\n" +
	"BOLOGNA C.LE\tS05043\tEMILIA\tx\ty\n" +
	"BOLOGNA CENTRALE\tS05043\tEMILIA\t44.5058\t11.3431\n"

func TestReadKeepsHeaderAndOrder(t *testing.T) {
	ds, err := Read(strings.NewReader(listing), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, ds.HasHeader)
	assert.Equal(t, "name\tid\tregion\tlat\tlon", ds.Header)
	require.Len(t, ds.Rows, 5)

	assert.Equal(t, 2, ds.Rows[0].Line)
	assert.Equal(t, "ROMA TERMINI\tS08409\tLAZIO\t41.9010\t12.5016", ds.Rows[0].Raw, "carriage return stripped")
	assert.Equal(t, 7, ds.Rows[4].Line, "blank lines still count")
	assert.Equal(t, "S05043", ds.SourceID(ds.Rows[4]))
	assert.Equal(t, "BOLOGNA CENTRALE", ds.Name(ds.Rows[4]))
}

func TestReadWithoutHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false

	ds, err := Read(strings.NewReader("A\t1\nB\t2\n"), opts)
	require.NoError(t, err)
	assert.False(t, ds.HasHeader)
	assert.Len(t, ds.Rows, 2)
}

func TestEntities(t *testing.T) {
	ds, err := Read(strings.NewReader(listing), DefaultOptions())
	require.NoError(t, err)

	ents := ds.Entities()
	require.Len(t, ents, 3)

	assert.Equal(t, "S08409", ents[0].SourceID)
	assert.Equal(t, "ROMA TERMINI", ents[0].Name, "shorter spelling must not replace")
	assert.Equal(t, []string{"ROMA TERM."}, ents[0].Aliases)
	assert.True(t, ents[0].HasCoords)
	assert.InDelta(t, 41.9010, ents[0].Lat, 1e-9)

	assert.Equal(t, "S08217", ents[1].SourceID)

	assert.Equal(t, "S05043", ents[2].SourceID)
	assert.Equal(t, "BOLOGNA CENTRALE", ents[2].Name)
	assert.Equal(t, []string{"BOLOGNA C.LE"}, ents[2].Aliases)
	assert.True(t, ents[2].HasCoords, "coordinates come from the first row that has them")
	assert.InDelta(t, 11.3431, ents[2].Lon, 1e-9)
}

func TestEntitiesTieKeepsFirst(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false

	ds, err := Read(strings.NewReader("CANTÙ\t9\nCANTU\t9\nCANT\t9\n"), opts)
	require.NoError(t, err)

	ents := ds.Entities()
	require.Len(t, ents, 1)
	// both spellings have five runes
	assert.Equal(t, "CANTÙ", ents[0].Name)
	assert.Equal(t, []string{"CANTU", "CANT"}, ents[0].Aliases)
	assert.False(t, ents[0].HasCoords)
}

func TestReadRejectsBadRows(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false

	input := "ROMA\tS1\n" +
		"NOID\t\n" +
		"\tS3\n" +
		"LONELY\n"

	_, err := Read(strings.NewReader(input), opts)
	require.Error(t, err)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Line)
	assert.Equal(t, "empty id", rowErr.Reason)

	msg := err.Error()
	assert.Contains(t, msg, "line 3: empty name")
	assert.Contains(t, msg, "line 4: expected at least 2 columns, got 1")
}

func TestReadSkipsBadRows(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	opts.OnInvalid = SkipInvalid

	ds, err := Read(strings.NewReader("ROMA\tS1\nNOID\t\nMILANO\tS2\n"), opts)
	require.NoError(t, err)

	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "MILANO", ds.Name(ds.Rows[1]))
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, 2, ds.Skipped[0].Line)
	assert.Len(t, ds.Entities(), 2)
}

func TestReadStrictColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	opts.StrictColumns = true

	_, err := Read(strings.NewReader("A\t1\tx\nB\t2\n"), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: expected 3 columns, got 2")

	opts.StrictColumns = false
	ds, err := Read(strings.NewReader("A\t1\tx\nB\t2\n"), opts)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
}

func TestReadStrictColumnsWidthFromAcceptedRow(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false
	opts.StrictColumns = true
	opts.OnInvalid = SkipInvalid

	// the first row is rejected for its empty id, so it must not fix the width
	ds, err := Read(strings.NewReader("NOID\t\tx\nROMA\tS1\nMILANO\tS2\n"), opts)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, "empty id", ds.Skipped[0].Reason)

	ds, err = Read(strings.NewReader("NOID\t\nROMA\tS1\tx\nMILANO\tS2\n"), opts)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	require.Len(t, ds.Skipped, 2)
	assert.Equal(t, "expected 3 columns, got 2", ds.Skipped[1].Reason)
}

func TestReadRejectsNameWithoutLetters(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = false

	_, err := Read(strings.NewReader("ROMA\tS1\n123\tS2\n"), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2: name has no letters A-Z")

	opts.OnInvalid = SkipInvalid
	ds, err := Read(strings.NewReader("ROMA\tS1\n123\tS2\n- / .\tS3\nCANTÙ\tS4\n"), opts)
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
	require.Len(t, ds.Skipped, 2)
	assert.Equal(t, 2, ds.Skipped[0].Line)
	assert.Equal(t, 3, ds.Skipped[1].Line)
}

func TestReadCustomDelimiter(t *testing.T) {
	opts := Options{Delimiter: ";", NameColumn: 1, IDColumn: 0, LatColumn: -1, LonColumn: -1}

	ds, err := Read(strings.NewReader("7;NAPOLI CENTRALE\n"), opts)
	require.NoError(t, err)

	ents := ds.Entities()
	require.Len(t, ents, 1)
	assert.Equal(t, Entity{SourceID: "7", Name: "NAPOLI CENTRALE"}, ents[0])
}

func TestParseInvalidPolicy(t *testing.T) {
	p, err := ParseInvalidPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, SkipInvalid, p)
	assert.Equal(t, "skip", p.String())

	p, err = ParseInvalidPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailOnInvalid, p)

	_, err = ParseInvalidPolicy("ignore")
	assert.Error(t, err)
}
