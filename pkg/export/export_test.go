package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/railkit/stationcode/pkg/allocate"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/normalize"
	"github.com/railkit/stationcode/pkg/pipeline"
	"github.com/railkit/stationcode/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = "name\tid\tregion\tlat\tlon\n" +
	"ROMA TERMINI\tS08409\tLAZIO\t41.9010\t12.5016\n" +
	"ROMA TIBURTINA\tS08217\tLAZIO\t41.9104\t12.5309\n" +
	"ROMA TERM.\tS08409\tLAZIO \t\t\n" +
	"BOLOGNA\tS05043\t EMILIA\t44.5058\t11.3431\n"

func allocated(t *testing.T) (*dataset.Dataset, *pipeline.Result, *registry.Memory) {
	t.Helper()
	ds, err := dataset.Read(strings.NewReader(listing), dataset.DefaultOptions())
	require.NoError(t, err)

	store := registry.NewMemory()
	res, err := pipeline.New(normalize.Default(), store, allocate.New(store)).Run(ds.Entities())
	require.NoError(t, err)
	return ds, res, store
}

func TestWriteCodes(t *testing.T) {
	_, res, _ := allocated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCodes(&buf, res))

	want := "ROMA TERMINI\tRAT\t19473\n" +
		"ROMA TIBURTINA\tRAA\t17\n" +
		"BOLOGNA\tBNA\t417\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteMappingLoadsBack(t *testing.T) {
	_, res, _ := allocated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteMapping(&buf, res))
	assert.Equal(t, "RAT\tS08409\nRAA\tS08217\nBNA\tS05043\n", buf.String())

	reg := registry.NewMemory()
	n, err := registry.LoadMapping(&buf, reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	c, ok, err := reg.CodeOf("S05043")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, code.Code("BNA"), c)
}

func TestWriteRecoded(t *testing.T) {
	ds, res, _ := allocated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteRecoded(&buf, ds, res, false))
	want := "ROMA TERMINI\tRAT\tLAZIO\t41.9010\t12.5016\n" +
		"ROMA TIBURTINA\tRAA\tLAZIO\t41.9104\t12.5309\n" +
		"ROMA TERM.\tRAT\tLAZIO \t\t\n" +
		"BOLOGNA\tBNA\t EMILIA\t44.5058\t11.3431\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteRecoded(&buf, ds, res, true))
	assert.True(t, strings.HasPrefix(buf.String(), "name\tid\tregion\tlat\tlon\n"))
}

func TestWriteRecodedRoundTrip(t *testing.T) {
	ds, res, store := allocated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteRecoded(&buf, ds, res, false))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, len(ds.Rows))

	for i, line := range lines {
		fields := strings.Split(line, "\t")
		src, ok, err := store.SourceOf(code.Code(fields[1]))
		require.NoError(t, err)
		require.True(t, ok)
		fields[1] = src
		assert.Equal(t, ds.Rows[i].Raw, strings.Join(fields, "\t"))
	}
}

func TestWriteRecodedMissingCode(t *testing.T) {
	ds, _, _ := allocated(t)

	err := WriteRecoded(&bytes.Buffer{}, ds, &pipeline.Result{}, false)
	assert.ErrorContains(t, err, "line 2")
}

func TestWriteReport(t *testing.T) {
	_, res, _ := allocated(t)

	var buf bytes.Buffer
	WriteReport(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "ROMA TIBURTINA")
	assert.Contains(t, out, "RAA")
	assert.Contains(t, out, "tail")
	assert.Contains(t, out, "19473")
}
