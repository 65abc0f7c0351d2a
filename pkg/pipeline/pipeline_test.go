package pipeline

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/railkit/stationcode/pkg/allocate"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/normalize"
	"github.com/railkit/stationcode/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entities(t *testing.T, input string) []dataset.Entity {
	t.Helper()
	opts := dataset.DefaultOptions()
	opts.Header = false
	ds, err := dataset.Read(strings.NewReader(input), opts)
	require.NoError(t, err)
	return ds.Entities()
}

func run(t *testing.T, store registry.Registry, ents []dataset.Entity) *Result {
	t.Helper()
	r := New(normalize.Default(), store, allocate.New(store))
	res, err := r.Run(ents)
	require.NoError(t, err)
	return res
}

func TestRun(t *testing.T) {
	ents := entities(t, "ROMA TERMINI\tS08409\nROMA TIBURTINA\tS08217\nBOLOGNA\tS05043\nROMA TERM.\tS08409\n")
	store := registry.NewMemory()

	res := run(t, store, ents)
	require.Len(t, res.Assignments, 3)

	first := res.Assignments[0]
	assert.Equal(t, code.Code("RAT"), first.Code)
	assert.Equal(t, []string{"ROMA", "TERMINI"}, first.Tokens)
	assert.Equal(t, uint16(17|19<<10), first.Encoded)
	assert.Equal(t, allocate.StageSeed, first.Stage)

	assert.Equal(t, code.Code("RAA"), res.Assignments[1].Code)
	assert.Equal(t, allocate.StageTail, res.Assignments[1].Stage)
	assert.Equal(t, code.Code("BNA"), res.Assignments[2].Code)

	assert.Equal(t, 3, res.Stats.Entities)
	assert.Equal(t, 2, res.Stats.ByStage[allocate.StageSeed])
	assert.Equal(t, 1, res.Stats.ByStage[allocate.StageTail])

	n, err := store.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	c, ok := res.CodeFor("S08217")
	assert.True(t, ok)
	assert.Equal(t, code.Code("RAA"), c)
	assert.Len(t, res.Mapping(), 3)
}

func TestRunReusesExistingCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.db")

	store := registry.NewSQLite()
	require.NoError(t, store.Open(path))
	first := run(t, store, entities(t, "ROMA TIBURTINA\tS08217\n"))
	require.NoError(t, store.Close())
	assert.Equal(t, code.Code("RAT"), first.Assignments[0].Code)

	// the grown listing puts ROMA TERMINI first; ROMA TIBURTINA keeps RAT
	store = registry.NewSQLite()
	require.NoError(t, store.Open(path))
	defer store.Close()

	second := run(t, store, entities(t, "ROMA TERMINI\tS08409\nROMA TIBURTINA\tS08217\n"))
	require.Len(t, second.Assignments, 2)
	assert.Equal(t, code.Code("RAI"), second.Assignments[0].Code)
	assert.Equal(t, allocate.StageTail, second.Assignments[0].Stage)
	assert.Equal(t, code.Code("RAT"), second.Assignments[1].Code)
	assert.Equal(t, allocate.StageExisting, second.Assignments[1].Stage)

	assert.Equal(t, []registry.Entry{
		{Code: "RAT", SourceID: "S08217"},
		{Code: "RAI", SourceID: "S08409"},
	}, second.Registry)
}

func TestRunRegistryIncludesSeededCodes(t *testing.T) {
	store := registry.NewMemory()
	n, err := registry.LoadMapping(strings.NewReader("BNA\tS05043\n"), store)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	res := run(t, store, entities(t, "ROMA TERMINI\tS08409\n"))
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, []registry.Entry{
		{Code: "BNA", SourceID: "S05043"},
		{Code: "RAT", SourceID: "S08409"},
	}, res.Registry)
}

func TestRunUnique(t *testing.T) {
	names := []string{
		"ROMA TERMINI", "ROMA TIBURTINA", "ROMA OSTIENSE", "ROMA TRASTEVERE",
		"ROMA SAN PIETRO", "ROMA TUSCOLANA", "ROMA PRENESTINA", "ROMA NOMENTANA",
		"MILANO CENTRALE", "MILANO LAMBRATE", "MILANO ROGOREDO", "MILANO BOVISA",
	}
	var b strings.Builder
	for i, n := range names {
		b.WriteString(n + "\tS" + string(rune('A'+i)) + "\n")
	}

	res := run(t, registry.NewMemory(), entities(t, b.String()))
	seen := map[code.Code]bool{}
	for _, a := range res.Assignments {
		assert.True(t, a.Code.Valid())
		assert.False(t, seen[a.Code], "duplicate %s", a.Code)
		seen[a.Code] = true
	}
	assert.Len(t, seen, len(names))
}

func TestRunRejectsNameWithoutLetters(t *testing.T) {
	store := registry.NewMemory()
	r := New(normalize.Default(), store, allocate.New(store))

	_, err := r.Run([]dataset.Entity{{SourceID: "S1", Name: "123 / 456"}})
	assert.ErrorIs(t, err, allocate.ErrNoTokens)
}

func TestRunApostrophePreset(t *testing.T) {
	ents := entities(t, "L'AQUILA\tS1\nSANT`ILARIO D'ENZA\tS2\nLAQUILA\tS3\n")
	store := registry.NewMemory()
	n := normalize.New(normalize.Options{Rules: normalize.ApostropheRules(), FoldAccents: true})
	r := New(n, store, allocate.New(store))

	res, err := r.Run(ents)
	require.NoError(t, err)
	require.Len(t, res.Assignments, 3)

	assert.Equal(t, []string{"L'AQUILA"}, res.Assignments[0].Tokens)
	assert.Equal(t, []string{"SANT'ILARIO", "D'ENZA"}, res.Assignments[1].Tokens)
	for _, a := range res.Assignments {
		assert.True(t, a.Code.Valid(), "code %q", a.Code)
	}

	// codes match what the default preset gives the same names
	plain := run(t, registry.NewMemory(), ents)
	for i := range plain.Assignments {
		assert.Equal(t, plain.Assignments[i].Code, res.Assignments[i].Code)
	}
}
