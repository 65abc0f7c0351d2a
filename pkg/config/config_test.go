package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/railkit/stationcode/pkg/allocate"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.NormalizerOptions()
	require.NoError(t, err)
	assert.Equal(t, normalize.DefaultOptions(), opts)

	in, err := cfg.DatasetOptions()
	require.NoError(t, err)
	assert.Equal(t, dataset.DefaultOptions(), in)

	policy, err := cfg.SweepPolicy()
	require.NoError(t, err)
	assert.Equal(t, allocate.SweepLastWins, policy)
	assert.False(t, cfg.Output.WriteHeader)
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), again)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[normalize]
preset = "apostrophe"
letters_only = false

[allocate]
sweep = "first"
registry = "codes.db"

[input]
delimiter = ";"
header = false

[lookup]
threshold = 0.8
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	opts, err := cfg.NormalizerOptions()
	require.NoError(t, err)
	assert.Equal(t, normalize.ApostropheRules(), opts.Rules)
	assert.False(t, opts.LettersOnly)
	assert.True(t, opts.FoldAccents, "unset keys keep their defaults")

	policy, err := cfg.SweepPolicy()
	require.NoError(t, err)
	assert.Equal(t, allocate.SweepFirstWins, policy)
	assert.Equal(t, "codes.db", cfg.Allocate.Registry)

	in, err := cfg.DatasetOptions()
	require.NoError(t, err)
	assert.Equal(t, ";", in.Delimiter)
	assert.False(t, in.Header)
	assert.Equal(t, 1, in.IDColumn)
	assert.Equal(t, 0.8, cfg.Lookup.Threshold)
}

func TestLoadConfigExplicitRules(t *testing.T) {
	path := writeConfig(t, `
[[normalize.rules]]
old = "_"
new = " "
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	opts, err := cfg.NormalizerOptions()
	require.NoError(t, err)
	assert.Equal(t, []normalize.Rule{{Old: "_", New: " "}}, opts.Rules)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	path := writeConfig(t, `
[allocate]
sweep = "first"

[input]
name_column = "zero"
id_column = 2

[lookup]
threshold = 1
complete_limit = "many"

[[normalize.rules]]
old = "-"
new = 5
[[normalize.rules]]
old = "_"
new = " "
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "first", cfg.Allocate.Sweep)
	assert.Equal(t, 0, cfg.Input.NameColumn, "bad value keeps the default")
	assert.Equal(t, 2, cfg.Input.IDColumn)
	assert.Equal(t, 1.0, cfg.Lookup.Threshold)
	assert.Equal(t, 10, cfg.Lookup.CompleteLimit)
	assert.Equal(t, []normalize.Rule{{Old: "_", New: " "}}, cfg.Normalize.Rules)
}

func TestLoadConfigUnparseable(t *testing.T) {
	path := writeConfig(t, "[[[ not toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"sweep", "[allocate]\nsweep = \"middle\"\n"},
		{"preset", "[normalize]\npreset = \"klingon\"\n"},
		{"on_invalid", "[input]\non_invalid = \"ignore\"\n"},
		{"same columns", "[input]\nname_column = 1\n"},
		{"threshold", "[lookup]\nthreshold = 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigWithPriority(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	custom := writeConfig(t, "[lookup]\nthreshold = 0.9\n")
	cfg, path, err := LoadConfigWithPriority(custom)
	require.NoError(t, err)
	assert.Equal(t, custom, path)
	assert.Equal(t, 0.9, cfg.Lookup.Threshold)

	cfg, path, err = LoadConfigWithPriority(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "stationcode", FileName), path)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)
}

func TestRebuildConfigFile(t *testing.T) {
	path := writeConfig(t, "[lookup]\nthreshold = 0.9\n")

	got, err := RebuildConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestOutputPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Dir = "/srv/out"

	assert.Equal(t, filepath.Join("/srv/out", "codes.tsv"), cfg.OutputPath("codes.tsv"))
	assert.Equal(t, "/tmp/x.tsv", cfg.OutputPath("/tmp/x.tsv"))
	assert.Equal(t, "", cfg.OutputPath(""))
}
