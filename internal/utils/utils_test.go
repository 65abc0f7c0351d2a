package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDirFor(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	assert.Equal(t, filepath.Join("/xdg", AppName), configDirFor("linux", "/home/u", env(map[string]string{"XDG_CONFIG_HOME": "/xdg"})))
	assert.Equal(t, filepath.Join("/home/u", ".config", AppName), configDirFor("linux", "/home/u", env(nil)))
	assert.Equal(t, filepath.Join("/home/u", ".config", AppName), configDirFor("darwin", "/home/u", env(nil)))
	assert.Equal(t, filepath.Join("C:/Users/u/AppData/Roaming", AppName), configDirFor("windows", "C:/Users/u", env(map[string]string{"APPDATA": "C:/Users/u/AppData/Roaming"})))
}

func TestResolveDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	assert.Equal(t, dir, ResolveDir("", dir))
	assert.True(t, FileExists(dir))
	assert.Equal(t, "", ResolveDir())
}

func TestSaveAndParseTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")

	type section struct {
		Name  string  `toml:"name"`
		Limit int     `toml:"limit"`
		Ratio float64 `toml:"ratio"`
		On    bool    `toml:"on"`
	}
	type file struct {
		Main  section             `toml:"main"`
		Rules []map[string]string `toml:"rules"`
	}
	in := file{Main: section{Name: "x", Limit: 3, Ratio: 0.5, On: true}, Rules: []map[string]string{{"old": "-", "new": " "}}}
	require.NoError(t, SaveTOMLFile(in, path))

	var out file
	require.NoError(t, LoadTOMLFile(path, &out))
	assert.Equal(t, in, out)

	raw, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	main, ok := ExtractSection(raw, "main")
	require.True(t, ok)

	s, _ := ExtractString(main, "name")
	n, _ := ExtractInt64(main, "limit")
	f, _ := ExtractFloat(main, "ratio")
	b, _ := ExtractBool(main, "on")
	assert.Equal(t, "x", s)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0.5, f)
	assert.True(t, b)

	f, ok = ExtractFloat(main, "limit")
	assert.True(t, ok, "integers are accepted as floats")
	assert.Equal(t, 3.0, f)

	tables, ok := ExtractTables(raw, "rules")
	require.True(t, ok)
	require.Len(t, tables, 1)
	assert.Equal(t, "-", tables[0]["old"])

	_, ok = ExtractString(main, "limit")
	assert.False(t, ok)
}

func TestCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.tsv")
	f, err := CreateFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("x")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestGetAbsolutePath(t *testing.T) {
	assert.Equal(t, "unknown", GetAbsolutePath(""))
	assert.True(t, filepath.IsAbs(GetAbsolutePath("rel/file")))
	assert.Equal(t, "/abs/file", GetAbsolutePath("/abs/file"))
}
