package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLookupByCode(t *testing.T) {
	ds := Builtin()

	got, ok := ds.Lookup("check statute 14:30")
	require.True(t, ok)
	assert.Equal(t, "14:30", got.Code)
	assert.Equal(t, "Murder", got.Title)

	got, ok = ds.Lookup("what is 14:30.1")
	require.True(t, ok)
	assert.Equal(t, "Second Degree Murder", got.Title)
}

func TestLookupByTitleAndText(t *testing.T) {
	ds := Builtin()

	got, ok := ds.Lookup("Is this SIMPLE BATTERY?")
	require.True(t, ok)
	assert.Equal(t, "14:35", got.Code)

	got, ok = ds.Lookup("dangerous weapon")
	require.True(t, ok)
	assert.Equal(t, "14:34", got.Code)
}

func TestLookupMiss(t *testing.T) {
	_, ok := Builtin().Lookup("jaywalking ordinance")
	assert.False(t, ok)

	_, ok = Builtin().Lookup("  ")
	assert.False(t, ok)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("statutes:\n  - code: \"1:1\"\n    title: Test\n    text: body\n"), 0o600))

	ds, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ds.Records(), 1)
	assert.Equal(t, "1:1", ds.Records()[0].Code)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("statutes: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("statutes:\n  - title: missing code\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesBuiltin(t *testing.T) {
	ds, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, len(Builtin().Records()), len(ds.Records()))
}
