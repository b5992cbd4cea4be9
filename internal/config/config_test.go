package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSources(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSourcesMissingFile(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Nil(t, sources)
}

func TestLoadSources(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: uisp-main
    name: Main UISP
    url: https://uisp.example.com
    token: abc123
  - name: No ID
    url: https://other.example.com
    token: def456
`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "uisp-main", sources[0].ID)
	assert.Equal(t, "Main UISP", sources[0].Name)
	assert.Equal(t, "https://uisp.example.com", sources[0].URL)
	assert.Equal(t, "abc123", sources[0].Token)

	// auto-assigned id keeps the file position stable
	assert.Equal(t, "source-2", sources[1].ID)
}

func TestLoadSourcesSkipsIncompleteEntries(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: no-token
    url: https://uisp.example.com
  - id: no-url
    token: abc123
  - id: good
    url: https://uisp.example.com
    token: abc123
`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "good", sources[0].ID)
}

func TestLoadSourcesMalformedYAML(t *testing.T) {
	path := writeSources(t, "sources: [not: {closed")

	_, err := LoadSources(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sources file")
}
