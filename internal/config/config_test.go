package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "mappings", "sales")
	require.NoError(t, os.MkdirAll(nested, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("parallelism: 2\n"), 0600))

	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"config in start dir", root, root},
		{"config two levels up", nested, root},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindProjectRoot(tt.start))
		})
	}
}

func TestFindConfigFile_PrefersYAML(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, FindConfigFile(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameAlt), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), nil, 0600))
	assert.Equal(t, filepath.Join(dir, ConfigFileName), FindConfigFile(dir))
}

func TestDefaults_ReturnFreshSlices(t *testing.T) {
	a := DefaultMergeUpdateExclude()
	a[0] = "CHANGED"
	assert.Equal(t, "CREATE_DT", DefaultMergeUpdateExclude()[0])

	d := Defaults()
	assert.Equal(t, DefaultParallelism, d["parallelism"])
	assert.Equal(t, true, d["compiler.exclude_keys_from_merge_update"])
}
