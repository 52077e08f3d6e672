package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	root := t.TempDir()

	paths, err := NewPaths(root)
	require.NoError(t, err)

	assert.Equal(t, root, paths.OutputDir)
	assert.Equal(t, filepath.Join(root, "figures"), paths.FiguresDir)
	assert.Equal(t, filepath.Join(root, "tables", "tables.xlsx"), paths.WorkbookFile)
	assert.Equal(t, filepath.Join(root, "tables", "loadings.csv"), paths.TablePath("loadings"))
	assert.Equal(t, "figures/scree.png", paths.Rel(filepath.Join(paths.FiguresDir, "scree.png")))
}

func TestNewPaths_Empty(t *testing.T) {
	_, err := NewPaths("")
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	paths, err := NewPaths(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.OutputDir, paths.FiguresDir, paths.TablesDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.True(t, FileExists(paths.LogsDir))
	assert.False(t, FileExists(paths.ReportFile))
}
