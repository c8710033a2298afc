package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "current.mcat")

	require.NoError(t, WriteArtifactFile(path, []byte("first")))
	require.NoError(t, WriteArtifactFile(path, []byte("second")))

	data, err := ArtifactFile(path).ReadArtifact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// No temporary files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestArtifactFile_Errors(t *testing.T) {
	dir := t.TempDir()

	assert.ErrorIs(t, WriteArtifactFile("", []byte("x")), ErrEmptyString)
	assert.ErrorIs(t, WriteArtifactFile(filepath.Join(dir, "a"), nil), ErrInvalidArtifact)

	_, err := ReadArtifactFile(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
