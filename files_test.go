package slr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "c.md"),
	}
	contents := [][]byte{
		[]byte("%PDF-1.4\n%stub\n"),
		[]byte("plain abstract text"),
		[]byte("# Notes\n"),
	}
	for i, p := range paths {
		require.NoError(t, os.WriteFile(p, contents[i], 0o600))
	}

	files, err := LoadFiles(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, "b.pdf", files[0].Name)
	assert.Equal(t, "a.txt", files[1].Name)
	assert.Equal(t, "c.md", files[2].Name)
	assert.Equal(t, contents[1], files[1].Data)

	assert.Equal(t, "application/pdf", files[0].MimeType)
	assert.Equal(t, "text/plain", files[1].MimeType)
	assert.Equal(t, "text/markdown", files[2].MimeType)
}

func TestLoadFiles_MissingFile(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.txt")
	require.NoError(t, os.WriteFile(ok, []byte("x"), 0o600))

	_, err := LoadFiles(context.Background(), []string{ok, filepath.Join(dir, "missing.pdf")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFiles_Empty(t *testing.T) {
	files, err := LoadFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}
