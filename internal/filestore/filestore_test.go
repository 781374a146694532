package filestore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drstein77/grocerystore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/", logger.NewNop())
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "product-images/abc.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/product-images/abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "product-images", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080", logger.NewNop())
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/etc/passwd", url)
	assert.FileExists(t, filepath.Join(dir, "etc", "passwd"))

	_, err = s.Save(context.Background(), "../", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSaveRejectsLargeFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080", logger.NewNop())
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "big.png", bytes.NewReader(make([]byte, MaxFileSize+1)))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.NoFileExists(t, filepath.Join(dir, "big.png"))
}
