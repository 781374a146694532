// Package filestore keeps uploaded files on local disk and serves them under /storage/.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// MaxFileSize bounds a single upload.
const MaxFileSize = 5 << 20

var (
	ErrInvalidKey = errors.New("invalid file key")
	ErrTooLarge   = errors.New("file is too large")
)

type Log interface {
	Info(string, ...zap.Field)
}

type LocalStore struct {
	dir       string
	publicURL string
	log       Log
}

// NewLocalStore creates dir if needed. publicURL is the externally visible
// address of the server, e.g. http://localhost:8080.
func NewLocalStore(dir, publicURL string, log Log) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/"), log: log}, nil
}

// Dir is the directory files are served from.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save writes r under key and returns the public URL of the file.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	key = path.Clean("/" + key)[1:]
	if key == "" || strings.HasSuffix(key, "/") {
		return "", ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create file dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, MaxFileSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if n > MaxFileSize {
		return "", ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store file: %w", err)
	}

	s.log.Info("File stored", zap.String("key", key), zap.Int64("bytes", n))
	return s.publicURL + "/storage/" + (&url.URL{Path: key}).EscapedPath(), nil
}
