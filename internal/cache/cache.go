// Package cache keeps gob encoded values in files, one file per key.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind names the directory a cache lives in.
type Kind string

// Cache kinds.
const (
	TranscriptCache   Kind = "transcripts"
	OrganizationCache Kind = "organizations"
)

const cacheExt = ".gob"

var errInvalidKey = errors.New("invalid key")

// Store is a directory of gob files holding values of type T.
type Store[T any] struct {
	dir string
}

// New creates the directory of kind under baseDir.
func New[T any](baseDir string, kind Kind) (*Store[T], error) {
	dir := filepath.Join(baseDir, string(kind))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store[T]{dir: dir}, nil
}

func (s *Store[T]) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errInvalidKey
	}
	return filepath.Join(s.dir, key+cacheExt), nil
}

// Get decodes the value stored under key. A missing key yields an error
// matching [os.ErrNotExist].
func (s *Store[T]) Get(key string) (T, error) {
	var v T
	path, err := s.path(key)
	if err != nil {
		return v, fmt.Errorf("get: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return v, fmt.Errorf("get: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := gob.NewDecoder(f).Decode(&v); err != nil {
		return v, fmt.Errorf("get: decode: %w", err)
	}
	return v, nil
}

// Put stores v under key, replacing what was there. The file is written
// next to its destination first so readers never see half a value.
func (s *Store[T]) Put(key string, v T) error {
	path, err := s.path(key)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("put: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store[T]) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
