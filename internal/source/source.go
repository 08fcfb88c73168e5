// Package source resolves file ids to their on-disk byte streams. The
// acquisition pipeline (download, checksum verification, unzip) is
// external; by the time this tool runs, each file lives under the data
// root as {id}/{id}.des and {id}/{id}.dat.
//
// The store is built on billy.Filesystem so production uses the real
// OS filesystem while tests run against an in-memory one.
package source

import (
	"fmt"
	"io"
	"path"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Store locates descriptor and data files for file ids.
type Store struct {
	fs billy.Filesystem
}

// NewStore wraps a filesystem whose root is the data directory.
func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOSStore opens the data directory on the local filesystem.
func NewOSStore(dataDir string) *Store {
	return &Store{fs: osfs.New(dataDir)}
}

func (s *Store) descriptorPath(fileID string) string {
	return path.Join(fileID, fileID+".des")
}

func (s *Store) dataPath(fileID string) string {
	return path.Join(fileID, fileID+".dat")
}

// Has reports whether both the descriptor and the data file are
// present for the id.
func (s *Store) Has(fileID string) bool {
	if _, err := s.fs.Stat(s.descriptorPath(fileID)); err != nil {
		return false
	}
	_, err := s.fs.Stat(s.dataPath(fileID))
	return err == nil
}

// Descriptor reads the full DES descriptor for a file id.
func (s *Store) Descriptor(fileID string) ([]byte, error) {
	f, err := s.fs.Open(s.descriptorPath(fileID))
	if err != nil {
		return nil, fmt.Errorf("open descriptor for %s: %w", fileID, err)
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read descriptor for %s: %w", fileID, err)
	}
	return content, nil
}

// OpenData opens the fixed-width data stream for a file id. The caller
// owns the returned handle; reopening yields a fresh single-pass
// sequence.
func (s *Store) OpenData(fileID string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.dataPath(fileID))
	if err != nil {
		return nil, fmt.Errorf("open data for %s: %w", fileID, err)
	}
	return f, nil
}
