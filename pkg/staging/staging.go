// Package staging implements the on-disk holding area for files in transit.
//
// An uploaded file is staged under <root>/<sender>/<recipient>/<basename>
// until the recipient accepts and downloads it. Staging survives neither
// party disconnecting: the file stays on disk until it is delivered or the
// operator clears the staging root.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Staging errors.
var (
	// ErrInvalidName reports a file or handle component that cannot be used
	// as a path element (empty, dot entries, or containing separators).
	ErrInvalidName = errors.New("staging: invalid path component")

	// ErrNotStaged reports a read of a file that was never staged or was
	// already delivered.
	ErrNotStaged = errors.New("staging: file not staged")
)

// Store is a filesystem-backed staging area rooted at a single directory.
// Safe for concurrent use: distinct (sender, recipient, filename) triples
// never collide, and re-staging the same triple truncates the previous copy.
type Store struct {
	root string
}

// New creates a staging store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging: empty root directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("staging: resolve root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create root %q: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute staging root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the staging path for a (sender, recipient, filename) triple
// without touching the filesystem. Each component must be a bare name:
// anything that could escape the staging root is rejected.
func (s *Store) Path(sender, recipient, filename string) (string, error) {
	for _, part := range []string{sender, recipient, filename} {
		if err := checkComponent(part); err != nil {
			return "", err
		}
	}
	return filepath.Join(s.root, sender, recipient, filename), nil
}

// Create opens a staging file for writing, truncating any previous copy and
// creating the per-pair directory as needed. The caller must close the
// returned writer; on error nothing is left behind except the directories.
func (s *Store) Create(ctx context.Context, sender, recipient, filename string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(sender, recipient, filename)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("staging: create directory for %q: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("staging: create %q: %w", path, err)
	}
	return f, nil
}

// Open opens a staged file for reading and returns its size. The caller
// must close the returned reader.
func (s *Store) Open(ctx context.Context, sender, recipient, filename string) (io.ReadCloser, uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	path, err := s.Path(sender, recipient, filename)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %q", ErrNotStaged, path)
		}
		return nil, 0, fmt.Errorf("staging: open %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("staging: stat %q: %w", path, err)
	}
	return f, uint32(info.Size()), nil
}

// Remove deletes a staged file after delivery. Removing a file that is not
// staged returns ErrNotStaged; the per-pair directories are kept.
func (s *Store) Remove(sender, recipient, filename string) error {
	path, err := s.Path(sender, recipient, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotStaged, path)
		}
		return fmt.Errorf("staging: remove %q: %w", path, err)
	}
	return nil
}

// checkComponent rejects path elements that are empty, dot entries, or
// contain a separator on any supported platform.
func checkComponent(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
