// Package store persists assets on disk. Committed files live under
// asset/<category>/<filename>; in-flight uploads are staged under a
// per-request staging directory and moved into place with a rename on
// commit. All metadata derives from the filesystem.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrExists reports a commit collision without overwrite.
	ErrExists = errors.New("file already exists")
	// ErrRead reports a failure reading the client's upload stream, as
	// opposed to a local storage failure.
	ErrRead = errors.New("read upload stream")
	// ErrNotFound reports a missing committed asset.
	ErrNotFound = errors.New("asset not found")
	// ErrBadName reports a filename that does not resolve to a single
	// path element.
	ErrBadName = errors.New("invalid file name")
)

const (
	assetDir   = "asset"
	stagingDir = "staging"
)

// Store is the on-disk asset store rooted at a single directory. Staging
// and committed trees share the root so commits are same-filesystem
// renames.
type Store struct {
	root   string
	logger *slog.Logger
}

// New creates a store rooted at root.
func New(log *slog.Logger, root string) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		root:   root,
		logger: log.With(slog.String("component", "store")),
	}
}

// Init creates the staging area and one committed directory per category.
func (s *Store) Init(categories []string) error {
	if err := os.MkdirAll(filepath.Join(s.root, stagingDir), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	for _, name := range categories {
		if err := os.MkdirAll(filepath.Join(s.root, assetDir, name), 0o755); err != nil {
			return fmt.Errorf("create category dir %s: %w", name, err)
		}
	}
	return nil
}

// Exists reports whether a committed asset is present at
// <category>/<filename>.
func (s *Store) Exists(category, filename string) (bool, error) {
	path, err := s.assetPath(category, filename)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s/%s: %w", category, filename, err)
	}
	return true, nil
}

// Open returns a reader for a committed asset, or ErrNotFound.
func (s *Store) Open(category, filename string) (io.ReadCloser, error) {
	path, err := s.assetPath(category, filename)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrNotFound
	}
	return f, nil
}

// Begin opens a staging namespace for one upload request. Each request
// gets its own directory so concurrent uploads cannot disturb each
// other's in-flight files.
func (s *Store) Begin() (*Staging, error) {
	dir := filepath.Join(s.root, stagingDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging namespace: %w", err)
	}
	return &Staging{store: s, dir: dir, seen: make(map[string]bool)}, nil
}

func (s *Store) assetPath(category, filename string) (string, error) {
	if err := checkName(category); err != nil {
		return "", err
	}
	if err := checkName(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.root, assetDir, category, filename), nil
}

// checkName rejects names that are empty or escape their directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrBadName
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return ErrBadName
	}
	return nil
}

// Staging is the scratch namespace owned by one in-flight upload request.
// It is not safe for concurrent use; a request stages its parts in
// arrival order.
type Staging struct {
	store     *Store
	dir       string
	names     []string
	seen      map[string]bool
	committed bool
}

// Stage writes one file part into the staging namespace under its
// original filename. A failure reading r wraps ErrRead; any other
// failure is a storage error. Staging the same name twice overwrites
// the earlier bytes.
func (st *Staging) Stage(filename string, r io.Reader) error {
	if err := checkName(filename); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(st.dir, filename))
	if err != nil {
		return fmt.Errorf("create staged file %s: %w", filename, err)
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				return fmt.Errorf("write staged file %s: %w", filename, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			return fmt.Errorf("%w: %s: %v", ErrRead, filename, rerr)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staged file %s: %w", filename, err)
	}

	if !st.seen[filename] {
		st.seen[filename] = true
		st.names = append(st.names, filename)
	}
	return nil
}

// Names returns the staged filenames in first-staged order.
func (st *Staging) Names() []string {
	return st.names
}

// Commit moves every staged file into <category>/<filename>. Unless
// overwrite is set, all destinations are re-checked before the first
// rename so a collision fails the whole batch with ErrExists and
// nothing is committed.
func (st *Staging) Commit(category string, overwrite bool) error {
	if !overwrite {
		for _, name := range st.names {
			exists, err := st.store.Exists(category, name)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrExists, name)
			}
		}
	}
	for _, name := range st.names {
		dst, err := st.store.assetPath(category, name)
		if err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(st.dir, name), dst); err != nil {
			return fmt.Errorf("commit %s/%s: %w", category, name, err)
		}
	}
	st.committed = true
	return nil
}

// Discard removes the staging namespace and any files still in it.
// Safe to call after Commit; committed files are unaffected.
func (st *Staging) Discard() {
	if err := os.RemoveAll(st.dir); err != nil {
		st.store.logger.Warn("discard staging namespace", slog.String("dir", st.dir), slog.Any("error", err))
	}
}

// Committed reports whether Commit succeeded.
func (st *Staging) Committed() bool {
	return st.committed
}
