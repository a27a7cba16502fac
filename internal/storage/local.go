package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/filevault/internal/common"
)

// ErrOutsideRoot is returned for paths that escape the storage directory.
var ErrOutsideRoot = errors.New("path outside storage root")

// Local stores blobs as files under a single directory.
type Local struct {
	root string
}

// NewLocal creates the directory when missing and returns a store rooted at
// its absolute path.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute storage directory.
func (l *Local) Root() string { return l.root }

func (l *Local) Put(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	path := filepath.Join(l.root, name)
	if err := l.PutAt(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (l *Local) PutAt(_ context.Context, path string, data []byte) error {
	if err := l.check(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, path string) ([]byte, error) {
	if err := l.check(path); err != nil {
		return nil, common.ErrNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	if err := l.check(path); err != nil {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// check prevents directory traversal out of the root.
func (l *Local) check(path string) error {
	rel, err := filepath.Rel(l.root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return ErrOutsideRoot
	}
	return nil
}
