package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores assets in a directory served over HTTP. Staged files live in
// the same directory so Commit is a single rename.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Dir 资源目录
func (l *Local) Dir() string {
	return l.root
}

// Path returns the filesystem path of a committed asset.
func (l *Local) Path(name string) (string, error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(l.root, name), nil
}

// Commit renames the staged file into place.
func (l *Local) Commit(_ context.Context, name, stagedPath string) error {
	final, err := l.Path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("commit %s: %w", name, ErrAssetExists)
	}
	if err := os.Rename(stagedPath, final); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// Open 打开资源
func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := l.Path(name)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, os.ErrNotExist)
	}
	return os.Open(p)
}

// Exists 判断资源是否存在
func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	p, err := l.Path(name)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Delete 删除资源, 不存在时返回 nil
func (l *Local) Delete(_ context.Context, name string) error {
	p, err := l.Path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

var _ Store = (*Local)(nil)
