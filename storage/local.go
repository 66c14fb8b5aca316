package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as plain files below a root directory. The
// directory is expected to be served statically under the public base URL.
type LocalStore struct {
	urlCodec
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage: local root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &LocalStore{urlCodec: newURLCodec(publicBaseURL), root: root}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) resolve(path string) (string, error) {
	if !validPath(path) {
		return "", fmt.Errorf("storage: invalid path %q", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

func (s *LocalStore) Put(ctx context.Context, path string, body io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.resolve(path)
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, body)
}

func (s *LocalStore) Copy(ctx context.Context, srcPath, dstPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.resolve(srcPath)
	if err != nil {
		return err
	}
	dst, err := s.resolve(dstPath)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("copy %s: %w", srcPath, ErrNotFound)
		}
		return fmt.Errorf("copy %s: %w", srcPath, err)
	}
	defer f.Close()
	return writeFileAtomic(dst, f)
}

func (s *LocalStore) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		full, err := s.resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Walk the deepest directory named by the prefix, then filter by the full prefix.
	dir := prefix
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	} else {
		dir = ""
	}
	start := s.root
	if dir != "" {
		if !validPath(dir) {
			return nil, fmt.Errorf("storage: invalid prefix %q", prefix)
		}
		start = filepath.Join(s.root, filepath.FromSlash(dir))
	}

	var out []Object
	err := filepath.WalkDir(start, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && full == start {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Path: rel, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return out, nil
}

// writeFileAtomic writes to a sibling temp file and renames it into place.
func writeFileAtomic(dst string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
