// Package storage talks to the object store that holds uploaded media.
//
// Objects live under two top-level namespaces: temp/ for uploads that belong
// to a draft and permanent/ for media embedded in a published post.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a source object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Object describes one stored blob.
type Object struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Store is the subset of object store operations the application needs.
type Store interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error
	Copy(ctx context.Context, srcPath, dstPath string) error
	// Delete removes every path in one batch. An empty slice is a no-op.
	Delete(ctx context.Context, paths []string) error
	// List returns every object whose path starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	PublicURL(path string) string
	// PathFromURL maps a public URL produced by this store back to its
	// bucket-relative path. Foreign URLs return false.
	PathFromURL(rawURL string) (string, bool)
}

// urlCodec converts between bucket-relative paths and public URLs.
type urlCodec struct {
	base string
}

func newURLCodec(base string) urlCodec {
	return urlCodec{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

func (c urlCodec) PublicURL(path string) string {
	return c.base + "/" + strings.TrimLeft(path, "/")
}

func (c urlCodec) PathFromURL(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	prefix := c.base + "/"
	if c.base == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	rest := rawURL[len(prefix):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	decoded = strings.TrimLeft(decoded, "/")
	if decoded == "" || !validPath(decoded) {
		return "", false
	}
	return decoded, true
}

// validPath rejects empty, absolute and parent-escaping paths.
func validPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}
