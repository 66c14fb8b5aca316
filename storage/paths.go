package storage

import (
	"strings"

	"github.com/google/uuid"
)

const (
	TempPrefix      = "temp/"
	PermanentPrefix = "permanent/"
	ImageKind       = "image/"
)

// IsTemp reports whether path lives in the temp namespace.
func IsTemp(path string) bool { return strings.HasPrefix(path, TempPrefix) }

// IsPermanent reports whether path lives in the permanent namespace.
func IsPermanent(path string) bool { return strings.HasPrefix(path, PermanentPrefix) }

// TempScope returns the prefix that holds the temp images of one authoring
// session, or the shared temp/image/ namespace when sessionID is empty.
func TempScope(sessionID string) string {
	sessionID = strings.Trim(strings.TrimSpace(sessionID), "/")
	if sessionID == "" {
		return TempPrefix + ImageKind
	}
	return TempPrefix + sessionID + "/" + ImageKind
}

// NewTempImagePath allocates a fresh temp object path for an image with the given extension.
func NewTempImagePath(sessionID, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return TempScope(sessionID) + name
}

// PermanentPathFor maps a temp path onto the permanent namespace. The session
// segment, if any, is dropped so that permanent/ keeps a flat per-kind layout.
// The second return value is false for paths outside temp/.
func PermanentPathFor(tempPath string) (string, bool) {
	if !IsTemp(tempPath) {
		return "", false
	}
	rest := strings.TrimPrefix(tempPath, TempPrefix)
	if strings.HasPrefix(rest, ImageKind) {
		return PermanentPrefix + rest, true
	}
	// temp/<session>/<kind>/<name>
	if i := strings.Index(rest, "/"); i >= 0 {
		return PermanentPrefix + rest[i+1:], true
	}
	return PermanentPrefix + rest, true
}

// SessionOf returns the session segment of a scoped temp path.
func SessionOf(tempPath string) string {
	if !IsTemp(tempPath) {
		return ""
	}
	rest := strings.TrimPrefix(tempPath, TempPrefix)
	if strings.HasPrefix(rest, ImageKind) {
		return ""
	}
	if i := strings.Index(rest, "/"); i > 0 {
		return rest[:i]
	}
	return ""
}
