package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	uploadsPrefix   = "uploads"
	snapshotsPrefix = "editor-snapshots"
	maxNameRunes    = 120
)

// ErrInvalidName is returned for file names that reduce to nothing usable.
var ErrInvalidName = errors.New("invalid file name")

// OwnerNamespace maps a principal (user subject or guest id) to a stable,
// path-safe directory name.
func OwnerNamespace(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])
}

// CleanFileName keeps the base name of an upload, replaces separators and
// control characters and caps its length.
func CleanFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == ".." || name == "/" || name == "" {
		return "", ErrInvalidName
	}
	var sb strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameRunes {
			break
		}
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
		n++
	}
	out := strings.Trim(sb.String(), "._")
	if out == "" {
		return "", ErrInvalidName
	}
	return out, nil
}

// UploadKey builds a unique key for an original upload owned by owner.
func UploadKey(owner, fileName string) (string, error) {
	clean, err := CleanFileName(fileName)
	if err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return path.Join(uploadsPrefix, OwnerNamespace(owner), id+"_"+clean), nil
}

// SnapshotKey is where a session snapshot body lives.
func SnapshotKey(sessionID, snapshotID string) string {
	return path.Join(snapshotsPrefix, sessionID, snapshotID+".json")
}
