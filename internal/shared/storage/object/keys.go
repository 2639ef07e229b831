package object

import (
	"fmt"
	"path"
	"strings"
	"time"

	"intake-backend/internal/shared/util"
)

// DocumentKey is the path of the first blob of a document:
// {ownerID}/{documentID}/{sanitizedFileName}.
func DocumentKey(ownerID, documentID, fileName string) (string, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(documentID) == "" {
		return "", ErrInvalidKey
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(ownerID, documentID, name), nil
}

// VersionKey is the path of a version blob. The version number and timestamp
// keep it from colliding with any earlier blob of the same document.
func VersionKey(ownerID, documentID string, versionNumber int, at time.Time, fileName string) (string, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(documentID) == "" || versionNumber <= 0 {
		return "", ErrInvalidKey
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(ownerID, documentID, "versions", fmt.Sprintf("v%d-%d-%s", versionNumber, at.UnixMilli(), name)), nil
}

// CleanKey rejects absolute keys and keys that traverse upwards.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// JoinURL appends a key to a base URL.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
