// Package ingest discovers transcript images on the local filesystem.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileInfo describes one discovered image. Err is set when the file matched
// but could not be read.
type FileInfo struct {
	Path    string
	Ext     string
	Size    int64
	HashHex string
	Err     string
}

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// HashFile returns the hex SHA256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
