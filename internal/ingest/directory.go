package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

// ScanOptions tune ScanDirectory.
type ScanOptions struct {
	IncludeExts []string // empty means every supported image type
	SkipHidden  bool
	Hash        bool // compute the content hash of each match
}

// ScanDirectory walks root and returns the matching image files in walk
// order with aggregate stats. Per-file failures are reported in FileInfo.Err
// and do not stop the walk.
func ScanDirectory(ctx context.Context, root string, opts ScanOptions) ([]FileInfo, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeConfig, "root path is required", common.ErrInvalidInput)
	}

	exts := constants.AllowedExtensions
	if len(opts.IncludeExts) > 0 {
		exts = map[string]struct{}{}
		for _, e := range opts.IncludeExts {
			e = constants.NormalizeExt(strings.TrimSpace(e))
			if AllowedExt(e) {
				exts[e] = struct{}{}
			}
		}
	}

	var (
		results []FileInfo
		stats   DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileInfo{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files if requested; never the root itself
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++

		fi := FileInfo{Path: path, Ext: ext}
		if info, err := d.Info(); err == nil {
			fi.Size = info.Size()
		}
		if opts.Hash {
			h, err := HashFile(path)
			if err != nil {
				fi.Err = err.Error()
				stats.Failed++
			}
			fi.HashHex = h
		}
		results = append(results, fi)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
