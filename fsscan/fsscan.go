// Package fsscan enumerates a document corpus on disk and produces stable,
// content-addressed ingest items for the retrieval pipeline.
package fsscan

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxHashBytes bounds how much of a file is read for change detection.
// 64 MiB is enough to distinguish almost any realistic document while
// keeping scans of large corpora fast.
const maxHashBytes = 64 << 20

// Item describes one file discovered by a scan.
type Item struct {
	Path  string // canonical absolute path
	MTime int64  // unix seconds
	SHA1  string // hex digest of up to maxHashBytes of file content
	Size  int64
}

// Options configures a scan.
type Options struct {
	// Globs are path patterns, expanded via filepath.Glob semantics. A
	// pattern ending in "/**" or containing "**" is expanded recursively.
	Globs []string
	// Exts is an allow-list of file extensions (with or without the
	// leading dot). Empty means no filtering by extension.
	Exts []string
	// MaxFileSizeBytes rejects files larger than this. Zero means
	// unbounded.
	MaxFileSizeBytes int64
	// FollowSymlinks controls whether symlinked files are scanned. Default
	// is false: symlinks are skipped.
	FollowSymlinks bool
}

// Scan expands Globs, filters by extension/size, deduplicates by canonical
// path, and returns Items sorted by path. Permission errors and broken
// entries are skipped, not propagated — a scan never aborts because one
// path is unreadable.
func Scan(opts Options) ([]Item, error) {
	extSet := normalizeExts(opts.Exts)
	seen := make(map[string]bool)
	var items []Item

	for _, pattern := range opts.Globs {
		if pattern == "" {
			continue
		}
		matches, err := expandGlob(pattern)
		if err != nil {
			continue
		}
		for _, p := range matches {
			info, err := os.Lstat(p)
			if err != nil {
				continue
			}
			if info.Mode()&os.ModeSymlink != 0 {
				if !opts.FollowSymlinks {
					continue
				}
				info, err = os.Stat(p)
				if err != nil {
					continue
				}
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if extSet != nil {
				ext := strings.ToLower(filepath.Ext(p))
				if !extSet[ext] {
					continue
				}
			}
			if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
				continue
			}

			abs, err := filepath.Abs(p)
			if err != nil {
				continue
			}
			canon, err := filepath.EvalSymlinks(abs)
			if err != nil {
				canon = abs
			}
			if seen[canon] {
				continue
			}
			seen[canon] = true

			digest, err := hashPrefix(canon, maxHashBytes)
			if err != nil {
				// Unreadable (permission error, race with deletion): skip.
				delete(seen, canon)
				continue
			}

			items = append(items, Item{
				Path:  canon,
				MTime: info.ModTime().Unix(),
				SHA1:  digest,
				Size:  info.Size(),
			})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

func normalizeExts(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// expandGlob expands a pattern, treating "**" as "match any number of
// directory segments" by walking the tree rooted at the portion of the
// pattern preceding the first "**" segment.
func expandGlob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	idx := strings.Index(pattern, "**")
	root := filepath.Dir(pattern[:idx])
	if root == "" {
		root = "."
	}
	suffix := strings.TrimPrefix(pattern[idx+2:], "/")

	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // tolerate unreadable subtrees
		}
		if d.IsDir() {
			return nil
		}
		if suffix == "" {
			out = append(out, path)
			return nil
		}
		matched, mErr := filepath.Match(suffix, filepath.Base(path))
		if mErr == nil && matched {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hashPrefix(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, io.LimitReader(f, limit)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
