// SPDX-License-Identifier: MPL-2.0

// Package scan enumerates candidate plugin archives in watched locations.
//
// Traversal is iterative (explicit worklist, no recursion) and guards against
// symlink loops by tracking resolved directory paths. Directories that cannot
// be listed are skipped with a warning; an empty result means "nothing to
// load this cycle" and is never an error.
package scan

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"strata/pkg/bundle"
)

// Scanner walks watched locations collecting bundle archive paths.
type Scanner struct {
	logger *slog.Logger
}

// New creates a Scanner. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan returns every bundle archive found under root, sorted for a
// deterministic sequence. Recognised-but-unsupported container formats
// (zip, tar, tar.gz) are included so staging can reject them explicitly;
// only unrecognised files are silently ignored. Unlistable directories and
// unresolvable symlinks log a warning and are skipped. A missing or empty
// root yields an empty slice, not an error.
func (s *Scanner) Scan(root string) []string {
	var archives []string

	absRoot, err := filepath.Abs(root)
	if err != nil {
		s.logger.Warn("cannot resolve watched location", "path", root, "error", err)
		return nil
	}

	// visited holds symlink-resolved directory paths so a link back into an
	// ancestor does not loop the traversal forever.
	visited := make(map[string]bool)
	worklist := []string{absRoot}

	for len(worklist) > 0 {
		dir := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			s.logger.Warn("cannot resolve directory, skipping", "path", dir, "error", err)
			continue
		}
		if visited[resolved] {
			s.logger.Warn("directory already visited, skipping symlink loop", "path", dir)
			continue
		}
		visited[resolved] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("cannot list directory, skipping", "path", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			switch {
			case entry.IsDir():
				worklist = append(worklist, path)
			case bundle.IsArchive(entry.Name()):
				archives = append(archives, path)
				s.logger.Debug("found plugin archive", "path", path)
			case bundle.RejectedFormat(entry.Name()) != "":
				// Recognised container formats are collected too, so staging
				// rejects them loudly instead of the scan hiding them.
				archives = append(archives, path)
				s.logger.Debug("found unsupported container format", "path", path)
			case entry.Type()&os.ModeSymlink != 0:
				// Symlinked directories still get traversed; the loop guard
				// above catches links pointing back up the tree.
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					worklist = append(worklist, path)
				}
			}
		}
	}

	sort.Strings(archives)
	s.logger.Info("scanned watched location", "path", absRoot, "archives", len(archives))
	return archives
}
