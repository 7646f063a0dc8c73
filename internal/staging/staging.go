// SPDX-License-Identifier: MPL-2.0

// Package staging copies discovered plugin archives into a private working
// directory before resolution, so deleting or rewriting a source location
// never corrupts an in-use partition.
//
// The working directory is process-lifetime-scoped and shared across rescans;
// staged copies of the same file name are overwritten last-writer-wins.
package staging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"strata/pkg/bundle"
)

// workDirPrefix names the process-scoped staging directory.
const workDirPrefix = "strata-plugins"

// UnsupportedFormatError reports an archive in a recognised container format
// that strata deliberately does not extract (zip, tar, tar.gz). This is a
// scope limitation, not a bug: rejecting loudly is the contract.
type UnsupportedFormatError struct {
	// Path is the offending source archive.
	Path string
	// Format is the recognised extension, e.g. "zip" or "tar.gz".
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported plugin archive format .%s: %s", e.Format, e.Path)
}

// Manager owns the staging working directory.
type Manager struct {
	workDir string
	logger  *slog.Logger
}

// NewManager creates the process-lifetime working directory. Failure here is
// fatal to initialization: there is no plugin system without a place to
// stage plugins into.
func NewManager(logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := os.MkdirTemp("", workDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("staging: create working directory: %w", err)
	}
	logger.Debug("created staging working directory", "path", dir)
	return &Manager{workDir: dir, logger: logger}, nil
}

// Dir returns the absolute path of the working directory.
func (m *Manager) Dir() string {
	return m.workDir
}

// Remove deletes the working directory and everything staged into it.
// Intended for process shutdown and tests.
func (m *Manager) Remove() error {
	return os.RemoveAll(m.workDir)
}

// Stage copies each archive into the working directory, creating intermediate
// directories as needed and overwriting stale copies of the same name. It
// returns the staged paths in input order. A source in a recognised but
// unsupported container format fails the whole staging step with an
// UnsupportedFormatError; nothing is partially extracted.
func (m *Manager) Stage(archives []string) ([]string, error) {
	staged := make([]string, 0, len(archives))
	for _, src := range archives {
		name := filepath.Base(src)

		if format := bundle.RejectedFormat(name); format != "" {
			return nil, &UnsupportedFormatError{Path: src, Format: format}
		}
		if !bundle.IsArchive(name) {
			return nil, fmt.Errorf("staging: not a plugin archive: %s", src)
		}

		dest := filepath.Join(m.workDir, name)
		if err := copyFile(src, dest); err != nil {
			return nil, fmt.Errorf("staging: stage %s: %w", src, err)
		}
		m.logger.Debug("staged plugin archive", "source", src, "dest", dest)
		staged = append(staged, dest)
	}
	return staged, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
