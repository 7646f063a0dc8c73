// SPDX-License-Identifier: MPL-2.0

package staging_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strata/internal/staging"
	"strata/internal/testutil"
)

func newManager(t *testing.T) *staging.Manager {
	t.Helper()
	m, err := staging.NewManager(testutil.Logger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Remove() })
	return m
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestStage_CopiesArchives(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	foo := writeSource(t, src, "foo-1.0.jar", "foo-bytes")
	bar := writeSource(t, src, "bar-2.0.jar", "bar-bytes")

	m := newManager(t)
	staged, err := m.Stage([]string{foo, bar})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if len(staged) != 2 {
		t.Fatalf("staged %d files, want 2", len(staged))
	}
	for i, want := range []string{"foo-1.0.jar", "bar-2.0.jar"} {
		if filepath.Base(staged[i]) != want {
			t.Errorf("staged[%d] = %s, want basename %s", i, staged[i], want)
		}
		if !strings.HasPrefix(staged[i], m.Dir()) {
			t.Errorf("staged[%d] = %s, not under working dir %s", i, staged[i], m.Dir())
		}
	}
	data, err := os.ReadFile(staged[0])
	if err != nil {
		t.Fatalf("read staged copy: %v", err)
	}
	if string(data) != "foo-bytes" {
		t.Errorf("staged content = %q, want foo-bytes", data)
	}
}

func TestStage_OverwritesStaleCopy(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	path := writeSource(t, src, "plugin-1.0.jar", "old")

	m := newManager(t)
	if _, err := m.Stage([]string{path}); err != nil {
		t.Fatalf("first Stage: %v", err)
	}

	writeSource(t, src, "plugin-1.0.jar", "new")
	staged, err := m.Stage([]string{path})
	if err != nil {
		t.Fatalf("second Stage: %v", err)
	}

	data, err := os.ReadFile(staged[0])
	if err != nil {
		t.Fatalf("read staged copy: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("staged content = %q, want new", data)
	}
}

func TestStage_RejectsUnsupportedFormats(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"plugin-1.0.zip", "plugin-1.0.tar", "plugin-1.0.tar.gz"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := t.TempDir()
			path := writeSource(t, src, name, "payload")

			m := newManager(t)
			_, err := m.Stage([]string{path})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var formatErr *staging.UnsupportedFormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected *UnsupportedFormatError, got %T: %v", err, err)
			}
			if formatErr.Path != path {
				t.Errorf("Path = %s, want %s", formatErr.Path, path)
			}
			if !strings.HasSuffix(name, "."+formatErr.Format) {
				t.Errorf("Format = %s, not a suffix of %s", formatErr.Format, name)
			}
		})
	}
}

func TestStage_UnsupportedFormatStagesNothing(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	good := writeSource(t, src, "good-1.0.jar", "payload")
	bad := writeSource(t, src, "bad-1.0.zip", "payload")

	m := newManager(t)
	if _, err := m.Stage([]string{good, bad}); err == nil {
		t.Fatal("expected error, got nil")
	}

	// The failed run must not leave the good archive half-staged visible as a
	// success; callers treat the whole cycle as aborted either way, but the
	// error has to surface before any result is returned.
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatalf("list working dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "bad-1.0.zip" {
			t.Errorf("rejected archive was staged: %s", e.Name())
		}
	}
}

func TestStage_RejectsNonArchive(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	path := writeSource(t, src, "notes.txt", "hello")

	m := newManager(t)
	if _, err := m.Stage([]string{path}); err == nil {
		t.Fatal("expected error for non-archive input, got nil")
	}
}

func TestStage_MissingSourceFails(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Stage([]string{filepath.Join(t.TempDir(), "gone-1.0.jar")})
	if err == nil {
		t.Fatal("expected error for missing source, got nil")
	}
}

func TestRemove_DeletesWorkingDirectory(t *testing.T) {
	t.Parallel()

	m, err := staging.NewManager(testutil.Logger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	dir := m.Dir()
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("working dir still present after Remove: %v", err)
	}
}
