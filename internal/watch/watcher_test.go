// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"strata/internal/testutil"
)

// isIgnoredByDefaults reports whether rel matches any of the default ignore
// patterns. Test-only helper that avoids needing a full Watcher instance.
func isIgnoredByDefaults(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range defaultIgnores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// TestWatcherDebounce verifies that a burst of archive drops is coalesced
// into a single callback invocation containing all changed paths.
func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)

	done := make(chan struct{})

	w, err := New(Config{
		BaseDir:  dir,
		Debounce: 100 * time.Millisecond,
		Logger:   testutil.Logger(),
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Drop three bundles in rapid succession, well within the debounce window.
	for _, name := range []string{"a-1.0.jar", "b-1.0.jar", "c-1.0.jar"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		// Small pause so events arrive as separate fsnotify events rather
		// than being batched by the OS. Still well within the debounce
		// window.
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	// Allow a brief settle for any additional spurious callbacks.
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}

	slices.Sort(collected)
	for _, want := range []string{"a-1.0.jar", "b-1.0.jar", "c-1.0.jar"} {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
}

// TestWatcherPatternFiltering confirms that non-archive files never trigger
// the OnChange callback while archives do.
func TestWatcherPatternFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	callbackFired := make(chan []string, 10)

	w, err := New(Config{
		BaseDir:  dir,
		Debounce: 100 * time.Millisecond,
		Logger:   testutil.Logger(),
		OnChange: func(_ context.Context, changed []string) error {
			callbackFired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// A non-matching file first: nothing may fire for it.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case changed := <-callbackFired:
		t.Fatalf("callback fired for non-archive file: %v", changed)
	case <-time.After(400 * time.Millisecond):
	}

	// A matching archive must fire.
	if err := os.WriteFile(filepath.Join(dir, "plugin-1.0.jar"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case changed := <-callbackFired:
		if !slices.Contains(changed, "plugin-1.0.jar") {
			t.Errorf("changed = %v, want plugin-1.0.jar", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for archive callback")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

// TestWatcherNewDirectory verifies that archives dropped into a directory
// created after the watcher started still trigger the callback.
func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	callbackFired := make(chan []string, 10)

	w, err := New(Config{
		BaseDir:  dir,
		Debounce: 100 * time.Millisecond,
		Logger:   testutil.Logger(),
		OnChange: func(_ context.Context, changed []string) error {
			callbackFired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	sub := filepath.Join(dir, "incoming")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "late-1.0.jar"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case changed := <-callbackFired:
		if !slices.Contains(changed, filepath.ToSlash(filepath.Join("incoming", "late-1.0.jar"))) &&
			!slices.Contains(changed, filepath.Join("incoming", "late-1.0.jar")) {
			t.Errorf("changed = %v, want incoming/late-1.0.jar", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback from new directory")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestNew_RequiresBaseDir(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Logger: testutil.Logger()}); err == nil {
		t.Fatal("expected error for empty BaseDir")
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(Config{
		BaseDir:  t.TempDir(),
		Patterns: []string{"[unclosed"},
		Logger:   testutil.Logger(),
	})
	if err == nil {
		t.Fatal("expected error for invalid watch pattern")
	}

	_, err = New(Config{
		BaseDir: t.TempDir(),
		Ignore:  []string{"[unclosed"},
		Logger:  testutil.Logger(),
	})
	if err == nil {
		t.Fatal("expected error for invalid ignore pattern")
	}
}

func TestRun_SecondCallFails(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir(), Logger: testutil.Logger()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give the first Run a moment to claim the started flag.
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(ctx); err == nil {
		t.Error("second Run() should fail")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want bool
	}{
		{".git/config", true},
		{"sub/.git/HEAD", true},
		{"plugin-1.0.jar.swp", true},
		{"sub/.DS_Store", true},
		{"editor~", true},
		{"plugin-1.0.jar", false},
		{"sub/plugin-1.0.jar", false},
	}
	for _, tt := range tests {
		if got := isIgnoredByDefaults(tt.rel); got != tt.want {
			t.Errorf("isIgnoredByDefaults(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestDefaultIgnores_ReturnsCopy(t *testing.T) {
	t.Parallel()

	first := DefaultIgnores()
	if len(first) == 0 {
		t.Fatal("DefaultIgnores() is empty")
	}
	first[0] = "tampered"
	if DefaultIgnores()[0] == "tampered" {
		t.Error("DefaultIgnores() should return a copy")
	}
}
