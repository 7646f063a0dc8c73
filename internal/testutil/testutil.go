// SPDX-License-Identifier: MPL-2.0

// Package testutil provides shared helpers for building plugin bundle
// fixtures in tests.
package testutil

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Logger returns a logger that discards all output, keeping test logs quiet
// while exercising the diagnostic paths.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WriteBundle writes a plugin bundle archive named filename under dir,
// containing the given module.cue descriptor source, and returns its path.
func WriteBundle(t *testing.T, dir, filename, descriptorCUE string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create bundle %s: %v", path, err)
	}

	zw := zip.NewWriter(f)
	entry, err := zw.Create("module.cue")
	if err != nil {
		t.Fatalf("create descriptor entry: %v", err)
	}
	if _, err := entry.Write([]byte(descriptorCUE)); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close bundle file: %v", err)
	}
	return path
}

// WriteEmptyBundle writes a bundle archive with no descriptor entry.
func WriteEmptyBundle(t *testing.T, dir, filename string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create bundle %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	entry, err := zw.Create("README")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write([]byte("no descriptor here\n")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close bundle file: %v", err)
	}
	return path
}

// DescriptorCUE renders a module.cue source for the given identity.
// provides maps capability names to implementation ids; requires lists
// required module names. Either may be nil.
func DescriptorCUE(name, version string, provides map[string][]string, requires []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %q\n", name)
	if version != "" {
		fmt.Fprintf(&b, "version: %q\n", version)
	}
	if len(provides) > 0 {
		b.WriteString("provides: {\n")
		for capability, impls := range provides {
			fmt.Fprintf(&b, "\t%q: [", capability)
			for i, impl := range impls {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%q", impl)
			}
			b.WriteString("]\n")
		}
		b.WriteString("}\n")
	}
	if len(requires) > 0 {
		b.WriteString("requires: [")
		for i, req := range requires {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%q", req)
		}
		b.WriteString("]\n")
	}
	return b.String()
}
