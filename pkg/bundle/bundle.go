// SPDX-License-Identifier: MPL-2.0

// Package bundle provides functionality for working with strata plugin bundles.
//
// A bundle is a single ".jar" archive (a zip container) carrying a "module.cue"
// descriptor at its root. The descriptor declares the module's identity, the
// capabilities it provides, and the module names it requires. Inspection only
// reads metadata; no plugin code is executed.
//
// Bundle file names conventionally follow "<artifact-id>-<version>.<ext>".
// The convention is parsed to derive a human-readable label only; resolution
// correctness never depends on it, and non-matching names simply yield no
// label. The label key is deliberately just the artifact id: two bundles with
// the same artifact id in different watched locations coexist because they
// load into separate partitions, but within one location the module name
// declared in the descriptor is the real identity.
package bundle

import (
	"regexp"
	"strings"
)

const (
	// ArchiveSuffix is the only bundle container format strata loads.
	ArchiveSuffix = ".jar"

	// DescriptorName is the descriptor entry expected at the archive root.
	DescriptorName = "module.cue"
)

// rejectedSuffixes are container formats that are recognised and explicitly
// refused at staging time. Extraction of these is out of scope; rejecting
// loudly beats silently skipping a file the operator expected to load.
var rejectedSuffixes = []string{".tar.gz", ".zip", ".tar"}

// artifactNameRegex parses "<artifact-id>-<version>.<ext>". The version must
// start with a digit so artifact ids containing dashes are not split early.
var artifactNameRegex = regexp.MustCompile(`^(.*?)-(\d[\d+\-_A-Za-z.]*?)\.(jar|zip|tar|tar\.gz)$`)

// Artifact is the human-readable identity derived from a bundle file name.
type Artifact struct {
	// ID is the artifact identifier (file name up to the version).
	ID string
	// Version is the version component of the file name.
	Version string
	// Format is the container extension without the leading dot.
	Format string
}

// ParseArtifactName parses a bundle file name following the
// "<artifact-id>-<version>.<ext>" convention. The second return value is
// false when the name does not match; callers must then key the plugin by
// its raw module name instead.
func ParseArtifactName(filename string) (Artifact, bool) {
	m := artifactNameRegex.FindStringSubmatch(filename)
	if m == nil {
		return Artifact{}, false
	}
	return Artifact{ID: m[1], Version: m[2], Format: m[3]}, true
}

// IsArchive reports whether the file name has the supported bundle suffix.
func IsArchive(filename string) bool {
	return strings.HasSuffix(filename, ArchiveSuffix)
}

// RejectedFormat returns the recognised-but-unsupported container extension
// of filename (without the leading dot), or "" if the name is either a
// supported archive or not a known container at all. ".tar.gz" is checked
// before ".tar" so the full extension is reported.
func RejectedFormat(filename string) string {
	for _, suffix := range rejectedSuffixes {
		if strings.HasSuffix(filename, suffix) {
			return strings.TrimPrefix(suffix, ".")
		}
	}
	return ""
}
