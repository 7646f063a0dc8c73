// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"archive/zip"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"strata/pkg/cueutil"
)

//go:embed descriptor_schema.cue
var descriptorSchema []byte

// ErrNoDescriptor indicates an archive that carries no module.cue entry at
// its root. Such archives contribute no modules; callers decide whether that
// is a warning (one archive among many) or a hard failure (nothing at all).
var ErrNoDescriptor = errors.New("bundle: no module.cue descriptor in archive")

// Descriptor is the metadata a bundle declares about the module it contains.
// Immutable once read from the archive.
type Descriptor struct {
	// Name is the module identity used for resolution.
	Name string `json:"name"`

	// Version is informational only.
	Version string `json:"version,omitempty"`

	// Provides maps capability names to implementation identifiers.
	Provides map[string][]string `json:"provides,omitempty"`

	// Requires lists module names this module depends on.
	Requires []string `json:"requires,omitempty"`
}

// Label returns the human-readable label for the module sourced from the
// given archive path: the artifact id when the file name follows the naming
// convention, the raw module name otherwise.
func (d Descriptor) Label(archivePath string) string {
	if art, ok := ParseArtifactName(filepath.Base(archivePath)); ok {
		return art.ID
	}
	return d.Name
}

// Inspect opens a bundle archive and reads its module descriptor. Only the
// descriptor entry is read; plugin code is never executed. Returns
// ErrNoDescriptor (wrapped) when the archive has no module.cue at its root.
func Inspect(archivePath string) (*Descriptor, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("bundle: open archive %s: %w", archivePath, err)
	}
	defer r.Close()

	var entry *zip.File
	for _, f := range r.File {
		if f.Name == DescriptorName {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDescriptor, archivePath)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("bundle: open descriptor in %s: %w", archivePath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, cueutil.DefaultMaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("bundle: read descriptor in %s: %w", archivePath, err)
	}

	desc, err := cueutil.Decode[Descriptor](descriptorSchema, data, "#Module", cueutil.Options{
		Filename: filepath.Base(archivePath) + "!" + DescriptorName,
		Concrete: true,
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: invalid descriptor in %s: %w", archivePath, err)
	}

	return desc, nil
}
