// SPDX-License-Identifier: MPL-2.0

package partition

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"strata/internal/resolve"
	"strata/pkg/bundle"
)

// DuplicateProviderError reports two modules in one load plan registering the
// same implementation identifier for the same capability. The shared
// namespace holds one instance per implementation id, so this is an
// unresolvable materialization conflict.
type DuplicateProviderError struct {
	Capability     string
	Implementation string
	FirstModule    string
	SecondModule   string
}

func (e *DuplicateProviderError) Error() string {
	return fmt.Sprintf("duplicate provider %q for capability %q: declared by both %s and %s",
		e.Implementation, e.Capability, e.FirstModule, e.SecondModule)
}

// Builder materializes partitions from resolution plans.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger falls back to slog.Default.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build materializes one isolated partition from a plan. All plan modules
// share a single namespace, and the partition's parent chain is exactly the
// supplied parent list. On failure, every parent partition's available
// module names are logged first: "why can't the plugin find this symbol" is
// the dominant failure mode and the parent inventory is the answer.
func (b *Builder) Build(name string, plan *resolve.Plan, parents []*Partition) (*Partition, error) {
	ns := &namespace{
		modules:   make(map[string]*Module, len(plan.Modules)),
		providers: make(map[string][]Provider),
	}

	p := &Partition{
		name:    name,
		parents: parents,
		ns:      ns,
	}

	for _, planned := range plan.Modules {
		mod, err := registerModule(ns, name, planned.Descriptor, planned.Archive)
		if err != nil {
			b.logParentInventory(parents)
			return nil, fmt.Errorf("partition: build %q: %w", name, err)
		}
		p.modules = append(p.modules, mod)
	}

	b.logger.Info("constructed partition",
		"partition", name,
		"modules", p.ModuleNames(),
		"capabilities", p.Capabilities())
	return p, nil
}

// NewBoot materializes the boot partition from host-supplied descriptors.
// The boot partition is the unique root: no parents, owned by the host
// process. Host descriptors without capabilities are valid; an empty
// descriptor list yields an empty boot partition.
func NewBoot(descriptors []bundle.Descriptor) (*Partition, error) {
	ns := &namespace{
		modules:   make(map[string]*Module, len(descriptors)),
		providers: make(map[string][]Provider),
	}

	p := &Partition{name: BootName, ns: ns}
	for _, desc := range descriptors {
		mod, err := registerModule(ns, BootName, desc, "")
		if err != nil {
			return nil, fmt.Errorf("partition: build boot: %w", err)
		}
		p.modules = append(p.modules, mod)
	}
	return p, nil
}

// registerModule binds one module into the shared namespace, registering its
// capability providers. Malformed descriptors and duplicate implementation
// ids surface as errors here rather than later at lookup time.
func registerModule(ns *namespace, partitionName string, desc bundle.Descriptor, archive string) (*Module, error) {
	if desc.Name == "" {
		return nil, fmt.Errorf("malformed descriptor from %s: empty module name", archive)
	}
	if _, ok := ns.modules[desc.Name]; ok {
		return nil, fmt.Errorf("module %q already loaded in this namespace", desc.Name)
	}

	mod := &Module{descriptor: desc, archive: archive, ns: ns}
	// Capability keys are iterated sorted so provider registration order,
	// and therefore any conflict reported, is deterministic.
	for _, capability := range slices.Sorted(maps.Keys(desc.Provides)) {
		impls := desc.Provides[capability]
		if capability == "" {
			return nil, fmt.Errorf("malformed descriptor for module %q: empty capability name", desc.Name)
		}
		for _, impl := range impls {
			if impl == "" {
				return nil, fmt.Errorf("malformed descriptor for module %q: empty implementation id for capability %q", desc.Name, capability)
			}
			for _, existing := range ns.providers[capability] {
				if existing.Implementation == impl {
					return nil, &DuplicateProviderError{
						Capability:     capability,
						Implementation: impl,
						FirstModule:    existing.Module,
						SecondModule:   desc.Name,
					}
				}
			}
			ns.providers[capability] = append(ns.providers[capability], Provider{
				Capability:     capability,
				Implementation: impl,
				Module:         desc.Name,
				Partition:      partitionName,
			})
		}
	}

	ns.modules[desc.Name] = mod
	return mod, nil
}

// logParentInventory logs every parent partition's module names as the
// diagnostic context for a construction failure.
func (b *Builder) logParentInventory(parents []*Partition) {
	for _, parent := range parents {
		b.logger.Error("parent partition modules available",
			"partition", parent.Name(),
			"modules", parent.ModuleNames())
	}
}
