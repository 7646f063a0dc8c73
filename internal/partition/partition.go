// SPDX-License-Identifier: MPL-2.0

// Package partition models isolated runtime partitions.
//
// A partition holds the modules of one load plan bound to a single shared
// namespace (the common loading context), plus an ordered parent chain.
// Capability lookups consult the partition's own namespace first and then
// fall through the parent chain in order, stopping at the first match.
// Sibling partitions are invisible to each other. The isolation is
// organizational, not a security boundary: whoever holds a reference to a
// partition can see its exports.
package partition

import (
	"slices"

	"strata/pkg/bundle"
)

// BootName is the name of the unique root partition. The boot partition has
// no parents, is owned by the host process, and is never evicted.
const BootName = "boot-layer"

// Provider identifies one capability implementation and where it lives.
type Provider struct {
	// Capability is the capability name the implementation satisfies.
	Capability string
	// Implementation is the implementation identifier.
	Implementation string
	// Module is the providing module's name.
	Module string
	// Partition is the name of the partition the module is loaded in.
	Partition string
}

// Module is a loaded module instance. All modules of one partition share the
// partition's namespace, so in-plan requires bind to the same concrete
// instances.
type Module struct {
	descriptor bundle.Descriptor
	archive    string
	ns         *namespace
}

// Name returns the module's resolution identity.
func (m *Module) Name() string { return m.descriptor.Name }

// Version returns the declared version, possibly empty.
func (m *Module) Version() string { return m.descriptor.Version }

// Descriptor returns a copy of the module's descriptor.
func (m *Module) Descriptor() bundle.Descriptor { return m.descriptor }

// Archive returns the staged archive path the module was loaded from.
// Empty for host-supplied boot modules.
func (m *Module) Archive() string { return m.archive }

// Required resolves a required module name within the shared namespace,
// returning the same concrete instance every co-resident module sees.
// The second return is false when the requirement was satisfied by a parent
// partition rather than in-plan.
func (m *Module) Required(name string) (*Module, bool) {
	dep, ok := m.ns.modules[name]
	return dep, ok
}

// namespace is the shared loading context of one partition.
type namespace struct {
	modules   map[string]*Module
	providers map[string][]Provider
}

// Partition is an isolated set of loaded modules with a parent chain.
type Partition struct {
	name    string
	modules []*Module
	parents []*Partition
	ns      *namespace
}

// Name returns the partition name.
func (p *Partition) Name() string { return p.name }

// Modules returns the loaded modules in load order.
func (p *Partition) Modules() []*Module {
	return slices.Clone(p.modules)
}

// ModuleNames returns the names of the partition's modules in load order.
func (p *Partition) ModuleNames() []string {
	names := make([]string, len(p.modules))
	for i, m := range p.modules {
		names[i] = m.Name()
	}
	return names
}

// Parents returns the ordered parent chain.
func (p *Partition) Parents() []*Partition {
	return slices.Clone(p.parents)
}

// Lookup returns the providers for a capability. The partition's own
// namespace is consulted first; when it has no providers the parent chain is
// consulted in order and the first partition with a match wins.
func (p *Partition) Lookup(capability string) []Provider {
	if providers, ok := p.ns.providers[capability]; ok {
		return slices.Clone(providers)
	}
	for _, parent := range p.parents {
		if providers := parent.Lookup(capability); len(providers) > 0 {
			return providers
		}
	}
	return nil
}

// Capabilities returns the capability names provided within this partition
// itself, excluding anything reachable only through parents.
func (p *Partition) Capabilities() []string {
	caps := make([]string, 0, len(p.ns.providers))
	for capability := range p.ns.providers {
		caps = append(caps, capability)
	}
	slices.Sort(caps)
	return caps
}
