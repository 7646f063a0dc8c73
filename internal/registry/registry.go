// SPDX-License-Identifier: MPL-2.0

// Package registry holds the process's active partition set.
//
// The registry is an explicit, injectable object; collaborators receive it
// by reference and there is no package-level singleton. The only mutation is
// a full-set replacement: the new ordered set is built off to the side and
// published with a single atomic pointer swap, so concurrent readers always
// observe either the complete old set or the complete new set, never a
// splice of the two.
package registry

import (
	"slices"
	"sync/atomic"

	"strata/internal/partition"
)

// Registry is a concurrency-safe collection of active partitions, unique by
// name, ordered boot-first.
type Registry struct {
	current atomic.Pointer[[]*partition.Partition]
}

// New creates a Registry whose initial set is exactly {boot}.
func New(boot *partition.Partition) *Registry {
	r := &Registry{}
	set := []*partition.Partition{boot}
	r.current.Store(&set)
	return r
}

// ReplaceAll atomically swaps the entire active set for {boot, plugins...}.
// This is the sole mutation entry point; there is no incremental add or
// remove. The boot partition is inserted unconditionally before any plugin
// partitions and is never evicted.
func (r *Registry) ReplaceAll(boot *partition.Partition, plugins []*partition.Partition) {
	set := make([]*partition.Partition, 0, len(plugins)+1)
	set = append(set, boot)
	set = append(set, plugins...)
	r.current.Store(&set)
}

// Current returns a stable ordered snapshot of the active partitions,
// suitable for handing to the service-discovery collaborator. The snapshot
// is a copy; later replacements do not mutate it.
func (r *Registry) Current() []*partition.Partition {
	return slices.Clone(*r.current.Load())
}

// Boot returns the boot partition of the current set.
func (r *Registry) Boot() *partition.Partition {
	return (*r.current.Load())[0]
}
