// SPDX-License-Identifier: MPL-2.0

// Package services locates capability implementations across the active
// partition set.
//
// The Directory is the downstream consumer of registry publishes: each
// Notify rebuilds an immutable capability index over the ordered partition
// list and swaps it in atomically, so consumers resolving implementations
// never observe a half-rebuilt index.
package services

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"strata/internal/partition"
)

// Directory indexes capability providers across active partitions.
type Directory struct {
	logger *slog.Logger
	index  atomic.Pointer[capabilityIndex]
}

type capabilityIndex struct {
	partitions []*partition.Partition
	providers  map[string][]partition.Provider
}

// NewDirectory creates an empty Directory. A nil logger falls back to
// slog.Default.
func NewDirectory(logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{logger: logger}
	d.index.Store(&capabilityIndex{providers: make(map[string][]partition.Provider)})
	return d
}

// Notify replaces the directory's view of the active partitions. Providers
// are indexed in partition order, so implementations from earlier partitions
// (boot first) precede later ones. The rebuilt index is published with a
// single atomic swap.
func (d *Directory) Notify(partitions []*partition.Partition) {
	idx := &capabilityIndex{
		partitions: slices.Clone(partitions),
		providers:  make(map[string][]partition.Provider),
	}

	for _, p := range partitions {
		for _, capability := range p.Capabilities() {
			idx.providers[capability] = append(idx.providers[capability], p.Lookup(capability)...)
		}
	}

	d.index.Store(idx)
	d.logger.Info("service directory updated",
		"partitions", len(idx.partitions),
		"capabilities", len(idx.providers))
}

// Providers returns every known implementation of a capability across the
// active partitions, in partition order. Nil when none are registered.
func (d *Directory) Providers(capability string) []partition.Provider {
	return slices.Clone(d.index.Load().providers[capability])
}

// Partitions returns the partition snapshot backing the current index.
func (d *Directory) Partitions() []*partition.Partition {
	return slices.Clone(d.index.Load().partitions)
}

// Capabilities returns the capability names known to the current index,
// sorted for stable output.
func (d *Directory) Capabilities() []string {
	idx := d.index.Load()
	caps := make([]string, 0, len(idx.providers))
	for capability := range idx.providers {
		caps = append(caps, capability)
	}
	slices.Sort(caps)
	return caps
}
