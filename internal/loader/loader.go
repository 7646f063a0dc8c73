// SPDX-License-Identifier: MPL-2.0

// Package loader drives the rescan pipeline: scan watched locations, stage
// archives, resolve the dependency graph, construct isolated partitions, and
// publish the new partition set.
//
// Each rescan runs as one sequential unit of work through the states
// Scanning -> Resolving -> Constructing -> Published. A location with no
// archives contributes nothing and is only a warning. Any later failure
// aborts the cycle before the registry swap, so previously published
// partitions always stay in force; there is no automatic retry — the next
// trigger is the retry.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"strata/internal/config"
	"strata/internal/partition"
	"strata/internal/registry"
	"strata/internal/resolve"
	"strata/internal/scan"
	"strata/internal/staging"
)

// Notifier receives the ordered active partition list after each successful
// publish. The service directory implements it; tests substitute fakes.
type Notifier interface {
	Notify(partitions []*partition.Partition)
}

// Options wires a Loader.
type Options struct {
	// Logger is used for all pipeline diagnostics. Nil means slog.Default.
	Logger *slog.Logger
	// Locations are the watched plugin directories.
	Locations []config.WatchedLocation
	// Staging is the process-lifetime staging manager.
	Staging *staging.Manager
	// Registry receives the atomic full-set replacement.
	Registry *registry.Registry
	// Boot is the host-owned boot partition, parent of every plugin
	// partition.
	Boot *partition.Partition
	// Notifier, when non-nil, is handed the active set after each publish.
	Notifier Notifier
}

// Loader executes rescans.
type Loader struct {
	// mu serializes rescans so concurrent triggers cannot interleave staging
	// passes; the registry swap itself is already atomic.
	mu sync.Mutex

	logger    *slog.Logger
	locations []config.WatchedLocation
	scanner   *scan.Scanner
	staging   *staging.Manager
	resolver  *resolve.Resolver
	builder   *partition.Builder
	registry  *registry.Registry
	boot      *partition.Partition
	notifier  Notifier
}

// New creates a Loader from Options.
func New(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger,
		locations: opts.Locations,
		scanner:   scan.New(logger),
		staging:   opts.Staging,
		resolver:  resolve.New(logger),
		builder:   partition.NewBuilder(logger),
		registry:  opts.Registry,
		boot:      opts.Boot,
		notifier:  opts.Notifier,
	}
}

// Rescan runs the full pipeline over every watched location and, on success,
// atomically replaces the registry's partition set with {boot, plugins...}
// and notifies the service-discovery collaborator. When no location yields
// any archive the registry is left untouched and nil is returned: empty
// means "nothing to load", never an error. Any staging, resolution, or
// construction failure aborts the cycle with the registry untouched.
func (l *Loader) Rescan(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	parents := []*partition.Partition{l.boot}
	resolveParents := []resolve.Parent{l.boot}

	var built []*partition.Partition
	for _, loc := range l.locations {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rescan canceled: %w", err)
		}

		l.logger.Info("scanning watched location", "location", loc.Name, "path", loc.Path)
		archives := l.scanner.Scan(loc.Path)
		if len(archives) == 0 {
			l.logger.Warn("no plugin archives found", "location", loc.Name, "path", loc.Path)
			continue
		}

		staged, err := l.staging.Stage(archives)
		if err != nil {
			return fmt.Errorf("rescan %q: %w", loc.Name, err)
		}

		plan, err := l.resolver.Resolve(resolveParents, staged)
		if err != nil {
			return fmt.Errorf("rescan %q: %w", loc.Name, err)
		}

		part, err := l.builder.Build(loc.Name, plan, parents)
		if err != nil {
			return fmt.Errorf("rescan %q: %w", loc.Name, err)
		}
		built = append(built, part)
	}

	if len(built) == 0 {
		l.logger.Warn("rescan found nothing to load; partition set unchanged")
		return nil
	}

	l.registry.ReplaceAll(l.boot, built)
	current := l.registry.Current()
	if l.notifier != nil {
		l.notifier.Notify(current)
	}

	names := make([]string, len(current))
	for i, p := range current {
		names[i] = p.Name()
	}
	l.logger.Info("published partition set", "partitions", names)
	return nil
}

// Locations returns the configured watched locations.
func (l *Loader) Locations() []config.WatchedLocation {
	return l.locations
}
