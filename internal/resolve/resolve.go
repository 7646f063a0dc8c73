// SPDX-License-Identifier: MPL-2.0

// Package resolve computes load plans for staged plugin archives.
//
// Given the ordered parent partitions and the staged archive paths, the
// resolver inspects every archive for its module descriptor, takes every
// discovered module as a root (all staged modules are wanted; there is no
// selective activation), and produces a conflict-free, dependency-complete
// Plan or a descriptive failure. Diagnostic logging along the way is for
// operators only and never alters control flow.
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"strata/internal/dag"
	"strata/pkg/bundle"
)

// Parent is the view of an already-built partition the resolver needs:
// a name for diagnostics and the module names it can satisfy requires with.
type Parent interface {
	Name() string
	ModuleNames() []string
}

// Module pairs a descriptor with the staged archive it was read from.
type Module struct {
	// Descriptor is the metadata read from the archive.
	Descriptor bundle.Descriptor
	// Archive is the staged archive path the descriptor came from.
	Archive string
}

// Label returns the human label for this module (artifact id when the
// archive follows the naming convention, module name otherwise).
func (m Module) Label() string {
	return m.Descriptor.Label(m.Archive)
}

// Plan is the resolved closure of modules to load into one partition,
// ordered so every module appears after the modules it requires in-plan.
type Plan struct {
	// Modules is the dependency-first load order.
	Modules []Module
}

// ModuleNames returns the plan's module names in load order.
func (p *Plan) ModuleNames() []string {
	names := make([]string, len(p.Modules))
	for i, m := range p.Modules {
		names[i] = m.Descriptor.Name
	}
	return names
}

// Capabilities merges every plan module's provided capabilities into one
// capability -> implementations map, preserving plan order within each list.
func (p *Plan) Capabilities() map[string][]string {
	caps := make(map[string][]string)
	for _, m := range p.Modules {
		for capability, impls := range m.Descriptor.Provides {
			caps[capability] = append(caps[capability], impls...)
		}
	}
	return caps
}

// ErrNoModules indicates that no module descriptors were discovered among
// the staged archives.
var ErrNoModules = errors.New("resolve: no modules discovered in staged archives")

// ConflictError reports two staged archives declaring the same module name.
// Both sources are named; strata never silently picks one.
type ConflictError struct {
	ModuleName    string
	FirstArchive  string
	SecondArchive string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("module name conflict: %q declared by both %s and %s",
		e.ModuleName, e.FirstArchive, e.SecondArchive)
}

// UnmetRequirement names one requirement that neither the staged set nor any
// parent partition satisfies.
type UnmetRequirement struct {
	// ModuleName is the requiring module.
	ModuleName string
	// Requires is the missing module name.
	Requires string
}

// UnresolvedError reports every unmet requirement found in one pass, so
// operators see the full picture instead of fixing one missing module per
// rescan.
type UnresolvedError struct {
	Unmet []UnmetRequirement
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, len(e.Unmet))
	for i, u := range e.Unmet {
		parts[i] = fmt.Sprintf("%s requires %s", u.ModuleName, u.Requires)
	}
	return "unresolved requirements: " + strings.Join(parts, "; ")
}

// Resolver computes load plans.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve inspects every staged archive and computes the load plan against
// the ordered parent partitions. Resolution fails when nothing is discovered,
// when two archives declare the same module name, when a requirement is
// satisfied by neither the staged set nor a parent, or when in-plan requires
// form a cycle.
func (r *Resolver) Resolve(parents []Parent, archives []string) (*Plan, error) {
	var discovered []Module

	for _, archive := range archives {
		desc, err := bundle.Inspect(archive)
		if errors.Is(err, bundle.ErrNoDescriptor) {
			// An archive without a descriptor contributes no modules; it is
			// skipped rather than failing archives that do carry one.
			r.logger.Warn("archive has no module descriptor, skipping", "archive", archive)
			continue
		}
		if err != nil {
			return nil, err
		}
		r.logger.Info("discovered module",
			"module", desc.Name,
			"version", desc.Version,
			"archive", archive,
			"label", desc.Label(archive))
		discovered = append(discovered, Module{Descriptor: *desc, Archive: archive})
	}

	return r.PlanModules(parents, discovered)
}

// PlanModules resolves already-inspected modules into a Plan. Split from
// Resolve so resolution logic can be exercised without real archives.
func (r *Resolver) PlanModules(parents []Parent, discovered []Module) (*Plan, error) {
	r.logParentModules(parents)

	if len(discovered) == 0 {
		r.logger.Error("no modules discovered in staged archives")
		return nil, ErrNoModules
	}

	// Conflict detection: module names must be unique within one plan.
	byName := make(map[string]Module, len(discovered))
	for _, m := range discovered {
		if prev, ok := byName[m.Descriptor.Name]; ok {
			err := &ConflictError{
				ModuleName:    m.Descriptor.Name,
				FirstArchive:  prev.Archive,
				SecondArchive: m.Archive,
			}
			r.logger.Error("module name conflict",
				"module", m.Descriptor.Name,
				"first", prev.Archive,
				"second", m.Archive)
			return nil, err
		}
		byName[m.Descriptor.Name] = m
	}

	parentModules := parentModuleSet(parents)

	// Requirement check: every require must be staged or parent-satisfied.
	// All unmet requirements are collected before failing.
	var unmet []UnmetRequirement
	for _, m := range discovered {
		for _, req := range m.Descriptor.Requires {
			if _, ok := byName[req]; ok {
				continue
			}
			if parentModules[req] {
				continue
			}
			unmet = append(unmet, UnmetRequirement{ModuleName: m.Descriptor.Name, Requires: req})
		}
	}
	if len(unmet) > 0 {
		sort.Slice(unmet, func(i, j int) bool {
			if unmet[i].ModuleName != unmet[j].ModuleName {
				return unmet[i].ModuleName < unmet[j].ModuleName
			}
			return unmet[i].Requires < unmet[j].Requires
		})
		for _, u := range unmet {
			r.logger.Error("unmet requirement", "module", u.ModuleName, "requires", u.Requires)
		}
		return nil, &UnresolvedError{Unmet: unmet}
	}

	// Order the plan dependency-first. Parent-satisfied requires are not
	// plan edges; only in-plan requires constrain the order.
	graph := dag.New()
	names := make([]string, 0, len(discovered))
	for _, m := range discovered {
		names = append(names, m.Descriptor.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		graph.AddNode(name)
	}
	for _, name := range names {
		for _, req := range byName[name].Descriptor.Requires {
			if _, ok := byName[req]; ok {
				graph.AddEdge(req, name)
			}
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	plan := &Plan{Modules: make([]Module, 0, len(order))}
	for _, name := range order {
		plan.Modules = append(plan.Modules, byName[name])
	}

	r.logger.Info("resolution plan computed", "modules", plan.ModuleNames())
	return plan, nil
}

// logParentModules logs every module available from the parent partitions.
// Fleet-level "why can't the plugin find this" debugging depends on it.
func (r *Resolver) logParentModules(parents []Parent) {
	for _, p := range parents {
		r.logger.Info("parent partition modules available",
			"partition", p.Name(),
			"modules", p.ModuleNames())
	}
}

func parentModuleSet(parents []Parent) map[string]bool {
	set := make(map[string]bool)
	for _, p := range parents {
		for _, name := range p.ModuleNames() {
			set[name] = true
		}
	}
	return set
}
