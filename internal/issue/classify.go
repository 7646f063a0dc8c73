// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"

	"strata/internal/dag"
	"strata/internal/partition"
	"strata/internal/resolve"
	"strata/internal/staging"
)

// For maps a pipeline error to the catalog entry describing it, so the CLI
// can render remediation guidance next to the raw error. Returns nil for
// errors with no catalog entry.
func For(err error) *Issue {
	if err == nil {
		return nil
	}

	var (
		unsupported *staging.UnsupportedFormatError
		conflict    *resolve.ConflictError
		unresolved  *resolve.UnresolvedError
		cycle       *dag.CycleError
		dupProvider *partition.DuplicateProviderError
	)

	switch {
	case errors.As(err, &unsupported):
		return Get(UnsupportedFormatId)
	case errors.Is(err, resolve.ErrNoModules):
		return Get(NoModulesFoundId)
	case errors.As(err, &conflict):
		return Get(ModuleConflictId)
	case errors.As(err, &unresolved):
		return Get(RequirementUnsatisfiedId)
	case errors.As(err, &cycle):
		return Get(RequireCycleId)
	case errors.As(err, &dupProvider):
		return Get(PartitionBuildFailedId)
	default:
		return nil
	}
}
