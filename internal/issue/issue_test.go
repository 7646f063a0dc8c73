// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"strata/internal/dag"
	"strata/internal/partition"
	"strata/internal/resolve"
	"strata/internal/staging"
)

func TestId_Constants(t *testing.T) {
	ids := []Id{
		ConfigLoadFailedId,
		WorkingDirFailedId,
		UnsupportedFormatId,
		NoModulesFoundId,
		ModuleConflictId,
		RequirementUnsatisfiedId,
		RequireCycleId,
		PartitionBuildFailedId,
		WatchFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if ConfigLoadFailedId != 1 {
		t.Errorf("ConfigLoadFailedId = %d, want 1", ConfigLoadFailedId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{ConfigLoadFailedId, false, "Configuration could not be loaded"},
		{WorkingDirFailedId, false, "working directory"},
		{UnsupportedFormatId, false, "Unsupported plugin archive format"},
		{NoModulesFoundId, false, "No modules discovered"},
		{ModuleConflictId, false, "Module name conflict"},
		{RequirementUnsatisfiedId, false, "Unresolved plugin requirement"},
		{RequireCycleId, false, "Dependency cycle"},
		{PartitionBuildFailedId, false, "Partition could not be constructed"},
		{WatchFailedId, false, "Filesystem watch failed"},
		{Id(9999), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Get(%d).Id() = %d", tt.id, issue.Id())
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()

	if len(issues) != 9 {
		t.Errorf("Values() returned %d issues, want 9", len(issues))
	}
	for _, issue := range issues {
		if issue.MarkdownMsg() == "" {
			t.Errorf("issue %d has empty message", issue.Id())
		}
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	issue := Get(ModuleConflictId)
	rendered, err := issue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "Module name conflict") {
		t.Error("Render() output should contain the issue headline")
	}
}

func TestIssue_RenderError(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return "", fmt.Errorf("no terminal")
	}

	if _, err := Get(WatchFailedId).Render(""); err == nil {
		t.Error("Render() should propagate renderer errors")
	}
}

func TestFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Id
	}{
		{
			name: "UnsupportedFormat",
			err:  &staging.UnsupportedFormatError{Path: "/p/x-1.0.zip", Format: "zip"},
			want: UnsupportedFormatId,
		},
		{
			name: "NoModules",
			err:  resolve.ErrNoModules,
			want: NoModulesFoundId,
		},
		{
			name: "Conflict",
			err:  &resolve.ConflictError{ModuleName: "m", FirstArchive: "a", SecondArchive: "b"},
			want: ModuleConflictId,
		},
		{
			name: "Unresolved",
			err:  &resolve.UnresolvedError{Unmet: []resolve.UnmetRequirement{{ModuleName: "m", Requires: "x"}}},
			want: RequirementUnsatisfiedId,
		},
		{
			name: "Cycle",
			err:  &dag.CycleError{Cycle: []string{"a", "b"}},
			want: RequireCycleId,
		},
		{
			name: "DuplicateProvider",
			err:  &partition.DuplicateProviderError{Capability: "c", Implementation: "i"},
			want: PartitionBuildFailedId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := For(tt.err)
			if got == nil {
				t.Fatalf("For(%v) returned nil", tt.err)
			}
			if got.Id() != tt.want {
				t.Errorf("For(%v).Id() = %d, want %d", tt.err, got.Id(), tt.want)
			}
		})
	}
}

func TestFor_Wrapped(t *testing.T) {
	err := fmt.Errorf("rescan %q: %w", "plugins",
		&resolve.ConflictError{ModuleName: "m", FirstArchive: "a", SecondArchive: "b"})

	got := For(err)
	if got == nil || got.Id() != ModuleConflictId {
		t.Errorf("For(wrapped conflict) = %v, want ModuleConflictId entry", got)
	}
}

func TestFor_Unclassified(t *testing.T) {
	if got := For(errors.New("something else")); got != nil {
		t.Errorf("For(plain error) = %v, want nil", got)
	}
	if got := For(nil); got != nil {
		t.Errorf("For(nil) = %v, want nil", got)
	}
}
