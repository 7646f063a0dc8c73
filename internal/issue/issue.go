// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	WorkingDirFailedId
	UnsupportedFormatId
	NoModulesFoundId
	ModuleConflictId
	RequirementUnsatisfiedId
	RequireCycleId
	PartitionBuildFailedId
	WatchFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 {
		extraMd += "\n\n## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

The strata config file exists but failed to parse or validate.

## Things you can try:
- Check the CUE syntax of your config file
- Verify each watched location has a unique ` + "`name`" + ` and a ` + "`path`" + `
- Run with an explicit file to isolate the problem:
~~~
$ strata rescan --config ./config.cue
~~~

## Minimal config:
~~~cue
locations: [
  { name: "main", path: "/var/lib/strata/plugins" },
]
~~~`,
	}

	workingDirFailedIssue = &Issue{
		id: WorkingDirFailedId,
		mdMsg: `
# Staging working directory could not be created

strata stages every plugin archive into a private temporary directory before
loading it. Without that directory there is no plugin system, so startup was
aborted.

## Things you can try:
- Check free space and permissions on the system temp directory
- Point TMPDIR at a writable location:
~~~
$ TMPDIR=/var/tmp strata serve
~~~`,
	}

	unsupportedFormatIssue = &Issue{
		id: UnsupportedFormatId,
		mdMsg: `
# Unsupported plugin archive format

A watched location contains an archive in a container format strata
recognises but deliberately does not extract (` + "`.zip`, `.tar`, `.tar.gz`" + `).
The rescan was aborted and the previously loaded partitions remain in force.

## Things you can try:
- Repackage the plugin as a ` + "`.jar`" + ` bundle with a ` + "`module.cue`" + ` descriptor
- Move non-plugin archives out of the watched directory`,
	}

	noModulesFoundIssue = &Issue{
		id: NoModulesFoundId,
		mdMsg: `
# No modules discovered

Archives were staged, but none carried a usable module descriptor, so there
was nothing to resolve.

## Things you can try:
- Verify each bundle contains a ` + "`module.cue`" + ` at the archive root
- Inspect a bundle directly:
~~~
$ unzip -p my-plugin-1.0.jar module.cue
~~~`,
	}

	moduleConflictIssue = &Issue{
		id: ModuleConflictId,
		mdMsg: `
# Module name conflict

Two staged archives declare the same module name. strata never silently
picks one; the rescan failed with both sources named and the previous
partitions remain in force.

## Things you can try:
- Remove the stale duplicate from the watched directory
- If these are genuinely different plugins, give them distinct module names`,
	}

	requirementUnsatisfiedIssue = &Issue{
		id: RequirementUnsatisfiedId,
		mdMsg: `
# Unresolved plugin requirement

A staged module requires a module name that is neither among the staged
bundles nor available from any parent partition.

## Things you can try:
- Drop the bundle providing the missing module into the watched directory
- Check the rescan log for the full parent-partition module inventory
- Verify the required name matches the provider's ` + "`name`" + ` exactly`,
	}

	requireCycleIssue = &Issue{
		id: RequireCycleId,
		mdMsg: `
# Dependency cycle between plugins

The staged modules require each other in a cycle, so no load order exists.

## Things you can try:
- Check the reported cycle and break it by removing or splitting one module`,
	}

	partitionBuildFailedIssue = &Issue{
		id: PartitionBuildFailedId,
		mdMsg: `
# Partition could not be constructed

Resolution succeeded but materializing the partition failed, typically
because two modules register the same implementation id for one capability,
or a descriptor is malformed.

## Things you can try:
- Check the rescan log: every parent partition's modules were listed there
- Ensure implementation identifiers are unique within one load plan`,
	}

	watchFailedIssue = &Issue{
		id: WatchFailedId,
		mdMsg: `
# Filesystem watch failed

The watcher for a plugin location could not be started or died with a fatal
error (often inotify watch exhaustion on Linux).

## Things you can try:
- Raise the inotify limit:
~~~
$ sysctl fs.inotify.max_user_watches
~~~
- Trigger rescans manually in the meantime:
~~~
$ strata rescan
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		workingDirFailedIssue.Id():       workingDirFailedIssue,
		unsupportedFormatIssue.Id():      unsupportedFormatIssue,
		noModulesFoundIssue.Id():         noModulesFoundIssue,
		moduleConflictIssue.Id():         moduleConflictIssue,
		requirementUnsatisfiedIssue.Id(): requirementUnsatisfiedIssue,
		requireCycleIssue.Id():           requireCycleIssue,
		partitionBuildFailedIssue.Id():   partitionBuildFailedIssue,
		watchFailedIssue.Id():            watchFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
