// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strata/internal/partition"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Show the active partition set",
	Long: `Runs one rescan and prints the resulting partition set: each
partition's modules, their versions, and the capabilities provided.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			reportError(err)
			return err
		}
		defer app.Close()

		if err := app.Loader.Rescan(ctx); err != nil {
			reportError(err)
			return err
		}

		printPartitions(cmd, app)
		return nil
	},
}

// printPartitions renders the current partition set to the command's stdout.
func printPartitions(cmd *cobra.Command, app *App) {
	out := cmd.OutOrStdout()

	for _, p := range app.Registry.Current() {
		fmt.Fprintf(out, "\n%s", TitleStyle.Render(p.Name()))
		if len(p.Parents()) > 0 {
			parents := make([]string, 0, len(p.Parents()))
			for _, parent := range p.Parents() {
				parents = append(parents, parent.Name())
			}
			fmt.Fprintf(out, " %s", SubtitleStyle.Render("(parents: "+strings.Join(parents, ", ")+")"))
		}
		fmt.Fprintln(out)

		if len(p.Modules()) == 0 {
			fmt.Fprintln(out, SubtitleStyle.Render("  no modules"))
			continue
		}
		for _, mod := range p.Modules() {
			printModule(cmd, mod)
		}
	}

	if caps := app.Directory.Capabilities(); len(caps) > 0 {
		fmt.Fprintf(out, "\n%s\n", TitleStyle.Render("capabilities"))
		for _, capability := range caps {
			providers := app.Directory.Providers(capability)
			impls := make([]string, len(providers))
			for i, prov := range providers {
				impls[i] = prov.Implementation
			}
			fmt.Fprintf(out, "  %s %s\n",
				ModuleStyle.Render(capability),
				SubtitleStyle.Render("→ "+strings.Join(impls, ", ")))
		}
	}
}

func printModule(cmd *cobra.Command, mod *partition.Module) {
	out := cmd.OutOrStdout()

	label := mod.Name()
	if mod.Version() != "" {
		label += "@" + mod.Version()
	}
	fmt.Fprintf(out, "  %s", ModuleStyle.Render(label))

	desc := mod.Descriptor()
	if len(desc.Requires) > 0 {
		fmt.Fprintf(out, " %s", SubtitleStyle.Render("requires "+strings.Join(desc.Requires, ", ")))
	}
	fmt.Fprintln(out)
}
