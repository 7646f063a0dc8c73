// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Scan watched locations and load plugins once",
	Long: `Runs one full pipeline cycle: scan every watched location for plugin
bundles, stage them, resolve the dependency graph against the boot
partition, construct isolated partitions, and publish the new set.

A failed cycle leaves the previously published partitions in force.`,
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

		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓")+" rescan complete")
		printPartitions(cmd, app)
		return nil
	},
}
