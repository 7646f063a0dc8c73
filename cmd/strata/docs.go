// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"strata/internal/issue"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Show the failure-mode reference",
	Long: `Renders the catalog of strata failure modes with their remediation
guidance, the same guidance printed next to a matching error in verbose
mode.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries := issue.Values()
		sort.Slice(entries, func(i, j int) bool { return entries[i].Id() < entries[j].Id() })

		out := cmd.OutOrStdout()
		for _, entry := range entries {
			rendered, err := entry.Render("auto")
			if err != nil {
				return fmt.Errorf("render catalog entry %d: %w", entry.Id(), err)
			}
			fmt.Fprintln(out, rendered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
