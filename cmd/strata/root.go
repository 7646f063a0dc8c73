// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level logging and full error chains.
	verbose bool
	// cfgFile allows specifying a custom config file.
	cfgFile string

	// rootCmd represents the base command when called without subcommands.
	rootCmd = &cobra.Command{
		Use:   "strata",
		Short: "An isolated plugin partition loader",
		Long: TitleStyle.Render("strata") + SubtitleStyle.Render(" - An isolated plugin partition loader") + `

strata watches plugin directories for bundle archives, resolves each
bundle set's dependency graph against the boot partition, and loads it
into an isolated runtime partition. Partitions see their parents but
never their siblings, and every rescan replaces the active set
atomically.

Plugin bundles are .jar archives carrying a 'module.cue' descriptor
that declares the module name, provided capabilities, and required
module names.

` + SubtitleStyle.Render("Examples:") + `
  strata rescan             Scan watched locations and load plugins once
  strata serve              Watch locations and reload on changes
  strata partitions         Show the active partition set`,
	}
)

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/strata/config.cue)")

	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(partitionsCmd)
}

// initLogging installs a charmbracelet/log handler as the process-wide slog
// default, so every internal package logs through one styled sink.
func initLogging() {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	slog.SetDefault(slog.New(handler))
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
