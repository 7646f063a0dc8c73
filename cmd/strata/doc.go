// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for strata.
//
// This package implements the Cobra command hierarchy: the root command,
// rescan and serve for driving the plugin pipeline, and partitions for
// inspecting the active partition set.
package cmd
