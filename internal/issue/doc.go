// SPDX-License-Identifier: MPL-2.0

// Package issue catalogs the operator-facing failure modes of the plugin
// pipeline. Each catalog entry pairs a stable id with markdown remediation
// guidance rendered via glamour; ActionableError carries per-occurrence
// context (operation, resource, suggestions) through the error chain.
package issue
