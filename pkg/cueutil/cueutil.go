// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides schema-driven parsing of CUE documents into Go
// structs. Both plugin module descriptors and the strata config file are CUE
// documents validated against embedded schemas; this package holds the shared
// compile/unify/decode flow and error formatting.
package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize caps the size of CUE documents accepted by Decode.
// Descriptors and config files are small; anything near this limit is
// almost certainly not one of ours.
const DefaultMaxFileSize int64 = 1 << 20

// Options configures a Decode call.
type Options struct {
	// Filename is used in error messages. Empty defaults to "<input>".
	Filename string

	// MaxFileSize overrides DefaultMaxFileSize when positive.
	MaxFileSize int64

	// Concrete requires all non-optional fields to have concrete values.
	Concrete bool
}

// Decode validates data against the named definition in schema and decodes
// the unified value into T:
//
//  1. compile the embedded schema
//  2. compile the document and unify it with the schema definition
//  3. validate, then decode into a Go struct
//
// schemaPath names the root definition, e.g. "#Module" or "#Config".
func Decode[T any](schema, data []byte, schemaPath string, opts Options) (*T, error) {
	filename := opts.Filename
	if filename == "" {
		filename = "<input>"
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := CheckFileSize(data, maxSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	docValue := ctx.CompileBytes(data, cue.Filename(filename))
	if docValue.Err() != nil {
		return nil, FormatError(docValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(docValue)
	if err := unified.Validate(cue.Concrete(opts.Concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}

	return &out, nil
}

// CheckFileSize verifies that data does not exceed maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
