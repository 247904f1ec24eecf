// Package graphcore holds the sentinel error taxonomy shared across the
// pipeline, checked with errors.Is rather than string matching or a
// bespoke error-code enum — the same fmt.Errorf("%w", ...) wrapping idiom
// used throughout internal/pipeline.
package graphcore

import "errors"

var (
	// ErrInvalidPath is raised by the location model when a target path
	// does not exist.
	ErrInvalidPath = errors.New("invalid-path")

	// ErrParseError is raised by the file extractor; the offending file is
	// skipped and the build continues.
	ErrParseError = errors.New("parse-error")

	// ErrIdentifierCollision is raised by the graph builder when two
	// distinct entities would produce identical stable IDs within one
	// build. Fatal: aborts the build.
	ErrIdentifierCollision = errors.New("identifier-collision")

	// ErrStoreWrite is raised by the graph store on a failed batch write.
	ErrStoreWrite = errors.New("store-write")

	// ErrStoreRead is raised by the graph store on a failed read.
	ErrStoreRead = errors.New("store-read")

	// ErrResolutionAmbiguous marks a call site the resolver could not
	// disambiguate. Never fatal; the placeholder is retained and flagged.
	ErrResolutionAmbiguous = errors.New("resolution-ambiguous")
)
