// Package apperr defines the sentinel errors shared across the migration pipeline.
package apperr

import "errors"

var (
	// ErrInvalidArgument marks registry calls with blank titles or slugs.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrParse marks a source file that produced no usable document.
	ErrParse = errors.New("parse failure")
	// ErrConvert marks a markup conversion failure for one document.
	ErrConvert = errors.New("conversion failure")
	// ErrWrite marks a failed write of converted output.
	ErrWrite = errors.New("write failure")
	// ErrNotFound is returned by catalog and vault lookups.
	ErrNotFound = errors.New("not found")
)
