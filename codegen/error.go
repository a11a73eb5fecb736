package codegen

import "errors"

var (
	// ErrUnknownStyle indicates a style name that is not recognized.
	ErrUnknownStyle = errors.New("codegen: unknown style")

	// ErrMissingTables indicates a table-driven style without serialized
	// arrays.
	ErrMissingTables = errors.New("codegen: table-driven style requires tables")

	// ErrLayoutMismatch indicates tables serialized for another style.
	ErrLayoutMismatch = errors.New("codegen: tables layout does not match style")
)
