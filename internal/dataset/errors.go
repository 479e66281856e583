package dataset

import (
	"fmt"
	"strings"
)

// ParseError indicates an upload whose bytes do not match the expected format.
type ParseError struct {
	Name   string
	Format string // csv|xlsx
	Line   int    // 1-based record number when known
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s %q at record %d: %v", e.Format, e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s %q: %v", e.Format, e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnError indicates a selection that references a column absent from the table.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// TypeMismatchError indicates an operation that needs a different column type.
type TypeMismatchError struct {
	Column string
	Op     string
	Want   string
	Got    DType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: column %q has dtype %s, want %s", e.Op, e.Column, e.Got, e.Want)
}

// EmptySelectionError indicates an operation invoked before its required selections were made.
type EmptySelectionError struct {
	What string
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("nothing selected: %s", e.What)
}
