package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages.
var (
	// ErrFrozen is returned when mutating a node that belongs to a finalized result.
	ErrFrozen = errors.New("coverage node is frozen")

	// ErrInvalidTransition is returned when a build lifecycle transition is not allowed.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrBuildNotFound is returned when a build id is unknown to the history.
	ErrBuildNotFound = errors.New("build not found")

	// ErrResultNotFound is returned when a build has no stored coverage result.
	ErrResultNotFound = errors.New("coverage result not found")

	// ErrReferenceAttached is returned when a build already has a reference build.
	ErrReferenceAttached = errors.New("reference build already attached")

	// ErrResultExists is returned when a build already has a finalized result.
	ErrResultExists = errors.New("coverage result already finalized")
)

// DuplicateChildError is returned when a child with the same name already exists.
type DuplicateChildError struct {
	Parent string
	Name   string
}

func (e *DuplicateChildError) Error() string {
	return fmt.Sprintf("duplicate child %q under %q", e.Name, e.Parent)
}

// MalformedInputError reports a normalized tree that violates the hierarchy
// invariant or carries impossible counts.
type MalformedInputError struct {
	Path   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed coverage input at %s: %s", e.Path, e.Reason)
}

// MergeConflictError reports two nodes at the same path whose counts describe
// different artifacts. Reason is set when the conflict is structural rather than
// a pair of disagreeing ratios.
type MergeConflictError struct {
	Path    string
	Element Element
	Left    Ratio
	Right   Ratio
	Reason  string
}

func (e *MergeConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("merge conflict at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("merge conflict at %s for %s: %s vs %s", e.Path, e.Element, e.Left, e.Right)
}
