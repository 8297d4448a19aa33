package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntries is returned when Build receives an empty entry list.
	ErrNoEntries = errors.New("no repository entries")
	// ErrConflictingPathKind marks a path that is required both as a file and as a directory.
	ErrConflictingPathKind = errors.New("conflicting path kind")
	// ErrDuplicateEntry marks a file path listed more than once.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrInvalidPath marks a path that cannot be placed in the tree.
	ErrInvalidPath = errors.New("invalid path")
)

const (
	conflictingPathKindFormat = "%s: %q is a file and a directory"
	duplicateEntryFormat      = "%s: %q"
	invalidPathFormat         = "%s %q: %s"
)

// ConflictingPathKindError reports the path whose kinds disagree.
type ConflictingPathKindError struct {
	Path string
}

func (conflictError *ConflictingPathKindError) Error() string {
	return fmt.Sprintf(conflictingPathKindFormat, ErrConflictingPathKind, conflictError.Path)
}

// Is lets errors.Is match ErrConflictingPathKind.
func (conflictError *ConflictingPathKindError) Is(target error) bool {
	return target == ErrConflictingPathKind
}

// DuplicateEntryError reports a repeated file path.
type DuplicateEntryError struct {
	Path string
}

func (duplicateError *DuplicateEntryError) Error() string {
	return fmt.Sprintf(duplicateEntryFormat, ErrDuplicateEntry, duplicateError.Path)
}

// Is lets errors.Is match ErrDuplicateEntry.
func (duplicateError *DuplicateEntryError) Is(target error) bool {
	return target == ErrDuplicateEntry
}

// InvalidPathError reports a malformed entry path.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (invalidError *InvalidPathError) Error() string {
	return fmt.Sprintf(invalidPathFormat, ErrInvalidPath, invalidError.Path, invalidError.Reason)
}

// Is lets errors.Is match ErrInvalidPath.
func (invalidError *InvalidPathError) Is(target error) bool {
	return target == ErrInvalidPath
}
