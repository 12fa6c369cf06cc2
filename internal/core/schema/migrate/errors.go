package migrate

import (
	"errors"
	"fmt"
)

// Migration-specific errors
var (
	ErrFutureVersion = errors.New("component payload is newer than the registered schema")
	ErrMigrationStep = errors.New("component migration step failed")
	ErrMissingStep   = errors.New("migration chain has no step for this version")
)

// FutureVersionError reports a payload written by a newer component
// definition than this process knows. The payload is never silently
// downgraded.
type FutureVersionError struct {
	TypeID  string
	Version int
	Current int
}

func (e *FutureVersionError) Error() string {
	return fmt.Sprintf("component %q: payload version %d is ahead of current version %d",
		e.TypeID, e.Version, e.Current)
}

func (e *FutureVersionError) Unwrap() error { return ErrFutureVersion }

// MigrationStepError reports a failed or missing step in a migration chain,
// carrying the offending type and source version so the caller can decide
// whether to abort or strip the entity.
type MigrationStepError struct {
	TypeID  string
	Version int
	Err     error
}

func (e *MigrationStepError) Error() string {
	return fmt.Sprintf("component %q: migration from version %d: %v", e.TypeID, e.Version, e.Err)
}

func (e *MigrationStepError) Unwrap() []error { return []error{ErrMigrationStep, e.Err} }
