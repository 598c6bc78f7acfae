package realm

import (
	"errors"
	"fmt"
)

// Sentinel errors for realm operations. Typed errors below wrap them so
// callers can use errors.Is for the category and errors.As for details.
var (
	ErrDuplicateRealm  = errors.New("duplicate realm")
	ErrNoSuchRealm     = errors.New("no such realm")
	ErrClassNotFound   = errors.New("class not found")
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// DuplicateRealmError is returned when a realm id is already registered
type DuplicateRealmError struct {
	ID string
}

func (e *DuplicateRealmError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateRealm, e.ID)
}

func (e *DuplicateRealmError) Unwrap() error { return ErrDuplicateRealm }

// NoSuchRealmError is returned when a realm id is unknown
type NoSuchRealmError struct {
	ID string
}

func (e *NoSuchRealmError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoSuchRealm, e.ID)
}

func (e *NoSuchRealmError) Unwrap() error { return ErrNoSuchRealm }

// ClassNotFoundError is the final not-found failure of Realm.LoadClass
type ClassNotFoundError struct {
	Name  string
	Realm string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s in realm %s", ErrClassNotFound, e.Name, e.Realm)
}

func (e *ClassNotFoundError) Unwrap() error { return ErrClassNotFound }

// UnknownStrategyError is returned for a strategy id with no registered factory
type UnknownStrategyError struct {
	ID string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownStrategy, e.ID)
}

func (e *UnknownStrategyError) Unwrap() error { return ErrUnknownStrategy }
