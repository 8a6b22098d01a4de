// Package statestore provides persistence for object transition state: the
// current state of every tracked object and its append-only transition
// history.
package statestore

import (
	"context"
	"errors"
)

// Backend is the persistence contract the state machine writes through. All
// operations are keyed by the (object tag, definition tag) pair.
//
// Implementations must support the first three operations; RenameDef and
// SetCtx are optional and return ErrUnsupported when a backend cannot provide
// them. Callers must not assume they are available.
type Backend interface {
	// GetCurrentStateInfo returns the current state record of an object, or
	// ErrNotFound when the object never transitioned.
	GetCurrentStateInfo(ctx context.Context, objectTag, defTag string) (*StateInfo, error)

	// GetHistory returns every transition ever recorded for the object, in
	// chronological order. An object with no history yields an empty slice,
	// not an error.
	GetHistory(ctx context.Context, objectTag, defTag string) ([]StateInfo, error)

	// SetCurrentStateInfo overwrites the current-state slot and appends the
	// record to the object's history, presented to callers as one logical
	// write.
	SetCurrentStateInfo(ctx context.Context, objectTag, defTag string, info *StateInfo) error

	// RenameDef moves everything recorded under the old definition tag to the
	// new one.
	RenameDef(ctx context.Context, oldName, oldVersion, newName, newVersion string) error

	// SetCtx attaches arbitrary context data to an already recorded
	// transition.
	SetCtx(ctx context.Context, objectTag, defTag, transitionTS string, userCtx map[string]any) error
}

// ErrNotFound is returned when no state was ever recorded for an object.
var ErrNotFound = errors.New("no state recorded for object")

// ErrUnsupported is returned by optional Backend operations a concrete
// backend does not provide.
var ErrUnsupported = errors.New("operation not supported by this backend")

// ErrInvalidTag is returned when an object or definition tag is empty.
var ErrInvalidTag = errors.New("object and definition tags must not be empty")

// Unsupported provides ErrUnsupported implementations of the optional Backend
// operations. Backends that only need the required three embed it.
type Unsupported struct{}

// RenameDef reports the operation as unsupported.
func (Unsupported) RenameDef(_ context.Context, _, _, _, _ string) error {
	return ErrUnsupported
}

// SetCtx reports the operation as unsupported.
func (Unsupported) SetCtx(_ context.Context, _, _, _ string, _ map[string]any) error {
	return ErrUnsupported
}
