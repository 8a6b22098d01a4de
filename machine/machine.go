// Package machine implements the state machine that governs business object
// transitions: it ties object types to their registered definitions, enforces
// the transition protocol and records every transition through a persistence
// backend.
package machine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zatosource/bst/config"
	"github.com/zatosource/bst/logger"
	"github.com/zatosource/bst/statestore"
)

// ObjectTag builds the composite object identity "{object_type}.{object_id}".
func ObjectTag(objectType, objectID string) string {
	return objectType + "." + objectID
}

// Result is the outcome of a transition check or attempt. A rejected
// transition carries the full explanation in Reason.
type Result struct {
	Allowed  bool
	Reason   string
	StateOld string
	StateNew string
}

// Recorder receives transition outcomes for metrics export. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveTransition(defTag, status string, forced bool, elapsed time.Duration)
}

// Transition outcome statuses reported to a Recorder.
const (
	StatusAllowed  = "allowed"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// StateMachine validates and executes business object transitions against a
// registry of parsed definitions and a state backend. Construct one per
// application context at startup and pass it to every consumer; it is safe
// for concurrent use as long as per-object writes are serialized by the
// caller or the backend.
type StateMachine struct {
	registry *config.Registry
	backend  statestore.Backend

	objectTypeToDef map[string][]string
	now             func() time.Time
	recorder        Recorder
	tracer          trace.Tracer
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithClock overrides the UTC clock used to timestamp transitions. Meant for
// tests.
func WithClock(now func() time.Time) Option {
	return func(m *StateMachine) {
		m.now = now
	}
}

// WithRecorder installs a metrics recorder for transition outcomes.
func WithRecorder(rec Recorder) Option {
	return func(m *StateMachine) {
		m.recorder = rec
	}
}

// New creates a state machine over the given definitions and backend,
// inverting every definition's objects list into the object-type lookup
// table.
func New(registry *config.Registry, backend statestore.Backend, opts ...Option) *StateMachine {
	m := &StateMachine{
		registry:        registry,
		backend:         backend,
		objectTypeToDef: make(map[string][]string),
		now:             time.Now,
		tracer:          otel.Tracer("bst/machine"),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, defTag := range registry.Tags() {
		item, _ := registry.Get(defTag)
		for _, objectType := range item.Objects {
			m.objectTypeToDef[objectType] = append(m.objectTypeToDef[objectType], defTag)
		}
	}
	return m
}

// GetDefTag resolves the definition governing an object type. It is only
// consulted when the caller did not supply an explicit definition name; the
// extra arguments exist to make the error messages actionable.
func (m *StateMachine) GetDefTag(objectType, objectID, stateNew, defName, defVersion string) (string, error) {
	defTags, ok := m.objectTypeToDef[objectType]
	if !ok {
		err := &UnknownObjectTypeError{
			ObjectType: objectType, ObjectID: objectID, StateNew: stateNew,
			DefName: defName, DefVersion: defVersion,
		}
		logger.Warn("definition lookup failed", "error", err.Error())
		return "", err
	}

	if len(defTags) > 1 {
		err := &AmbiguousDefinitionError{
			ObjectType: objectType, ObjectID: objectID, StateNew: stateNew,
			DefName: defName, DefVersion: defVersion, DefTags: defTags,
		}
		logger.Warn("definition lookup failed", "error", err.Error())
		return "", err
	}

	return defTags[0], nil
}

// CanTransition reports whether the object may move to stateNew under the
// definition identified by defTag. The decision order is: a forced transition
// to any known node is allowed; a force-stop state is always reachable; a
// fresh object may only enter a root; otherwise a direct edge from the
// current state must exist. Rejections are reported in the Result, not as
// errors; only backend failures surface as errors.
func (m *StateMachine) CanTransition(ctx context.Context, objectTag, stateNew, defTag string, force bool) (Result, error) {
	item, ok := m.registry.Get(defTag)
	if !ok {
		return Result{}, &UnknownDefinitionError{DefTag: defTag}
	}

	stateCurrent := ""
	hasCurrent := false
	info, err := m.backend.GetCurrentStateInfo(ctx, objectTag, item.Def.Tag)
	switch {
	case err == nil:
		stateCurrent = info.StateCurrent
		hasCurrent = true
	case errors.Is(err, statestore.ErrNotFound):
		// Object never transitioned; only roots and force-stops are open.
	default:
		return Result{}, err
	}

	// A forced transition is good as long as the state exists at all.
	if force && item.Def.Has(stateNew) {
		return Result{Allowed: true, StateOld: stateCurrent, StateNew: stateNew}, nil
	}

	// A force-stop interrupts the flow from anywhere, even the very start.
	if slices.Contains(item.ForceStop, stateNew) {
		return Result{Allowed: true, StateOld: stateCurrent, StateNew: stateNew}, nil
	}

	if !hasCurrent && !slices.Contains(item.Def.Roots(), stateNew) {
		reason := fmt.Sprintf("object `%s` of `%s` not found and target state `%s` is not one of roots `%s`",
			objectTag, item.Def.Tag, stateNew, strings.Join(item.Def.Roots(), ", "))
		logger.Warn("transition rejected", "object_tag", objectTag, "def_tag", defTag, "reason", reason)
		return Result{Reason: reason, StateNew: stateNew}, nil
	}

	if hasCurrent {
		if res := item.Def.HasEdge(stateCurrent, stateNew); !res.OK {
			reason := fmt.Sprintf("no transition found from `%s` to `%s` for `%s` in `%s`",
				stateCurrent, stateNew, objectTag, defTag)
			logger.Warn("transition rejected", "object_tag", objectTag, "def_tag", defTag, "reason", reason)
			return Result{Reason: reason, StateOld: stateCurrent, StateNew: stateNew}, nil
		}
	}

	return Result{Allowed: true, StateOld: stateCurrent, StateNew: stateNew}, nil
}

// Transition validates a move to stateNew and, when allowed, persists the new
// current state and appends it to the object's history. A rejected transition
// returns the explanatory Result together with a *TransitionError; backend
// failures propagate untranslated.
func (m *StateMachine) Transition(ctx context.Context, objectTag, stateNew, defTag string,
	serverCtx any, userCtx map[string]any, force bool) (Result, error) {

	ctx, span := m.tracer.Start(ctx, "bst.transition", trace.WithAttributes(
		attribute.String("bst.object_tag", objectTag),
		attribute.String("bst.def_tag", defTag),
		attribute.String("bst.state_new", stateNew),
		attribute.Bool("bst.force", force),
	))
	defer span.End()

	started := time.Now()
	res, err := m.CanTransition(ctx, objectTag, stateNew, defTag, force)
	if err != nil {
		m.observe(defTag, StatusError, force, started)
		return Result{}, err
	}
	if !res.Allowed {
		m.observe(defTag, StatusRejected, force, started)
		return res, &TransitionError{Reason: res.Reason}
	}

	info := &statestore.StateInfo{
		StateOld:        res.StateOld,
		StateCurrent:    stateNew,
		ObjectTag:       objectTag,
		DefTag:          defTag,
		TransitionTSUTC: m.now().UTC().Format(time.RFC3339Nano),
		ServerCtx:       serverCtx,
		UserCtx:         userCtx,
		IsForced:        force,
	}
	if err := m.backend.SetCurrentStateInfo(ctx, objectTag, defTag, info); err != nil {
		m.observe(defTag, StatusError, force, started)
		return Result{}, err
	}

	logger.Debug("transition recorded",
		"object_tag", objectTag, "def_tag", defTag,
		"state_old", res.StateOld, "state_new", stateNew, "is_forced", force)
	m.observe(defTag, StatusAllowed, force, started)
	return res, nil
}

// GetCurrentStateInfo returns the object's current state record with the
// object and definition tags stamped back on for convenience.
func (m *StateMachine) GetCurrentStateInfo(ctx context.Context, objectTag, defTag string) (*statestore.StateInfo, error) {
	info, err := m.backend.GetCurrentStateInfo(ctx, objectTag, defTag)
	if err != nil {
		return nil, err
	}
	info.ObjectTag = objectTag
	info.DefTag = defTag
	return info, nil
}

// GetHistory returns the object's full transition history in chronological
// order.
func (m *StateMachine) GetHistory(ctx context.Context, objectTag, defTag string) ([]statestore.StateInfo, error) {
	return m.backend.GetHistory(ctx, objectTag, defTag)
}

func (m *StateMachine) observe(defTag, status string, forced bool, started time.Time) {
	if m.recorder != nil {
		m.recorder.ObserveTransition(defTag, status, forced, time.Since(started))
	}
}
