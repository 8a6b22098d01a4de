package machine

import (
	"context"

	"github.com/zatosource/bst/graph"
)

// ScopeRequest identifies the object and target state of a scoped transition.
type ScopeRequest struct {
	ObjectType string
	ObjectID   string
	StateNew   string
	// DefName selects the definition explicitly; when empty the definition is
	// resolved from the object type. DefVersion defaults to the default
	// definition version when DefName is set.
	DefName    string
	DefVersion string
	UserCtx    map[string]any
	Force      bool
}

// TransitionScope validates a transition up front and commits it only when
// the caller's intervening work succeeds. A scope that is never committed
// writes nothing.
type TransitionScope struct {
	// UserCtx is handed to the caller for mutation; its final contents are
	// persisted with the transition record on Commit.
	UserCtx map[string]any

	machine   *StateMachine
	objectTag string
	stateNew  string
	defTag    string
	force     bool
	committed bool
}

// Begin resolves the definition tag (explicitly from the request, or via
// GetDefTag when no name was supplied) and validates the transition. It
// returns a *TransitionError when validation rejects the request.
func (m *StateMachine) Begin(ctx context.Context, req ScopeRequest) (*TransitionScope, error) {
	objectTag := ObjectTag(req.ObjectType, req.ObjectID)

	defTag := ""
	if req.DefName == "" {
		var err error
		defTag, err = m.GetDefTag(req.ObjectType, req.ObjectID, req.StateNew, req.DefName, req.DefVersion)
		if err != nil {
			return nil, err
		}
	} else {
		version := req.DefVersion
		if version == "" {
			version = graph.DefaultVersion
		}
		defTag = graph.Tag(graph.FormatName(req.DefName), version)
	}

	res, err := m.CanTransition(ctx, objectTag, req.StateNew, defTag, req.Force)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return nil, &TransitionError{Reason: res.Reason}
	}

	userCtx := req.UserCtx
	if userCtx == nil {
		userCtx = make(map[string]any)
	}

	return &TransitionScope{
		UserCtx:   userCtx,
		machine:   m,
		objectTag: objectTag,
		stateNew:  req.StateNew,
		defTag:    defTag,
		force:     req.Force,
	}, nil
}

// Commit performs the transition with the scope's user context. Committing an
// already committed scope is a no-op.
func (s *TransitionScope) Commit(ctx context.Context) error {
	if s.committed {
		return nil
	}
	if _, err := s.machine.Transition(ctx, s.objectTag, s.stateNew, s.defTag, nil, s.UserCtx, s.force); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Do runs fn inside a transition scope: the transition is validated first and
// committed only when fn returns nil. fn may mutate the supplied user
// context; the committed record carries its final contents. When fn fails,
// no state change occurs.
func (m *StateMachine) Do(ctx context.Context, req ScopeRequest, fn func(userCtx map[string]any) error) error {
	scope, err := m.Begin(ctx, req)
	if err != nil {
		return err
	}
	if err := fn(scope.UserCtx); err != nil {
		return err
	}
	return scope.Commit(ctx)
}
