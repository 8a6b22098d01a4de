package machine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Request is a single transition to apply as part of a batch.
type Request struct {
	ObjectTag string
	StateNew  string
	DefTag    string
	ServerCtx any
	UserCtx   map[string]any
	Force     bool
}

// MassOptions control batch behavior.
type MassOptions struct {
	// Atomic validates every request up front and writes nothing unless all
	// of them pass. Validation runs against the pre-batch state, so requests
	// that depend on an earlier request in the same batch must use the
	// default sequential mode.
	Atomic bool
}

// BatchRecorder is an optional capability of a Recorder for observing mass
// transition batch sizes.
type BatchRecorder interface {
	ObserveMassBatch(size int)
}

// MassTransition applies the requests in order. In the default mode it stops
// at the first failure, leaving the earlier transitions committed and the
// later ones never attempted; there is no rollback. The returned results
// cover the requests that were attempted.
func (m *StateMachine) MassTransition(ctx context.Context, reqs []Request, opts MassOptions) ([]Result, error) {
	ctx, span := m.tracer.Start(ctx, "bst.mass_transition", trace.WithAttributes(
		attribute.Int("bst.batch_size", len(reqs)),
		attribute.Bool("bst.atomic", opts.Atomic),
	))
	defer span.End()

	if rec, ok := m.recorder.(BatchRecorder); ok {
		rec.ObserveMassBatch(len(reqs))
	}

	if opts.Atomic {
		for _, req := range reqs {
			res, err := m.CanTransition(ctx, req.ObjectTag, req.StateNew, req.DefTag, req.Force)
			if err != nil {
				return nil, err
			}
			if !res.Allowed {
				return nil, &TransitionError{Reason: res.Reason}
			}
		}
	}

	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res, err := m.Transition(ctx, req.ObjectTag, req.StateNew, req.DefTag, req.ServerCtx, req.UserCtx, req.Force)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
