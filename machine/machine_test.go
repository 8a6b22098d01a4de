package machine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatosource/bst/config"
	"github.com/zatosource/bst/statestore"
)

const ordersText = `[Orders]
objects=order, priority.order
force_stop=canceled
version=1
new=submitted
submitted=ready
ready=sent_to_client
sent_to_client=client_confirmed, client_rejected
`

func newOrdersMachine(t *testing.T, opts ...Option) *StateMachine {
	t.Helper()

	item, err := config.ParseText(ordersText)
	require.NoError(t, err)

	registry := config.NewRegistry()
	registry.Register(item)

	return New(registry, statestore.NewMemoryBackend(), opts...)
}

func TestObjectTag(t *testing.T) {
	assert.Equal(t, "order.1", ObjectTag("order", "1"))
}

func TestTransitionFreshObjectMustEnterRoot(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	res, err := m.Transition(ctx, "order.1", "ready", "Orders.v1", nil, nil, false)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "not one of roots `new`")

	// Nothing was written.
	_, err = m.GetCurrentStateInfo(ctx, "order.1", "Orders.v1")
	assert.ErrorIs(t, err, statestore.ErrNotFound)

	res, err = m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "", res.StateOld)
	assert.Equal(t, "new", res.StateNew)
}

func TestTransitionFollowsEdges(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	_, err := m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)

	res, err := m.Transition(ctx, "order.1", "sent_to_client", "Orders.v1", nil, nil, false)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "no transition found from `new` to `sent_to_client` for `order.1` in `Orders.v1`", res.Reason)

	res, err = m.Transition(ctx, "order.1", "submitted", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "new", res.StateOld)
	assert.Equal(t, "submitted", res.StateNew)
}

func TestTransitionForceStopFromAnywhere(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	// canceled is not a node in the graph at all, only a force-stop.
	_, err := m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	res, err := m.Transition(ctx, "order.1", "canceled", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "new", res.StateOld)

	// Force-stop also applies to fresh objects.
	res, err = m.Transition(ctx, "order.2", "canceled", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "", res.StateOld)
}

func TestTransitionForceSupersedesEdges(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	_, err := m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)

	res, err := m.Transition(ctx, "order.1", "client_confirmed", "Orders.v1", nil, nil, true)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	info, err := m.GetCurrentStateInfo(ctx, "order.1", "Orders.v1")
	require.NoError(t, err)
	assert.True(t, info.IsForced)

	// Force still requires the target to be a known node.
	res, err = m.Transition(ctx, "order.1", "no_such_state", "Orders.v1", nil, nil, true)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.False(t, res.Allowed)
}

func TestTransitionRecordsHistory(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	m := newOrdersMachine(t, WithClock(func() time.Time { return at }))
	ctx := context.Background()

	for _, state := range []string{"new", "submitted", "ready"} {
		_, err := m.Transition(ctx, "order.1", state, "Orders.v1", nil, nil, false)
		require.NoError(t, err)
	}

	history, err := m.GetHistory(ctx, "order.1", "Orders.v1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "", history[0].StateOld)
	assert.Equal(t, "new", history[0].StateCurrent)
	assert.Equal(t, "submitted", history[1].StateCurrent)
	assert.Equal(t, "ready", history[2].StateCurrent)
	assert.Equal(t, "2026-08-31T10:00:00Z", history[2].TransitionTSUTC)

	// The current record is the last history entry.
	info, err := m.GetCurrentStateInfo(ctx, "order.1", "Orders.v1")
	require.NoError(t, err)
	assert.Equal(t, history[2], *info)
}

func TestTransitionPersistsContexts(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	userCtx := map[string]any{"operator": "jane"}
	_, err := m.Transition(ctx, "order.1", "new", "Orders.v1", "req-77", userCtx, false)
	require.NoError(t, err)

	info, err := m.GetCurrentStateInfo(ctx, "order.1", "Orders.v1")
	require.NoError(t, err)
	assert.Equal(t, "req-77", info.ServerCtx)
	assert.Equal(t, userCtx, info.UserCtx)
	assert.Equal(t, "order.1", info.ObjectTag)
	assert.Equal(t, "Orders.v1", info.DefTag)
}

func TestCanTransitionDoesNotWrite(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	res, err := m.CanTransition(ctx, "order.1", "new", "Orders.v1", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = m.GetCurrentStateInfo(ctx, "order.1", "Orders.v1")
	assert.ErrorIs(t, err, statestore.ErrNotFound)
}

func TestTransitionUnknownDefinition(t *testing.T) {
	m := newOrdersMachine(t)

	_, err := m.Transition(context.Background(), "order.1", "new", "Invoices.v1", nil, nil, false)
	var derr *UnknownDefinitionError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Invoices.v1", derr.DefTag)
}

func TestGetDefTag(t *testing.T) {
	m := newOrdersMachine(t)

	defTag, err := m.GetDefTag("order", "1", "new", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Orders.v1", defTag)

	defTag, err = m.GetDefTag("priority.order", "1", "new", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Orders.v1", defTag)

	_, err = m.GetDefTag("invoice", "1", "new", "", "")
	var uerr *UnknownObjectTypeError
	assert.ErrorAs(t, err, &uerr)
}

func TestGetDefTagAmbiguous(t *testing.T) {
	registry := config.NewRegistry()
	for _, text := range []string{
		"[Orders]\nobjects=order\nnew=done\n",
		"[Priority Orders]\nobjects=order\nnew=done\n",
	} {
		item, err := config.ParseText(text)
		require.NoError(t, err)
		registry.Register(item)
	}
	m := New(registry, statestore.NewMemoryBackend())

	_, err := m.GetDefTag("order", "1", "new", "", "")
	var aerr *AmbiguousDefinitionError
	require.ErrorAs(t, err, &aerr)
	assert.ElementsMatch(t, []string{"Orders.v1", "Priority.Orders.v1"}, aerr.DefTags)
}

func TestMassTransitionStopsAtFirstFailure(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	reqs := []Request{
		{ObjectTag: "order.1", StateNew: "new", DefTag: "Orders.v1"},
		{ObjectTag: "order.2", StateNew: "new", DefTag: "Orders.v1"},
		{ObjectTag: "order.3", StateNew: "ready", DefTag: "Orders.v1"},
		{ObjectTag: "order.4", StateNew: "new", DefTag: "Orders.v1"},
	}

	results, err := m.MassTransition(ctx, reqs, MassOptions{})
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)

	// The first two were committed before the failure; the fourth was never
	// attempted.
	require.Len(t, results, 2)
	for _, tag := range []string{"order.1", "order.2"} {
		info, err := m.GetCurrentStateInfo(ctx, tag, "Orders.v1")
		require.NoError(t, err)
		assert.Equal(t, "new", info.StateCurrent)
	}
	_, err = m.GetCurrentStateInfo(ctx, "order.4", "Orders.v1")
	assert.ErrorIs(t, err, statestore.ErrNotFound)
}

func TestMassTransitionAtomicWritesNothingOnFailure(t *testing.T) {
	m := newOrdersMachine(t)
	ctx := context.Background()

	reqs := []Request{
		{ObjectTag: "order.1", StateNew: "new", DefTag: "Orders.v1"},
		{ObjectTag: "order.2", StateNew: "ready", DefTag: "Orders.v1"},
	}

	results, err := m.MassTransition(ctx, reqs, MassOptions{Atomic: true})
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Nil(t, results)

	_, err = m.GetCurrentStateInfo(ctx, "order.1", "Orders.v1")
	assert.ErrorIs(t, err, statestore.ErrNotFound)
}

func TestMassTransitionAllSucceed(t *testing.T) {
	m := newOrdersMachine(t)

	reqs := []Request{
		{ObjectTag: "order.1", StateNew: "new", DefTag: "Orders.v1"},
		{ObjectTag: "order.1", StateNew: "submitted", DefTag: "Orders.v1"},
		{ObjectTag: "order.2", StateNew: "canceled", DefTag: "Orders.v1"},
	}

	results, err := m.MassTransition(context.Background(), reqs, MassOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "new", results[1].StateOld)
	assert.Equal(t, "submitted", results[1].StateNew)
}

type recordedObservation struct {
	defTag  string
	status  string
	forced  bool
	elapsed time.Duration
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []recordedObservation
}

func (r *fakeRecorder) ObserveTransition(defTag, status string, forced bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, recordedObservation{defTag, status, forced, elapsed})
}

func TestTransitionReportsOutcomes(t *testing.T) {
	rec := &fakeRecorder{}
	m := newOrdersMachine(t, WithRecorder(rec))
	ctx := context.Background()

	_, err := m.Transition(ctx, "order.1", "new", "Orders.v1", nil, nil, false)
	require.NoError(t, err)
	_, err = m.Transition(ctx, "order.1", "ready", "Orders.v1", nil, nil, false)
	require.Error(t, err)

	require.Len(t, rec.obs, 2)
	assert.Equal(t, StatusAllowed, rec.obs[0].status)
	assert.Equal(t, StatusRejected, rec.obs[1].status)
	assert.Equal(t, "Orders.v1", rec.obs[0].defTag)
}
