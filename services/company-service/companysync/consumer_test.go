package companysync

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, evt eventbus.Event) eventbus.Message {
	t.Helper()
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return eventbus.Message{Topic: evt.Topic(), Key: evt.Key(), Value: raw}
}

func TestMemberAdded_IsIdempotent(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	c := f.seed(t, "Acme")
	e := uuid.New()
	msg := message(t, events.CompanyMemberAdded{CompanyID: c.ID, EmployeeID: e})

	require.NoError(t, f.consumer.HandleMemberAdded(context.Background(), msg))
	require.NoError(t, f.consumer.HandleMemberAdded(context.Background(), msg))

	stored, err := f.store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e}, stored.MemberIDs)
}

func TestMemberRemoved_DropsFirstOccurrence(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e, other := uuid.New(), uuid.New()
	c := f.seed(t, "Acme", e, other, e)
	removed := message(t, events.CompanyMemberRemoved{CompanyID: c.ID, EmployeeID: e})

	require.NoError(t, f.consumer.HandleMemberRemoved(context.Background(), removed))
	stored, err := f.store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other, e}, stored.MemberIDs)

	require.NoError(t, f.consumer.HandleMemberRemoved(context.Background(), removed))
	stored, err = f.store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other}, stored.MemberIDs)

	// Removing an absent member is a no-op.
	require.NoError(t, f.consumer.HandleMemberRemoved(context.Background(), removed))
	stored, err = f.store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{other}, stored.MemberIDs)
}

func TestMissingCompanyIsDroppedAndLaterEventsApply(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	f.consumer.Register(f.bus)
	c := f.seed(t, "Acme")
	e := uuid.New()

	ctx := context.Background()
	require.NoError(t, f.bus.Publish(ctx, events.CompanyMemberAdded{CompanyID: uuid.New(), EmployeeID: e}))
	require.NoError(t, f.bus.Publish(ctx, events.CompanyMemberAdded{CompanyID: c.ID, EmployeeID: e}))
	assert.Equal(t, 2, f.bus.Drain(ctx))
	assert.Empty(t, f.bus.Errors())

	stored, err := f.store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e}, stored.MemberIDs)
}

func TestApplyMemberAdded_ReportsMissingTarget(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	err := f.consumer.ApplyMemberAdded(context.Background(), events.CompanyMemberAdded{CompanyID: uuid.New(), EmployeeID: uuid.New()})
	require.ErrorIs(t, err, syncerr.ErrEventApplyNoTarget)
}

func TestUndecodableEventIsDropped(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	err := f.consumer.HandleMemberAdded(context.Background(), eventbus.Message{Topic: events.TopicCompanyAddEmployee, Value: []byte(`{"companyId":""}`)})
	require.NoError(t, err)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	c := f.seed(t, "Acme")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.consumer.ApplyMemberAdded(context.Background(), events.CompanyMemberAdded{CompanyID: c.ID, EmployeeID: uuid.New()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.MemberIDs, n)
}
