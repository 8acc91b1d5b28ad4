package employeesync

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberAssigned_SetsEmployer(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e := f.seed(t, uuid.NullUUID{})
	c := uuid.New()
	msg := message(t, events.MemberAssigned{EmployeeID: e.ID, CompanyID: c})

	require.NoError(t, f.consumer.HandleMemberAssigned(context.Background(), msg))
	require.NoError(t, f.consumer.HandleMemberAssigned(context.Background(), msg))

	got, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, employer(c), got.EmployerID)
}

func TestMemberCleared_WithoutEmployerIsNoop(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e := f.seed(t, uuid.NullUUID{})

	require.NoError(t, f.consumer.HandleMemberCleared(context.Background(), message(t, events.MemberCleared{EmployeeID: e.ID})))
	got, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, got.EmployerID.Valid)
}

func TestMemberCleared_Unconditional(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e := f.seed(t, employer(uuid.New()))

	require.NoError(t, f.consumer.ApplyMemberCleared(context.Background(), events.MemberCleared{EmployeeID: e.ID}))
	got, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, got.EmployerID.Valid)
}

func TestMemberCleared_StaleFormerCompanyIsIgnored(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	current, former := uuid.New(), uuid.New()
	e := f.seed(t, employer(current))

	require.NoError(t, f.consumer.ApplyMemberCleared(context.Background(), events.MemberCleared{EmployeeID: e.ID, CompanyID: &former}))
	got, err := f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, employer(current), got.EmployerID)

	require.NoError(t, f.consumer.ApplyMemberCleared(context.Background(), events.MemberCleared{EmployeeID: e.ID, CompanyID: &current}))
	got, err = f.store.Get(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, got.EmployerID.Valid)
}

func TestMissingEmployeeIsDropped(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	f.consumer.Register(f.bus)
	e := f.seed(t, uuid.NullUUID{})
	c := uuid.New()

	ctx := context.Background()
	require.NoError(t, f.bus.Publish(ctx, events.MemberAssigned{EmployeeID: uuid.New(), CompanyID: c}))
	require.NoError(t, f.bus.Publish(ctx, events.MemberCleared{EmployeeID: uuid.New()}))
	require.NoError(t, f.bus.Publish(ctx, events.MemberAssigned{EmployeeID: e.ID, CompanyID: c}))
	assert.Equal(t, 3, f.bus.Drain(ctx))
	assert.Empty(t, f.bus.Errors())

	got, err := f.store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, employer(c), got.EmployerID)

	err = f.consumer.ApplyMemberAssigned(ctx, events.MemberAssigned{EmployeeID: uuid.New(), CompanyID: c})
	require.ErrorIs(t, err, syncerr.ErrEventApplyNoTarget)
}

func TestUndecodableEventIsDropped(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	err := f.consumer.HandleMemberCleared(context.Background(), eventbus.Message{Topic: events.TopicEmployeeClearCompany, Value: []byte(`[]`)})
	require.NoError(t, err)
}
