package companysync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/staffsync/staffsync/libs/eventbus"
	"github.com/staffsync/staffsync/libs/events"
	"github.com/staffsync/staffsync/libs/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_AssignsEveryInitialMember(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e1, e2 := uuid.New(), uuid.New()

	c, err := f.producer.Create(context.Background(), Input{Name: "Acme", Budget: "1000", MemberIDs: []uuid.UUID{e1, e2}})
	require.NoError(t, err)

	assert.Equal(t, []events.MemberAssigned{
		{EmployeeID: e1, CompanyID: c.ID},
		{EmployeeID: e2, CompanyID: c.ID},
	}, f.assigned())

	stored, err := f.store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{e1, e2}, stored.MemberIDs)
}

func TestCreate_DuplicateNameEmitsNothing(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	f.seed(t, "Acme")

	_, err := f.producer.Create(context.Background(), Input{Name: "Acme", Budget: "1", MemberIDs: []uuid.UUID{uuid.New()}})
	require.ErrorIs(t, err, syncerr.ErrAlreadyExists)
	assert.Empty(t, f.bus.Published())

	_, total, err := f.store.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreate_WithoutMembersEmitsNothing(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	c, err := f.producer.Create(context.Background(), Input{Name: "Solo", Budget: "5"})
	require.NoError(t, err)
	assert.NotNil(t, c.MemberIDs)
	assert.Empty(t, f.bus.Published())
}

func TestUpdate_ClearsDroppedAndReassignsAllListed(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e1, e2, e3 := uuid.New(), uuid.New(), uuid.New()
	c := f.seed(t, "Acme", e1, e2)

	updated, err := f.producer.Update(context.Background(), c.ID, Input{Name: "Acme", Budget: "2000", MemberIDs: []uuid.UUID{e1, e3}})
	require.NoError(t, err)

	former := c.ID
	assert.Equal(t, []events.MemberCleared{{EmployeeID: e2, CompanyID: &former}}, f.cleared())
	// e1 was already a member and is assigned again.
	assert.Equal(t, []events.MemberAssigned{
		{EmployeeID: e1, CompanyID: c.ID},
		{EmployeeID: e3, CompanyID: c.ID},
	}, f.assigned())
	assert.Equal(t, []uuid.UUID{e1, e3}, updated.MemberIDs)
	assert.Equal(t, "2000", updated.Budget)
}

func TestUpdate_SameListStillReassigns(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e1 := uuid.New()
	c := f.seed(t, "Acme", e1)

	_, err := f.producer.Update(context.Background(), c.ID, Input{Name: "Acme", Budget: "1", MemberIDs: []uuid.UUID{e1}})
	require.NoError(t, err)
	assert.Empty(t, f.cleared())
	assert.Len(t, f.assigned(), 1)
}

func TestUpdate_OmittedMembersLeavesThemAlone(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e1 := uuid.New()
	c := f.seed(t, "Acme", e1)

	updated, err := f.producer.Update(context.Background(), c.ID, Input{Name: "Acme Corp", Budget: "3"})
	require.NoError(t, err)
	assert.Empty(t, f.bus.Published())
	assert.Equal(t, "Acme Corp", updated.Name)
	assert.Equal(t, []uuid.UUID{e1}, updated.MemberIDs)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	_, err := f.producer.Update(context.Background(), uuid.New(), Input{Name: "Ghost"})
	require.ErrorIs(t, err, syncerr.ErrNotFound)

	f.seed(t, "Taken")
	c := f.seed(t, "Mine", uuid.New())
	_, err = f.producer.Update(context.Background(), c.ID, Input{Name: "Taken", MemberIDs: []uuid.UUID{}})
	require.ErrorIs(t, err, syncerr.ErrAlreadyExists)
	assert.Empty(t, f.bus.Published())
}

func TestDelete_DefaultEmitsNothing(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	c := f.seed(t, "Acme", uuid.New())

	require.NoError(t, f.producer.Delete(context.Background(), c.ID))
	assert.Empty(t, f.bus.Published())

	_, err := f.store.Get(context.Background(), c.ID)
	require.ErrorIs(t, err, syncerr.ErrNotFound)
	require.ErrorIs(t, f.producer.Delete(context.Background(), c.ID), syncerr.ErrNotFound)
}

func TestDelete_ClearMembersOption(t *testing.T) {
	f := newFixture(t, ProducerOptions{ClearMembersOnDelete: true})
	e1, e2 := uuid.New(), uuid.New()
	c := f.seed(t, "Acme", e1, e2)

	require.NoError(t, f.producer.Delete(context.Background(), c.ID))
	former := c.ID
	assert.Equal(t, []events.MemberCleared{
		{EmployeeID: e1, CompanyID: &former},
		{EmployeeID: e2, CompanyID: &former},
	}, f.cleared())
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, eventbus.Event) error {
	p.calls++
	return errors.New("broker down")
}

func TestCreate_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := NewMemoryStore()
	pub := &failingPublisher{}
	producer := NewProducer(store, pub, discardLogger(), ProducerOptions{})

	c, err := producer.Create(context.Background(), Input{Name: "Acme", Budget: "1", MemberIDs: []uuid.UUID{uuid.New()}})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)

	_, err = store.Get(context.Background(), c.ID)
	require.NoError(t, err)
}

// racyNames hides existing names from the pre-check, as when a concurrent
// create lands between the check and the write.
type racyNames struct {
	*MemoryStore
}

func (racyNames) FindByName(context.Context, string) (Company, error) {
	return Company{}, syncerr.ErrNotFound
}

func TestUpdate_FailedWriteEmitsNothing(t *testing.T) {
	f := newFixture(t, ProducerOptions{})
	e1, e2 := uuid.New(), uuid.New()
	f.seed(t, "Taken")
	beta := f.seed(t, "Beta", e1)
	producer := NewProducer(racyNames{f.store}, f.bus, discardLogger(), ProducerOptions{})

	_, err := producer.Update(context.Background(), beta.ID, Input{Name: "Taken", Budget: "1", MemberIDs: []uuid.UUID{e2}})
	require.ErrorIs(t, err, syncerr.ErrAlreadyExists)
	assert.Empty(t, f.bus.Published())

	stored, err := f.store.Get(context.Background(), beta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta", stored.Name)
	assert.Equal(t, []uuid.UUID{e1}, stored.MemberIDs)
}
