package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
)

func TestClaimSave_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Claims()
	require.NoError(t, repo.Create(ctx, &entity.Claim{ID: "c1", Status: workflow.StateDraft}))

	claim, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	claim.Status = workflow.StatePendingFinance

	require.NoError(t, repo.Save(ctx, claim, workflow.StateDraft))
	assert.ErrorIs(t, repo.Save(ctx, claim, workflow.StateDraft), port.ErrStatusConflict)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClaimSave_HistoryIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Claims()
	require.NoError(t, repo.Create(ctx, &entity.Claim{
		ID:      "c1",
		Status:  workflow.StateDraft,
		History: []entity.HistoryEntry{{Seq: 1, Action: entity.ActionSubmitted, Note: "kept"}},
	}))

	tampered := &entity.Claim{
		ID:     "c1",
		Status: workflow.StateDraft,
		History: []entity.HistoryEntry{
			{Seq: 1, Action: entity.ActionSubmitted, Note: "rewritten"},
			{Seq: 2, Action: entity.ActionPaid},
		},
	}
	require.NoError(t, repo.Save(ctx, tampered, workflow.StateDraft))

	stored, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored.History, 2)
	assert.Equal(t, "kept", stored.History[0].Note)
	assert.Equal(t, entity.ActionPaid, stored.History[1].Action)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Claims()
	require.NoError(t, repo.Create(ctx, &entity.Claim{ID: "c1", Status: workflow.StateDraft}))

	claim, _ := repo.GetByID(ctx, "c1")
	claim.Status = workflow.StateApproved

	again, _ := repo.GetByID(ctx, "c1")
	assert.Equal(t, workflow.StateDraft, again.Status)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Claims().Create(ctx, &entity.Claim{ID: "c1", Status: workflow.StateApproved}))

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, _ := store.Claims().GetByID(txCtx, "c1")
		claim.Status = workflow.StateCompleted
		require.NoError(t, store.Claims().Save(txCtx, claim, workflow.StateApproved))
		require.NoError(t, store.Payments().Create(txCtx, &entity.Payment{ID: "p1"}))

		// nested calls join the outer transaction
		return store.WithTransaction(txCtx, func(context.Context) error { return boom })
	})

	assert.ErrorIs(t, err, boom)
	claim, _ := store.Claims().GetByID(ctx, "c1")
	assert.Equal(t, workflow.StateApproved, claim.Status)
	p, _ := store.Payments().GetByID(ctx, "p1")
	assert.Nil(t, p)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	assert.Panics(t, func() {
		_ = store.WithTransaction(ctx, func(txCtx context.Context) error {
			_ = store.Vendors().Create(txCtx, &entity.Vendor{ID: "v1"})
			panic("boom")
		})
	})

	v, _ := store.Vendors().GetByID(ctx, "v1")
	assert.Nil(t, v)
}

func TestChangeRequests(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().ChangeRequests()
	req := &entity.VendorChangeRequest{ID: "r1", VendorID: "v1", Status: entity.RequestPending}
	require.NoError(t, repo.Create(ctx, req))

	pending, err := repo.GetPendingByVendor(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, pending)

	decided := *req
	decided.Status = entity.RequestApproved
	require.NoError(t, repo.Update(ctx, &decided, entity.RequestPending))
	assert.ErrorIs(t, repo.Update(ctx, &decided, entity.RequestPending), port.ErrStatusConflict)

	pending, err = repo.GetPendingByVendor(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	list, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestActors(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Actors()
	require.NoError(t, repo.Upsert(ctx, &entity.Actor{ID: "b"}))
	require.NoError(t, repo.Upsert(ctx, &entity.Actor{ID: "a", Capabilities: []entity.Capability{entity.CapabilityFinanceAudit}}))

	a, err := repo.GetActor(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.Has(entity.CapabilityFinanceAudit))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
}
