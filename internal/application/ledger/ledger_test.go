package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
)

var emp = &entity.Actor{ID: "emp", Name: "Employee"}

func fixedClock(ts ...time.Time) Clock {
	i := 0
	return func() time.Time {
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}

func TestRecord_AppendsWithServerTime(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l := New(WithClock(fixedClock(at)))
	claim := &entity.Claim{ID: "c1"}

	entry, err := l.Record(claim, emp, entity.ActionSubmitted, "")

	require.NoError(t, err)
	require.Len(t, claim.History, 1)
	assert.Equal(t, entry, claim.History[0])
	assert.Equal(t, 1, entry.Seq)
	assert.Equal(t, at, entry.Timestamp)
	assert.Equal(t, "emp", entry.ActorID)
	assert.Equal(t, "Employee", entry.ActorName)
}

func TestRecord_NeverRewritesExisting(t *testing.T) {
	l := New()
	claim := &entity.Claim{ID: "c1"}
	first, err := l.Record(claim, emp, entity.ActionSubmitted, "")
	require.NoError(t, err)

	_, err = l.Record(claim, emp, entity.StatusChangeAction(workflow.StateDraft), "changed my mind")
	require.NoError(t, err)

	require.Len(t, claim.History, 2)
	assert.Equal(t, first, claim.History[0])
	assert.Equal(t, 2, claim.History[1].Seq)
	assert.Equal(t, "changed my mind", claim.History[1].Note)
}

func TestRecord_RejectsFreeTextActions(t *testing.T) {
	l := New()
	claim := &entity.Claim{ID: "c1"}

	_, err := l.Record(claim, emp, entity.HistoryAction("approved by boss"), "")

	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Empty(t, claim.History)
}

func TestRecord_RequiresActor(t *testing.T) {
	l := New()
	claim := &entity.Claim{ID: "c1"}

	_, err := l.Record(claim, &entity.Actor{}, entity.ActionSubmitted, "")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = l.Record(nil, emp, entity.ActionSubmitted, "")
	assert.Error(t, err)
}

func TestSorted_TimestampThenInsertionOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []entity.HistoryEntry{
		{Seq: 1, Timestamp: base.Add(2 * time.Second), Action: entity.ActionSubmitted},
		{Seq: 2, Timestamp: base, Action: entity.ActionPaid},
		{Seq: 3, Timestamp: base, Action: entity.ActionPaymentCancelled},
	}

	sorted := Sorted(entries)

	assert.Equal(t, []int{2, 3, 1}, []int{sorted[0].Seq, sorted[1].Seq, sorted[2].Seq})
	assert.Equal(t, 1, entries[0].Seq, "input must not be reordered")

	latest, ok := Latest(entries)
	require.True(t, ok)
	assert.Equal(t, 1, latest.Seq)

	_, ok = Latest(nil)
	assert.False(t, ok)
}
