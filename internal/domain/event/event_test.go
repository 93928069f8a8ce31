package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	for _, typ := range Types() {
		assert.True(t, typ.IsValid(), typ.String())
	}
	assert.False(t, Type("instance.created").IsValid())
	assert.Equal(t, "claims.changed", TypeClaimsChanged.String())
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeClaimsChanged, "claim-1", "emp", nil)

	require.NotNil(t, evt)
	assert.NotEmpty(t, evt.ID)
	assert.NotEmpty(t, evt.CorrelationID)
	assert.NotEqual(t, evt.ID, evt.CorrelationID)
	assert.Equal(t, "claim-1", evt.SubjectID)
	assert.Equal(t, "emp", evt.ActorID)
	assert.NotNil(t, evt.Payload)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestNewEventWithCorrelation(t *testing.T) {
	a := NewEventWithCorrelation(TypeClaimsChanged, "c1", "fin", nil, "batch-1")
	b := NewEventWithCorrelation(TypeClaimsChanged, "c2", "fin", nil, "batch-1")

	assert.Equal(t, a.CorrelationID, b.CorrelationID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestWithPayload_DoesNotMutateOriginal(t *testing.T) {
	evt := NewEvent(TypeVendorsChanged, "v1", "fin", map[string]interface{}{KeyAction: "approve"})

	next := evt.WithPayload(KeyTo, "approved")

	assert.Equal(t, "approved", next.GetPayloadString(KeyTo))
	assert.Equal(t, "approve", next.GetPayloadString(KeyAction))
	assert.Empty(t, evt.GetPayloadString(KeyTo))
	assert.Equal(t, evt.ID, next.ID)
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestGetPayload(t *testing.T) {
	evt := NewEvent(TypePaymentsChanged, "p1", "fin", map[string]interface{}{
		KeyPayee:    "Acme",
		KeyAmount:   stringer("300"),
		KeyClaimIDs: []string{"a", "b"},
		"decoded":   []interface{}{"x", 1, "y"},
		"number":    5,
	})

	assert.Equal(t, "Acme", evt.GetPayloadString(KeyPayee))
	assert.Equal(t, "300", evt.GetPayloadString(KeyAmount))
	assert.Equal(t, "", evt.GetPayloadString("number"))
	assert.Equal(t, "", evt.GetPayloadString("missing"))
	assert.Equal(t, []string{"a", "b"}, evt.GetPayloadStrings(KeyClaimIDs))
	assert.Equal(t, []string{"x", "y"}, evt.GetPayloadStrings("decoded"))
	assert.Nil(t, evt.GetPayloadStrings("missing"))
}
