package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/domain/event"
)

type fakeMessages struct {
	reqs []*larkim.CreateMessageReq
	resp *larkim.CreateMessageResp
	err  error
}

func (f *fakeMessages) Create(_ context.Context, req *larkim.CreateMessageReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func okResp() *larkim.CreateMessageResp {
	return &larkim.CreateMessageResp{Data: &larkim.CreateMessageRespData{MessageId: larkcore.StringPtr("om_1")}}
}

func TestNotifier_PostsClaimChange(t *testing.T) {
	fake := &fakeMessages{resp: okResp()}
	n := NewNotifier(fake, "oc_finance", zap.NewNop())
	evt := event.NewEvent(event.TypeClaimsChanged, "c1", "mgr", map[string]interface{}{
		event.KeyAction:    "approve",
		event.KeyFrom:      "pending_approval",
		event.KeyTo:        "pending_finance",
		event.KeyActorName: "Manager",
	})

	require.NoError(t, n.Publish(context.Background(), evt))
	require.Len(t, fake.reqs, 1)

	body := fake.reqs[0].Body
	assert.Equal(t, "oc_finance", *body.ReceiveId)
	assert.Equal(t, larkim.MsgTypeText, *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, "Claim c1: pending_approval -> pending_finance (approve by Manager)", content["text"])
}

func TestNotifier_SkipsVendorChanges(t *testing.T) {
	fake := &fakeMessages{resp: okResp()}
	n := NewNotifier(fake, "oc_finance", zap.NewNop())

	require.NoError(t, n.Publish(context.Background(), event.NewEvent(event.TypeVendorsChanged, "v1", "fin", nil)))
	assert.Empty(t, fake.reqs)
}

func TestNotifier_Failures(t *testing.T) {
	evt := event.NewEvent(event.TypePaymentsChanged, "p1", "fin", map[string]interface{}{
		event.KeyAction:   "run",
		event.KeyPayee:    "Acme",
		event.KeyAmount:   "300",
		event.KeyClaimIDs: []string{"c1", "c2"},
	})

	transport := &fakeMessages{err: errors.New("timeout")}
	assert.Error(t, NewNotifier(transport, "oc", zap.NewNop()).Publish(context.Background(), evt))

	rejected := &fakeMessages{resp: &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230002, Msg: "bot not in chat"}}}
	err := NewNotifier(rejected, "oc", zap.NewNop()).Publish(context.Background(), evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "230002")
}

func TestFormatEvent_Payment(t *testing.T) {
	evt := event.NewEvent(event.TypePaymentsChanged, "p1", "fin", map[string]interface{}{
		event.KeyAction:   "run",
		event.KeyPayee:    "Acme",
		event.KeyAmount:   "300",
		event.KeyClaimIDs: []string{"c1", "c2"},
	})

	text, ok := FormatEvent(evt)
	assert.True(t, ok)
	assert.Equal(t, "Payment p1 run: Acme 300 for claims c1, c2 (by fin)", text)
}
