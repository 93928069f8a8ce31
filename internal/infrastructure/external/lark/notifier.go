package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/event"
)

// MessageCreator is the part of the im/v1 message service the notifier needs.
// *lark.Client's Im.Message satisfies it.
type MessageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Notifier posts a text message to a finance chat for claim and payment changes.
// Vendor changes are not announced.
type Notifier struct {
	messages MessageCreator
	chatID   string
	logger   *zap.Logger
}

// NewNotifier creates a notifier posting to chatID
func NewNotifier(messages MessageCreator, chatID string, logger *zap.Logger) *Notifier {
	return &Notifier{
		messages: messages,
		chatID:   chatID,
		logger:   logger,
	}
}

// Name implements port.ChangePublisher
func (n *Notifier) Name() string {
	return "lark"
}

// Publish implements port.ChangePublisher
func (n *Notifier) Publish(ctx context.Context, evt *event.Event) error {
	text, ok := FormatEvent(evt)
	if !ok {
		return nil
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Uuid(evt.ID).
			Build()).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("chat_id", n.chatID),
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("chat_id", n.chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Debug("Change notification sent",
		zap.String("message_id", messageID),
		zap.String("event_type", evt.Type.String()),
		zap.String("subject_id", evt.SubjectID))
	return nil
}

// FormatEvent renders the chat line for evt. ok is false for events that are not announced.
func FormatEvent(evt *event.Event) (text string, ok bool) {
	actor := evt.GetPayloadString(event.KeyActorName)
	if actor == "" {
		actor = evt.ActorID
	}

	switch evt.Type {
	case event.TypeClaimsChanged:
		return fmt.Sprintf("Claim %s: %s -> %s (%s by %s)",
			evt.SubjectID,
			evt.GetPayloadString(event.KeyFrom),
			evt.GetPayloadString(event.KeyTo),
			evt.GetPayloadString(event.KeyAction),
			actor), true

	case event.TypePaymentsChanged:
		return fmt.Sprintf("Payment %s %s: %s %s for claims %s (by %s)",
			evt.SubjectID,
			evt.GetPayloadString(event.KeyAction),
			evt.GetPayloadString(event.KeyPayee),
			evt.GetPayloadString(event.KeyAmount),
			strings.Join(evt.GetPayloadStrings(event.KeyClaimIDs), ", "),
			actor), true
	}
	return "", false
}

var _ port.ChangePublisher = (*Notifier)(nil)
