package notify

import (
	"context"
	"fmt"
	"log"

	pubnub "github.com/pubnub/go/v7"
)

// PubNubNotifier publishes payment outcomes to the payer's channel so the
// frontend can react without polling. Publishing is best-effort: a failed
// publish is logged, never surfaced.
type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(publishKey, subscribeKey string) *PubNubNotifier {
	cfg := pubnub.NewConfigWithUserId(pubnub.UserId("tiketa-backend"))
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey
	return &PubNubNotifier{pn: pubnub.NewPubNub(cfg)}
}

func (n *PubNubNotifier) PaymentCompleted(ctx context.Context, username, paymentID, tokenID string) {
	n.publish(username, map[string]any{
		"type":       "payment_completed",
		"payment_id": paymentID,
		"token_id":   tokenID,
	})
}

func (n *PubNubNotifier) PaymentCancelled(ctx context.Context, username, paymentID string) {
	n.publish(username, map[string]any{
		"type":       "payment_cancelled",
		"payment_id": paymentID,
	})
}

func (n *PubNubNotifier) publish(username string, message map[string]any) {
	channel := fmt.Sprintf("user-%s", username)
	_, _, err := n.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		log.Printf("notify %s: publish failed: %v", channel, err)
	}
}

// NopNotifier is used when no notification keys are configured.
type NopNotifier struct{}

func (NopNotifier) PaymentCompleted(ctx context.Context, username, paymentID, tokenID string) {}

func (NopNotifier) PaymentCancelled(ctx context.Context, username, paymentID string) {}
