package firebase

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// multicastSender is the slice of messaging.Client used for push delivery.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Push is one notification addressed to a set of device tokens.
type Push struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// PushResult reports per-token outcomes. Stale lists tokens FCM no longer
// recognises so callers can forget them.
type PushResult struct {
	Sent   int
	Failed int
	Stale  []string
}

// Messenger sends push notifications through FCM.
type Messenger struct {
	client multicastSender
}

func NewMessenger(client multicastSender) (*Messenger, error) {
	if client == nil {
		return nil, errors.New("messaging client is required")
	}
	return &Messenger{client: client}, nil
}

func (m *Messenger) Send(ctx context.Context, push Push) (PushResult, error) {
	if len(push.Tokens) == 0 {
		return PushResult{}, nil
	}

	resp, err := m.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: push.Tokens,
		Data:   push.Data,
		Notification: &messaging.Notification{
			Title: push.Title,
			Body:  push.Body,
		},
	})
	if err != nil {
		return PushResult{}, fmt.Errorf("send multicast: %w", err)
	}

	result := PushResult{Sent: resp.SuccessCount, Failed: resp.FailureCount}
	for i, r := range resp.Responses {
		if r == nil || r.Success || i >= len(push.Tokens) {
			continue
		}
		if messaging.IsUnregistered(r.Error) {
			result.Stale = append(result.Stale, push.Tokens[i])
		}
	}
	return result, nil
}
