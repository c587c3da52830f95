package mocks

import (
	"context"
	"sync"

	"storefront-orders/internal/infra"

	"github.com/stretchr/testify/mock"
)

type MockPaymentGateway struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPaymentGateway) RetrieveIntent(ctx context.Context, intentID string) (*infra.PaymentIntent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.PaymentIntent), args.Error(1)
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

// Notification is one event captured by a RecordingNotifier.
type Notification struct {
	Type    string
	Payload any
}

// RecordingNotifier keeps every event it is handed, in order.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Notification
}

func (n *RecordingNotifier) Notify(eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Notification{Type: eventType, Payload: payload})
}

func (n *RecordingNotifier) Events() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.events...)
}

// Types returns the event types received so far.
func (n *RecordingNotifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}
