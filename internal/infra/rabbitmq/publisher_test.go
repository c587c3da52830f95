package rabbitmq

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisher_Publish(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set, skipping integration test")
	}

	pub, err := NewPublisher(url, "storefront.orders.test")
	require.NoError(t, err)
	defer pub.Close()

	err = pub.Publish(context.Background(), "order.created", map[string]any{"orderId": 1})
	require.NoError(t, err)
}

func TestPublisher_PublishCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Publisher{exchange: "unused"}
	require.ErrorIs(t, p.Publish(ctx, "order.created", nil), context.Canceled)
}

func TestLogPublisher(t *testing.T) {
	require.NoError(t, LogPublisher{}.Publish(context.Background(), "order.created", map[string]any{"orderId": 1}))
}
