package infra

import "context"

type PaymentGatewayInterface interface {
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

var _ PaymentGatewayInterface = (*PaymentGatewayClient)(nil)
