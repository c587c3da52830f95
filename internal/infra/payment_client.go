package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var ErrIntentNotFound = errors.New("payment intent not found")

// GatewayError is a transport failure or a 5xx from the gateway; the
// intent's real state is unknown.
type GatewayError struct {
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %v", e.Err)
	}
	return fmt.Sprintf("payment gateway returned status %d", e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// PaymentIntent is the gateway's record. Amount is in minor units.
type PaymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PaymentGatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPaymentGatewayClient(baseURL, apiKey string, timeout time.Duration) *PaymentGatewayClient {
	return &PaymentGatewayClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *PaymentGatewayClient) RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrIntentNotFound
	case resp.StatusCode >= 500:
		return nil, &GatewayError{StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var pi PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&pi); err != nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode intent: %w", err)}
	}
	return &pi, nil
}
