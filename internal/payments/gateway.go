package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	PaymentStatusApproved = "approved"

	gatewayRequestTimeout = 15 * time.Second
)

// ErrGatewayNotFound means the gateway has no record for the id. Webhook
// handling acknowledges these without mutation.
var ErrGatewayNotFound = errors.New("gateway object not found")

// Payment is the authoritative payment record fetched from the gateway.
// Webhook payloads are never trusted for amount or status; the record is
// always re-fetched by id.
type Payment struct {
	ID                string
	Status            string
	TransactionAmount int64
	ExternalReference string
}

// Preapproval is the authoritative recurring-subscription record.
type Preapproval struct {
	ID                string
	Status            string
	ExternalReference string
	NextPaymentDate   time.Time
}

// Gateway fetches authoritative payment objects. Credentials are per-call
// because each club may carry its own access token.
type Gateway interface {
	GetPayment(ctx context.Context, accessToken, id string) (*Payment, error)
	GetPreapproval(ctx context.Context, accessToken, id string) (*Preapproval, error)
}

// HTTPGateway talks to the gateway's REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: gatewayRequestTimeout},
	}
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount float64     `json:"transaction_amount"`
	ExternalReference string      `json:"external_reference"`
}

func (g *HTTPGateway) GetPayment(ctx context.Context, accessToken, id string) (*Payment, error) {
	var resp paymentResponse
	if err := g.get(ctx, accessToken, "/v1/payments/"+id, &resp); err != nil {
		return nil, err
	}
	return &Payment{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		TransactionAmount: int64(math.Round(resp.TransactionAmount)),
		ExternalReference: resp.ExternalReference,
	}, nil
}

type preapprovalResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	NextPaymentDate   string `json:"next_payment_date"`
}

func (g *HTTPGateway) GetPreapproval(ctx context.Context, accessToken, id string) (*Preapproval, error) {
	var resp preapprovalResponse
	if err := g.get(ctx, accessToken, "/preapproval/"+id, &resp); err != nil {
		return nil, err
	}
	next, _ := time.Parse(time.RFC3339, resp.NextPaymentDate)
	return &Preapproval{
		ID:                resp.ID,
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
		NextPaymentDate:   next,
	}, nil
}

func (g *HTTPGateway) get(ctx context.Context, accessToken, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrGatewayNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("gateway request %s failed: %s (%d)", path, string(body), res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
