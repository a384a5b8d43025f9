/*
Package extract is the client side of the receipt extraction service.

PURPOSE:
  When a payment order is completed with a receipt, the amount actually
  sent and the bank fees are read off the receipt by an external OCR/AI
  service. This package is the only code that talks to it.

FAILURE MODEL:
  Every failure (network, non-2xx, undecodable body, timeout) comes back
  as an error wrapping ledger.ErrExternalServiceUnavailable. Callers fall
  back to the requested amount; an extraction failure never fails the
  payment order itself.

SEE ALSO:
  - lifecycle/extraction.go: Decides whether a Result is trusted
*/
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// Result is what the service read off a receipt.
type Result struct {
	Success    bool            `json:"success"`
	Amount     decimal.Decimal `json:"amount"`
	Fees       decimal.Decimal `json:"fees"`
	Recipient  string          `json:"recipient"`
	Reference  string          `json:"reference"`
	Confidence float64         `json:"confidence"`
}

// Extractor reads a stored receipt.
type Extractor interface {
	Extract(ctx context.Context, receiptRef string) (*Result, error)
}

// Client calls the extraction service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new extraction service client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	ReceiptRef string `json:"receipt_ref"`
}

// Extract posts the receipt reference and decodes the service's reading.
func (c *Client) Extract(ctx context.Context, receiptRef string) (*Result, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("extraction service URL is not configured: %w", ledger.ErrExternalServiceUnavailable)
	}

	body, err := json.Marshal(extractRequest{ReceiptRef: receiptRef})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extract payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %v: %w", err, ledger.ErrExternalServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("extraction service returned status %d: %w", resp.StatusCode, ledger.ErrExternalServiceUnavailable)
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %v: %w", err, ledger.ErrExternalServiceUnavailable)
	}
	return &out, nil
}

// Disabled is used when no extraction service is configured.
type Disabled struct{}

func (Disabled) Extract(context.Context, string) (*Result, error) {
	return nil, fmt.Errorf("extraction disabled: %w", ledger.ErrExternalServiceUnavailable)
}
