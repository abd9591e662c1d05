package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnauthorized is returned when the platform rejects a user credential.
var ErrUnauthorized = errors.New("platform: unauthorized")

type Config struct {
	// BaseURL is the base url of the platform API.
	BaseURL string

	// APIKey authenticates this server against the platform.
	APIKey string

	// Timeout bounds every platform call. An unresponsive platform is a
	// failure, never a hang.
	Timeout time.Duration
}

// Client is a thin REST client for the payment platform. It verifies user
// credentials, reports payment state and acknowledges approval/completion.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: timeout},
	}
}

// Identity is the platform's answer to a credential check.
type Identity struct {
	UID      string   `json:"uid"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// PaymentMetadata is the order payload the frontend attached when creating
// the payment. Anything not matching this shape is rejected at the boundary.
type PaymentMetadata struct {
	EventID string          `json:"eventId"`
	Price   decimal.Decimal `json:"price"`
}

type PaymentTransaction struct {
	TxID string `json:"txid"`
	Link string `json:"_link"`
}

type Payment struct {
	Identifier  string              `json:"identifier"`
	Amount      decimal.Decimal     `json:"amount"`
	Metadata    PaymentMetadata     `json:"metadata"`
	Status      map[string]bool     `json:"status"`
	Transaction *PaymentTransaction `json:"transaction"`
}

// TransactionDetail is the chain explorer's view of a submitted transaction,
// used only by the incomplete-payment reconciliation sweep.
type TransactionDetail struct {
	Memo    string `json:"memo"`
	Success bool   `json:"success"`
}

// Me validates a user access token and returns the verified identity.
func (c *Client) Me(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: verify user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform: verify user: unexpected status %d", resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("platform: decode identity: %w", err)
	}
	return &identity, nil
}

// GetPayment fetches a payment by its platform identifier.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := c.newServerRequest(ctx, http.MethodGet, "/v2/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: get payment %s: %w", paymentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform: get payment %s: unexpected status %d", paymentID, resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("platform: decode payment %s: %w", paymentID, err)
	}
	return &payment, nil
}

// Approve tells the platform this server is ready to complete the payment.
func (c *Client) Approve(ctx context.Context, paymentID string) error {
	return c.post(ctx, "/v2/payments/"+paymentID+"/approve", nil)
}

// Complete acknowledges final settlement of a payment with its on-chain txid.
func (c *Client) Complete(ctx context.Context, paymentID, txid string) error {
	return c.post(ctx, "/v2/payments/"+paymentID+"/complete", map[string]string{"txid": txid})
}

// TransactionDetail fetches the chain record behind txURL. The caller must
// check that the memo matches the payment identifier and that the transfer
// succeeded before trusting the payment.
func (c *Client) TransactionDetail(ctx context.Context, txURL string) (*TransactionDetail, error) {
	if txURL == "" {
		return nil, errors.New("platform: missing transaction url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, txURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: transaction detail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform: transaction detail: unexpected status %d", resp.StatusCode)
	}

	var detail TransactionDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("platform: decode transaction detail: %w", err)
	}
	return &detail, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := c.newServerRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("platform: %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) newServerRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	return req, nil
}
