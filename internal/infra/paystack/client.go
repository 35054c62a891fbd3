package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const DefaultBaseURL = "https://api.paystack.co"

// ErrUnavailable marks transport failures and gateway 5xx responses. Callers
// treat it as retryable: nothing should move to a terminal state on it alone.
var ErrUnavailable = errors.New("paystack unavailable")

// APIError is a gateway rejection: a reachable gateway explicitly refused the
// request (4xx or status=false).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack rejected request (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
}

// NewClientWithBaseURL exists for tests and sandbox environments.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.baseURL = baseURL
	return c
}

type InitializeRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"` // minor units (kobo)
	Reference   string                 `json:"reference"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Subaccount  string                 `json:"subaccount,omitempty"`
}

type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyData struct {
	Status string `json:"status"` // "success" on a settled charge
	Amount int64  `json:"amount"`
	PaidAt string `json:"paid_at"`
}

type SubaccountRequest struct {
	BusinessName        string  `json:"business_name"`
	BankCode            string  `json:"settlement_bank"`
	AccountNumber       string  `json:"account_number"`
	PercentageCharge    float64 `json:"percentage_charge"`
	PrimaryContactEmail string  `json:"primary_contact_email,omitempty"`
}

type subaccountData struct {
	SubaccountCode string `json:"subaccount_code"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize starts a charge and returns the hosted authorization URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeData, error) {
	var data InitializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Verify fetches the gateway's record of a charge by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyData, error) {
	var data VerifyData
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateSubaccount registers a settlement split target for an organizer and
// returns its subaccount code.
func (c *Client) CreateSubaccount(ctx context.Context, req SubaccountRequest) (string, error) {
	var data subaccountData
	if err := c.do(ctx, http.MethodPost, "/subaccount", req, &data); err != nil {
		return "", err
	}
	return data.SubaccountCode, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: malformed data payload: %v", ErrUnavailable, err)
		}
	}
	return nil
}
