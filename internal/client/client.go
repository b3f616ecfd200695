// Package client is the HTTP consumer of the receipt API, used by the
// reconciler for cloud-backed receipts.
//
// Every call is a single attempt: transport failures and 5xx responses come
// back as httpx.ErrNetwork for the caller to surface, with no retries or
// backoff in here.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
)

// Credentials selects the authorization principal for a call. Exactly one of
// the two headers is sent: the share key when present (collaborator
// capability), the device id otherwise (owner authority).
type Credentials struct {
	DeviceID string
	ShareKey string
}

// Client talks to one receipt API server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type receiptEnvelope struct {
	Success  bool                       `json:"success"`
	Error    string                     `json:"error"`
	Receipt  *models.Receipt            `json:"receipt"`
	PersonID string                     `json:"personId"`
	Receipts map[string]*models.Receipt `json:"receipts"`
}

// GetReceipt fetches the canonical copy of a receipt.
func (c *Client) GetReceipt(ctx context.Context, id string, creds Credentials) (*models.Receipt, error) {
	env, err := c.do(ctx, http.MethodGet, "/receipts/"+url.PathEscape(id), creds, nil)
	if err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// CreateReceipt submits a full receipt to the creation endpoint. The device
// id is always the principal here; share keys cannot create.
func (c *Client) CreateReceipt(ctx context.Context, r *models.Receipt, deviceID string) (*models.Receipt, error) {
	creds := Credentials{DeviceID: deviceID}
	env, err := c.do(ctx, http.MethodPost, "/receipts/create", creds,
		map[string]any{"receipt": r})
	if err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// UpdateReceipt applies a shallow top-level patch.
func (c *Client) UpdateReceipt(ctx context.Context, id string, patch models.ReceiptPatch, creds Credentials) (*models.Receipt, error) {
	env, err := c.do(ctx, http.MethodPut, "/receipts/"+url.PathEscape(id), creds,
		map[string]any{"updates": patch})
	if err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// SetLineItems replaces the receipt's line items.
func (c *Client) SetLineItems(ctx context.Context, id string, items []models.LineItem, creds Credentials) (*models.Receipt, error) {
	env, err := c.do(ctx, http.MethodPut, "/receipts/"+url.PathEscape(id)+"/line-items", creds,
		map[string]any{"lineItems": items})
	if err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// SetAdjustments replaces the receipt's adjustments.
func (c *Client) SetAdjustments(ctx context.Context, id string, adjustments []models.Adjustment, creds Credentials) (*models.Receipt, error) {
	env, err := c.do(ctx, http.MethodPut, "/receipts/"+url.PathEscape(id)+"/adjustments", creds,
		map[string]any{"adjustments": adjustments})
	if err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// AddPerson appends a person and returns the canonical receipt plus the id
// the server settled on.
func (c *Client) AddPerson(ctx context.Context, id string, person models.Person, creds Credentials) (*models.Receipt, string, error) {
	env, err := c.do(ctx, http.MethodPost, "/receipts/"+url.PathEscape(id)+"/people", creds,
		map[string]any{"person": person})
	if err != nil {
		return nil, "", err
	}
	return env.Receipt, env.PersonID, nil
}

// RemovePerson removes a person from the receipt.
func (c *Client) RemovePerson(ctx context.Context, id, personID string, creds Credentials) (*models.Receipt, error) {
	env, err := c.do(ctx, http.MethodDelete,
		"/receipts/"+url.PathEscape(id)+"/people/"+url.PathEscape(personID), creds, nil)
	if err != nil {
		return nil, err
	}
	return env.Receipt, nil
}

// ListReceipts returns every cloud receipt for the device.
func (c *Client) ListReceipts(ctx context.Context, deviceID string) (map[string]*models.Receipt, error) {
	env, err := c.do(ctx, http.MethodGet, "/receipts", Credentials{DeviceID: deviceID}, nil)
	if err != nil {
		return nil, err
	}
	return env.Receipts, nil
}

// do issues one request and maps the outcome onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, creds Credentials, body any) (*receiptEnvelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", httpx.ErrValidation, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.ShareKey != "" {
		req.Header.Set("X-Share-Key", creds.ShareKey)
	} else if creds.DeviceID != "" {
		req.Header.Set("X-Device-ID", creds.DeviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrNetwork, err)
	}
	defer resp.Body.Close()

	var env receiptEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode != http.StatusOK {
		base := httpx.StatusError(resp.StatusCode)
		if decodeErr == nil && env.Error != "" {
			return nil, fmt.Errorf("%w: %s", base, env.Error)
		}
		return nil, fmt.Errorf("%w: status %d", base, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", httpx.ErrNetwork, decodeErr)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", httpx.ErrNetwork, env.Error)
	}
	return &env, nil
}
