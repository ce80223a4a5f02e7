package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roster/internal/directory/models"
)

// HTTPClient calls the provider's admin REST API. Every call blocks until
// the provider settles; no retries happen at this layer.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	minter  *TokenMinter
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPDoer swaps the underlying http.Client, mainly for tests.
func WithHTTPDoer(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.http = c
		}
	}
}

// NewHTTPClient constructs a provider client rooted at baseURL.
func NewHTTPClient(baseURL string, minter *TokenMinter, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		minter:  minter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type accountPayload struct {
	Username  string   `json:"username"`
	Password  string   `json:"password,omitempty"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Emails    []string `json:"email_addresses,omitempty"`
	Role      string   `json:"role,omitempty"`
}

type accountResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Role           string `json:"role"`
	PrimaryEmailID string `json:"primary_email_address_id"`
	Emails         []struct {
		ID       string `json:"id"`
		Address  string `json:"email_address"`
		Verified bool   `json:"verified"`
	} `json:"email_addresses"`
}

type errorEnvelope struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateAccount provisions a login account and returns the opaque id the
// provider assigned. The id becomes the profile row's primary key.
func (c *HTTPClient) CreateAccount(ctx context.Context, fields models.IdentityFields, role models.Role) (string, error) {
	payload := accountPayload{
		Username:  fields.Username,
		Password:  fields.Password,
		FirstName: fields.Name,
		LastName:  fields.Surname,
		Role:      string(role),
	}
	if fields.Email != "" {
		payload.Emails = []string{fields.Email}
	}

	var resp accountResponse
	if err := c.do(ctx, http.MethodPost, "/v1/users", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateAccount patches the mutable identity fields. An empty password is
// omitted from the payload so the current credential is kept.
func (c *HTTPClient) UpdateAccount(ctx context.Context, id string, fields models.IdentityFields) error {
	payload := accountPayload{
		Username:  fields.Username,
		Password:  fields.Password,
		FirstName: fields.Name,
		LastName:  fields.Surname,
	}
	return c.do(ctx, http.MethodPatch, "/v1/users/"+id, payload, nil)
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/users/"+id, nil, nil)
}

func (c *HTTPClient) GetAccount(ctx context.Context, id string) (*Account, error) {
	var resp accountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+id, nil, &resp); err != nil {
		return nil, err
	}
	account := &Account{
		ID:             resp.ID,
		Username:       resp.Username,
		Name:           resp.FirstName,
		Surname:        resp.LastName,
		Role:           models.Role(resp.Role),
		PrimaryEmailID: resp.PrimaryEmailID,
	}
	for _, e := range resp.Emails {
		account.Emails = append(account.Emails, EmailAddress{
			ID:       e.ID,
			Address:  e.Address,
			Verified: e.Verified,
		})
	}
	return account, nil
}

// CreateEmail attaches a pre-verified email object to an account. This is
// an administrative action; no user-facing verification step follows.
func (c *HTTPClient) CreateEmail(ctx context.Context, accountID string, address string) (string, error) {
	payload := map[string]any{
		"user_id":       accountID,
		"email_address": address,
		"verified":      true,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/email_addresses", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPClient) SetPrimaryEmail(ctx context.Context, accountID string, emailID string) error {
	payload := map[string]string{"primary_email_address_id": emailID}
	return c.do(ctx, http.MethodPatch, "/v1/users/"+accountID, payload, nil)
}

func (c *HTTPClient) DeleteEmail(ctx context.Context, emailID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/email_addresses/"+emailID, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode provider request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	assertion, err := c.minter.Mint()
	if err != nil {
		return fmt.Errorf("mint provider assertion: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+assertion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// decodeError turns the provider's JSON error envelope into a typed
// Error. Bodies that do not parse keep the HTTP status as the message so
// the classifier still has something to show.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		return NewError(first.Code, first.Message)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &Error{Code: CodeNotFound, Message: "account not found"}
	}
	return &Error{Code: CodeUnknown, Message: resp.Status}
}
