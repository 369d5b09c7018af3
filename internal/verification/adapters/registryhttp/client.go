// Package registryhttp is a sample JSON-over-HTTP registry verifier. The wire
// shape is illustrative; each real authority gets its own adapter package.
package registryhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"verity/internal/verification/adapters"
)

const maxBody = 1 << 20

// Client verifies identifiers against a registry endpoint.
type Client struct {
	id       string
	endpoint string
	apiKey   string
	http     *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithAPIKey sets the bearer credential sent with every request.
func WithAPIKey(key string) Option {
	return func(cl *Client) {
		cl.apiKey = key
	}
}

// New builds a client posting to endpoint + "/v1/verify".
func New(id, endpoint string, opts ...Option) *Client {
	c := &Client{
		id:       id,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ID() string { return c.id }

type verifyRequest struct {
	Type    string            `json:"identifier_type"`
	Value   string            `json:"identifier_value"`
	Country string            `json:"country,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// Verify posts the identifier and maps the response onto the adapter taxonomy.
// An unknown identifier (404) is a definitive invalid answer, not an error.
func (c *Client) Verify(ctx context.Context, req adapters.RegistryRequest) (*adapters.RegistryCheck, error) {
	if req.IdentifierValue == "" {
		return nil, adapters.NewError(adapters.ErrorBadData, c.id, "identifier value is required", nil)
	}
	body, err := json.Marshal(verifyRequest{
		Type:    req.IdentifierType,
		Value:   req.IdentifierValue,
		Country: req.Country,
		Context: req.Context,
	})
	if err != nil {
		return nil, adapters.NewError(adapters.ErrorInternal, c.id, "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return nil, adapters.NewError(adapters.ErrorInternal, c.id, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, adapters.Classify(c.id, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, adapters.NewError(adapters.ErrorOutage, c.id, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &adapters.RegistryCheck{IsValid: false, Confidence: 1, Details: map[string]string{"reason": "not_found"}}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, adapters.NewError(adapters.ErrorRateLimited, c.id, "registry rate limited", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, adapters.NewError(adapters.ErrorAuthentication, c.id, "registry rejected credentials", nil)
	case resp.StatusCode >= 500:
		return nil, adapters.NewError(adapters.ErrorOutage, c.id, fmt.Sprintf("registry status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, adapters.NewError(adapters.ErrorBadData, c.id, fmt.Sprintf("registry status %d: %s", resp.StatusCode, gjson.GetBytes(raw, "error").String()), nil)
	}

	return c.parse(raw)
}

func (c *Client) parse(raw []byte) (*adapters.RegistryCheck, error) {
	if !gjson.ValidBytes(raw) {
		return nil, adapters.NewError(adapters.ErrorContractMismatch, c.id, "response is not JSON", nil)
	}
	res := gjson.GetManyBytes(raw, "result.valid", "result.confidence", "result.listed", "result.details")
	valid, confidence, listed, details := res[0], res[1], res[2], res[3]
	if !valid.Exists() || !confidence.Exists() {
		return nil, adapters.NewError(adapters.ErrorContractMismatch, c.id, "response lacks result.valid or result.confidence", nil)
	}
	conf := confidence.Float()
	if conf < 0 || conf > 1 {
		return nil, adapters.NewError(adapters.ErrorBadData, c.id, fmt.Sprintf("confidence %v out of range", conf), nil)
	}

	check := &adapters.RegistryCheck{
		IsValid:    valid.Bool(),
		Confidence: conf,
		Listed:     listed.Bool(),
	}
	if details.IsObject() {
		check.Details = make(map[string]string)
		details.ForEach(func(key, value gjson.Result) bool {
			check.Details[key.String()] = value.String()
			return true
		})
	}
	return check, nil
}
