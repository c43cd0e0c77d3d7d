// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apiclient talks to the marketsite HTTP API. One Client serves
// as the content persister, the stock checker and the rate source when
// those collaborators live in another process.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketsite/internal/cart"
	"marketsite/internal/content"
	"marketsite/internal/pricing"
)

// DefaultTimeout bounds every request unless the caller's context is shorter.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the marketsite API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithToken sends the session id as a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ content.Persister = (*Client)(nil)
	_ cart.StockChecker = (*Client)(nil)
	_ pricing.Source    = (*Client)(nil)
)

// Create sends a new post or story. The collection is chosen by the
// payload's type field.
func (c *Client) Create(ctx context.Context, p *content.Payload) (*content.Record, error) {
	coll, err := collection(p)
	if err != nil {
		return nil, err
	}
	return c.sendPayload(ctx, http.MethodPost, "/api/"+coll, p)
}

// Replace overwrites the document stored under slug.
func (c *Client) Replace(ctx context.Context, slug string, p *content.Payload) (*content.Record, error) {
	coll, err := collection(p)
	if err != nil {
		return nil, err
	}
	return c.sendPayload(ctx, http.MethodPut, "/api/"+coll+"/"+url.PathEscape(slug), p)
}

func (c *Client) sendPayload(ctx context.Context, method, path string, p *content.Payload) (*content.Record, error) {
	body, contentType, err := p.Encode()
	if err != nil {
		return nil, err
	}

	var rec content.Record
	if err := c.do(ctx, method, path, contentType, body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CheckStock asks the API whether a quantity can be sold.
func (c *Client) CheckStock(ctx context.Context, q cart.StockQuery) (cart.StockResult, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return cart.StockResult{}, fmt.Errorf("apiclient marshal stock query: %w", err)
	}

	var res cart.StockResult
	if err := c.do(ctx, http.MethodPost, "/api/stock/check", "application/json", bytes.NewReader(payload), &res); err != nil {
		return cart.StockResult{}, err
	}
	return res, nil
}

// Rates fetches the current currency conversion table.
func (c *Client) Rates(ctx context.Context) (pricing.Rates, error) {
	var rates pricing.Rates
	if err := c.do(ctx, http.MethodGet, "/api/rates", "", nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// do performs one request and decodes a 2xx JSON body into out. A non-2xx
// response carrying {"error": "..."} becomes a *content.RejectionError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &content.RejectionError{Status: resp.StatusCode, Message: apiErr.Error}
		}
		return fmt.Errorf("apiclient %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("apiclient decode %s: %w", path, err)
	}
	return nil
}

// ErrUnknownType is returned for a payload whose type is neither post nor story.
var ErrUnknownType = errors.New("unknown document type")

func collection(p *content.Payload) (string, error) {
	switch content.DocType(p.Value("type")) {
	case content.DocTypePost:
		return "posts", nil
	case content.DocTypeStory:
		return "stories", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, p.Value("type"))
	}
}
