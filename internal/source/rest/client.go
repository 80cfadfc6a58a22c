// Package rest talks to a Transaction Source over its REST/JSON contract.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/source"
)

var _ source.Store = (*Client)(nil)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the source at baseURL, e.g. http://localhost:3001.
// timeout bounds each request; zero keeps the default of 10s.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: newHTTPClientWithPooling(timeout),
	}, nil
}

// WithHTTPClient replaces the pooled client, e.g. with an httptest
// server's own client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (c *Client) List(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.do(ctx, "list transactions", http.MethodGet, "/transactions", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, "get transaction", http.MethodGet, "/transactions/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Create posts t without its id; the source assigns one.
func (c *Client) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = ""
	var out core.Transaction
	err := c.do(ctx, "create transaction", http.MethodPost, "/transactions", t, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	t.ID = id
	var out core.Transaction
	err := c.do(ctx, "update transaction", http.MethodPut, "/transactions/"+url.PathEscape(id), t, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete transaction", http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil)
}

// Ping checks that the source answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping source", http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &source.RequestError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return &source.RequestError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &source.RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &source.RequestError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(resp))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &source.RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorMessage prefers the {"error": "..."} body of the source and falls
// back to the status text.
func errorMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(b)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
