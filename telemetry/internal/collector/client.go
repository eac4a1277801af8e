// Package collector forwards canonical events to the HTTP Event Collector.
package collector

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telhawk-systems/addin-proxy/telemetry/pkg/hec"
)

// DefaultTimeout bounds one forward, connection and body included.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// ErrNotConfigured is returned by New when the collector URL or token is missing.
var ErrNotConfigured = errors.New("collector url and token must be configured")

type Config struct {
	URL           string
	Token         string
	Timeout       time.Duration
	TLSSkipVerify bool
}

// Result is a 2xx collector reply.
type Result struct {
	StatusCode int
	Body       []byte
}

// StatusError is returned for a non-2xx collector reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector response status %d", e.StatusCode)
}

type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, ErrNotConfigured
	}
	endpoint, err := hec.EventURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for lab collectors with self-signed certs
	}

	return &Client{
		endpoint: endpoint,
		token:    cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// Endpoint returns the resolved event URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Forward posts events in one request. It is called once per proxy request
// and never retries.
func (c *Client) Forward(ctx context.Context, events []hec.Event) (*Result, error) {
	body, err := hec.EncodeBatch(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.ContentLength = int64(len(body))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", hec.AuthorizationHeader(c.token))

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return &Result{StatusCode: resp.StatusCode, Body: respBody}, nil
}
