// Package fmp implements the Financial Modeling Prep (FMP) income-statement
// client. FMP serves fundamentals over a REST API authenticated with an API
// key passed as the "apikey" query parameter.
//
// Free tier: 250 requests/day.
// Docs: https://financialmodelingprep.com/developer/docs
package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/incomeview/internal/infra"
)

const (
	// DefaultBaseURL is the FMP host; the versioned API path is appended per request.
	DefaultBaseURL = "https://financialmodelingprep.com"

	// EnvAPIKey is the environment variable conventionally holding the key.
	EnvAPIKey = "FMP_API_KEY"

	apiPrefix = "/api/v3"
)

// ErrMissingAPIKey is returned by New when no API key is supplied.
var ErrMissingAPIKey = errors.New("fmp: missing API key (set " + EnvAPIKey + ")")

// Client fetches statements from FMP. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	debug      bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the FMP host (used by tests and proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithDebug enables request timing logs.
func WithDebug(on bool) Option {
	return func(c *Client) { c.debug = on }
}

// New creates a client for the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: infra.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks connectivity and the API key by requesting a single record.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.fetchStatements(ctx, "AAPL", PeriodAnnual, 1)
	if err != nil {
		return fmt.Errorf("fmp ping: %w", err)
	}
	return nil
}

// --- Shared helpers ---

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// endpointURL builds a full FMP API URL with the API key appended last.
func (c *Client) endpointURL(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	// apikey goes last so it stays readable in redacted logs.
	encoded := q.Encode()
	if encoded != "" {
		encoded += "&"
	}
	encoded += "apikey=" + url.QueryEscape(c.apiKey)
	return c.baseURL + apiPrefix + path + "?" + encoded
}

// fmpErrorPayload is the object FMP returns (often with status 200) instead
// of an array when the key is invalid or the plan does not cover the endpoint.
type fmpErrorPayload struct {
	Message string `json:"Error Message"`
}

// fetchFMPJSON performs a GET request to FMP and decodes the response.
func (c *Client) fetchFMPJSON(ctx context.Context, rawURL string, dest any) error {
	start := time.Now()
	body, _, err := infra.DoGetWith(ctx, c.httpClient, rawURL, jsonHeaders())
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if c.debug {
		log.Printf("fmp: GET %s (%d bytes, %s)", infra.RedactQuery(rawURL, "apikey"), len(data), time.Since(start).Round(time.Millisecond))
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var e fmpErrorPayload
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return &APIError{Message: e.Message}
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse FMP JSON: %w", err)
	}
	return nil
}

// APIError carries an in-band error message reported by FMP.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// FetchError is the single failure kind surfaced to users: the fetch
// failed, for whatever reason (network, HTTP status, payload). Error()
// returns the underlying message verbatim.
type FetchError struct {
	Symbol string
	Period Period
	Err    error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
