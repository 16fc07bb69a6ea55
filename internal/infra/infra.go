// Package infra provides shared HTTP plumbing for outbound data requests.
package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultClient is used by DoGet when no client is supplied.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// maxErrorBody caps how much of a non-2xx body is kept for the error message.
const maxErrorBody = 512

// StatusError is returned when the remote side answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string // first bytes of the response body, trimmed
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("request failed with status code %d", e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// DoGet performs a GET with the given headers on DefaultClient.
// See DoGetWith.
func DoGet(ctx context.Context, rawURL string, headers map[string]string) (io.ReadCloser, int, error) {
	return DoGetWith(ctx, DefaultClient, rawURL, headers)
}

// DoGetWith performs a GET with the given headers and returns the open body
// on a 2xx response. The caller must close it. Any other status is turned
// into a *StatusError and the body is closed. The apikey query parameter is
// redacted from every returned error.
func DoGetWith(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) (io.ReadCloser, int, error) {
	if client == nil {
		client = DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", redactURLError(err))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, redactURLError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp.StatusCode, &StatusError{
			URL:        RedactQuery(rawURL, "apikey"),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	return resp.Body, resp.StatusCode, nil
}

// redactURLError strips the API key from the URL carried by a *url.Error.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = RedactQuery(ue.URL, "apikey")
	}
	return err
}

// RedactQuery replaces the value of the named query parameter with "***"
// so URLs can be logged without leaking credentials.
func RedactQuery(rawURL, param string) string {
	key := param + "="
	i := strings.Index(rawURL, "?"+key)
	if i < 0 {
		i = strings.Index(rawURL, "&"+key)
	}
	if i < 0 {
		return rawURL
	}
	start := i + 1 + len(key)
	end := strings.IndexByte(rawURL[start:], '&')
	if end < 0 {
		return rawURL[:start] + "***"
	}
	return rawURL[:start] + "***" + rawURL[start+end:]
}
