package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultFetchTimeout bounds a single roster fetch when the caller's
// context carries no earlier deadline.
const DefaultFetchTimeout = 10 * time.Second

// maxBodySize caps the response body read from the roster endpoint.
const maxBodySize = 1 << 20 // 1 MiB

// HTTP fetches the roster from a remote endpoint. Two response shapes
// are accepted: a JSON array of strings, or a JSON array of objects
// carrying the code under "driver" or "code".
type HTTP struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// HTTPOption configures an HTTP provider.
type HTTPOption func(*HTTP)

// WithClient overrides the HTTP client, mainly for tests.
func WithClient(c *http.Client) HTTPOption {
	return func(p *HTTP) { p.client = c }
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(p *HTTP) { p.timeout = d }
}

// NewHTTP creates a provider fetching from the given URL.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	p := &HTTP{
		url:     url,
		client:  &http.Client{},
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// rosterEntry is the object form of a roster element.
type rosterEntry struct {
	Driver string `json:"driver"`
	Code   string `json:"code"`
}

// Fetch retrieves and normalizes the remote roster. All transport and
// decode failures map to ErrUnavailable.
func (p *HTTP) Fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrUnavailable, resp.StatusCode, p.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	ids, err := decodeRoster(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Normalize(ids), nil
}

// decodeRoster accepts either ["VER","NOR",...] or
// [{"driver":"VER",...},...] / [{"code":"VER",...},...].
func decodeRoster(data []byte) ([]string, error) {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var entries []rosterEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding roster payload: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Driver != "" {
			ids = append(ids, e.Driver)
			continue
		}
		ids = append(ids, e.Code)
	}
	return ids, nil
}
