// Package gateway is the single choke point for every call to the backend
// REST API.
//
// It builds headers, injects the bearer token for authenticated calls,
// encodes and decodes JSON, and folds every failure into one *Error with a
// Kind. A Gateway holds no per-call state and is safe for concurrent use.
// It never caches, retries or deduplicates: each Request issues exactly one
// HTTP request, or none when an authenticated call has no credential.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/zyplyctl/internal/logging"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries a per-call correlation id.
	RequestIDHeader = "X-Request-ID"

	maxBodySize  = 1 << 20
	maxErrorText = 200
)

// TokenSource yields the current bearer token. The credential store
// satisfies it; the gateway only ever reads.
type TokenSource interface {
	Read(ctx context.Context) (string, bool, error)
}

// NoContent is a response type for endpoints whose success body may be
// empty.
type NoContent struct{}

type Gateway struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  logging.Logger
	newID   func() string
	timeout time.Duration
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithTimeout bounds each request, body included. It applies to a copy
// of the client, so a client passed through WithHTTPClient is left as is.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New returns a Gateway rooted at baseURL (e.g. http://localhost:8080/api).
// tokens may be nil, in which case every authenticated call fails with
// KindAuthRequired.
func New(baseURL string, tokens TokenSource, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		tokens:  tokens,
		logger:  logging.Nop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.timeout > 0 {
		c := *g.client
		c.Timeout = g.timeout
		g.client = &c
	}
	return g
}

// BaseURL returns the API root without a trailing slash.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// URL resolves an API path against the base URL.
func (g *Gateway) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}

// Request performs one call and decodes a 2xx body into T.
//
// body is encoded only for POST, PUT and PATCH. With requiresAuth set and
// no stored token the call short-circuits with KindAuthRequired.
func Request[T any](ctx context.Context, g *Gateway, method, path string, body any, requiresAuth bool) (T, error) {
	var zero T

	raw, status, err := g.do(ctx, method, path, body, requiresAuth)
	if err != nil {
		return zero, err
	}

	trimmed := bytes.TrimSpace(raw)
	if _, ok := any(zero).(NoContent); ok && len(trimmed) == 0 {
		return zero, nil
	}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return zero, MalformedError(status, "Unexpected empty response from server")
	}

	var out T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return zero, &Error{
			Kind:    KindMalformed,
			Status:  status,
			Message: fmt.Sprintf("Invalid response from server: %v", err),
			Err:     err,
		}
	}
	return out, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, requiresAuth bool) ([]byte, int, error) {
	reqID := g.newID()
	log := g.logger.With("method", method, "path", path, "request_id", reqID)

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set(RequestIDHeader, reqID)

	if requiresAuth {
		token, err := g.readToken(ctx)
		if err != nil {
			log.Debug(ctx, "request skipped: no credential")
			return nil, 0, err
		}
		header.Set("Authorization", "Bearer "+token)
	}

	var reader io.Reader
	if body != nil && hasBody(method) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, &Error{Kind: KindMalformed, Message: fmt.Sprintf("cannot encode request: %v", err), Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.URL(path), reader)
	if err != nil {
		return nil, 0, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header = header

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		log.Debug(ctx, "request failed", "error", err, "duration", time.Since(start))
		return nil, 0, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	log.Debug(ctx, "request done", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, httpError(resp, raw)
	}
	return raw, resp.StatusCode, nil
}

func (g *Gateway) readToken(ctx context.Context) (string, error) {
	if g.tokens == nil {
		return "", &Error{Kind: KindAuthRequired, Message: "Authentication required"}
	}
	token, ok, err := g.tokens.Read(ctx)
	if err != nil {
		return "", &Error{Kind: KindAuthRequired, Message: "Authentication required", Err: err}
	}
	if !ok || token == "" {
		return "", &Error{Kind: KindAuthRequired, Message: "Authentication required"}
	}
	return token, nil
}

// httpError prefers a backend-supplied "error" or "message" field and
// otherwise synthesizes a message that names the status code.
func httpError(resp *http.Response, raw []byte) *Error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, m := range []string{payload.Error, payload.Message} {
			if strings.TrimSpace(m) != "" {
				return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: m}
			}
		}
	}

	msg := fmt.Sprintf("Request failed with status %d", resp.StatusCode)
	if text := plainText(resp, raw); text != "" {
		msg += ": " + text
	}
	return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: msg}
}

// plainText returns a short text/plain error body, as written by
// http.Error on the backend.
func plainText(resp *http.Response, raw []byte) string {
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		return ""
	}
	text := strings.TrimSpace(string(raw))
	if len(text) <= maxErrorText {
		return text
	}
	text = text[:maxErrorText]
	for len(text) > 0 && !utf8.ValidString(text) {
		text = text[:len(text)-1]
	}
	return text
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
