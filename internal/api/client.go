// Package api is the gateway to the social-feed backend. Every operation
// returns a result or a *models.AppError; nothing is retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"socialfeed/internal/models"
	"socialfeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// TokenSource yields the bearer token to attach, or "" when signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *observability.APILogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds each request. Zero keeps the default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a Client for baseURL that attaches tokens from tokens.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		log:     observability.NewAPILogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// AssetURL resolves a server-relative media path such as /uploads/x.png.
func (c *Client) AssetURL(path string) string {
	if path == "" || strings.Contains(path, "://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

type call struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	// fallback is shown when a failed response carries no message.
	fallback string
}

func jsonBody(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (c *Client) do(ctx context.Context, cl call, out any) (err error) {
	requestID := observability.GenerateCorrelationID()
	ctx = observability.WithCorrelationID(ctx, requestID)

	span, ctx := observability.StartClientSpan(ctx, cl.op,
		attribute.String("http.method", cl.method),
		attribute.String("http.route", cl.path),
	)
	done := observability.TrackAPICall(cl.op)
	start := time.Now()
	status := 0
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(models.ErrorCode(err))
			if outcome == "" {
				outcome = "error"
			}
			span.SetError(err)
			c.log.LogError(ctx, cl.op, err)
		}
		span.AddAttributes(attribute.Int("http.status_code", status))
		span.End()
		done(outcome)
		c.log.LogRequest(ctx, cl.op, cl.method, cl.path, status, time.Since(start).Milliseconds())
	}()

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, cl.body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return models.NewServerError("Could not read session", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	observability.InjectHeaders(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewNetworkError(err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if status < 200 || status > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return errorFromResponse(status, body, cl.fallback)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewServerError("Unexpected response from server", err)
	}
	return nil
}

// errorFromResponse converts a non-success response into a typed error,
// preferring the server's message over fallback.
func errorFromResponse(status int, body []byte, fallback string) error {
	msg := serverMessage(body)
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", status)
	}

	var appErr *models.AppError
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		appErr = models.NewAuthError(msg)
	case http.StatusNotFound:
		appErr = models.NewNotFoundError(msg)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		appErr = models.NewValidationError(msg)
	default:
		appErr = models.NewServerError(msg, nil)
	}
	appErr.Status = status
	return appErr
}

// serverMessage extracts {"detail": "..."}, a validation list
// {"detail": [{"msg": "..."}]}, or {"error": "..."} from body.
func serverMessage(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(payload.Error)
}

// IsCanceled reports whether err came from the caller abandoning the request.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
