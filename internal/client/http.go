// Package client talks to the job sheet HTTP API. It is used by the
// jobsheetctl CLI and by anything else that needs an authenticated session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/auth"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Unwrap maps the status back onto the shared error sentinels so callers
// can use errors.Is the same way on both sides of the wire.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return common.ErrInvalidInput
	case http.StatusUnauthorized:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		return common.ErrDuplicateID
	case http.StatusServiceUnavailable:
		return common.ErrStoreUnavailable
	default:
		if e.Status >= 500 {
			return common.ErrInternal
		}
		return nil
	}
}

type response struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	RequestID string          `json:"requestId"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// per-attempt deadlines come from the caller's context
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// send performs one request and returns the raw body of a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("client.http.encode_error", "req_id", reqID, "error", err)
			return nil, fmt.Errorf("encode json: %w", err)
		}
		reader = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.logger.Error("client.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("client.http.request", "req_id", reqID, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("client.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("client.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("client.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode, RequestID: reqID}
		var env response
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Message = env.Error
			if env.RequestID != "" {
				apiErr.RequestID = env.RequestID
			}
		}
		return nil, apiErr
	}
	return raw, nil
}

// call sends a JSON request and decodes the envelope's data into out.
func (c *Client) call(ctx context.Context, method, path string, body, out any) (*response, error) {
	raw, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	var env response
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

// Login exchanges credentials for a session and keeps its token.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	var sess auth.Session
	_, err := c.call(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &sess)
	if err != nil {
		return nil, err
	}
	c.SetToken(sess.Token)
	return &sess, nil
}

func (c *Client) Health(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodGet, "/api/health", nil)
	return err
}

func (c *Client) ListJobs(ctx context.Context) ([]*entity.Job, error) {
	var out []*entity.Job
	if _, err := c.call(ctx, http.MethodGet, "/api/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	var out entity.Job
	if _, err := c.call(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchJobs(ctx context.Context, query string) ([]*entity.Job, error) {
	var out []*entity.Job
	path := "/api/jobs/search?q=" + url.QueryEscape(query)
	if _, err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*entity.Job, error) {
	var out entity.Job
	path := "/api/jobs/" + url.PathEscape(id) + "/status"
	if _, err := c.call(ctx, http.MethodPatch, path, map[string]string{"status": status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context) (*entity.Stats, error) {
	var out entity.Stats
	if _, err := c.call(ctx, http.MethodGet, "/api/jobs/analytics/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads the job list as "xlsx" or "csv". Empty filter values are
// left out of the query.
func (c *Client) Export(ctx context.Context, format, status, from, to string) ([]byte, error) {
	switch format {
	case "xlsx", "csv":
	default:
		return nil, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown export format %q", format), common.ErrInvalidInput)
	}
	q := url.Values{}
	for k, v := range map[string]string{"status": status, "from": from, "to": to} {
		if v != "" {
			q.Set(k, v)
		}
	}
	path := "/api/jobs/export." + format
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.send(ctx, http.MethodGet, path, nil)
}
