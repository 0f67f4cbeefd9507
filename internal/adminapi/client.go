package adminapi

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
	"time"

	"github.com/google/uuid"
)

// Params carries optional filter keys for list reads. Empty values are not sent.
type Params map[string]string

func (p Params) values() url.Values {
	values := url.Values{}
	for k, v := range p {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		values.Set(k, v)
	}
	return values
}

// Client talks to the parking administration HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
	logger    *slog.Logger
}

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "gatehouse/0.1"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 32 << 20

	// RequestIDHeader carries a per-request UUID for correlating server logs.
	RequestIDHeader = "X-Request-ID"
)

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger logs each request at debug level and failures at warn.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.With("component", "adminapi")
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListVehicles returns vehicles matching params (status, search).
func (c *Client) ListVehicles(ctx context.Context, params Params) ([]Vehicle, error) {
	return list[Vehicle](ctx, c, "/api/admin/vehicles", "vehicles", params)
}

// ListUsers returns users matching params (search).
func (c *Client) ListUsers(ctx context.Context, params Params) ([]User, error) {
	return list[User](ctx, c, "/api/admin/users", "users", params)
}

// ListGuards returns all guards.
func (c *Client) ListGuards(ctx context.Context, params Params) ([]Guard, error) {
	return list[Guard](ctx, c, "/api/admin/guards", "guards", params)
}

// ListRequests returns access requests matching params (status).
func (c *Client) ListRequests(ctx context.Context, params Params) ([]Request, error) {
	return list[Request](ctx, c, "/api/admin/requests", "requests", params)
}

// ListLogs returns in/out events matching params (date, guard, vehicle).
func (c *Client) ListLogs(ctx context.Context, params Params) ([]AccessLog, error) {
	return list[AccessLog](ctx, c, "/api/admin/logs", "logs", params)
}

// ListDues returns dues.
func (c *Client) ListDues(ctx context.Context, params Params) ([]Due, error) {
	return list[Due](ctx, c, "/api/admin/dues", "dues", params)
}

// ListAudit returns audit entries matching params (date, action).
func (c *Client) ListAudit(ctx context.Context, params Params) ([]AuditEntry, error) {
	return list[AuditEntry](ctx, c, "/api/admin/audit", "audit", params)
}

// GetUser returns a single user's details.
func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	if err := c.getJSON(ctx, "/api/admin/users/"+url.PathEscape(id), nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetSettings returns the global settings record.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	if err := c.getJSON(ctx, "/api/admin/settings", nil, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// GetMetrics returns the dashboard summary.
func (c *Client) GetMetrics(ctx context.Context) (Metrics, error) {
	var metrics Metrics
	if err := c.getJSON(ctx, "/api/admin/metrics", nil, &metrics); err != nil {
		return Metrics{}, err
	}
	return metrics, nil
}

// VehicleQR returns the QR payload for a vehicle.
func (c *Client) VehicleQR(ctx context.Context, id string) (string, error) {
	var payload struct {
		QR string `json:"qr"`
	}
	if err := c.getJSON(ctx, "/api/admin/vehicles/"+url.PathEscape(id)+"/qr", nil, &payload); err != nil {
		return "", err
	}
	return payload.QR, nil
}

// ExportLogs downloads the in/out log export as raw CSV bytes.
func (c *Client) ExportLogs(ctx context.Context, params Params) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/admin/logs/export", params.values(), nil, "text/csv")
}

// MarkDuePaid settles a due and returns the server's view of it.
func (c *Client) MarkDuePaid(ctx context.Context, id string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/dues/"+url.PathEscape(id)+"/paid", nil)
}

// BlockVehicle toggles a vehicle's blocked state.
func (c *Client) BlockVehicle(ctx context.Context, id string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/vehicles/"+url.PathEscape(id)+"/block", nil)
}

// ApproveVehicle approves a pending vehicle registration.
func (c *Client) ApproveVehicle(ctx context.Context, id string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/vehicles/"+url.PathEscape(id)+"/approve", nil)
}

// RejectVehicle rejects a pending vehicle registration.
func (c *Client) RejectVehicle(ctx context.Context, id, reason string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/vehicles/"+url.PathEscape(id)+"/reject", map[string]string{"reason": reason})
}

// ApproveRequest approves an access request.
func (c *Client) ApproveRequest(ctx context.Context, id string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/requests/"+url.PathEscape(id)+"/approve", nil)
}

// RejectRequest rejects an access request with a reason.
func (c *Client) RejectRequest(ctx context.Context, id, reason string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/requests/"+url.PathEscape(id)+"/reject", map[string]string{"reason": reason})
}

// AssignGate moves a guard to another gate.
func (c *Client) AssignGate(ctx context.Context, id, gate string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/guards/"+url.PathEscape(id)+"/assign", map[string]string{"gate": gate})
}

// CreateGuard registers a new guard.
func (c *Client) CreateGuard(ctx context.Context, guard NewGuard) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPost, "/api/admin/guards", guard)
}

// UpdateSettings applies a partial settings update.
func (c *Client) UpdateSettings(ctx context.Context, fields map[string]any) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPatch, "/api/admin/settings", fields)
}

// list decodes either a bare JSON array or an object envelope keyed by
// envelopeKey (the dues endpoint answers {"dues": [...]}).
func list[T any](ctx context.Context, c *Client, path, envelopeKey string, params Params) ([]T, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodGet, path, params.values(), nil, "application/json")
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		inner, ok := envelope[envelopeKey]
		if !ok {
			inner, ok = envelope["items"]
		}
		if !ok {
			return nil, fmt.Errorf("decode response: missing %q list", envelopeKey)
		}
		trimmed = inner
	}
	items := []T{}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, http.MethodGet, path, query, nil, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// write performs a mutation and returns the raw response object so callers
// can merge exactly the fields the server sent back.
func (c *Client) write(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := c.do(ctx, method, path, nil, payload, "application/json")
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("decode response: invalid JSON from %s", path)
	}
	return json.RawMessage(trimmed), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, accept string) ([]byte, error) {
	rel := &url.URL{Path: path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	requestID := newRequestID()
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.logger.With("method", method, "path", rel.Path, "request_id", requestID)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err)
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := newAPIError(method, rel.Path, resp.StatusCode, body)
		log.Warn("request rejected", "status", resp.StatusCode, "error", apiErr)
		return nil, apiErr
	}
	log.Debug("request done", "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_url %q: missing host", raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
