package backend

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

	"github.com/google/uuid"
)

// ErrStatus marks responses outside the 2xx range.
var ErrStatus = errors.New("unexpected status")

// Fetcher defines the read side of the backend API.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	FetchSystemInfo(ctx context.Context) (map[string]any, error)
	FetchMetrics(ctx context.Context) (MetricsPatch, error)
	FetchClusterStatus(ctx context.Context) (ClusterPatch, error)
	FetchPlugins(ctx context.Context) (map[string]Plugin, error)
	FetchConfig(ctx context.Context) (map[string]any, error)
	FetchLogs(ctx context.Context, params url.Values) ([]LogEntry, error)
}

// Commander defines the write side of the backend API. Results of these
// calls reach the store as push events, not as return values.
type Commander interface {
	UpdateConfig(ctx context.Context, key string, value any) error
	TogglePlugin(ctx context.Context, name string, enabled bool) error
	RunHealthCheck(ctx context.Context, server string) error
}

// HistoryFetcher returns the backend's retained metrics samples, oldest
// first.
type HistoryFetcher interface {
	FetchMetricsHistory(ctx context.Context) ([]MetricsPatch, error)
}

var (
	_ Fetcher        = (*Client)(nil)
	_ Commander      = (*Client)(nil)
	_ HistoryFetcher = (*Client)(nil)
)

// Client talks to the backend HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIURL    = "http://127.0.0.1:8080"
	defaultUserAgent = "devpanel/0.1"
	requestIDHeader  = "X-Request-ID"
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds every request. Zero leaves requests to the transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
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

// NewClient builds a Client for the backend rooted at apiURL.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns a copy of the backend root URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// FetchSystemInfo retrieves the raw system info fields.
func (c *Client) FetchSystemInfo(ctx context.Context) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/system/info", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchMetrics retrieves current system metrics. Only keys present in the
// response are set on the returned patch.
func (c *Client) FetchMetrics(ctx context.Context) (MetricsPatch, error) {
	if c == nil {
		return MetricsPatch{}, fmt.Errorf("client is nil")
	}
	var payload MetricsPatch
	if err := c.do(ctx, http.MethodGet, "/api/metrics", nil, &payload); err != nil {
		return MetricsPatch{}, err
	}
	return payload, nil
}

// FetchMetricsHistory retrieves the backend's recent metrics samples. Samples
// keyed cpu_percent decode into CPUUsage.
func (c *Client) FetchMetricsHistory(ctx context.Context) ([]MetricsPatch, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []MetricsPatch
	if err := c.do(ctx, http.MethodGet, "/api/metrics/history", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchClusterStatus retrieves the cluster membership view.
func (c *Client) FetchClusterStatus(ctx context.Context) (ClusterPatch, error) {
	if c == nil {
		return ClusterPatch{}, fmt.Errorf("client is nil")
	}
	var payload ClusterPatch
	if err := c.do(ctx, http.MethodGet, "/api/cluster/status", nil, &payload); err != nil {
		return ClusterPatch{}, err
	}
	return payload, nil
}

// FetchPlugins retrieves the plugin roster keyed by plugin name.
func (c *Client) FetchPlugins(ctx context.Context) (map[string]Plugin, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload PluginsResponse
	if err := c.do(ctx, http.MethodGet, "/api/plugins", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Plugins == nil {
		return map[string]Plugin{}, nil
	}
	return payload.Plugins, nil
}

// FetchConfig retrieves the full active configuration.
func (c *Client) FetchConfig(ctx context.Context) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// FetchLogs retrieves log entries. params are forwarded verbatim.
func (c *Client) FetchLogs(ctx context.Context, params url.Values) ([]LogEntry, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: "/api/logs", RawQuery: params.Encode()}
	var payload LogsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	if payload.Logs == nil {
		return []LogEntry{}, nil
	}
	return payload.Logs, nil
}

// FetchHealth probes /api/health.
func (c *Client) FetchHealth(ctx context.Context) (HealthResponse, error) {
	if c == nil {
		return HealthResponse{}, fmt.Errorf("client is nil")
	}
	var payload HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &payload); err != nil {
		return HealthResponse{}, err
	}
	return payload, nil
}

// UpdateConfig sets a single configuration key.
func (c *Client) UpdateConfig(ctx context.Context, key string, value any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("config key required")
	}
	return c.action(ctx, "/api/config", ConfigUpdate{Key: key, Value: value})
}

// TogglePlugin enables or disables a plugin by name.
func (c *Client) TogglePlugin(ctx context.Context, name string, enabled bool) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("plugin name required")
	}
	rel := &url.URL{
		Path:    "/api/plugins/" + name + "/toggle",
		RawPath: "/api/plugins/" + url.PathEscape(name) + "/toggle",
	}
	return c.actionURL(ctx, rel, map[string]bool{"enabled": enabled})
}

// RunHealthCheck asks the backend to health check one server, or the whole
// cluster when server is empty.
func (c *Client) RunHealthCheck(ctx context.Context, server string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	body := map[string]string{}
	if s := strings.TrimSpace(server); s != "" {
		body["server_name"] = s
	}
	return c.action(ctx, "/api/cluster/health-check", body)
}

func (c *Client) action(ctx context.Context, path string, body any) error {
	return c.actionURL(ctx, &url.URL{Path: path}, body)
}

func (c *Client) actionURL(ctx context.Context, rel *url.URL, body any) error {
	var resp ActionResponse
	if err := c.doURL(ctx, http.MethodPost, rel, body, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("api %s: %s", rel.Path, resp.Error)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: api %s returned status %d", ErrStatus, rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse api url %q: unsupported scheme %q", apiURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
