package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultAPIURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultAPIURL)
	}

	u, err = parseBaseURL("example.com:8080/ignored?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "example.com:8080" {
		t.Fatalf("url = %q, want http://example.com:8080", u.String())
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("ftp://example.com"); err == nil {
		t.Fatalf("parseBaseURL accepted ftp scheme")
	}
}

func TestClient_FetchesEndpoints(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		gotLogQuery url.Values
		requestIDs  = map[string]bool{}
		gotAgent    string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestIDs[r.Header.Get(requestIDHeader)] = true
		gotAgent = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/system/info":
			_, _ = w.Write([]byte(`{"version":"2.0.0","hostname":"box"}`))
		case "/api/metrics":
			_, _ = w.Write([]byte(`{"cpu_usage":45}`))
		case "/api/cluster/status":
			_, _ = w.Write([]byte(`{"activeServers":["a","b"],"totalNodes":3}`))
		case "/api/plugins":
			_, _ = w.Write([]byte(`{"plugins":{"git":{"enabled":true},"lint":{"enabled":false}}}`))
		case "/api/config":
			_, _ = w.Write([]byte(`{"REMOTE_HOST":"10.0.0.1","SSH_PORT":22}`))
		case "/api/logs":
			mu.Lock()
			gotLogQuery = r.URL.Query()
			mu.Unlock()
			_, _ = w.Write([]byte(`{"logs":["plain line",{"level":"ERROR","message":"boom"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	info, err := c.FetchSystemInfo(ctx)
	if err != nil {
		t.Fatalf("FetchSystemInfo returned error: %v", err)
	}
	if info["version"] != "2.0.0" || info["hostname"] != "box" {
		t.Fatalf("FetchSystemInfo = %#v", info)
	}

	metrics, err := c.FetchMetrics(ctx)
	if err != nil {
		t.Fatalf("FetchMetrics returned error: %v", err)
	}
	if metrics.CPUUsage == nil || *metrics.CPUUsage != 45 {
		t.Fatalf("FetchMetrics cpu = %v, want 45", metrics.CPUUsage)
	}
	if metrics.Memory != nil || metrics.Disk != nil {
		t.Fatalf("FetchMetrics set absent keys: %#v", metrics)
	}

	cluster, err := c.FetchClusterStatus(ctx)
	if err != nil {
		t.Fatalf("FetchClusterStatus returned error: %v", err)
	}
	if cluster.ActiveServers == nil || len(*cluster.ActiveServers) != 2 || cluster.FailedServers != nil {
		t.Fatalf("FetchClusterStatus = %#v", cluster)
	}

	plugins, err := c.FetchPlugins(ctx)
	if err != nil {
		t.Fatalf("FetchPlugins returned error: %v", err)
	}
	if len(plugins) != 2 || !plugins["git"].Enabled || plugins["lint"].Enabled {
		t.Fatalf("FetchPlugins = %#v", plugins)
	}

	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		t.Fatalf("FetchConfig returned error: %v", err)
	}
	if cfg["REMOTE_HOST"] != "10.0.0.1" {
		t.Fatalf("FetchConfig = %#v", cfg)
	}

	logs, err := c.FetchLogs(ctx, LogQuery{Type: "docker", Lines: 50, Extra: url.Values{"container": {"web"}}}.Values())
	if err != nil {
		t.Fatalf("FetchLogs returned error: %v", err)
	}
	if len(logs) != 2 || logs[0].Message != "plain line" || logs[1].Level != "ERROR" {
		t.Fatalf("FetchLogs = %#v", logs)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotLogQuery.Get("type") != "docker" || gotLogQuery.Get("lines") != "50" || gotLogQuery.Get("container") != "web" {
		t.Fatalf("FetchLogs query = %v, want params forwarded", gotLogQuery)
	}

	if !strings.HasPrefix(gotAgent, "devpanel/") {
		t.Fatalf("User-Agent = %q, want devpanel/*", gotAgent)
	}
	if len(requestIDs) != 6 || requestIDs[""] {
		t.Fatalf("request ids = %v, want 6 distinct non-empty ids", requestIDs)
	}
}

func TestClient_MissingRosterAndLogsDecodeEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	plugins, err := c.FetchPlugins(context.Background())
	if err != nil || plugins == nil || len(plugins) != 0 {
		t.Fatalf("FetchPlugins = %#v, %v; want empty roster", plugins, err)
	}
	logs, err := c.FetchLogs(context.Background(), nil)
	if err != nil || logs == nil || len(logs) != 0 {
		t.Fatalf("FetchLogs = %#v, %v; want empty slice", logs, err)
	}
}

func TestClient_HTTPErrorAndDecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/metrics":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case "/api/config":
			http.Error(w, "nope", http.StatusInternalServerError)
		case "/api/cluster/status":
			_, _ = w.Write([]byte(`["not","an","object"]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.FetchMetrics(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("FetchMetrics error = %v, want decode response error", err)
	}

	_, err = c.FetchConfig(context.Background())
	if !errors.Is(err, ErrStatus) || !strings.Contains(err.Error(), "returned status 500") {
		t.Fatalf("FetchConfig error = %v, want status 500 error", err)
	}

	_, err = c.FetchClusterStatus(context.Background())
	if err == nil {
		t.Fatalf("FetchClusterStatus accepted an array body")
	}
}

func TestClient_Actions(t *testing.T) {
	t.Parallel()

	type call struct {
		method string
		path   string
		body   map[string]any
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.EscapedPath(), body})
		mu.Unlock()
		if r.URL.Path == "/api/cluster/health-check" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"script failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	if err := c.UpdateConfig(ctx, " LOG_LEVEL ", "DEBUG"); err != nil {
		t.Fatalf("UpdateConfig returned error: %v", err)
	}
	if err := c.TogglePlugin(ctx, "git", true); err != nil {
		t.Fatalf("TogglePlugin returned error: %v", err)
	}
	if err := c.TogglePlugin(ctx, "team/lint", false); err != nil {
		t.Fatalf("TogglePlugin returned error: %v", err)
	}
	if err := c.RunHealthCheck(ctx, "node-1"); !errors.Is(err, ErrStatus) {
		t.Fatalf("RunHealthCheck error = %v, want ErrStatus", err)
	}
	if err := c.UpdateConfig(ctx, "  ", 1); err == nil {
		t.Fatalf("UpdateConfig accepted empty key")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(calls))
	}
	if calls[0].method != http.MethodPost || calls[0].path != "/api/config" ||
		calls[0].body["key"] != "LOG_LEVEL" || calls[0].body["value"] != "DEBUG" {
		t.Fatalf("UpdateConfig call = %#v", calls[0])
	}
	if calls[1].path != "/api/plugins/git/toggle" || calls[1].body["enabled"] != true {
		t.Fatalf("TogglePlugin call = %#v", calls[1])
	}
	if calls[2].path != "/api/plugins/team%2Flint/toggle" || calls[2].body["enabled"] != false {
		t.Fatalf("TogglePlugin with slash call = %#v", calls[2])
	}
	if calls[3].body["server_name"] != "node-1" {
		t.Fatalf("RunHealthCheck call = %#v", calls[3])
	}
}

func TestClient_HealthAndHistory(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			_, _ = w.Write([]byte(`{"status":"healthy","timestamp":"2026-01-02T03:04:05"}`))
		case "/api/metrics/history":
			_, _ = w.Write([]byte(`[{"cpu_usage":10},{"cpu_percent":25.5,"timestamp":"2026-01-02T03:04:05.5"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	health, err := c.FetchHealth(context.Background())
	if err != nil {
		t.Fatalf("FetchHealth returned error: %v", err)
	}
	if health.Status != "healthy" {
		t.Fatalf("health status = %q, want healthy", health.Status)
	}

	samples, err := c.FetchMetricsHistory(context.Background())
	if err != nil {
		t.Fatalf("FetchMetricsHistory returned error: %v", err)
	}
	if len(samples) != 2 || samples[0].CPUUsage == nil || *samples[0].CPUUsage != 10 {
		t.Fatalf("samples = %+v", samples)
	}
	if samples[1].CPUUsage == nil || *samples[1].CPUUsage != 25.5 {
		t.Fatalf("cpu_percent not read: %+v", samples[1])
	}
	if samples[1].ParsedTimestamp().IsZero() {
		t.Fatalf("timestamp not parsed: %v", samples[1].Timestamp)
	}
}
