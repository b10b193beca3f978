package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// SystemInfo describes the backend build. Fields the client does not know
// about are kept in Extra.
type SystemInfo struct {
	Author     string
	Email      string
	Version    string
	CreateDate string
	Extra      map[string]any
}

// DefaultSystemInfo is the snapshot value before the first successful pull.
func DefaultSystemInfo() SystemInfo {
	return SystemInfo{
		Author:     "Zhang-Jingdian",
		Email:      "2157429750@qq.com",
		Version:    "1.0.0",
		CreateDate: "2025-07-14",
	}
}

// Merge overlays fields onto s. Keys absent from fields keep their value.
func (s SystemInfo) Merge(fields map[string]any) SystemInfo {
	out := s
	out.Extra = cloneMap(s.Extra)
	for key, value := range fields {
		str, isString := value.(string)
		switch {
		case key == "author" && isString:
			out.Author = str
		case key == "email" && isString:
			out.Email = str
		case key == "version" && isString:
			out.Version = str
		case key == "createDate" && isString:
			out.CreateDate = str
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = value
		}
	}
	return out
}

// Clone returns a deep-enough copy for handing to readers.
func (s SystemInfo) Clone() SystemInfo {
	s.Extra = cloneMap(s.Extra)
	return s
}

// Usage is a percent/used/total triple reported for memory and disk.
type Usage struct {
	Percent float64 `json:"percent"`
	Used    uint64  `json:"used"`
	Total   uint64  `json:"total"`
}

// Metrics mirrors /api/metrics and the metrics_updated event.
type Metrics struct {
	CPUUsage  float64 `json:"cpu_usage"`
	Memory    Usage   `json:"memory"`
	Disk      Usage   `json:"disk"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// DefaultMetrics matches the snapshot before any data has arrived. Totals are
// one so percentage math never divides by zero.
func DefaultMetrics() Metrics {
	return Metrics{
		Memory: Usage{Total: 1},
		Disk:   Usage{Total: 1},
	}
}

// ParsedTimestamp returns the sample time when the backend reported one.
func (m Metrics) ParsedTimestamp() time.Time {
	return parseTime(m.Timestamp)
}

// MetricsPatch carries only the top-level metrics keys present in a payload.
type MetricsPatch struct {
	CPUUsage  *float64 `json:"cpu_usage"`
	Memory    *Usage   `json:"memory"`
	Disk      *Usage   `json:"disk"`
	Timestamp *string  `json:"timestamp"`
}

// UnmarshalJSON reads cpu_percent, the key the backend uses in its periodic
// broadcasts and history, when cpu_usage is absent.
func (p *MetricsPatch) UnmarshalJSON(data []byte) error {
	type plain MetricsPatch
	var raw struct {
		plain
		CPUPercent *float64 `json:"cpu_percent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = MetricsPatch(raw.plain)
	if p.CPUUsage == nil {
		p.CPUUsage = raw.CPUPercent
	}
	return nil
}

// ParsedTimestamp returns the sample time when the payload carried one.
func (p MetricsPatch) ParsedTimestamp() time.Time {
	if p.Timestamp == nil {
		return time.Time{}
	}
	return parseTime(*p.Timestamp)
}

// Apply returns m with every present patch key overwritten.
func (m Metrics) Apply(p MetricsPatch) Metrics {
	if p.CPUUsage != nil {
		m.CPUUsage = *p.CPUUsage
	}
	if p.Memory != nil {
		m.Memory = *p.Memory
	}
	if p.Disk != nil {
		m.Disk = *p.Disk
	}
	if p.Timestamp != nil {
		m.Timestamp = *p.Timestamp
	}
	return m
}

// ClusterStatus mirrors /api/cluster/status and cluster_status_updated.
type ClusterStatus struct {
	ActiveServers []string `json:"activeServers"`
	FailedServers []string `json:"failedServers"`
	TotalNodes    int      `json:"totalNodes"`
	OnlineNodes   int      `json:"onlineNodes"`
}

// Clone copies the server slices.
func (c ClusterStatus) Clone() ClusterStatus {
	c.ActiveServers = cloneStrings(c.ActiveServers)
	c.FailedServers = cloneStrings(c.FailedServers)
	return c
}

// ClusterPatch carries only the cluster keys present in a payload.
type ClusterPatch struct {
	ActiveServers *[]string `json:"activeServers"`
	FailedServers *[]string `json:"failedServers"`
	TotalNodes    *int      `json:"totalNodes"`
	OnlineNodes   *int      `json:"onlineNodes"`
}

// Apply returns c with every present patch key overwritten. Server lists are
// treated as sets: duplicates are dropped, first occurrence order is kept.
func (c ClusterStatus) Apply(p ClusterPatch) ClusterStatus {
	out := c.Clone()
	if p.ActiveServers != nil {
		out.ActiveServers = uniqueStrings(*p.ActiveServers)
	}
	if p.FailedServers != nil {
		out.FailedServers = uniqueStrings(*p.FailedServers)
	}
	if p.TotalNodes != nil {
		out.TotalNodes = *p.TotalNodes
	}
	if p.OnlineNodes != nil {
		out.OnlineNodes = *p.OnlineNodes
	}
	return out
}

// Plugin is one entry of the plugin roster.
type Plugin struct {
	Enabled     bool   `json:"enabled"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// PluginsResponse mirrors /api/plugins.
type PluginsResponse struct {
	Plugins map[string]Plugin `json:"plugins"`
}

// StatusUpdate is the status_update push payload, the reply to
// request_status. Absent sections decode as nil.
type StatusUpdate struct {
	Config        map[string]any   `json:"config"`
	ClusterStatus *ClusterPatch    `json:"cluster_status"`
	Plugins       *PluginsResponse `json:"plugins"`
}

// LogsResponse mirrors /api/logs.
type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}

// LogEntry is a single log line. The backend sends either raw strings or
// structured objects; both decode into this shape.
type LogEntry struct {
	Timestamp string `json:"timestamp,omitempty"`
	Level     string `json:"level,omitempty"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
}

// UnmarshalJSON accepts a bare string or an object.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var line string
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		*e = LogEntry{Message: line}
		return nil
	}
	type plain LogEntry
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("log entry: %w", err)
	}
	*e = LogEntry(obj)
	return nil
}

// ParsedTime returns the entry timestamp when it parses.
func (e LogEntry) ParsedTime() time.Time {
	return parseTime(e.Timestamp)
}

// HealthResponse mirrors /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ActionResponse is returned by the POST endpoints.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ConfigUpdate is the config_updated event payload and the POST /api/config body.
type ConfigUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// PluginToggle is the plugin_toggled event payload. Enabled is nil when the
// key was missing.
type PluginToggle struct {
	PluginName string `json:"plugin_name"`
	Enabled    *bool  `json:"enabled"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func uniqueStrings(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
