package state

import (
	"testing"

	"github.com/five82/devpanel/internal/backend"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    uint64
		decimals []int
		want     string
	}{
		{0, nil, "0 Bytes"},
		{500, nil, "500 Bytes"},
		{1023, nil, "1023 Bytes"},
		{1024, nil, "1 KB"},
		{1536, nil, "1.5 KB"},
		{1234567, nil, "1.18 MB"},
		{1234567, []int{0}, "1 MB"},
		{1234567, []int{-3}, "1 MB"},
		{1234567, []int{4}, "1.1774 MB"},
		{1 << 30, nil, "1 GB"},
		{5 << 40, nil, "5 TB"},
		{1 << 50, nil, "1 PB"},
		{1 << 60, nil, "1024 PB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes, tt.decimals...); got != tt.want {
			t.Errorf("FormatBytes(%d, %v) = %q, want %q", tt.bytes, tt.decimals, got, tt.want)
		}
	}
}

func TestSystemHealth(t *testing.T) {
	tests := []struct {
		name        string
		cpu, mem, d float64
		want        Health
	}{
		{"idle", 10, 10, 10, HealthSuccess},
		{"cpu exactly 80 is warning", 80, 0, 0, HealthWarning},
		{"cpu above 80", 80.1, 0, 0, HealthDanger},
		{"memory above 80", 0, 81, 0, HealthDanger},
		{"disk above 90", 0, 0, 91, HealthDanger},
		{"disk 90 is warning", 0, 0, 90, HealthWarning},
		{"cpu 60 is success", 60, 0, 0, HealthSuccess},
		{"cpu above 60", 61, 0, 0, HealthWarning},
		{"memory above 60", 0, 61, 0, HealthWarning},
		{"disk above 70", 0, 0, 71, HealthWarning},
		{"danger wins over warning", 65, 85, 0, HealthDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := backend.Metrics{
				CPUUsage: tt.cpu,
				Memory:   backend.Usage{Percent: tt.mem},
				Disk:     backend.Usage{Percent: tt.d},
			}
			if got := SystemHealth(m); got != tt.want {
				t.Fatalf("SystemHealth = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClusterHealth(t *testing.T) {
	tests := []struct {
		name   string
		active []string
		failed []string
		want   Health
	}{
		{"no servers", nil, nil, HealthDanger},
		{"no active but failed", nil, []string{"b"}, HealthDanger},
		{"active with failures", []string{"a"}, []string{"b"}, HealthWarning},
		{"all active", []string{"a", "b"}, []string{}, HealthSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := backend.ClusterStatus{ActiveServers: tt.active, FailedServers: tt.failed}
			if got := ClusterHealth(c); got != tt.want {
				t.Fatalf("ClusterHealth = %s, want %s", got, tt.want)
			}
		})
	}
}
