package ui

import (
	"math"
	"testing"
	"unicode/utf8"
)

func TestSparkline_ScalesAndClamps(t *testing.T) {
	got := sparkline([]float64{0, 50, 100, 150, -5}, 5, 0, 100)
	want := "▁▅██▁"
	if got != want {
		t.Fatalf("sparkline = %q, want %q", got, want)
	}
}

func TestSparkline_RightAlignsShortHistory(t *testing.T) {
	got := sparkline([]float64{100}, 4, 0, 100)
	if got != "   █" {
		t.Fatalf("sparkline = %q, want %q", got, "   █")
	}
}

func TestSparkline_KeepsNewestValues(t *testing.T) {
	got := sparkline([]float64{100, 100, 0, 0}, 2, 0, 100)
	if got != "▁▁" {
		t.Fatalf("sparkline = %q, want %q", got, "▁▁")
	}
}

func TestSparkline_DegenerateInputs(t *testing.T) {
	if got := sparkline([]float64{1, 2}, 0, 0, 100); got != "" {
		t.Fatalf("zero width = %q, want empty", got)
	}
	got := sparkline([]float64{5, math.NaN()}, 2, 5, 5)
	if utf8.RuneCountInString(got) != 2 {
		t.Fatalf("sparkline = %q, want 2 cells", got)
	}
}

func TestMeter(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "░░░░"},
		{50, "██░░"},
		{100, "████"},
		{250, "████"},
		{-10, "░░░░"},
	}
	for _, tt := range tests {
		if got := meter(tt.percent, 4); got != tt.want {
			t.Fatalf("meter(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}
