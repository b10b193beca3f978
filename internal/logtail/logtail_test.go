package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeLines(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devpanel.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestRead(t *testing.T) {
	var all []string
	for i := 1; i <= 10; i++ {
		all = append(all, fmt.Sprintf("Line %d", i))
	}
	path := writeLines(t, all...)

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"zero limit", 0, nil},
		{"tail of three", 3, []string{"Line 8", "Line 9", "Line 10"}},
		{"exact size", 10, all},
		{"larger than file", 50, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(path, tt.limit)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Read(%d) = %v, want %v", tt.limit, got, tt.want)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil || got != nil {
		t.Fatalf("Read missing = %v, %v; want nil, nil", got, err)
	}
}

func TestEntries_DecodesZerologLines(t *testing.T) {
	path := writeLines(t,
		`{"level":"info","component":"push","time":"2026-01-02T03:04:05Z","message":"connected"}`,
		``,
		`plain text line`,
		`{"level":"warn","component":"state","error":"timeout","message":"pull failed"}`,
	)

	got, err := Entries(path, 10)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Entries returned %d entries, want 3: %+v", len(got), got)
	}
	if got[0].Level != "info" || got[0].Source != "push" || got[0].Message != "connected" {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[0].ParsedTime().IsZero() {
		t.Fatal("timestamp did not parse")
	}
	if got[1].Message != "plain text line" || got[1].Level != "" {
		t.Fatalf("plain entry = %+v", got[1])
	}
	if got[2].Message != "pull failed: timeout" {
		t.Fatalf("error entry message = %q", got[2].Message)
	}
}

func TestParseLine_ErrorOnly(t *testing.T) {
	got := ParseLine(`{"level":"error","error":"boom"}`)
	if got.Message != "boom" {
		t.Fatalf("Message = %q, want boom", got.Message)
	}
}
