package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/five82/devpanel/internal/config"
)

func TestHelpNamesPortEnvironmentVariable(t *testing.T) {
	var out bytes.Buffer
	opts := append(parserOptions(), kong.Writers(&out, &out), kong.Exit(func(int) {}))
	parser, err := kong.New(&CLI, opts...)
	if err != nil {
		t.Fatalf("kong.New returned error: %v", err)
	}
	_, _ = parser.Parse([]string{"--help"})

	help := out.String()
	if !strings.Contains(help, config.EnvBackendPort) {
		t.Fatalf("help does not mention %s:\n%s", config.EnvBackendPort, help)
	}
	if strings.Contains(help, "${") {
		t.Fatalf("help has an uninterpolated variable:\n%s", help)
	}
}
