package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything devpanel needs to reach the backend.
type Config struct {
	APIURL         string
	BackendPort    int
	EnvFile        string
	PollInterval   time.Duration
	HistoryLimit   int
	RequestTimeout time.Duration
	LogFile        string
	LogLevel       string
	MetricsAddr    string
}

const (
	defaultConfigPath   = "~/.config/devpanel/config.toml"
	defaultLogFile      = "~/.local/state/devpanel/devpanel.log"
	defaultAPIURL       = "http://127.0.0.1:8080"
	defaultBackendPort  = 9000
	defaultPollInterval = 10 * time.Second
	defaultHistoryLimit = 60
	defaultLogLevel     = "info"

	envAPIURL      = "DEVPANEL_API_URL"
	envFilePortKey = "API_PORT"
)

// EnvBackendPort overrides the push port from the config file.
const EnvBackendPort = "DEVPANEL_BACKEND_PORT"

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:       defaultAPIURL,
		BackendPort:  defaultBackendPort,
		PollInterval: defaultPollInterval,
		HistoryLimit: defaultHistoryLimit,
		LogFile:      mustExpand(defaultLogFile),
		LogLevel:     defaultLogLevel,
	}
}

type rawConfig struct {
	APIURL         string `toml:"api_url"`
	BackendPort    int    `toml:"backend_port"`
	EnvFile        string `toml:"env_file"`
	PollInterval   int    `toml:"poll_interval"`
	HistoryLimit   int    `toml:"history_limit"`
	RequestTimeout int    `toml:"request_timeout"`
	LogFile        string `toml:"log_file"`
	LogLevel       string `toml:"log_level"`
	MetricsAddr    string `toml:"metrics_addr"`
}

// Load locates and parses the devpanel config, falling back to defaults when
// the file is missing. Environment overrides are applied last.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.EnvFile); v != "" {
		cfg.EnvFile = mustExpand(v)
	}
	if raw.PollInterval > 0 {
		cfg.PollInterval = time.Duration(raw.PollInterval) * time.Second
	}
	if raw.HistoryLimit > 0 {
		cfg.HistoryLimit = raw.HistoryLimit
	}
	if raw.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeout) * time.Second
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		cfg.APIURL = v
	}
	cfg.BackendPort = resolveBackendPort(raw.BackendPort, cfg.EnvFile)

	return cfg, nil
}

// resolveBackendPort picks the push channel port: environment override, then
// the TOML value, then API_PORT from the env file, then the default.
func resolveBackendPort(fromTOML int, envFile string) int {
	if port, ok := parsePort(os.Getenv(EnvBackendPort)); ok {
		return port
	}
	if validPort(fromTOML) {
		return fromTOML
	}
	if port, ok := ReadEnvFilePort(envFile); ok {
		return port
	}
	return defaultBackendPort
}

// ReadEnvFilePort reads API_PORT from a KEY=VALUE env file. It reports false
// when the file is absent, unreadable, or the value does not parse.
func ReadEnvFilePort(path string) (int, bool) {
	if strings.TrimSpace(path) == "" {
		return 0, false
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return 0, false
	}
	return parsePort(values[envFilePortKey])
}

func parsePort(value string) (int, bool) {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || !validPort(port) {
		return 0, false
	}
	return port, true
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// DefaultPath returns the unexpanded default config location.
func DefaultPath() string {
	return defaultConfigPath
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
