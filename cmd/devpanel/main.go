package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/five82/devpanel/internal/app"
	"github.com/five82/devpanel/internal/config"
)

var version = "dev"

var CLI struct {
	Config      string `short:"c" help:"Config file path (default ~/.config/devpanel/config.toml)"`
	Prefs       string `help:"UI preferences file path (default ~/.config/devpanel/prefs.toml)"`
	APIURL      string `name:"api-url" help:"Backend REST base URL, e.g. http://localhost:8080"`
	Port        int    `short:"p" help:"Backend push port; overrides the config file and ${port_env}"`
	Poll        int    `help:"Refresh interval in seconds (default 10)"`
	LogLevel    string `name:"log-level" help:"Log level: debug, info, warn or error"`
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9464"`
	Headless    bool   `help:"Run without the TUI and log snapshot changes to stderr"`

	Version kong.VersionFlag `short:"v" help:"Print version and exit"`
}

func parserOptions() []kong.Option {
	return []kong.Option{
		kong.Name("devpanel"),
		kong.Description("Terminal dashboard for the dev panel backend."),
		kong.Vars{"version": version, "port_env": config.EnvBackendPort},
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	kong.Parse(&CLI, parserOptions()...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath:  CLI.Config,
		PrefsPath:   CLI.Prefs,
		APIURL:      CLI.APIURL,
		BackendPort: CLI.Port,
		PollEvery:   CLI.Poll,
		LogLevel:    CLI.LogLevel,
		MetricsAddr: CLI.MetricsAddr,
		Headless:    CLI.Headless,
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "devpanel: %v\n", err)
		return 1
	}
	return 0
}
