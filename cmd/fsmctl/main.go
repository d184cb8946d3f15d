// Command fsmctl validates, renders and runs declarative state machines.
//
//	fsmctl [-env file] [-metrics-addr addr] [-log-level level] <command> [flags] args...
//
// Commands:
//
//	validate [-strict] file...            check definitions
//	render [-format mermaid|dot] file     print a diagram
//	run [-data json] [-session id] file input...
//	repl [-data json] file                pick inputs interactively
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/amp-labs/amp-fsm/config"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/should"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var errUsage = errors.New("usage")

// stdio is the terminal the command talks to.
type stdio struct {
	in  io.ReadCloser
	out io.Writer
	err io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

// environment is what every command gets after global setup.
type environment struct {
	cfg *config.Config
	io  stdio
}

func commands() []command {
	return []command{
		{name: "validate", summary: "check definitions for errors and dead transitions", run: runValidate},
		{name: "render", summary: "print a Mermaid or DOT diagram", run: runRender},
		{name: "run", summary: "feed inputs and print each step", run: runMachine},
		{name: "repl", summary: "pick inputs interactively", run: runRepl},
	}
}

func main() {
	handler := shutdown.SetupHandler(context.Background())

	code := run(handler.Context(), os.Args[1:], stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr})

	handler.Stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, sio stdio) int {
	flags := flag.NewFlagSet("fsmctl", flag.ContinueOnError)
	flags.SetOutput(sio.err)

	envFile := flags.String("env", "", "comma-separated .env files to load")
	metricsAddr := flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	logLevel := flags.String("log-level", "", "log level (debug, info, warn, error)")

	flags.Usage = func() { usage(flags) }

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	if flags.NArg() == 0 {
		flags.Usage()

		return exitUsage
	}

	cfg, err := loadConfig(*envFile)
	if err != nil {
		fmt.Fprintln(sio.err, err)

		return exitFail
	}

	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	ctx, cleanup, err := setup(ctx, cfg, sio)
	if err != nil {
		fmt.Fprintln(sio.err, err)

		return exitFail
	}

	defer cleanup()

	name := flags.Arg(0)

	for _, cmd := range commands() {
		if cmd.name != name {
			continue
		}

		err := cmd.run(logger.With(ctx, "command", name), &environment{cfg: cfg, io: sio}, flags.Args()[1:])

		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			return exitUsage
		default:
			fmt.Fprintf(sio.err, "fsmctl %s: %v\n", name, err)

			return exitFail
		}
	}

	fmt.Fprintf(sio.err, "fsmctl: unknown command %q\n", name)
	flags.Usage()

	return exitUsage
}

func usage(flags *flag.FlagSet) {
	w := flags.Output()

	fmt.Fprintln(w, "usage: fsmctl [flags] <command> [command flags] args...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")

	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	flags.PrintDefaults()
}

func loadConfig(envFiles string) (*config.Config, error) {
	if envFiles == "" {
		return config.Load()
	}

	return config.Load(strings.Split(envFiles, ",")...)
}

// setup configures logging, telemetry and the metrics endpoint. The returned
// cleanup undoes all of it.
func setup(ctx context.Context, cfg *config.Config, sio stdio) (context.Context, func(), error) {
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	opts, err := cfg.Logging("fsmctl")
	if err != nil {
		return ctx, cleanup, err
	}

	opts.Output = sio.err

	if cfg.Telemetry.Enabled {
		if err := telemetry.Initialize(ctx, &cfg.Telemetry); err != nil {
			return ctx, cleanup, err
		}

		cleanups = append(cleanups, func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			should.Run(flushCtx, telemetry.Shutdown, "shutting down telemetry")
		})

		if h := telemetry.LogHandler("fsmctl"); h != nil {
			opts.Extra = append(opts.Extra, h)
		}
	}

	logger.ConfigureLoggingWithOptions(opts)

	ctx = logger.WithSubsystem(ctx, "fsmctl")

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(ctx, cfg.MetricsAddr)
		if err != nil {
			cleanup()

			return ctx, func() {}, err
		}

		cleanups = append(cleanups, stop)
	}

	return ctx, cleanup, nil
}

func serveMetrics(ctx context.Context, addr string) (func(), error) {
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "error", err)
		}
	}()

	logger.Get(ctx).Info("Serving metrics", slog.String("addr", listener.Addr().String()))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		should.Run(shutdownCtx, srv.Shutdown, "stopping metrics server")
	}, nil
}
