// mdns-repeater relays mDNS traffic between network segments according to
// a set of rules.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/mojo333/mdns-repeater/internal/config"
	"github.com/mojo333/mdns-repeater/internal/errors"
	"github.com/mojo333/mdns-repeater/internal/logger"
	"github.com/mojo333/mdns-repeater/internal/metrics"
	"github.com/mojo333/mdns-repeater/internal/netifaces"
	"github.com/mojo333/mdns-repeater/internal/relay"
)

// Version can be set at build time with -ldflags "-X main.Version=x.y.z"
var Version = ""

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	configPath    string
	logLevel      string
	verbose       bool
	foreground    bool
	logfile       string
	monitor       string
	metricsListen string
	noSyslog      bool
	showVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("mdns-repeater", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the config file (.json, .yaml or .hcl)")
	fs.StringVarP(&opts.logLevel, "log-level", "l", "info", "log level; one of debug, info, warn or error")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug output")
	fs.BoolVar(&opts.foreground, "foreground", false, "log to stdout")
	fs.StringVar(&opts.logfile, "logfile", "", "append logs to this file")
	fs.StringVar(&opts.monitor, "monitor", "", "append lifecycle events, warnings and errors to this file")
	fs.StringVar(&opts.metricsListen, "metrics-listen", "", "serve /metrics and /interfaces on this address")
	fs.BoolVar(&opts.noSyslog, "no-syslog", false, "do not log to syslog")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func exitCode(err error) int {
	if errors.GetKind(err) == errors.KindValidation {
		return exitUsage
	}
	return exitError
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if opts.showVersion {
		fmt.Fprintln(stdout, "mdns-repeater", version())
		return exitOK
	}

	if opts.configPath == "" {
		fmt.Fprintln(stderr, "--config is required")
		return exitUsage
	}

	level, err := logger.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if opts.verbose {
		level = slog.LevelDebug
	}

	log, err := logger.New(logger.Options{
		Foreground: opts.foreground,
		Logfile:    opts.logfile,
		Level:      level,
		NoSyslog:   opts.noSyslog,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing logger: %s\n", err)
		return exitError
	}
	defer log.Close()

	if opts.monitor != "" {
		if err := log.SetMonitor(opts.monitor); err != nil {
			fmt.Fprintf(stderr, "Error opening monitor log: %s\n", err)
			return exitError
		}
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %s\n", err)
		log.Error("failed to load config", append([]any{"error", err}, errors.LogArgs(err)...)...)
		return exitCode(err)
	}

	ifaces, err := netifaces.Interfaces()
	if err != nil {
		fmt.Fprintf(stderr, "Error listing interfaces: %s\n", err)
		log.Error("failed to list interfaces", "error", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	repeater, err := relay.Open(ctx, cfg, ifaces, log, m)
	if err != nil {
		fmt.Fprintf(stderr, "Error starting repeater: %s\n", err)
		log.Error("failed to start repeater", append([]any{"error", err}, errors.LogArgs(err)...)...)
		return exitCode(err)
	}
	defer repeater.Close()

	if opts.metricsListen != "" {
		router := metrics.NewRouter(reg, func() any { return repeater.Table().Snapshot() })
		go func() {
			if err := metrics.Serve(ctx, opts.metricsListen, router); err != nil {
				log.Error("metrics server failed", "addr", opts.metricsListen, "error", err)
			}
		}()
		log.Info("serving metrics", "addr", opts.metricsListen)
	}

	log.Monitor("mdns-repeater started",
		"version", version(),
		"pid", os.Getpid(),
		"config", opts.configPath,
		"relay_interfaces", len(repeater.Table().Relays()),
		"rules", len(cfg.Rules))

	if err := repeater.Run(ctx); err != nil {
		log.Monitor("mdns-repeater stopped", "error", err)
		return exitError
	}
	log.Monitor("mdns-repeater stopped")
	return exitOK
}
