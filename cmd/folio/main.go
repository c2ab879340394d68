// Package main is the entry point for the folio plugin host.
//
// folio reads a pre-parsed document (the JSON content tree produced by a
// format parser), loads script plugins from the configured directories,
// renders every unit through the plugin pipeline and prints the markup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/metrics"
	"github.com/dshills/folio/internal/plugin/lua"
	"github.com/dshills/folio/internal/plugin/manifest"
	"github.com/dshills/folio/internal/reader"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath  string
	logLevel    string
	track       string
	pluginDirs  string
	watch       bool
	metricsAddr string
	document    string
	set         map[string]bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if err := applyFlags(&cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel(),
		Output: os.Stderr,
		Prefix: cfg.Log.Prefix,
	})

	doc, err := readDocument(opts.document)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", events.CodeDocumentCorrupted, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionOpts := []reader.Option{
		reader.WithLogger(logger),
		reader.WithDefaultPriority(cfg.Pipeline.DefaultPriority),
		reader.WithErrorCallback(func(pe events.PluginError) {
			logger.Warn("%s", pe)
		}),
	}
	if track, forced := cfg.Track(); forced {
		sessionOpts = append(sessionOpts, reader.WithTrack(track))
	}
	if !cfg.Pipeline.Enabled {
		sessionOpts = append(sessionOpts, reader.WithPipelineDisabled())
	}
	if cfg.Metrics.Addr != "" {
		m := metrics.New(metrics.WithRuntimeCollectors())
		sessionOpts = append(sessionOpts, reader.WithMetrics(m))
		srv := serveMetrics(cfg.Metrics.Addr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	session, err := reader.Open(ctx, content.NewSnapshot(doc), sessionOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open document: %v\n", err)
		return 1
	}
	defer session.Close(context.Background())

	loader := manifest.NewLoader(cfg.Reader.PluginDirs...)
	scriptOpts := []lua.StateOption{lua.WithExecutionTimeout(cfg.Reader.ScriptTimeout.Std())}
	if err := loadPlugins(ctx, session, loader, scriptOpts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := render(ctx, session, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if !cfg.Reader.Watch {
		return 0
	}
	if err := watch(ctx, cfg, session, loader, scriptOpts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() options {
	opts := options{set: make(map[string]bool)}
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", config.DefaultPath(), "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.track, "track", "", "Rendering track (auto, tree, native)")
	flag.StringVar(&opts.pluginDirs, "plugins", "", "Comma-separated plugin directories")
	flag.StringVar(&opts.pluginDirs, "p", "", "Comma-separated plugin directories (shorthand)")
	flag.BoolVar(&opts.watch, "watch", false, "Reload plugins when their files change")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "folio - plugin host for document readers\n\n")
		fmt.Fprintf(os.Stderr, "Usage: folio [options] <document.json | ->\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  folio book.json                     Render with configured plugins\n")
		fmt.Fprintf(os.Stderr, "  folio -p ./plugins -watch book.json Re-render on plugin changes\n")
		fmt.Fprintf(os.Stderr, "  parse-epub b.epub | folio -         Read the document from stdin\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("folio %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.document = flag.Arg(0)

	flag.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	return opts
}

// applyFlags overlays explicitly set flags on the loaded config.
func applyFlags(cfg *config.Config, opts options) error {
	if opts.set["log-level"] {
		cfg.Log.Level = opts.logLevel
	}
	if opts.set["track"] {
		cfg.Reader.Track = opts.track
	}
	if opts.set["plugins"] || opts.set["p"] {
		cfg.Reader.PluginDirs = nil
		for _, dir := range strings.Split(opts.pluginDirs, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				cfg.Reader.PluginDirs = append(cfg.Reader.PluginDirs, dir)
			}
		}
	}
	if opts.set["watch"] {
		cfg.Reader.Watch = opts.watch
	}
	if opts.set["metrics-addr"] {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	return cfg.Validate()
}

func readDocument(path string) (*content.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return content.DecodeDocument(r)
}

func serveMetrics(addr string, m *metrics.Metrics, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Info("serving metrics on %s", addr)
	return srv
}
