// Package main is the entry point for the inkzone server.
//
// inkzone serves the storefront catalog, the quote cart and the admin console
// over a JSON API, persisting products, quotes and messages in a shared store
// that several server processes can use concurrently. Configuration is read
// from CLI flags, a .env file (for credentials), and config.json.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/inkzone/internal/config"
	"github.com/maruel/inkzone/internal/formulate"
	"github.com/maruel/inkzone/internal/kv"
	"github.com/maruel/inkzone/internal/server"
	"github.com/maruel/inkzone/internal/state"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "inkzone: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	backend := flag.String("backend", "", "Shared store: memory, file or redis (default from config.json)")
	watchExe := flag.Bool("watch-exe", false, "Shut down when the executable is modified (development)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	env, err := config.LoadDotEnv(*dataDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", config.FileName, err)
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return fmt.Errorf("invalid .env: %w", err)
	}

	// Override with .env file values if not explicitly set via flags.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if !set["http"] {
		if v := env["INKZONE_HTTP"]; v != "" {
			*httpAddr = v
		}
	}
	if !set["log-level"] {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		}
	}
	if *backend != "" {
		cfg.Backend = *backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	// Normalize addr: ":8080" becomes "localhost:8080"
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	store, err := openBackend(ctx, cfg, *dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	st := state.New(ctx, store, &state.Options{
		PollInterval: cfg.PollInterval(),
		DisableWatch: cfg.DisableWatch,
	})

	var f formulate.Formulator = formulate.Static{}
	if cfg.Gemini.APIKey != "" {
		g, err := formulate.NewGemini(ctx, &formulate.GeminiOptions{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		})
		if err != nil {
			return err
		}
		f = formulate.WithFallback(g)
		slog.InfoContext(ctx, "Formulation enabled", "model", cfg.Gemini.Model)
	} else {
		slog.InfoContext(ctx, "No GEMINI_API_KEY; formulations return the fallback ink")
	}

	if *watchExe {
		if err := watchExecutable(ctx, stop); err != nil {
			return fmt.Errorf("failed to watch executable: %w", err)
		}
	}

	buildVersion := getVersion()
	router := server.New(st, f, &server.Config{
		Version:             buildVersion,
		AdminPassphrase:     cfg.AdminPassphrase,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		FormulateRatePerMin: cfg.RateLimits.FormulateRatePerMin,
		WriteRatePerMin:     cfg.RateLimits.WriteRatePerMin,
	})
	defer router.Close()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return st.Run(ctx)
	})
	eg.Go(func() error {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "backend", cfg.Backend, "version", buildVersion)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
		return nil
	})
	return eg.Wait()
}

// openBackend opens the shared store selected by cfg.
func openBackend(ctx context.Context, cfg *config.Config, dataDir string) (kv.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		slog.WarnContext(ctx, "Using the in-memory store; data is lost on exit and not shared between processes")
		return kv.NewHub().Open(), nil
	case config.BackendFile:
		b, err := kv.OpenFile(filepath.Join(dataDir, "store"))
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		slog.InfoContext(ctx, "Using the file store", "dir", b.Dir())
		return b, nil
	case config.BackendRedis:
		b, err := kv.OpenRedis(ctx, kv.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func printVersion() {
	fmt.Printf("inkzone %s\n", getVersion())
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("  Go version: %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("  Revision:   %s\n", s.Value)
			case "vcs.modified":
				if s.Value == "true" {
					fmt.Printf("  Modified:   true\n")
				}
			}
		}
	}
}

func getVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return "dev"
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
