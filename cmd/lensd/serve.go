package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lensd/internal/httpapi"
	"lensd/internal/service"
)

type serveOptions struct {
	addr           string
	corsOrigins    string
	swagger        bool
	preload        bool
	maxBodyBytes   int64
	requestTimeout int64
}

func newServeCmd(o *options) *cobra.Command {
	so := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o, so)
		},
	}
	f := cmd.Flags()
	f.StringVar(&so.addr, "addr", "", "HTTP listen address (default :8000)")
	f.StringVar(&so.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (default http://localhost:3000)")
	f.BoolVar(&so.swagger, "swagger", false, "Serve API docs under /swagger/")
	f.BoolVar(&so.preload, "preload", false, "Open every configured model before serving")
	f.Int64Var(&so.maxBodyBytes, "max-body-bytes", 0, "Maximum JSON request body size")
	f.Int64Var(&so.requestTimeout, "request-timeout-seconds", 0, "Per-request timeout for lens and tokenize (0 disables)")
	return cmd
}

func runServe(cmd *cobra.Command, o *options, so *serveOptions) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = so.addr
	}
	if flags.Changed("cors-origins") {
		cfg.HTTP.CORSOrigins = splitCSV(so.corsOrigins)
	}
	if flags.Changed("swagger") {
		cfg.HTTP.Swagger = so.swagger
	}
	if flags.Changed("max-body-bytes") {
		cfg.HTTP.MaxBodyBytes = so.maxBodyBytes
	}
	if flags.Changed("request-timeout-seconds") {
		cfg.HTTP.RequestTimeoutSeconds = so.requestTimeout
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if so.preload {
		if err := svc.Registry.Preload(ctx); err != nil {
			return err
		}
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.HTTP.MaxBodyBytes)
	httpapi.SetRequestTimeoutSeconds(cfg.HTTP.RequestTimeoutSeconds)
	httpapi.SetCORSOptions(len(cfg.HTTP.CORSOrigins) > 0, cfg.HTTP.CORSOrigins, nil, nil)
	httpapi.SetSwaggerEnabled(cfg.HTTP.Swagger)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("engine", cfg.Engine.Kind).Strs("models", svc.Registry.Names()).Msg("lensd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	log.Info().Msg("lensd stopped")
	return nil
}
