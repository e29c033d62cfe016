package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/webguard/auth"
	"github.com/jonwraymond/webguard/config"
	"github.com/jonwraymond/webguard/health"
	"github.com/jonwraymond/webguard/observe"
)

// PrincipalHeader carries the authenticated principal to the upstream.
const PrincipalHeader = "X-Webguard-Principal"

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		upstream   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the security proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx, configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			downstream, err := newDownstream(upstream)
			if err != nil {
				return err
			}

			rt, err := config.Build(ctx, cfg, downstream)
			if err != nil {
				return fmt.Errorf("failed to build proxy: %w", err)
			}
			return run(ctx, cfg.Server, rt)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "webguard.yaml", "Path to the configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "Backend URL to forward authorized requests to; empty echoes the principal")
	return cmd
}

// newDownstream forwards to upstream with the principal in PrincipalHeader,
// or, without an upstream, answers with the principal as the body.
func newDownstream(upstream string) (http.Handler, error) {
	if upstream == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, auth.PrincipalFromContext(r.Context()))
		}), nil
	}

	target, err := url.Parse(upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", upstream)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del(PrincipalHeader)
			if principal := auth.PrincipalFromContext(pr.In.Context()); principal != "" {
				pr.Out.Header.Set(PrincipalHeader, principal)
			}
		},
	}, nil
}

// newRouter serves health and metrics endpoints directly and sends every
// other request through the security proxy.
func newRouter(rt *config.Runtime, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	healthMux := http.NewServeMux()
	health.RegisterHandlers(healthMux, rt.Health)
	r.Handle("/healthz", healthMux)
	r.Handle("/readyz", healthMux)
	r.Handle("/health", healthMux)
	r.Handle("/health/*", healthMux)

	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	r.Handle("/*", rt.Proxy)
	return r
}

func run(ctx context.Context, cfg config.ServerConfig, rt *config.Runtime) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(rt, promhttp.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.Logger.Info(ctx, "listening", observe.F("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		rt.Logger.Info(ctx, "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, srv.Shutdown(shutdownCtx), rt.Close(shutdownCtx))
}
