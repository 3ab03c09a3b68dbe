package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/piproxy/internal/extract"
	"github.com/hyperifyio/piproxy/internal/fetch"
	"github.com/hyperifyio/piproxy/internal/guard"
	"github.com/hyperifyio/piproxy/internal/httpapi"
	"github.com/hyperifyio/piproxy/internal/proxy"
)

// App wires the admission guard, upstream client, proxy service and HTTP
// server from a Config.
type App struct {
	cfg    Config
	server *http.Server
}

// New validates cfg and builds the application. Nothing is started.
func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	g := guard.New(cfg.AllowedHosts...)
	client := &fetch.Client{
		HTTPClient:        newUpstreamHTTPClient(cfg.UpstreamTimeout),
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.UpstreamTimeout,
		RedirectMaxHops:   cfg.MaxRedirects,
		Admit:             g.AssertAllowed,
		MaxBodyBytes:      cfg.MaxBodyBytes,
	}
	svc := &proxy.Service{
		Guard:      g,
		Fetcher:    client,
		Links:      linkExtractorFor(cfg.SearchBase, g.Hosts()),
		SearchBase: cfg.SearchBase,
	}

	a := &App{cfg: cfg}
	a.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Leave room for the upstream call plus extraction.
		WriteTimeout: cfg.UpstreamTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Info().
		Strs("hosts", g.Hosts().Hosts()).
		Dur("upstream_timeout", cfg.UpstreamTimeout).
		Int("max_redirects", cfg.MaxRedirects).
		Msg("proxy configured")
	return a, nil
}

// linkExtractorFor resolves relative links against the search site and keeps
// absolute links on any allowed host.
func linkExtractorFor(searchBase string, hosts guard.HostSet) extract.LinkExtractor {
	var e extract.LinkExtractor
	if u, err := url.Parse(searchBase); err == nil && u.Scheme != "" && u.Host != "" {
		e.Origin = u.Scheme + "://" + u.Host
	}
	for _, h := range hosts.Hosts() {
		e.Origins = append(e.Origins, "https://"+h)
	}
	return e
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run listens on the configured address and serves until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- a.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info().Msg("shutting down")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
