package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/todox/internal/collection"
	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/server"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web app until interrupted.
//
// Every request passes the locale and session pipeline before it reaches the router.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	logger := shared.WithLogger(r.logger, "component", "server")

	ident, err := r.requireIdentity()
	if err != nil {
		return err
	}

	todos, err := collection.NewClient(cfg.Collection, cfg.Identity.AnonKey, collection.Options{
		Logger: shared.WithLogger(r.logger, "component", "collection"),
		Now:    r.now,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	locales, err := locale.New(cfg.Locale.Supported, cfg.Locale.Default)
	if err != nil {
		return err
	}

	cookies := identity.CookieOptions{Secure: cfg.Server.CookieSecure}
	app, err := web.New(web.Options{
		Identity:  ident,
		Todos:     todos,
		Locales:   locales,
		Cookies:   cookies,
		StaticDir: cfg.Server.StaticDir,
		Logger:    logger,
		Now:       r.now,
	})
	if err != nil {
		return fmt.Errorf("failed to build web app: %w", err)
	}

	router := server.NewBasicRouter()
	app.Register(router)

	gate := server.NewGate(ident, cookies, shared.WithLogger(r.logger, "component", "gate"))
	pipeline := server.NewPipeline(locales, gate, logger)
	handler := server.LogRequests(logger)(pipeline.Middleware()(router))

	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.Bool("open") {
		url := "http://" + addr + "/"
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	r.writePlain("✓ Serving on http://%s (locales: %v)\n", addr, cfg.Locale.Supported)
	return server.Serve(ctx, addr, handler, logger)
}
