package app

import (
	"bufio"
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vendo-client/internal/catalog"
	"github.com/xenking/vendo-client/internal/client"
	"github.com/xenking/vendo-client/internal/session"
	"github.com/xenking/vendo-client/pkg/notify"
)

// Run creates all dependencies, performs the startup probes, and drives the
// interactive terminal UI. It is the single wiring point for the client.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Connecting", zap.String("server", cfg.ServerURL))

	api, err := client.New(client.Config{
		BaseURL:           cfg.ServerURL,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RateLimit.RPS,
		Burst:             cfg.RateLimit.Burst,
		TracerProvider:    m.TracerProvider(),
		MeterProvider:     m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create api client")
	}

	sessions := session.NewState(api)
	products := catalog.NewState(api)

	// Resolve the session and load the catalog concurrently before anything
	// renders. Resolve never fails on an anonymous visitor; a failed catalog
	// load is not fatal either, the user can retry from the menu.
	g, probeCtx := errgroup.WithContext(zctx.Base(ctx, lg))
	g.Go(func() error {
		return sessions.Resolve(probeCtx)
	})
	g.Go(func() error {
		if err := products.Refresh(probeCtx); err != nil {
			zctx.From(probeCtx).Warn("initial catalog load failed", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "startup probe")
	}

	snap := sessions.Snapshot()
	lg.Info("Session resolved",
		zap.Stringer("phase", snap.Phase),
		zap.String("username", snap.User.Username),
	)

	ui := NewUI(
		bufio.NewReader(os.Stdin),
		os.Stdout,
		sessions,
		products,
		notify.Multi{
			notify.NewConsole(os.Stdout),
			notify.NewLogger(lg.Named("notify")),
		},
	)
	return ui.Loop(zctx.Base(ctx, lg))
}
