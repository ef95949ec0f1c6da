package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/config"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/server"
	"github.com/jathurchan/davlock/storage"
)

// daemon wires the lock store, entity-tag source and gRPC server built from
// one Config.
type daemon struct {
	cfg    *config.Config
	log    logger.Logger
	store  lock.Store
	tags   storage.EntityTagSource
	server server.DavLockServer
}

func newDaemon(ctx context.Context, cfg *config.Config, log logger.Logger) (*daemon, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	clk := clock.New()

	store := lock.NewStore(
		lock.WithDefaultTimeout(cfg.Locks.DefaultTimeout.Std()),
		lock.WithMaxTimeout(cfg.Locks.MaxTimeout.Std()),
		lock.WithMaxLocks(cfg.Locks.MaxLocks),
		lock.WithReapInterval(cfg.Locks.ReapInterval.Std()),
		lock.WithClock(clk),
		lock.WithLogger(log.WithComponent("lock")),
	)

	tags, err := storage.NewSourceFromConfig(ctx, cfg.Storage, log.WithComponent("storage"), clk)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("creating entity tag source: %w", err)
	}

	srv, err := server.NewServerBuilder().
		WithListenAddress(cfg.Server.ListenAddress).
		WithBaseURL(cfg.Precondition.BaseURL).
		WithLockStore(store).
		WithEntityTagSource(tags).
		WithTimeouts(cfg.Server.RequestTimeout.Std(), cfg.Server.ShutdownTimeout.Std()).
		WithRateLimit(
			cfg.Server.EnableRateLimit,
			cfg.Server.RateLimit,
			cfg.Server.RateLimitBurst,
			cfg.Server.RateLimitWindow.Std(),
		).
		WithKeepalive(cfg.Server.KeepaliveTime.Std(), cfg.Server.KeepaliveTimeout.Std()).
		WithLogger(log.WithComponent("server")).
		WithClock(clk).
		Build()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &daemon{
		cfg:    cfg,
		log:    log,
		store:  store,
		tags:   tags,
		server: srv,
	}, nil
}

func (d *daemon) start(ctx context.Context) error {
	if err := d.server.Start(ctx); err != nil {
		_ = d.store.Close()
		return err
	}
	d.log.Infow("davlockd started",
		"address", d.server.Addr(),
		"storage", d.cfg.Storage.Type,
		"maxLocks", d.cfg.Locks.MaxLocks)
	return nil
}

// shutdown stops the server within the configured shutdown timeout and
// then closes the store. ctx may already be cancelled.
func (d *daemon) shutdown(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	d.log.Infow("Shutting down", "timeout", d.cfg.Server.ShutdownTimeout)

	var errs []error
	if err := d.server.Stop(stopCtx); err != nil && !errors.Is(err, server.ErrServerNotStarted) {
		errs = append(errs, fmt.Errorf("stopping server: %w", err))
	}
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing lock store: %w", err))
	}
	return errors.Join(errs...)
}

// run starts the daemon and blocks until ctx ends.
func (d *daemon) run(ctx context.Context) error {
	if err := d.start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.shutdown(ctx)
}
