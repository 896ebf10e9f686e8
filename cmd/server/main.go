package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/avalon-companion-backend/internal/config"
	"github.com/DoyleJ11/avalon-companion-backend/internal/httpapi"
	"github.com/DoyleJ11/avalon-companion-backend/internal/hub"
	"github.com/DoyleJ11/avalon-companion-backend/internal/logging"
	"github.com/DoyleJ11/avalon-companion-backend/internal/service"
	"github.com/DoyleJ11/avalon-companion-backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubOpts := []hub.Option{hub.WithLogger(log)}
	var db *store.Store
	if cfg.PersistenceEnabled() {
		db, err = store.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, db.Close()) }()
		hubOpts = append(hubOpts, hub.WithStore(db))
	} else {
		log.Info("DATABASE_URL not set, rooms live in memory only")
	}

	// Stopped explicitly once the HTTP server has drained.
	h := hub.NewHub(context.Background(), hubOpts...)
	svc := service.NewRoomService(h,
		service.WithLogger(log),
		service.WithTimeout(cfg.RequestTimeout),
	)

	if db != nil {
		if err := restore(ctx, db, svc); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(svc, log, cfg.AllowedOrigins),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			h.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

func restore(ctx context.Context, db *store.Store, svc *service.RoomService) error {
	saved, err := db.LoadRooms(ctx)
	if err != nil {
		return err
	}
	rooms := make([]service.Room, len(saved))
	for i, r := range saved {
		rooms[i] = service.Room{State: r.State, Version: r.Version}
	}
	return svc.Restore(ctx, rooms)
}
