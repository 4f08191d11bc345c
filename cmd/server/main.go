package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"spratt/internal/app/server/api"
	"spratt/internal/app/server/config"
	"spratt/internal/app/server/metrics"
	"spratt/internal/domain/session"
	"spratt/internal/domain/transcription"
	"spratt/internal/infrastructure/migration"
	"spratt/internal/infrastructure/objectstore"
	"spratt/internal/infrastructure/speech"
	"spratt/internal/infrastructure/storage/postgres"
	"spratt/internal/utils/logger"
)

const (
	shutdownTimeout        = 15 * time.Second
	sessionCleanupInterval = time.Hour
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(ctx, cfg, migration.DefaultEngine)
	if err != nil {
		return err
	}
	defer storage.Close()

	blobs, err := objectstore.New(cfg.Storage.ObjectsPath, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	sessions := session.NewService(postgres.NewSessionRepository(storage, log), cfg.Session.TTL, log)

	var worker *transcription.Worker
	if cfg.SpeechEnabled() {
		transcriber := speech.New(speech.Config{
			Endpoint: cfg.Speech.Endpoint,
			Key:      cfg.Speech.Key,
			Language: cfg.Speech.Language,
			Timeout:  cfg.Speech.Timeout,
		}, log)
		worker = transcription.NewWorker(postgres.NewTranscriptionQueue(storage, log), blobs, transcriber,
			transcription.Config{
				PollInterval: cfg.Worker.PollInterval,
				MaxAttempts:  cfg.Worker.MaxAttempts,
			}, log)
		worker.SetObserver(m.ObserveTranscription)
	} else {
		log.Warn("speech service not configured, recordings stay pending")
	}

	deps := api.Deps{
		Config:   cfg,
		Storage:  storage,
		Blobs:    blobs,
		Sessions: sessions,
		Metrics:  m,
	}
	if worker != nil {
		deps.OnIngest = worker.Wake
		deps.Transcription = true
	}

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(deps, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}

	g.Go(func() error {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := sessions.Cleanup(gctx); err != nil {
					log.Warn("session cleanup failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
