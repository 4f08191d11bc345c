package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"spratt/internal/app/client/syncer"
)

const (
	DefaultProbeInterval  = 5 * time.Second
	DefaultResyncInterval = 30 * time.Second
	defaultProbeTimeout   = 3 * time.Second
)

// Prober проверяет доступность сервера
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Syncer запускает проход синхронизации
type Syncer interface {
	SyncPending(ctx context.Context) syncer.Result
	IsSyncing() bool
}

type Config struct {
	ProbeInterval  time.Duration
	ResyncInterval time.Duration
}

type Option func(*Watcher)

// WithPassHook вызывается после каждого завершенного прохода
func WithPassHook(fn func(syncer.Result)) Option {
	return func(w *Watcher) {
		w.onPass = fn
	}
}

// Watcher следит за сетью и решает, когда запускать синхронизацию
type Watcher struct {
	prober Prober
	cfg    Config
	log    *slog.Logger
	onPass func(syncer.Result)

	online  atomic.Bool
	trigger chan struct{}
	wg      sync.WaitGroup
}

// New создает наблюдатель. prober может быть nil, тогда состояние задается только через SetOnline.
func New(prober Prober, cfg Config, log *slog.Logger, opts ...Option) *Watcher {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = DefaultResyncInterval
	}

	w := &Watcher{
		prober:  prober,
		cfg:     cfg,
		log:     log.With("component", "connectivity_watcher"),
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *Watcher) IsOnline() bool {
	return w.online.Load()
}

// SetOnline задает состояние сети. Переход offline→online запрашивает проход.
func (w *Watcher) SetOnline(online bool) {
	was := w.online.Swap(online)
	if was == online {
		return
	}

	w.log.Info("connectivity changed", "online", online)
	if online {
		w.Trigger()
	}
}

// Trigger запрашивает проход синхронизации, повторные запросы схлопываются
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run запускает проходы через s, блокируется до отмены ctx и дожидается запущенных проходов
func (w *Watcher) Run(ctx context.Context, s Syncer) error {
	// первый успешный пробный запрос сам запросит проход
	w.probe(ctx)

	probeTicker := time.NewTicker(w.cfg.ProbeInterval)
	defer probeTicker.Stop()

	resyncTicker := time.NewTicker(w.cfg.ResyncInterval)
	defer resyncTicker.Stop()

	w.log.Info("watcher started",
		"probe_interval", w.cfg.ProbeInterval,
		"resync_interval", w.cfg.ResyncInterval,
	)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.log.Info("watcher stopped")
			return nil
		case <-probeTicker.C:
			w.probe(ctx)
		case <-resyncTicker.C:
			if !w.IsOnline() {
				continue
			}
			if s.IsSyncing() {
				w.log.Debug("sync in progress, skipping resync")
				continue
			}
			w.launch(ctx, s)
		case <-w.trigger:
			w.launch(ctx, s)
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	if w.prober == nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	err := w.prober.HealthCheck(probeCtx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		w.log.Debug("probe failed", "error", err)
	}

	w.SetOnline(err == nil)
}

func (w *Watcher) launch(ctx context.Context, s Syncer) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		result := s.SyncPending(ctx)
		if w.onPass != nil {
			w.onPass(result)
		}
	}()
}
