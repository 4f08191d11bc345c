package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"spratt/internal/app/client/ingest"
	"spratt/internal/app/client/staging"
)

const (
	DefaultRetryBudget     = 3
	DefaultWatchdogTimeout = 30 * time.Second
)

var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// Store часть локального хранилища, нужная для синхронизации.
// Блокировка (lease) общая для всех процессов, открывших то же хранилище.
type Store interface {
	ListUnsynced(ctx context.Context) ([]staging.StagedRecording, error)
	MarkStatus(ctx context.Context, id string, status staging.Status, cause error) error
	Complete(ctx context.Context, id string) error
	Usage(ctx context.Context) (staging.Usage, error)
	AcquireLease(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, holder string) error
	RecoverInterrupted(ctx context.Context, inFlight ...string) (int, error)
}

// Ingester отправляет запись на сервер
type Ingester interface {
	Ingest(ctx context.Context, rec staging.StagedRecording) (ingest.Receipt, error)
}

// Connectivity сообщает, есть ли сеть
type Connectivity interface {
	IsOnline() bool
}

// Config политика синхронизации
type Config struct {
	RetryBudget     int
	WatchdogTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RetryBudget:     DefaultRetryBudget,
		WatchdogTimeout: DefaultWatchdogTimeout,
	}
}

// Result итог одного прохода синхронизации
type Result struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Orchestrator единственный владелец процесса выгрузки записей.
// Одновременно выполняется не больше одного прохода, в том числе
// среди разных процессов на одном хранилище.
type Orchestrator struct {
	store    Store
	ingester Ingester
	online   Connectivity
	cfg      Config
	log      *slog.Logger
	id       string

	mu       sync.Mutex
	running  bool
	pass     uint64
	status   Status
	inFlight map[string]struct{}

	listeners       registry[Listener]
	ingestListeners registry[IngestListener]
}

func New(store Store, ingester Ingester, online Connectivity, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = DefaultRetryBudget
	}
	if cfg.WatchdogTimeout <= 0 {
		cfg.WatchdogTimeout = DefaultWatchdogTimeout
	}

	return &Orchestrator{
		store:    store,
		ingester: ingester,
		online:   online,
		cfg:      cfg,
		log:      log.With("component", "sync_orchestrator"),
		id:       uuid.NewString(),
		status:   Status{State: StateIdle},
		inFlight: make(map[string]struct{}),
	}
}

// AddListener подписывает на изменения статуса синхронизации
func (o *Orchestrator) AddListener(fn Listener) (unsubscribe func()) {
	return o.listeners.add(fn)
}

// AddIngestListener подписывает на успешный прием записи сервером
func (o *Orchestrator) AddIngestListener(fn IngestListener) (unsubscribe func()) {
	return o.ingestListeners.add(fn)
}

// Status последний разосланный статус
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) IsSyncing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// SyncPending выгружает все неотправленные записи по одной.
// Ошибки отдельных записей не прерывают проход и наружу не возвращаются.
func (o *Orchestrator) SyncPending(ctx context.Context) Result {
	if !o.online.IsOnline() {
		o.broadcast(Status{State: StateOffline, PendingCount: o.Status().PendingCount})
		return Result{}
	}

	pass, ok := o.acquire()
	if !ok {
		o.log.Debug("sync pass already running, skipping")
		return Result{}
	}

	holder := o.holder(pass)
	leased, err := o.store.AcquireLease(ctx, holder, o.cfg.WatchdogTimeout)
	if err != nil {
		o.release(pass)
		o.log.Error("failed to acquire sync lease", "error", err)
		o.broadcast(Status{State: StateError, PendingCount: o.Status().PendingCount})
		return Result{}
	}
	if !leased {
		o.release(pass)
		o.log.Info("sync pass held by another process, skipping")
		return Result{}
	}

	watchdog := time.AfterFunc(o.cfg.WatchdogTimeout, func() {
		if !o.owns(pass) {
			return
		}
		o.releaseLease(holder)
		if o.release(pass) {
			o.log.Warn("watchdog released stuck sync pass", "pass", pass, "timeout", o.cfg.WatchdogTimeout)
		}
	})
	defer func() {
		watchdog.Stop()
		o.release(pass)
		o.releaseLease(holder)
	}()

	o.recoverInterrupted(ctx)

	records, err := o.store.ListUnsynced(ctx)
	if err != nil {
		o.log.Error("failed to list unsynced recordings", "error", err)
		o.broadcast(Status{State: StateError, PendingCount: o.Status().PendingCount})
		return Result{}
	}

	if len(records) == 0 {
		o.broadcast(Status{State: StateIdle})
		return Result{}
	}

	start := time.Now()
	o.log.Info("sync pass started", "pass", pass, "records", len(records))

	var result Result
	for i, rec := range records {
		if ctx.Err() != nil {
			o.log.Info("sync pass cancelled", "pass", pass, "processed", i)
			break
		}
		if !o.renewLease(ctx, holder) {
			o.log.Warn("sync lease lost, stopping pass", "pass", pass, "processed", i)
			break
		}

		switch o.syncOne(ctx, rec) {
		case outcomeSynced:
			result.Synced++
		case outcomeFailed:
			result.Failed++
		}

		o.broadcast(Status{State: StateSyncing, PendingCount: o.remaining(ctx, len(records)-i-1)})
	}

	remaining := o.remaining(ctx, result.Failed)
	final := StateIdle
	if remaining > 0 {
		final = StatePending
	}
	o.broadcast(Status{State: final, PendingCount: remaining})

	o.log.Info("sync pass finished",
		"pass", pass,
		"synced", result.Synced,
		"failed", result.Failed,
		"remaining", remaining,
		"duration", time.Since(start),
	)

	return result
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSynced
	outcomeFailed
)

func (o *Orchestrator) syncOne(ctx context.Context, rec staging.StagedRecording) outcome {
	log := o.log.With("id", rec.ID)

	if rec.RetryCount >= o.cfg.RetryBudget {
		log.Warn("skipping recording", "retry_count", rec.RetryCount, "last_error", rec.LastError,
			"error", ErrRetryBudgetExhausted)
		return outcomeFailed
	}

	o.track(rec.ID)
	defer o.untrack(rec.ID)

	if err := o.store.MarkStatus(ctx, rec.ID, staging.StatusUploading, nil); err != nil {
		if errors.Is(err, staging.ErrNotFound) {
			log.Info("recording removed before upload")
			return outcomeSkipped
		}
		log.Error("failed to mark uploading", "error", err)
		return outcomeFailed
	}

	receipt, err := o.ingester.Ingest(ctx, rec)
	if err != nil {
		log.Warn("upload failed", "retry_count", rec.RetryCount+1, "error", err)
		if markErr := o.store.MarkStatus(ctx, rec.ID, staging.StatusFailed, err); markErr != nil {
			log.Error("failed to mark failed", "error", markErr)
		}
		return outcomeFailed
	}

	if err := o.store.Complete(ctx, rec.ID); err != nil {
		// сервер запись уже принял, локальная копия уйдет повторно после восстановления
		if errors.Is(err, staging.ErrNotFound) {
			log.Info("recording removed during upload")
		} else {
			log.Error("failed to complete uploaded recording", "error", err)
		}
	}

	log.Debug("recording uploaded", "remote_id", receipt.ID)
	for _, fn := range o.ingestListeners.snapshot() {
		fn(receipt)
	}

	return outcomeSynced
}

// remaining количество записей в хранилище; fallback используется, если хранилище не ответило
func (o *Orchestrator) remaining(ctx context.Context, fallback int) int {
	usage, err := o.store.Usage(ctx)
	if err != nil {
		o.log.Debug("usage unavailable", "error", err)
		return fallback
	}
	return usage.Count
}

func (o *Orchestrator) holder(pass uint64) string {
	return fmt.Sprintf("%s/%d", o.id, pass)
}

func (o *Orchestrator) renewLease(ctx context.Context, holder string) bool {
	ok, err := o.store.AcquireLease(ctx, holder, o.cfg.WatchdogTimeout)
	if err != nil {
		o.log.Error("failed to renew sync lease", "error", err)
		return false
	}
	return ok
}

func (o *Orchestrator) releaseLease(holder string) {
	if err := o.store.ReleaseLease(context.Background(), holder); err != nil {
		o.log.Warn("failed to release sync lease", "error", err)
	}
}

// recoverInterrupted возвращает в очередь записи, брошенные упавшим процессом.
// Под блокировкой в uploading могут быть только записи этого процесса.
func (o *Orchestrator) recoverInterrupted(ctx context.Context) {
	n, err := o.store.RecoverInterrupted(ctx, o.inFlightIDs()...)
	if err != nil {
		o.log.Error("failed to recover interrupted uploads", "error", err)
		return
	}
	if n > 0 {
		o.log.Info("recovered interrupted uploads", "count", n)
	}
}

func (o *Orchestrator) track(id string) {
	o.mu.Lock()
	o.inFlight[id] = struct{}{}
	o.mu.Unlock()
}

func (o *Orchestrator) untrack(id string) {
	o.mu.Lock()
	delete(o.inFlight, id)
	o.mu.Unlock()
}

func (o *Orchestrator) inFlightIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.inFlight))
	for id := range o.inFlight {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) acquire() (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return 0, false
	}
	o.running = true
	o.pass++

	return o.pass, true
}

func (o *Orchestrator) owns(pass uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running && o.pass == pass
}

// release снимает флаг, только если он принадлежит этому проходу
func (o *Orchestrator) release(pass uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running || o.pass != pass {
		return false
	}
	o.running = false

	return true
}

func (o *Orchestrator) broadcast(st Status) {
	o.mu.Lock()
	o.status = st
	o.mu.Unlock()

	for _, fn := range o.listeners.snapshot() {
		fn(st)
	}
}
