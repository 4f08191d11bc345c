package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"spratt/internal/app/client/config"
	"spratt/internal/app/client/connectivity"
	"spratt/internal/app/client/inbox"
	"spratt/internal/app/client/ingest"
	"spratt/internal/app/client/metrics"
	"spratt/internal/app/client/notify"
	"spratt/internal/app/client/staging"
	"spratt/internal/app/client/syncer"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated, run: spratt auth login")
	ErrUnsupportedAudio = errors.New("unsupported audio file")
)

type App struct {
	config  *config.Config
	log     *slog.Logger
	store   *staging.Store
	remote  *ingest.Client
	sync    *syncer.Orchestrator
	watcher *connectivity.Watcher
	metrics *metrics.Collector
	hub     *notify.Hub

	mu    sync.RWMutex
	state *AppState
}

// AppState хранит состояние клиента между запусками
type AppState struct {
	UserLogin string    `json:"user_login"`
	LastSync  time.Time `json:"last_sync"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg.StatePath)
	if err != nil {
		log.Warn("failed to load app state", "error", err)
		state = &AppState{}
	}

	store, err := staging.Open(cfg.DataPath, log)
	if err != nil {
		return nil, err
	}

	remote := ingest.New(cfg.ServerURL(), log)

	app := &App{
		config:  cfg,
		log:     log,
		store:   store,
		remote:  remote,
		metrics: metrics.New(),
		hub:     notify.NewHub(log),
		state:   state,
	}

	app.watcher = connectivity.New(remote,
		connectivity.Config{ProbeInterval: cfg.ProbeInterval, ResyncInterval: cfg.ResyncInterval},
		log, connectivity.WithPassHook(app.onPass))

	app.sync = syncer.New(store, remote, app.watcher,
		syncer.Config{RetryBudget: cfg.RetryBudget, WatchdogTimeout: cfg.WatchdogTimeout}, log)

	app.sync.AddListener(app.metrics.ObserveStatus)
	app.hub.Attach(app.sync)

	if token, err := app.GetToken(); err == nil && token != "" {
		remote.SetToken(token)
		log.Debug("token loaded from file")
	}

	return app, nil
}

func (a *App) onPass(r syncer.Result) {
	a.metrics.ObservePass(r)

	if r.Synced == 0 {
		return
	}
	a.mu.Lock()
	a.state.LastSync = time.Now()
	if err := a.saveAppState(); err != nil {
		a.log.Warn("failed to save app state", "error", err)
	}
	a.mu.Unlock()
}

func loadAppState(path string) (*AppState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AppState{}, nil
		}
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (a *App) saveAppState() error {
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.config.StatePath, data, 0600)
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) State() AppState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.state
}

func (a *App) ownerID() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.state.UserLogin == "" {
		return "", ErrNotAuthenticated
	}
	return a.state.UserLogin, nil
}

// StageFile кладет аудиофайл в локальную очередь. Сеть не нужна.
func (a *App) StageFile(ctx context.Context, path string, meta staging.Metadata) (string, error) {
	mime, ok := inbox.MimeType(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAudio, filepath.Ext(path))
	}

	owner, err := a.ownerID()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	blob, err := staging.ReadBlob(f, mime)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	if meta == nil {
		meta = staging.Metadata{}
	}
	meta[staging.MetaSource] = "cli"
	meta[staging.MetaFileName] = filepath.Base(path)
	if info, err := f.Stat(); err == nil {
		if _, ok := meta[staging.MetaCapturedAt]; !ok {
			meta[staging.MetaCapturedAt] = strconv.FormatInt(info.ModTime().UnixMilli(), 10)
		}
	}

	return a.store.Stage(ctx, blob, owner, meta)
}

func (a *App) ListStaged(ctx context.Context, all bool) ([]staging.StagedRecording, error) {
	if all {
		return a.store.List(ctx)
	}
	return a.store.ListUnsynced(ctx)
}

func (a *App) RemoveStaged(ctx context.Context, id string) error {
	return a.store.Remove(ctx, id)
}

func (a *App) Usage(ctx context.Context) (staging.Usage, error) {
	return a.store.Usage(ctx)
}

// CheckConnection проверяет соединение с сервером и обновляет состояние сети
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := a.remote.HealthCheck(ctx)
	a.watcher.SetOnline(err == nil)
	return err
}

// SyncNow выполняет один проход синхронизации
func (a *App) SyncNow(ctx context.Context) (syncer.Result, error) {
	if _, err := a.ownerID(); err != nil {
		return syncer.Result{}, err
	}
	if err := a.CheckConnection(ctx); err != nil {
		a.log.Info("server unreachable, recordings stay staged", "error", err)
	}

	result := a.sync.SyncPending(ctx)
	a.onPass(result)

	return result, nil
}

func (a *App) SyncStatus() syncer.Status {
	return a.sync.Status()
}

// RunDaemon запускает фоновую синхронизацию, папку входящих и локальный HTTP до отмены ctx
func (a *App) RunDaemon(ctx context.Context) error {
	if _, err := a.ownerID(); err != nil {
		return err
	}

	owner, _ := a.ownerID()
	in := inbox.New(inbox.Config{
		Dir:      a.config.InboxDir,
		OwnerID:  owner,
		Debounce: a.config.InboxDebounce,
	}, a.store, a.watcher.Trigger, a.log)

	srv := &http.Server{
		Addr:              a.config.DaemonAddr,
		Handler:           a.daemonRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.watcher.Run(gctx, a.sync) })
	g.Go(func() error { return in.Run(gctx) })
	g.Go(func() error {
		a.log.Info("daemon listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) daemonRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		usage, err := a.store.Usage(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Sync   syncer.Status `json:"sync"`
			Online bool          `json:"online"`
			Usage  staging.Usage `json:"usage"`
		}{a.sync.Status(), a.watcher.IsOnline(), usage})
	})
	r.Post("/sync", func(w http.ResponseWriter, _ *http.Request) {
		a.watcher.Trigger()
		w.WriteHeader(http.StatusAccepted)
	})
	r.Handle("/ws", a.hub)
	r.Handle("/metrics", a.metrics.Handler())

	return r
}

// GetToken возвращает сохраненный токен
func (a *App) GetToken() (string, error) {
	tokenBytes, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(tokenBytes), nil
}

func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	a.remote.SetToken(token)
	return nil
}

func (a *App) Register(ctx context.Context, login, password string) error {
	if err := a.remote.Register(ctx, login, password); err != nil {
		return err
	}

	a.log.Info("user registered", "login", login)
	return nil
}

// Login выполняет вход и запоминает владельца будущих записей
func (a *App) Login(ctx context.Context, login, password string) error {
	token, err := a.remote.Login(ctx, login, password)
	if err != nil {
		return err
	}

	if err := a.SaveToken(token); err != nil {
		return err
	}

	a.mu.Lock()
	a.state.UserLogin = login
	if err := a.saveAppState(); err != nil {
		a.log.Warn("failed to save app state", "error", err)
	}
	a.mu.Unlock()

	a.log.Info("logged in", "login", login)
	return nil
}

func (a *App) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.UserLogin = ""
	a.remote.SetToken("")
	if err := os.Remove(a.config.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	return a.saveAppState()
}

func (a *App) RemoteRecordings(ctx context.Context) ([]ingest.RemoteRecording, error) {
	return a.remote.ListRecordings(ctx)
}

func (a *App) Actions(ctx context.Context, status string) ([]ingest.RemoteAction, error) {
	return a.remote.ListActions(ctx, status)
}

func (a *App) DecideAction(ctx context.Context, id string, approve bool) error {
	decision := "rejected"
	if approve {
		decision = "approved"
	}
	return a.remote.DecideAction(ctx, id, decision)
}
