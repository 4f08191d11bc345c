// Сервер приема записей:
// регистрация и аутентификация пользователей;
// прием аудио, идемпотентный по идентификатору записи на клиенте;
// расшифровка и извлечение действий (фоновый воркер);
// одобрение или отклонение действий владельцем.

// GET  /api/v1/health                    # Состояние сервиса (публичный)
// POST /api/v1/auth/register             # Регистрация (публичный)
// POST /api/v1/auth/login                # Логин (публичный)
// POST /api/v1/recordings                # Принять запись (auth)
// GET  /api/v1/recordings                # Список записей (auth)
// GET  /api/v1/recordings/{id}           # Запись с расшифровкой (auth)
// GET  /api/v1/actions                   # Список действий (auth)
// POST /api/v1/actions/{id}/decision     # Решение по действию (auth)
// GET  /metrics                          # Prometheus

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	actionAPI "spratt/internal/app/server/api/http/action"
	healthAPI "spratt/internal/app/server/api/http/health"
	"spratt/internal/app/server/api/http/middleware"
	"spratt/internal/app/server/api/http/middleware/auth"
	"spratt/internal/app/server/api/http/middleware/logger"
	metricsMW "spratt/internal/app/server/api/http/middleware/metrics"
	recordingAPI "spratt/internal/app/server/api/http/recording"
	userAPI "spratt/internal/app/server/api/http/user"
	"spratt/internal/app/server/config"
	"spratt/internal/app/server/metrics"
	"spratt/internal/domain/action"
	"spratt/internal/domain/recording"
	"spratt/internal/domain/session"
	"spratt/internal/domain/user"
	"spratt/internal/infrastructure/storage/postgres"
)

// Deps зависимости HTTP API
type Deps struct {
	Config   *config.Config
	Storage  *postgres.Storage
	Blobs    recording.BlobStore
	Sessions *session.Service
	Metrics  *metrics.Collector
	// OnIngest вызывается после приема новой записи
	OnIngest func()
	// Transcription запущен ли воркер расшифровки
	Transcription bool
}

type Handlers struct {
	Health    *healthAPI.Handler
	User      *userAPI.Handler
	Recording *recordingAPI.Handler
	Action    *actionAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)

	humaConfig := huma.DefaultConfig("Spratt API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Recording.SetupRoutes(API)
	h.Action.SetupRoutes(API)

	mux.Handle("/metrics", deps.Metrics.Handler())

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	authMW := auth.New(deps.Sessions, log)
	loggerMW := logger.New(log)
	requestMetrics := metricsMW.New(deps.Metrics)
	middlewares := middleware.NewContainer()

	middlewares.Add(requestMetrics.Middleware())
	healthHandler := healthAPI.NewHandler(deps.Storage, deps.Transcription, log, middlewares.GetAllAndClear())

	userRepo := postgres.NewUserRepository(deps.Storage, log)
	userService := user.NewService(userRepo, user.NewCredentialsValidator(), log)
	middlewares.Add(loggerMW.Middleware(), requestMetrics.Middleware())
	userHandler := userAPI.NewHandler(userService, deps.Sessions, log, middlewares.GetAllAndClear())

	onIngest := func() {
		deps.Metrics.RecordingIngested()
		if deps.OnIngest != nil {
			deps.OnIngest()
		}
	}
	recordingRepo := postgres.NewRecordingRepository(deps.Storage, log)
	recordingService := recording.NewService(recordingRepo, deps.Blobs, log, recording.WithIngestHook(onIngest))
	middlewares.Add(loggerMW.Middleware(), requestMetrics.Middleware(), authMW.Middleware())
	recordingHandler := recordingAPI.NewHandler(recordingService, deps.Config.Server.MaxUploadBytes, log, middlewares.GetAllAndClear())

	actionRepo := postgres.NewActionRepository(deps.Storage, log)
	actionService := action.NewService(actionRepo, log)
	middlewares.Add(loggerMW.Middleware(), requestMetrics.Middleware(), authMW.Middleware())
	actionHandler := actionAPI.NewHandler(actionService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:    healthHandler,
		User:      userHandler,
		Recording: recordingHandler,
		Action:    actionHandler,
	}
}
