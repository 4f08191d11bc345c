package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"spratt/cmd/client/cmd/actions"
	"spratt/cmd/client/cmd/auth"
	"spratt/cmd/client/cmd/daemon"
	"spratt/cmd/client/cmd/record"
	"spratt/cmd/client/cmd/sync"
	"spratt/cmd/client/cmd/types"
	"spratt/internal/app/client"
	"spratt/internal/app/client/config"
	"spratt/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	debug     bool
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "spratt",
	Short: "Spratt - офлайн очередь голосовых заметок",
	Long: `Spratt сохраняет записи локально, даже без сети,
и отправляет их на сервер, как только соединение восстановится.

На сервере записи расшифровываются, а из текста извлекаются задачи.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	switch {
	case debug:
		log = logger.New("local")
	case cfg.IsLocal() && cmd.Name() != "daemon":
		log = logger.NewQuiet()
	default:
		log = logger.New(cfg.Env)
	}

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	cmd.SetContext(types.WithApp(cmd.Context(), app))
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера (host:port)")

	rootCmd.AddCommand(
		auth.AuthCmd,
		record.RecordCmd,
		sync.SyncCmd,
		daemon.DaemonCmd,
		actions.ActionsCmd,
	)
}
