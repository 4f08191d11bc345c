package daemon

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
)

var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Фоновая синхронизация",
	Long: `Запускает фоновый процесс: следит за сетью, отправляет записи
при появлении соединения и каждые 30 секунд, забирает аудиофайлы из папки
входящих. Локально доступны /status, /sync, /ws (события) и /metrics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer stop()

		if err := app.RunDaemon(ctx); err != nil {
			return fmt.Errorf("ошибка фонового процесса: %w", err)
		}

		fmt.Println("Фоновый процесс остановлен")
		return nil
	},
}
