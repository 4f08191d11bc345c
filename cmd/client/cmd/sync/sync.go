package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
	"spratt/internal/app/client"
	"spratt/internal/app/client/syncer"
)

var syncStatus bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Отправить записи из очереди на сервер",
	Long: `Выполняет один проход синхронизации: записи отправляются по одной,
в порядке записи. Отправленные удаляются из очереди, неудачные остаются
и будут повторены, пока не исчерпан лимит попыток.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}

		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	fmt.Println("=== Синхронизация ===")
	start := time.Now()

	result, err := app.SyncNow(ctx)
	if err != nil {
		return err
	}

	status := app.SyncStatus()
	if status.State == syncer.StateOffline {
		fmt.Println(color.YellowString("⚠️  Сервер недоступен, записи остаются в очереди"))
		return nil
	}

	fmt.Printf("Время выполнения: %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Отправлено: %s\n", color.GreenString("%d", result.Synced))
	if result.Failed > 0 {
		fmt.Printf("С ошибкой:  %s\n", color.RedString("%d", result.Failed))
	}
	fmt.Printf("Осталось в очереди: %d\n", status.PendingCount)

	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")

	online := color.GreenString("доступен")
	if err := app.CheckConnection(ctx); err != nil {
		online = color.RedString("недоступен")
	}
	fmt.Printf("Сервер: %s\n", online)

	usage, err := app.Usage(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения статистики: %w", err)
	}
	fmt.Printf("В очереди: %d (ожидают: %d, с ошибкой: %d)\n",
		usage.Count, usage.PendingCount, usage.FailedCount)

	if last := app.State().LastSync; !last.IsZero() {
		fmt.Printf("Последняя отправка: %s\n", last.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Последняя отправка: никогда")
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус очереди и сервера")
}
