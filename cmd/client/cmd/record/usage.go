package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
)

var UsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Сколько места занимает очередь",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		usage, err := app.Usage(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения статистики: %w", err)
		}

		fmt.Printf("Записей в очереди: %d\n", usage.Count)
		fmt.Printf("  ожидают отправки: %d\n", usage.PendingCount)
		fmt.Printf("  с ошибкой:        %d\n", usage.FailedCount)
		fmt.Printf("Занято: %s\n", humanBytes(usage.TotalBytes))
		return nil
	},
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
