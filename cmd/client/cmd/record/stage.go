package record

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
	"spratt/internal/app/client/staging"
)

var (
	stageFile     string
	stageDuration int64
	syncAfter     bool
)

var StageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Поставить аудиофайл в очередь",
	Long: `Сохраняет аудиофайл в локальную очередь. Сеть не нужна:
запись уйдет на сервер при следующей синхронизации.`,
	Example: `  spratt record stage --file memo.webm
  spratt record stage --file call.m4a --duration 42000 --sync`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		if stageFile == "" {
			return fmt.Errorf("укажите файл: --file")
		}

		meta := staging.Metadata{}
		if stageDuration > 0 {
			meta[staging.MetaDurationMs] = strconv.FormatInt(stageDuration, 10)
		}

		id, err := app.StageFile(cmd.Context(), stageFile, meta)
		if err != nil {
			return fmt.Errorf("ошибка постановки в очередь: %w", err)
		}

		fmt.Printf("✓ Запись сохранена: %s\n", id)

		if syncAfter {
			result, err := app.SyncNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Отправлено: %d, с ошибкой: %d, статус: %s\n",
				result.Synced, result.Failed, app.SyncStatus().State)
		}

		return nil
	},
}

func init() {
	StageCmd.Flags().StringVarP(&stageFile, "file", "f", "", "путь к аудиофайлу")
	StageCmd.Flags().Int64Var(&stageDuration, "duration", 0, "длительность записи в миллисекундах")
	StageCmd.Flags().BoolVar(&syncAfter, "sync", false, "сразу попробовать отправить")
}
