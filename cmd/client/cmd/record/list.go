package record

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
	"spratt/internal/app/client/staging"
)

var (
	listAll    bool
	listFormat string
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список записей в очереди",
	Long: `Показывает записи, ожидающие отправки (pending и failed).
С флагом --all показываются также записи, которые отправляются прямо сейчас.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		records, err := app.ListStaged(cmd.Context(), listAll)
		if err != nil {
			return fmt.Errorf("ошибка получения списка записей: %w", err)
		}

		if listFormat == "json" {
			return printRecordsJSON(records)
		}
		return printRecordsTable(records)
	},
}

func printRecordsTable(records []staging.StagedRecording) error {
	if len(records) == 0 {
		fmt.Println("Очередь пуста")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tСТАТУС\tРАЗМЕР\tЗАПИСАНО\tПОПЫТКИ\tОШИБКА")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
			rec.ID,
			colorStatus(rec.Status),
			rec.Audio.Size(),
			rec.CapturedAt().Format("2006-01-02 15:04:05"),
			rec.RetryCount,
			rec.LastError,
		)
	}
	return w.Flush()
}

type recordView struct {
	ID         string           `json:"id"`
	Status     staging.Status   `json:"status"`
	MimeType   string           `json:"mime_type"`
	SizeBytes  int64            `json:"size_bytes"`
	CapturedAt int64            `json:"captured_at_ms"`
	RetryCount int              `json:"retry_count"`
	LastError  string           `json:"last_error,omitempty"`
	Metadata   staging.Metadata `json:"metadata,omitempty"`
}

func printRecordsJSON(records []staging.StagedRecording) error {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{
			ID:         rec.ID,
			Status:     rec.Status,
			MimeType:   rec.MimeType(),
			SizeBytes:  rec.Audio.Size(),
			CapturedAt: rec.CapturedAtMs,
			RetryCount: rec.RetryCount,
			LastError:  rec.LastError,
			Metadata:   rec.Metadata,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

func init() {
	ListCmd.Flags().BoolVarP(&listAll, "all", "a", false, "показать все записи")
	ListCmd.Flags().StringVar(&listFormat, "format", "table", "формат вывода (table, json)")
}
