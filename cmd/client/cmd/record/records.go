package record

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spratt/internal/app/client/staging"
)

// RecordCmd - родительская команда для операций с локальной очередью записей
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Локальная очередь записей",
	Long:  `Постановка записей в очередь, просмотр, удаление и занятое место.`,
}

func init() {
	RecordCmd.AddCommand(StageCmd, ListCmd, RemoveCmd, UsageCmd)
}

func colorStatus(s staging.Status) string {
	switch s {
	case staging.StatusPending:
		return color.YellowString(s.String())
	case staging.StatusUploading:
		return color.CyanString(s.String())
	case staging.StatusUploaded:
		return color.GreenString(s.String())
	case staging.StatusFailed:
		return color.RedString(s.String())
	default:
		return s.String()
	}
}
