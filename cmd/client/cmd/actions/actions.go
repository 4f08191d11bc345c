package actions

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
)

var listStatus string

// ActionsCmd - задачи, извлеченные сервером из расшифровок
var ActionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Задачи из расшифровок",
	Long:  `Просмотр и подтверждение задач, которые сервер извлек из текста записей.`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список задач",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		actions, err := app.Actions(cmd.Context(), listStatus)
		if err != nil {
			return fmt.Errorf("ошибка получения задач: %w", err)
		}
		if len(actions) == 0 {
			fmt.Println("Задач нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tТИП\tСТАТУС\tЗАГОЛОВОК")
		for _, a := range actions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.ActionType, colorDecision(a.Status), a.Title)
		}
		return w.Flush()
	},
}

func decideCmd(use, short string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := types.AppFrom(cmd)
			if err != nil {
				return err
			}

			if err := app.DecideAction(cmd.Context(), args[0], approve); err != nil {
				return fmt.Errorf("ошибка изменения задачи: %w", err)
			}

			fmt.Printf("✓ Задача %s: %s\n", args[0], use)
			return nil
		},
	}
}

func colorDecision(status string) string {
	switch status {
	case "approved":
		return color.GreenString(status)
	case "rejected":
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "фильтр по статусу (pending, approved, rejected)")

	ActionsCmd.AddCommand(
		listCmd,
		decideCmd("approve", "Подтвердить задачу", true),
		decideCmd("reject", "Отклонить задачу", false),
	)
}
