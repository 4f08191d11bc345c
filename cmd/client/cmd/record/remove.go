package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
)

var RemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Удалить запись из очереди",
	Long:  `Удаляет запись из локальной очереди без отправки. Повторное удаление не считается ошибкой.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		if err := app.RemoveStaged(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}

		fmt.Printf("✓ Запись %s удалена\n", args[0])
		return nil
	},
}
