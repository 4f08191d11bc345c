package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
)

var loginName string

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему",
	Long: `Аутентификация на сервере.

Токен сохраняется локально. Логин становится владельцем новых записей,
поэтому войти нужно хотя бы один раз до записи без сети.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		login, password, err := readCredentials(loginName)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := app.Login(ctx, login, password); err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		fmt.Println("✅ Вход выполнен успешно")

		result, err := app.SyncNow(ctx)
		if err != nil {
			fmt.Printf("⚠️  Синхронизация не выполнена: %v\n", err)
			return nil
		}
		if result.Synced > 0 || result.Failed > 0 {
			fmt.Printf("Отправлено записей: %d, с ошибкой: %d\n", result.Synced, result.Failed)
		}

		return nil
	},
}

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из системы",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		if err := app.Logout(); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}

		fmt.Println("Токен удален. Записи в очереди сохранены.")
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&loginName, "login", "l", "", "логин пользователя")
}
