package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"spratt/cmd/client/cmd/types"
)

const minPasswordLen = 10

var registerLogin string

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Зарегистрировать нового пользователя",
	Long: `Регистрация нового пользователя на сервере.

После регистрации выполните вход: spratt auth login`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== Регистрация нового пользователя ===")

		login, password, err := readCredentials(registerLogin)
		if err != nil {
			return err
		}

		confirm, err := readPassword("Повторите пароль: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("пароли не совпадают")
		}
		if len(password) < minPasswordLen {
			return fmt.Errorf("пароль должен содержать минимум %d символов", minPasswordLen)
		}

		if err := app.Register(cmd.Context(), login, password); err != nil {
			return fmt.Errorf("ошибка регистрации: %w", err)
		}

		fmt.Println("✅ Пользователь зарегистрирован")
		return nil
	},
}

func init() {
	RegisterCmd.Flags().StringVarP(&registerLogin, "login", "l", "", "логин пользователя")
}
