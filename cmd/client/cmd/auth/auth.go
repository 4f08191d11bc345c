package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// AuthCmd - родительская команда для операций с пользователем
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Управление пользователем",
	Long:  `Регистрация, вход и выход.`,
}

func init() {
	AuthCmd.AddCommand(RegisterCmd, LoginCmd, LogoutCmd)
}

// readCredentials запрашивает логин и пароль. Пароль читается без эха, если stdin это терминал.
func readCredentials(loginFlag string) (string, string, error) {
	login := strings.TrimSpace(loginFlag)
	if login == "" {
		fmt.Print("Login: ")
		_, _ = fmt.Scanln(&login)
	}
	// логин хранится в нижнем регистре, он же владелец записей в очереди
	login = strings.ToLower(login)
	if login == "" {
		return "", "", fmt.Errorf("логин не может быть пустым")
	}

	password, err := readPassword("Пароль: ")
	if err != nil {
		return "", "", err
	}

	return login, password, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var password string
		_, _ = fmt.Scanln(&password)
		return password, nil
	}

	password, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return string(password), nil
}
