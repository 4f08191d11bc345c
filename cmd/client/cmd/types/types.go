package types

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"spratt/internal/app/client"
)

type contextKey string

// ClientAppKey ключ приложения в контексте команды
const ClientAppKey contextKey = "client_app"

// AppFrom достает приложение из контекста команды
func AppFrom(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

func WithApp(ctx context.Context, app *client.App) context.Context {
	return context.WithValue(ctx, ClientAppKey, app)
}
