// Package app wires configuration, the model runtime, tools, sessions
// and the IM transport into a running gateway.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"

	"github.com/kanon0/llmchat/internal/bot"
	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/onebot"
	"github.com/kanon0/llmchat/internal/session"
)

// App is the assembled gateway.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Genkit  *genkit.Genkit
	Store   *session.Store
	Gateway *bot.Gateway
	Client  *onebot.Client

	otelCleanup func()
}

// Run serves the OneBot connection until ctx is cancelled, then waits
// for in-flight dialogue turns to finish.
func (a *App) Run(ctx context.Context) error {
	err := a.Client.Run(ctx)
	a.Gateway.Wait()
	return err
}

// Close releases background resources. Safe to call after a failed
// Setup; only initialized components are touched.
func (a *App) Close() {
	if a.Gateway != nil {
		a.Gateway.Wait()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
}
