package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/kanon0/llmchat/internal/app"
	"github.com/kanon0/llmchat/internal/config"
)

// run starts the gateway: load config, take the single-instance lock,
// connect to the OneBot endpoint and serve until SIGINT/SIGTERM.
func run() error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Two gateway processes on the same account would double-reply to
	// every message, so refuse to start a second instance.
	lockPath, err := instanceLockPath()
	if err != nil {
		return err
	}
	release, err := acquireLock(lockPath)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	logger.Info("gateway starting",
		"version", AppVersion, "onebot", cfg.OneBot.URL, "model", cfg.LLM.Model)

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("gateway: %w", err)
	}

	logger.Info("gateway shut down")
	return nil
}

// instanceLockPath returns the lock file path under ~/.llmchat,
// creating the directory if needed.
func instanceLockPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".llmchat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(dir, "llmchat.lock"), nil
}

// acquireLock takes an exclusive file lock without blocking. The
// returned release must be called on shutdown.
func acquireLock(path string) (func(), error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another llmchat instance holds %s", path)
	}
	return func() { _ = lock.Unlock() }, nil
}
