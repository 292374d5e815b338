// Package autostart registers the server to start with the user session.
package autostart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"

	"github.com/oshokin/attention-check/internal/logger"
)

const (
	appName        = "attention-check"
	appDisplayName = "Attention Check"
)

// App describes the autostart entry for executable reading configPath.
func App(executable, configPath string) (*autostart.App, error) {
	// Resolve symlinks if any
	resolved, err := filepath.EvalSymlinks(executable)
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}

	return &autostart.App{
		Name:        appName,
		DisplayName: appDisplayName,
		Exec:        []string{resolved, "--config", configPath},
	}, nil
}

// Set enables or disables starting the running executable at login.
func Set(ctx context.Context, enable bool, configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate running executable: %w", err)
	}

	app, err := App(executable, configPath)
	if err != nil {
		return err
	}

	switch {
	case enable && !app.IsEnabled():
		if err = app.Enable(); err != nil {
			return fmt.Errorf("enable autostart: %w", err)
		}

		logger.InfoKV(ctx, "Autostart enabled", "exec", app.Exec)
	case !enable && app.IsEnabled():
		if err = app.Disable(); err != nil {
			return fmt.Errorf("disable autostart: %w", err)
		}

		logger.Info(ctx, "Autostart disabled")
	default:
		logger.InfoKV(ctx, "Autostart already in the requested state", "enabled", enable)
	}

	return nil
}
