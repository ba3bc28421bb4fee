package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dyollb/imgcli"
)

// getConfigPath returns the config file path from the environment, or empty
// when the built-in defaults should be used.
func getConfigPath() string {
	return os.Getenv("IMGCLI_CONFIG")
}

func main() {
	cfg := imgcli.DefaultConfig()
	if configPath := getConfigPath(); configPath != "" {
		loaded, err := imgcli.LoadConfig(configPath)
		if err != nil {
			slog.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	app := imgcli.NewApp("imgcli", imgcli.WithConfig(cfg))
	defer func() {
		_ = app.Close()
	}()

	registerCommands(app)

	if err := app.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
