package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jirevwe/tilequeue/internal/cli"
	"github.com/jirevwe/tilequeue/internal/config"
)

func main() {
	cfg, err := loadConfig(os.Getenv("TILEQUEUE_CONFIG"), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cli.Execute(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig fails when an explicitly named config file can't be used, since
// falling back would point the CLI at the default queue location. Without an
// explicit file a broken tilequeue.yaml only warns.
func loadConfig(path string, warn io.Writer) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}

	if path != "" {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	fmt.Fprintf(warn, "Warning: Failed to load config: %v\n", err)
	fmt.Fprintf(warn, "Using default configuration\n")
	return config.DefaultConfig(), nil
}
