// Command apiserver runs the clinsignal HTTP API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/clinsignal/clinsignal/internal/config"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/interfaces/cli"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting clinsignal api server",
		logging.String("version", cli.Version),
		logging.Int("port", cfg.Server.Port),
	)

	if err := cli.RunServer(context.Background(), cfg, logger); err != nil {
		logger.Error("server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to environment and
// defaults when the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if path != defaultConfigPath {
			return nil, err
		}
		fmt.Fprintln(os.Stderr, "warning: no config file found, using defaults")
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
