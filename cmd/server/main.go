// Command server runs the salesboard admin dashboard.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/simp-lee/salesboard/internal/app"
	"github.com/simp-lee/salesboard/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		fatal("create app", err)
	}

	if err := a.Run(); err != nil {
		fatal("run server", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err), slog.String("config", flag.Lookup("config").Value.String()))
	os.Exit(1)
}
