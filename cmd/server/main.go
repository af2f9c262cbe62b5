package main

import (
	"log"

	"gymclass/internal/app"
	"gymclass/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Sugar().Infow("Starting gymclass server",
		"environment", cfg.Environment,
		"addr", cfg.HTTPAddr)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Sugar().Fatalw("Failed to initialize application", "error", err)
	}

	if err := a.Run(); err != nil {
		logger.Sugar().Fatalw("Server stopped with error", "error", err)
	}
}
