package main

import (
	"context"
	"os"
	"os/signal"
	clts "polyhawk/clients"
	"polyhawk/config"
	"polyhawk/internal/app"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load config from environment variables
	cfg := config.Load()
	logger.Info("starting polyhawk", zap.Bool("isProd", cfg.IsProd))

	if result := cfg.Validate(); !result.Valid {
		for _, e := range result.Errors {
			logger.Error("invalid config",
				zap.String("field", e.Field),
				zap.String("message", e.Message),
			)
		}
		logger.Fatal("config validation failed")
	}

	logger.Info("instantiating clients")
	clients := clts.New(logger, cfg)
	defer clients.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, cfg)

	// The runner doubles as the bot command handler.
	clients.Telegram.SetCommandHandler(runner)
	if clients.Telegram.Enabled() {
		go clients.Telegram.RunCommandLoop(ctx)
	}

	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}
}
