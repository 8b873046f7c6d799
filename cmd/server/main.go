package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/app"
	"github.com/otonielcp/eagles-fc-website-sub000/internal/config"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New("shop-checkout", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application exited with error", "error", err)
		os.Exit(1)
	}

	log.Info("service stopped")
}
