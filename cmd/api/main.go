// Command api serves the filevault HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/filevault/internal/app"
	"github.com/dharsanguruparan/filevault/internal/config"
	"github.com/dharsanguruparan/filevault/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.RunAPI(ctx, cfg, logger); err != nil {
		logger.Errorf("api stopped: %v", err)
		os.Exit(1)
	}
	logger.Info("api shutdown successfully")
}
