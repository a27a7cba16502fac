// Command worker consumes thumbnail and welcome jobs from redis.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

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

	if err := app.RunWorker(ctx, cfg, logger); err != nil {
		logger.Errorf("worker stopped: %v", err)
		os.Exit(1)
	}
}
