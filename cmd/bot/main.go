package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"deltabot/config"
	"deltabot/internal/bot"
	"deltabot/internal/logger"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := config.Load()
	cfg.Validate()
	logger.Init("deltabot", logger.ParseLevel(cfg.LogLevel))

	svc, err := bot.New(cfg)
	if err != nil {
		log.Fatalf("[bot] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[bot] fatal: %v", err)
	}
}
