package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/app"
)

func main() {
	cfgPath := flag.String("config", "", "path to yaml config, env vars override")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("assistant stopped: %v", err)
	}
}
