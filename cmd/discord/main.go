package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "server-warden/internal/command"

	"server-warden/internal/config"
	"server-warden/internal/discord"
	"server-warden/internal/storage"
)

func main() {
	log.Println("[INFO] Starting server-warden...")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal("[ERR] Failed to load config: ", err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal("[ERR] Failed to open storage: ", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Println("[ERR] Failed to close storage:", err)
		}
	}()

	if err := discord.StartBot(ctx, cfg, store); err != nil {
		log.Fatal("[ERR] Bot exited: ", err)
	}

	log.Println("[INFO] Shutdown complete")
}
