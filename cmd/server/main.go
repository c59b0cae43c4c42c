package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"detectboard/internal/app"
	"detectboard/internal/config"
)

func main() {
	cfg := config.Load()

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🚀 Detection board\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", cfg.Port)
	fmt.Printf("📁 Images: %s\n", cfg.ImageDirectory)
	fmt.Printf("🤖 Model: %s (%s)\n", cfg.ModelPath, cfg.ModelFormat)

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
