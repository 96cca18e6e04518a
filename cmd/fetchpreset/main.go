package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/voxelworld/internal/config"
)

func main() {
	var (
		src = flag.String("src", "", "preset address: local path, https URL, git::...//file.yaml")
		out = flag.String("o", "./voxelworld.yaml", "output file path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *src == "" {
		log.Error("preset source required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("fetching preset", "src", *src, "dst", *out)
	cfg, err := config.FetchAndLoad(ctx, *src, *out)
	if err != nil {
		log.Error("fetch preset", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("preset invalid", "path", *out, "error", err)
		os.Exit(1)
	}
	log.Info("preset ready", "path", *out, "generator", cfg.GeneratorType, "renderDistance", cfg.RenderDistance)
}
