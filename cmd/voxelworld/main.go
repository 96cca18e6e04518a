package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/voxelworld/internal/config"
	"github.com/OCharnyshevich/voxelworld/internal/engine"
)

func main() {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "path to a YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world seed")
	flag.StringVar(&cfg.GeneratorType, "generator", cfg.GeneratorType, "world generator: terrain or flat")
	flag.IntVar(&cfg.RenderDistance, "render-distance", cfg.RenderDistance, "streaming radius in chunks")
	flag.IntVar(&cfg.GenerationWorkers, "generation-workers", cfg.GenerationWorkers, "chunk generation workers")
	flag.IntVar(&cfg.PhysicsWorkers, "physics-workers", cfg.PhysicsWorkers, "collider build workers")
	flag.IntVar(&cfg.UploadBudget, "upload-budget", cfg.UploadBudget, "chunk uploads per frame")
	flag.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "frames per second")
	flag.StringVar(&cfg.FeedAddr, "feed-addr", cfg.FeedAddr, "renderer feed listen address, empty to disable")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			log.Error("load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, err := engine.New(cfg, log)
	if err != nil {
		log.Error("create engine", "error", err)
		os.Exit(1)
	}
	if err := eng.Run(ctx); err != nil {
		log.Error("engine error", "error", err)
		os.Exit(1)
	}
}
