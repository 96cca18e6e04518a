package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the engine configuration.
type Config struct {
	Seed          int64   `yaml:"seed"`
	GeneratorType string  `yaml:"generator_type"` // "terrain" or "flat"
	ChunkSize     int     `yaml:"chunk_size"`
	VoxelSize     float32 `yaml:"voxel_size"`
	HeightChunks  int     `yaml:"height_chunks"`

	RenderDistance    int `yaml:"render_distance"`
	GenerationWorkers int `yaml:"generation_workers"`
	PhysicsWorkers    int `yaml:"physics_workers"`
	UploadBudget      int `yaml:"upload_budget"` // chunk uploads per frame

	SlotsPerBank int `yaml:"slots_per_bank"`
	MaxBanks     int `yaml:"max_banks"`

	GenerationBudget time.Duration `yaml:"generation_budget"` // per frame
	PhysicsBudget    time.Duration `yaml:"physics_budget"`    // per frame

	MaxClusterSize   int     `yaml:"max_cluster_size"`
	UnloadedIsGround bool    `yaml:"unloaded_is_ground"`
	ObjectKillY      float32 `yaml:"object_kill_y"`
	Gravity          float32 `yaml:"gravity"`

	TickRate int    `yaml:"tick_rate"` // frames per second of the engine loop
	FeedAddr string `yaml:"feed_addr"` // empty disables the renderer feed
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GeneratorType:     "terrain",
		ChunkSize:         16,
		VoxelSize:         1,
		HeightChunks:      4,
		RenderDistance:    6,
		GenerationWorkers: 4,
		PhysicsWorkers:    2,
		UploadBudget:      8,
		SlotsPerBank:      256,
		MaxBanks:          8,
		GenerationBudget:  4 * time.Millisecond,
		PhysicsBudget:     time.Millisecond,
		MaxClusterSize:    4096,
		UnloadedIsGround:  true,
		ObjectKillY:       -64,
		Gravity:           -9.81,
		TickRate:          60,
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no subsystem can run with.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"chunk_size", c.ChunkSize > 0},
		{"voxel_size", c.VoxelSize > 0},
		{"height_chunks", c.HeightChunks > 0},
		{"render_distance", c.RenderDistance > 0},
		{"generation_workers", c.GenerationWorkers > 0},
		{"physics_workers", c.PhysicsWorkers > 0},
		{"upload_budget", c.UploadBudget > 0},
		{"slots_per_bank", c.SlotsPerBank > 0},
		{"max_banks", c.MaxBanks > 0},
		{"generation_budget", c.GenerationBudget > 0},
		{"physics_budget", c.PhysicsBudget > 0},
		{"max_cluster_size", c.MaxClusterSize > 0},
		{"tick_rate", c.TickRate > 0},
	}
	var errs []error
	for _, ch := range checks {
		if !ch.ok {
			errs = append(errs, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, ch.name))
		}
	}
	switch c.GeneratorType {
	case "terrain", "flat":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown generator_type %q", ErrInvalidConfig, c.GeneratorType))
	}
	return errors.Join(errs...)
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	explicit := *cfg
	*cfg = *fromFile
	if explicitFlags["seed"] {
		cfg.Seed = explicit.Seed
	}
	if explicitFlags["generator"] {
		cfg.GeneratorType = explicit.GeneratorType
	}
	if explicitFlags["render-distance"] {
		cfg.RenderDistance = explicit.RenderDistance
	}
	if explicitFlags["generation-workers"] {
		cfg.GenerationWorkers = explicit.GenerationWorkers
	}
	if explicitFlags["physics-workers"] {
		cfg.PhysicsWorkers = explicit.PhysicsWorkers
	}
	if explicitFlags["upload-budget"] {
		cfg.UploadBudget = explicit.UploadBudget
	}
	if explicitFlags["tick-rate"] {
		cfg.TickRate = explicit.TickRate
	}
	if explicitFlags["feed-addr"] {
		cfg.FeedAddr = explicit.FeedAddr
	}
}
