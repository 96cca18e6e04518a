package config

import "fmt"

// Settings guards the Config values that may change while the engine runs.
// Setters write through to the wrapped Config and report whether the value
// changed, so the caller knows to rebuild the dependent subsystem.
type Settings struct {
	cfg *Config
}

func NewSettings(cfg *Config) *Settings { return &Settings{cfg: cfg} }

func (s *Settings) RenderDistance() int    { return s.cfg.RenderDistance }
func (s *Settings) GenerationWorkers() int { return s.cfg.GenerationWorkers }
func (s *Settings) PhysicsWorkers() int    { return s.cfg.PhysicsWorkers }
func (s *Settings) UploadBudget() int      { return s.cfg.UploadBudget }

// SetRenderDistance changes the streaming radius. A change requires the GPU
// allocator to be reallocated.
func (s *Settings) SetRenderDistance(n int) (bool, error) {
	return set(&s.cfg.RenderDistance, n, "render_distance")
}

// SetGenerationWorkers changes the generation pool size. A change requires
// a pool restart.
func (s *Settings) SetGenerationWorkers(n int) (bool, error) {
	return set(&s.cfg.GenerationWorkers, n, "generation_workers")
}

// SetPhysicsWorkers changes the collider pool size. A change requires a
// pool restart.
func (s *Settings) SetPhysicsWorkers(n int) (bool, error) {
	return set(&s.cfg.PhysicsWorkers, n, "physics_workers")
}

func (s *Settings) SetUploadBudget(n int) (bool, error) {
	return set(&s.cfg.UploadBudget, n, "upload_budget")
}

func set(field *int, v int, name string) (bool, error) {
	if v <= 0 {
		return false, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v)
	}
	if *field == v {
		return false, nil
	}
	*field = v
	return true, nil
}
