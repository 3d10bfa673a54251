// Package sim implements the GPU-resident broad-phase and narrow-phase collision
// pipeline: grid assignment, bitonic sort, cell range construction, and penalty-
// method contact integration, run as WebGPU compute shaders.
package sim

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config_defaults.yaml
var defaultsYAML []byte

// Config holds the scalar simulation configuration loaded at startup. Only
// TimeStep may be updated between sub-steps; Boundary and GridSize are fixed
// for the lifetime of a Manager.
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Physics PhysicsConfig `yaml:"physics"`

	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the cube geometry and grid resolution.
type WorldConfig struct {
	Boundary      float32 `yaml:"boundary"`        // half-extent of the cube
	GridSize      float32 `yaml:"grid_size"`       // cell side length
	InstanceCount int     `yaml:"instance_count"`  // number of spheres seeded at init
	MaxRadius     float32 `yaml:"max_radius"`       // largest sphere radius; validated against grid_size
	MinRadius     float32 `yaml:"min_radius"`
}

// PhysicsConfig holds the sub-step integration constants. Stiffness, Gravity,
// and Drag are uploaded into the GPU Parameters buffer (sim/types.GPUParameters)
// and read by sim/shaders/integrate.wgsl at runtime rather than baked in as
// WGSL constants, so a scenario can zero gravity or drag without a shader
// recompile; the reference model in sim/reference.go uses these same values
// so CPU and GPU runs of the same config can be compared directly. Restitution
// is carried alongside them but is advisory only: the current boundary rule
// reflects velocity with coefficient 1, not Restitution.
type PhysicsConfig struct {
	TimeStep    float32 `yaml:"time_step"`
	SubSteps    int     `yaml:"sub_steps"`
	Stiffness   float32 `yaml:"stiffness"`
	Gravity     float32 `yaml:"gravity"`
	Drag        float32 `yaml:"drag"`
	Restitution float32 `yaml:"restitution"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	GridDim      uint32 // cells per axis: ceil(2*boundary/grid_size + 0.5)
	TotalCells   uint32 // GridDim^3
	PaddedCount  uint32 // InstanceCount rounded up to the next power of two
}

// global holds the loaded configuration for package-level callers that use
// MustInit/Cfg instead of threading a *Config through explicitly.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("sim: config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("sim: config: Cfg() called before Init()")
	}
	return global
}

// LoadConfig loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used. Validates the
// §3 invariants and fails with ConfigError if they do not hold.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("sim: parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sim: reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("sim: parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.World.Boundary <= 0 {
		return &ConfigError{Msg: "boundary must be > 0"}
	}
	if c.World.GridSize < 2*c.World.MaxRadius {
		return &ConfigError{Msg: "grid_size must be >= 2*max_radius"}
	}
	if c.World.InstanceCount <= 0 {
		return &ConfigError{Msg: "instance_count must be > 0"}
	}
	return nil
}

func (c *Config) computeDerived() {
	dim := uint32(math.Ceil(float64(2*c.World.Boundary/c.World.GridSize) + 0.5))
	c.Derived.GridDim = dim
	c.Derived.TotalCells = dim * dim * dim

	padded := uint32(1)
	for padded < uint32(c.World.InstanceCount) {
		padded <<= 1
	}
	c.Derived.PaddedCount = padded
}
