package sim

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	if cfg.World.InstanceCount <= 0 {
		t.Fatalf("expected a positive default instance_count, got %d", cfg.World.InstanceCount)
	}
	if cfg.Derived.PaddedCount == 0 || cfg.Derived.PaddedCount&(cfg.Derived.PaddedCount-1) != 0 {
		t.Fatalf("PaddedCount %d is not a power of two", cfg.Derived.PaddedCount)
	}
	if cfg.Derived.PaddedCount < uint32(cfg.World.InstanceCount) {
		t.Fatalf("PaddedCount %d is smaller than InstanceCount %d", cfg.Derived.PaddedCount, cfg.World.InstanceCount)
	}
	wantDim := cfg.Derived.GridDim
	if cfg.Derived.TotalCells != wantDim*wantDim*wantDim {
		t.Fatalf("TotalCells %d != GridDim^3 %d", cfg.Derived.TotalCells, wantDim*wantDim*wantDim)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "zero boundary rejected",
			mutate:  func(c *Config) { c.World.Boundary = 0 },
			wantErr: true,
		},
		{
			name:    "grid smaller than sphere diameter rejected",
			mutate:  func(c *Config) { c.World.GridSize = c.World.MaxRadius },
			wantErr: true,
		},
		{
			name:    "zero instance count rejected",
			mutate:  func(c *Config) { c.World.InstanceCount = 0 },
			wantErr: true,
		},
		{
			name:    "valid config accepted",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatalf("LoadConfig(\"\") returned error: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected a ConfigError, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tc.wantErr {
				if _, ok := err.(*ConfigError); !ok {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
			}
		})
	}
}

func TestPaddedCountPowerOfTwoBoundary(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") returned error: %v", err)
	}
	cfg.World.InstanceCount = 1
	cfg.computeDerived()
	if cfg.Derived.PaddedCount != 1 {
		t.Fatalf("expected PaddedCount 1 for InstanceCount 1, got %d", cfg.Derived.PaddedCount)
	}

	cfg.World.InstanceCount = 257
	cfg.computeDerived()
	if cfg.Derived.PaddedCount != 512 {
		t.Fatalf("expected PaddedCount 512 for InstanceCount 257, got %d", cfg.Derived.PaddedCount)
	}
}
