package config

import (
	"sort"

	"github.com/san-kum/branchgrow/internal/sampler"
)

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"lightning": with(func(c *Config) {
		c.Branches = 6
		c.Lifetime = 4000
		c.Segment = SegmentConfig{Mean: 14, StdDev: 8, Min: 8, Max: 24}
		c.Turns = []sampler.TurnOption{{Angle: 0, Weight: 0.5}, {Angle: 30, Weight: 0.25}, {Angle: -30, Weight: 0.25}}
		c.ColorSpeed = 0.05
	}),
	"dense": with(func(c *Config) {
		c.Branches = 64
		c.Iterations = 3
		c.Lifetime = 20000
		c.OnlyBackground = true
	}),
	"sparse": with(func(c *Config) {
		c.Branches = 1
		c.Segment = SegmentConfig{Mean: 30, StdDev: 10, Min: 20, Max: 40}
		c.ColorSpeed = 0.005
	}),
	"dragon": with(func(c *Config) {
		c.Branches = 2
		c.Iterations = 8
		c.CommandOrder = "forward"
		c.Turns = []sampler.TurnOption{{Angle: 90, Weight: 0.5}, {Angle: -90, Weight: 0.5}}
		c.Segment = SegmentConfig{Mean: 4, StdDev: 1, Min: 3, Max: 5}
	}),
	"fast": with(func(c *Config) {
		c.Canvas = CanvasConfig{Width: 512, Height: 320}
		c.Branches = 16
		c.Lifetime = 2000
		c.SyncMode = "relaxed"
	}),
}

func with(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
