package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/grammar"
	"github.com/san-kum/branchgrow/internal/growth"
	"github.com/san-kum/branchgrow/internal/sampler"
)

const (
	MaxBranches   = engine.MaxBranches
	MaxIterations = growth.MaxIterations

	DefaultDt          = 1.0 / 60
	DefaultTicks       = 3600
	DefaultSampleEvery = 10
)

type Config struct {
	Canvas         CanvasConfig         `yaml:"canvas"`
	Branches       int                  `yaml:"branches"`
	Lifetime       int64                `yaml:"lifetime_ms"`
	Iterations     int                  `yaml:"iterations"`
	Axiom          string               `yaml:"axiom"`
	Rules          map[string]string    `yaml:"rules"`
	Segment        SegmentConfig        `yaml:"segment"`
	Turns          []sampler.TurnOption `yaml:"turns"`
	ColorSpeed     float64              `yaml:"color_speed"`
	OnlyBackground bool                 `yaml:"only_background"`
	Heading        float64              `yaml:"heading"`
	CommandOrder   string               `yaml:"command_order"`
	SyncMode       string               `yaml:"sync_mode"`
	Seed           int64                `yaml:"seed"`
	Workers        int                  `yaml:"workers"`
	Dt             float64              `yaml:"dt"`
	Ticks          int                  `yaml:"ticks"`
	SampleEvery    int                  `yaml:"sample_every"`
	Glow           GlowConfig           `yaml:"glow"`
}

type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type SegmentConfig struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// GlowConfig is carried into run metadata for renderers that apply a glow
// pass. Nothing in this module reads it.
type GlowConfig struct {
	Radius         float64 `yaml:"radius" json:"radius"`
	MinIntensity   float64 `yaml:"min_intensity" json:"min_intensity"`
	MaxIntensity   float64 `yaml:"max_intensity" json:"max_intensity"`
	Frequency      float64 `yaml:"frequency" json:"frequency"`
	WeightExponent float64 `yaml:"weight_exponent" json:"weight_exponent"`
	Brightness     float64 `yaml:"brightness" json:"brightness"`
}

func DefaultGlow() GlowConfig {
	return GlowConfig{
		Radius:         8,
		MinIntensity:   0.2,
		MaxIntensity:   0.35,
		Frequency:      1,
		WeightExponent: 2,
		Brightness:     8,
	}
}

func DefaultConfig() *Config {
	p := growth.DefaultParams()
	return &Config{
		Canvas:     CanvasConfig{Width: engine.DefaultWidth, Height: engine.DefaultHeight},
		Branches:   engine.DefaultBranches,
		Lifetime:   p.Lifetime,
		Iterations: p.Iterations,
		Axiom:      p.Axiom,
		Rules:      rulesToYAML(p.Rules),
		Segment: SegmentConfig{
			Mean:   p.SegmentMean,
			StdDev: p.SegmentStdDev,
			Min:    p.SegmentMin,
			Max:    p.SegmentMax,
		},
		Turns:        p.Turns.Clone(),
		ColorSpeed:   p.ColorSpeed,
		Heading:      p.Heading,
		CommandOrder: p.Order.String(),
		SyncMode:     engine.Barrier.String(),
		Seed:         1,
		Dt:           DefaultDt,
		Ticks:        DefaultTicks,
		SampleEvery:  DefaultSampleEvery,
		Glow:         DefaultGlow(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	engine.Logger().Debug("config loaded", "path", path, "branches", cfg.Branches, "seed", cfg.Seed)
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Turns = append([]sampler.TurnOption(nil), c.Turns...)
	if c.Rules != nil {
		out.Rules = make(map[string]string, len(c.Rules))
		for k, v := range c.Rules {
			out.Rules[k] = v
		}
	}
	return &out
}

// Params converts the growth fields.
func (c *Config) Params() (growth.Params, error) {
	order, err := growth.ParseOrder(c.CommandOrder)
	if err != nil {
		return growth.Params{}, err
	}
	rules, err := rulesFromYAML(c.Rules)
	if err != nil {
		return growth.Params{}, err
	}
	return growth.Params{
		Lifetime:       c.Lifetime,
		Iterations:     c.Iterations,
		Axiom:          c.Axiom,
		Rules:          rules,
		SegmentMean:    c.Segment.Mean,
		SegmentStdDev:  c.Segment.StdDev,
		SegmentMin:     c.Segment.Min,
		SegmentMax:     c.Segment.Max,
		Turns:          sampler.TurnTable(c.Turns).Clone(),
		ColorSpeed:     c.ColorSpeed,
		OnlyBackground: c.OnlyBackground,
		Order:          order,
		Heading:        c.Heading,
	}, nil
}

// Settings converts the config into orchestrator settings.
func (c *Config) Settings() (engine.Settings, error) {
	p, err := c.Params()
	if err != nil {
		return engine.Settings{}, err
	}
	mode, err := engine.ParseSyncMode(c.SyncMode)
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		Width:    c.Canvas.Width,
		Height:   c.Canvas.Height,
		Branches: c.Branches,
		Seed:     c.Seed,
		Workers:  c.Workers,
		Mode:     mode,
		Growth:   p,
	}, nil
}

// RunConfig returns the headless run parameters.
func (c *Config) RunConfig() engine.RunConfig {
	return engine.RunConfig{Dt: c.Dt, Ticks: c.Ticks, SampleEvery: c.SampleEvery}
}

// Validate checks every field. Errors wrap growth.ErrInvalidConfig.
func (c *Config) Validate() error {
	s, err := c.Settings()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", growth.ErrInvalidConfig, c.Dt)
	}
	if c.Ticks <= 0 {
		return fmt.Errorf("%w: ticks must be positive, got %d", growth.ErrInvalidConfig, c.Ticks)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("%w: sample_every must not be negative", growth.ErrInvalidConfig)
	}
	return nil
}

func rulesToYAML(r grammar.Rules) map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[string(k)] = v
	}
	return out
}

func rulesFromYAML(m map[string]string) (grammar.Rules, error) {
	out := make(grammar.Rules, len(m))
	for k, v := range m {
		r, size := utf8.DecodeRuneInString(k)
		if r == utf8.RuneError || size != len(k) {
			return nil, fmt.Errorf("%w: rule key %q must be a single symbol", growth.ErrInvalidConfig, k)
		}
		out[r] = v
	}
	return out, nil
}
