package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options holds the engine tunables. All fields have working defaults; a
// config file is never required. A zero (or omitted) value in the file means
// "use the default" — a literal 0 for radius or threshold can only be set via
// the command-line overrides.
type Options struct {
	Matching struct {
		// WindowRadius is how far (in lines) from the drift-adjusted
		// nominal position the locator searches. 0 means the default.
		WindowRadius int `yaml:"window_radius"`
		// MinConfidence is the minimum score to accept a match. Raising it
		// trades recall for fewer false-positive relocations. 0 means the
		// default.
		MinConfidence float64 `yaml:"min_confidence"`
		// AnchorConfidence is the fixed score given to pure-insertion
		// hunks, which have no context to verify.
		AnchorConfidence float64 `yaml:"anchor_confidence"`
		// ScoreWorkers bounds parallel candidate scoring within one hunk's
		// search window. 0 or 1 disables parallelism.
		ScoreWorkers int `yaml:"score_workers"`
	} `yaml:"matching"`

	Log struct {
		File        string `yaml:"file"`        // empty disables logging
		Development bool   `yaml:"development"` // readable encoder instead of JSON
	} `yaml:"log"`
}

// Default returns Options with all tunables at their default values.
func Default() *Options {
	var o Options
	o.fillDefaults()
	return &o
}

// Load reads options from a YAML file. Missing keys keep their defaults.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	o.fillDefaults()

	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &o, nil
}

func (o *Options) fillDefaults() {
	if o.Matching.WindowRadius == 0 {
		o.Matching.WindowRadius = 40
	}
	if o.Matching.MinConfidence == 0 {
		o.Matching.MinConfidence = 0.5
	}
	if o.Matching.AnchorConfidence == 0 {
		o.Matching.AnchorConfidence = 0.55
	}
	if o.Matching.ScoreWorkers == 0 {
		o.Matching.ScoreWorkers = 4
	}
}

func (o *Options) validate() error {
	if o.Matching.WindowRadius < 0 {
		return fmt.Errorf("matching.window_radius must be >= 0, got %d", o.Matching.WindowRadius)
	}
	if o.Matching.MinConfidence < 0 || o.Matching.MinConfidence > 1 {
		return fmt.Errorf("matching.min_confidence must be in [0,1], got %v", o.Matching.MinConfidence)
	}
	if o.Matching.AnchorConfidence < 0 || o.Matching.AnchorConfidence > 1 {
		return fmt.Errorf("matching.anchor_confidence must be in [0,1], got %v", o.Matching.AnchorConfidence)
	}
	return nil
}
