// Package config holds the knobs of the batch pipeline and loads them from
// JSON or YAML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cyclopcam/logs"
	"gopkg.in/yaml.v3"

	"github.com/Noofbiz/mobiledetect/augment"
	"github.com/Noofbiz/mobiledetect/datasets"
	"github.com/Noofbiz/mobiledetect/encode"
	"github.com/Noofbiz/mobiledetect/errs"
)

// Config configures the batch pipeline. Zero values are replaced by the
// values of Default in WithDefaults.
type Config struct {
	ResizeHeight   int `json:"resize_height" yaml:"resize_height"`
	ResizeWidth    int `json:"resize_width" yaml:"resize_width"`
	CoverageHeight int `json:"coverage_height" yaml:"coverage_height"`
	CoverageWidth  int `json:"coverage_width" yaml:"coverage_width"`
	BoxesHeight    int `json:"boxes_height" yaml:"boxes_height"`
	BoxesWidth     int `json:"boxes_width" yaml:"boxes_width"`

	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// Stage is train, validation or test.
	Stage string `json:"stage" yaml:"stage"`
	// Model is complete, coverage, region or pooling.
	Model string `json:"model" yaml:"model"`

	Seed    uint64 `json:"seed" yaml:"seed"`
	Workers int    `json:"workers" yaml:"workers"`
	// Shuffle, when non-zero, permutes the sample order with this seed.
	Shuffle int64 `json:"shuffle" yaml:"shuffle"`
}

// Default returns the stock configuration: 224x224 images, 7x7 grids,
// batches of 12, training stage, complete model.
func Default() Config {
	return Config{
		ResizeHeight:   224,
		ResizeWidth:    224,
		CoverageHeight: 7,
		CoverageWidth:  7,
		BoxesHeight:    7,
		BoxesWidth:     7,
		BatchSize:      12,
		Stage:          augment.StageTrain.String(),
		Model:          datasets.ModeComplete.String(),
		Workers:        runtime.NumCPU(),
	}
}

// Load reads a .json, .yaml or .yml file and fills unset fields from
// Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: config file %s", errs.ErrNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var c Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		return Config{}, fmt.Errorf("%w: unsupported config extension %q", errs.ErrInvalidArgument, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config %s: %v", errs.ErrFormat, path, err)
	}
	return c.WithDefaults(), nil
}

// WithDefaults returns c with every zero field replaced by its default.
func (c Config) WithDefaults() Config {
	d := Default()
	fill := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&c.ResizeHeight, d.ResizeHeight)
	fill(&c.ResizeWidth, d.ResizeWidth)
	fill(&c.CoverageHeight, d.CoverageHeight)
	fill(&c.CoverageWidth, d.CoverageWidth)
	fill(&c.BoxesHeight, d.BoxesHeight)
	fill(&c.BoxesWidth, d.BoxesWidth)
	fill(&c.BatchSize, d.BatchSize)
	fill(&c.Workers, d.Workers)
	if c.Stage == "" {
		c.Stage = d.Stage
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	return c
}

// Validate checks sizes, stage and model.
func (c Config) Validate() error {
	sizes := []struct {
		name string
		v    int
	}{
		{"resize_height", c.ResizeHeight},
		{"resize_width", c.ResizeWidth},
		{"coverage_height", c.CoverageHeight},
		{"coverage_width", c.CoverageWidth},
		{"boxes_height", c.BoxesHeight},
		{"boxes_width", c.BoxesWidth},
		{"batch_size", c.BatchSize},
	}
	for _, s := range sizes {
		if s.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", errs.ErrInvalidArgument, s.name, s.v)
		}
	}
	if _, err := augment.ParseStage(c.Stage); err != nil {
		return err
	}
	if _, err := datasets.ParseMode(c.Model); err != nil {
		return err
	}
	return nil
}

// SequenceOptions validates c and converts it into datasets options.
func (c Config) SequenceOptions(log logs.Log) (datasets.SequenceOptions, error) {
	if err := c.Validate(); err != nil {
		return datasets.SequenceOptions{}, err
	}
	stage, _ := augment.ParseStage(c.Stage)
	mode, _ := datasets.ParseMode(c.Model)
	return datasets.SequenceOptions{
		Image:     encode.Shape{Height: c.ResizeHeight, Width: c.ResizeWidth},
		Coverage:  encode.Shape{Height: c.CoverageHeight, Width: c.CoverageWidth},
		Grid:      encode.Shape{Height: c.BoxesHeight, Width: c.BoxesWidth},
		BatchSize: c.BatchSize,
		Stage:     stage,
		Mode:      mode,
		Seed:      c.Seed,
		Workers:   c.Workers,
		Log:       log,
	}, nil
}
