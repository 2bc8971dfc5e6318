// Package config loads generation settings from TOML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sgimage "scenegen/internal/image"
	"scenegen/internal/inpaint"
	"scenegen/internal/synth"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file settings.
const (
	EnvDataDir    = "SCENEGEN_DATA_DIR"
	EnvOutputDir  = "SCENEGEN_OUTPUT_DIR"
	EnvInpaintURL = "SCENEGEN_INPAINT_URL"
	EnvWorkers    = "SCENEGEN_WORKERS"
	EnvSeed       = "SCENEGEN_SEED"
)

type DataConfig struct {
	Dir         string `toml:"dir"`
	Annotations string `toml:"annotations"` // COCO instances file, relative to Dir
	Images      string `toml:"images"`      // image directory, relative to Dir
	Scenes      string `toml:"scenes"`      // render scene manifest, relative to Dir
	CategoryIDs []int  `toml:"category_ids"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
	Ext string `toml:"ext"`
}

type GenerateConfig struct {
	Count       int    `toml:"count"`
	Compare     bool   `toml:"compare"`
	Background  string `toml:"background"`
	Seed        int64  `toml:"seed"`
	Workers     int    `toml:"workers"`
	BatchSize   int    `toml:"batch_size"`
	RatioGroups int    `toml:"ratio_groups"`
}

type PlaceConfig struct {
	ScaleRange      string `toml:"scale_range"`
	MinScalePercent int    `toml:"min_scale_percent"`
	Interpolation   string `toml:"interpolation"`
}

type InpaintConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type Config struct {
	Data     DataConfig     `toml:"data"`
	Output   OutputConfig   `toml:"output"`
	Generate GenerateConfig `toml:"generate"`
	Place    PlaceConfig    `toml:"place"`
	Inpaint  InpaintConfig  `toml:"inpaint"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:         "data",
			Annotations: "annotations/instances_train2017.json",
			Images:      "images",
			Scenes:      "scenes.json",
		},
		Output: OutputConfig{Dir: "generated", Ext: ".png"},
		Generate: GenerateConfig{
			Count:       100,
			Background:  "none",
			Seed:        1,
			Workers:     4,
			BatchSize:   20,
			RatioGroups: 5,
		},
		Place: PlaceConfig{
			ScaleRange:    synth.ScaleRangeWide.String(),
			Interpolation: sgimage.InterpolationApproxBiLinear.String(),
		},
		Inpaint: InpaintConfig{URL: inpaint.DefaultURL, TimeoutSeconds: 300},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment. Missing
// files are skipped; variables already set win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from SCENEGEN_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvInpaintURL); v != "" {
		c.Inpaint.URL = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		c.Generate.Workers = n
	}
	if v := os.Getenv(EnvSeed); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSeed, err)
		}
		c.Generate.Seed = n
	}
	return nil
}

// Validate checks ranges and enum names.
func (c *Config) Validate() error {
	if c.Generate.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Generate.Count)
	}
	if c.Generate.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Generate.Workers)
	}
	if c.Generate.BatchSize < 2 {
		return fmt.Errorf("batch_size must be at least 2, got %d", c.Generate.BatchSize)
	}
	if c.Generate.RatioGroups < 2 {
		return fmt.Errorf("ratio_groups must be at least 2, got %d", c.Generate.RatioGroups)
	}
	if _, err := c.BackgroundMode(); err != nil {
		return err
	}
	if _, err := c.PlaceParams(); err != nil {
		return err
	}
	switch strings.ToLower(c.Output.Ext) {
	case ".png", ".jpg", ".jpeg":
	default:
		return fmt.Errorf("unsupported output extension %q", c.Output.Ext)
	}
	return nil
}

// BackgroundMode parses Generate.Background.
func (c *Config) BackgroundMode() (synth.BackgroundMode, error) {
	return synth.ParseBackgroundMode(c.Generate.Background)
}

// PlaceParams builds random placement parameters.
func (c *Config) PlaceParams() (synth.PlaceParams, error) {
	r, err := synth.ParseScaleRange(c.Place.ScaleRange)
	if err != nil {
		return synth.PlaceParams{}, err
	}
	interp, err := sgimage.ParseInterpolation(c.Place.Interpolation)
	if err != nil {
		return synth.PlaceParams{}, err
	}
	p := synth.DefaultPlaceParams().WithScaleRange(r).WithMinScalePercent(c.Place.MinScalePercent)
	p.Interpolation = interp
	return p, nil
}

// SwapParams builds content swap parameters.
func (c *Config) SwapParams() (synth.SwapParams, error) {
	interp, err := sgimage.ParseInterpolation(c.Place.Interpolation)
	if err != nil {
		return synth.SwapParams{}, err
	}
	return synth.DefaultSwapParams().WithInterpolation(interp), nil
}

// Inpainter returns the HTTP client for Inpaint.URL.
func (c *Config) Inpainter() *inpaint.Client {
	return inpaint.NewClient(c.Inpaint.URL, inpaint.WithTimeout(time.Duration(c.Inpaint.TimeoutSeconds)*time.Second))
}
