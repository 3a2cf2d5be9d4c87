// Package config loads the viewer configuration from a YAML or TOML file and converts it into builder options
// for the decoder and the animation cache.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/decoder"
)

// ErrUnknownFormat is returned by Load for a file extension without a codec.
var ErrUnknownFormat = errors.New("unknown config format")

// Config is the complete viewer configuration.
type Config struct {
	Viewer   Viewer   `yaml:"viewer" toml:"viewer"`
	Cache    Cache    `yaml:"cache" toml:"cache"`
	Decoder  Decoder  `yaml:"decoder" toml:"decoder"`
	Renderer Renderer `yaml:"renderer" toml:"renderer"`
	Log      Log      `yaml:"log" toml:"log"`
}

// Viewer configures the window and what is shown in it.
type Viewer struct {
	// Dir is the directory animations are loaded from.
	Dir    string `yaml:"dir" toml:"dir"`
	Title  string `yaml:"title" toml:"title"`
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	// Tile is the edge length in pixels of the square cell each animation is fitted into.
	Tile int `yaml:"tile" toml:"tile"`
	// Speed is the initial playback speed multiplier.
	Speed float64 `yaml:"speed" toml:"speed"`
	// Tint is a "#rrggbb" color multiplied into every frame, or "none".
	Tint string `yaml:"tint" toml:"tint"`
	// Watch reloads animations whose file changes.
	Watch bool `yaml:"watch" toml:"watch"`
}

// Cache configures the animation cache.
type Cache struct {
	NamePrefix  string `yaml:"name_prefix" toml:"name_prefix"`
	Workers     int    `yaml:"workers" toml:"workers"`
	RetryFailed bool   `yaml:"retry_failed" toml:"retry_failed"`
}

// Decoder configures frame decoding.
type Decoder struct {
	DefaultDelay Duration `yaml:"default_delay" toml:"default_delay"`
	MinDelay     Duration `yaml:"min_delay" toml:"min_delay"`
	// FramePolicy is one of "composite", "reject" or "scale".
	FramePolicy string `yaml:"frame_policy" toml:"frame_policy"`
}

// Renderer configures presentation.
type Renderer struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `yaml:"present_mode" toml:"present_mode"`
	// Filter is "nearest" or "linear".
	Filter string `yaml:"filter" toml:"filter"`
	// MSAA is the sample count, 1 or 4.
	MSAA       int     `yaml:"msaa" toml:"msaa"`
	ClearColor string  `yaml:"clear_color" toml:"clear_color"`
	FrameLimit float64 `yaml:"frame_limit" toml:"frame_limit"`
	Software   bool    `yaml:"software" toml:"software"`
	Profile    bool    `yaml:"profile" toml:"profile"`
}

// Log configures the process logger.
type Log struct {
	// Level is a slog level name: "debug", "info", "warn" or "error".
	Level string `yaml:"level" toml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used for every field a file leaves unset.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Viewer: Viewer{
			Dir:    ".",
			Title:  "gifview",
			Width:  1280,
			Height: 720,
			Tile:   160,
			Speed:  1,
			Tint:   "none",
		},
		Cache: Cache{
			NamePrefix: animation.DefaultNamePrefix,
		},
		Decoder: Decoder{
			DefaultDelay: Duration(decoder.DefaultFrameDelay),
			MinDelay:     Duration(decoder.MinFrameDelay),
			FramePolicy:  "composite",
		},
		Renderer: Renderer{
			PresentMode: "vsync",
			Filter:      "nearest",
			MSAA:        1,
			ClearColor:  "#1a1a1a",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and validates the configuration file at path. The codec is chosen by extension: ".yaml" and ".yml"
// decode as YAML, ".toml" as TOML.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the configuration with defaults applied
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates configuration data.
//
// Parameters:
//   - data: the raw file contents
//   - ext: the file extension selecting the codec, with the leading dot
//
// Returns:
//   - Config: the configuration with defaults applied
//   - error: an error if the data cannot be decoded or is invalid
func Parse(data []byte, ext string) (Config, error) {
	var c Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.SetStrict(true)
		// An empty document decodes to io.EOF.
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to decode yaml config: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &c)
		if err != nil {
			return Config{}, fmt.Errorf("failed to decode toml config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("failed to decode toml config: unknown key %s", undecoded[0])
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// WithDefaults returns a copy of c with every zero field replaced by its default.
//
// Returns:
//   - Config: the completed configuration
func (c Config) WithDefaults() Config {
	d := Default()

	c.Viewer.Dir = common.Coalesce(c.Viewer.Dir, d.Viewer.Dir)
	c.Viewer.Title = common.Coalesce(c.Viewer.Title, d.Viewer.Title)
	c.Viewer.Width = common.Coalesce(c.Viewer.Width, d.Viewer.Width)
	c.Viewer.Height = common.Coalesce(c.Viewer.Height, d.Viewer.Height)
	c.Viewer.Tile = common.Coalesce(c.Viewer.Tile, d.Viewer.Tile)
	c.Viewer.Speed = common.Coalesce(c.Viewer.Speed, d.Viewer.Speed)
	c.Viewer.Tint = common.Coalesce(c.Viewer.Tint, d.Viewer.Tint)

	c.Cache.NamePrefix = common.Coalesce(c.Cache.NamePrefix, d.Cache.NamePrefix)

	c.Decoder.DefaultDelay = common.Coalesce(c.Decoder.DefaultDelay, d.Decoder.DefaultDelay)
	c.Decoder.MinDelay = common.Coalesce(c.Decoder.MinDelay, d.Decoder.MinDelay)
	c.Decoder.FramePolicy = common.Coalesce(c.Decoder.FramePolicy, d.Decoder.FramePolicy)

	c.Renderer.PresentMode = common.Coalesce(c.Renderer.PresentMode, d.Renderer.PresentMode)
	c.Renderer.Filter = common.Coalesce(c.Renderer.Filter, d.Renderer.Filter)
	c.Renderer.MSAA = common.Coalesce(c.Renderer.MSAA, d.Renderer.MSAA)
	c.Renderer.ClearColor = common.Coalesce(c.Renderer.ClearColor, d.Renderer.ClearColor)

	c.Log.Level = common.Coalesce(c.Log.Level, d.Log.Level)
	c.Log.Format = common.Coalesce(c.Log.Format, d.Log.Format)
	return c
}

// Validate reports every invalid field of c.
//
// Returns:
//   - error: the joined field errors, or nil
func (c Config) Validate() error {
	var errs []error
	if c.Viewer.Width < 0 || c.Viewer.Height < 0 || c.Viewer.Tile < 0 {
		errs = append(errs, fmt.Errorf("viewer: negative size %dx%d tile %d", c.Viewer.Width, c.Viewer.Height, c.Viewer.Tile))
	}
	if c.Viewer.Speed <= 0 || math.IsInf(c.Viewer.Speed, 0) || math.IsNaN(c.Viewer.Speed) {
		errs = append(errs, fmt.Errorf("viewer.speed: %v is not a positive finite number", c.Viewer.Speed))
	}
	if _, err := common.ParseTint(c.Viewer.Tint); err != nil {
		errs = append(errs, fmt.Errorf("viewer.tint: %w", err))
	}
	if c.Cache.Workers < 0 {
		errs = append(errs, fmt.Errorf("cache.workers: %d is negative", c.Cache.Workers))
	}
	if c.Decoder.DefaultDelay < 0 || c.Decoder.MinDelay < 0 {
		errs = append(errs, errors.New("decoder: delays must not be negative"))
	}
	if _, err := ParseFramePolicy(c.Decoder.FramePolicy); err != nil {
		errs = append(errs, fmt.Errorf("decoder.frame_policy: %w", err))
	}
	if !oneOf(c.Renderer.PresentMode, "vsync", "uncapped") {
		errs = append(errs, fmt.Errorf("renderer.present_mode: %q is not vsync or uncapped", c.Renderer.PresentMode))
	}
	if !oneOf(c.Renderer.Filter, "nearest", "linear") {
		errs = append(errs, fmt.Errorf("renderer.filter: %q is not nearest or linear", c.Renderer.Filter))
	}
	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		errs = append(errs, fmt.Errorf("renderer.msaa: %d is not 1 or 4", c.Renderer.MSAA))
	}
	if _, err := common.ParseTint(c.Renderer.ClearColor); err != nil {
		errs = append(errs, fmt.Errorf("renderer.clear_color: %w", err))
	}
	if c.Renderer.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("renderer.frame_limit: %v is negative", c.Renderer.FrameLimit))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !oneOf(c.Log.Format, "text", "json") {
		errs = append(errs, fmt.Errorf("log.format: %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// DecoderOptions converts the decoder section into decoder builder options.
//
// Parameters:
//   - log: the logger for per-frame diagnostics
//
// Returns:
//   - []decoder.DecoderBuilderOption: the options to pass to decoder.NewDecoder
func (c Config) DecoderOptions(log *slog.Logger) []decoder.DecoderBuilderOption {
	// Validated by Parse.
	policy, _ := ParseFramePolicy(c.Decoder.FramePolicy)
	return []decoder.DecoderBuilderOption{
		decoder.WithDefaultDelay(time.Duration(c.Decoder.DefaultDelay)),
		decoder.WithMinDelay(time.Duration(c.Decoder.MinDelay)),
		decoder.WithFramePolicy(policy),
		decoder.WithLogger(log),
	}
}

// CacheOptions converts the cache and decoder sections into options for a cache keyed by file name.
//
// Parameters:
//   - log: the logger of the cache and its decoder
//
// Returns:
//   - []animation.CacheBuilderOption[string]: the options to pass to animation.NewCache
func (c Config) CacheOptions(log *slog.Logger) []animation.CacheBuilderOption[string] {
	options := []animation.CacheBuilderOption[string]{
		animation.WithDecoder[string](decoder.NewDecoder(decoder.BackendTypeGIF, c.DecoderOptions(log)...)),
		animation.WithNamePrefix[string](c.Cache.NamePrefix),
		animation.WithRetryFailed[string](c.Cache.RetryFailed),
		animation.WithLogger[string](log),
	}
	if c.Cache.Workers > 0 {
		options = append(options, animation.WithWorkers[string](c.Cache.Workers))
	}
	return options
}

// SlogLevel parses the configured level.
//
// Returns:
//   - slog.Level: the parsed level
//   - error: an error if the level is not a slog level name
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// ParseFramePolicy parses a frame policy name.
//
// Parameters:
//   - s: "composite", "reject" or "scale"
//
// Returns:
//   - decoder.FramePolicy: the parsed policy
//   - error: an error for any other name
func ParseFramePolicy(s string) (decoder.FramePolicy, error) {
	switch strings.ToLower(s) {
	case "composite":
		return decoder.FramePolicyComposite, nil
	case "reject":
		return decoder.FramePolicyReject, nil
	case "scale":
		return decoder.FramePolicyScale, nil
	default:
		return decoder.FramePolicyComposite, fmt.Errorf("unknown frame policy %q", s)
	}
}

func oneOf(s string, values ...string) bool {
	for _, v := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
