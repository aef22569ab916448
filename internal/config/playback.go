// Package config loads the playback service configuration.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/arplayback/internal/fsutil"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults for optional fields.
const (
	DefaultHTTPAddr = ":8080"
	DefaultGRPCAddr = ":50051"
	DefaultDBPath   = "arplayback.db"
	DefaultPlotsDir = "plots"
	DefaultRate     = 1.0
)

// PlaybackConfig is the root configuration of cmd/playback. Every field is
// optional; the Get* methods supply defaults for fields left unset.
type PlaybackConfig struct {
	DatasetDir string `json:"dataset_dir" yaml:"dataset_dir"`

	LoopInfinitely *bool `json:"loop,omitempty" yaml:"loop,omitempty"`
	StartFrame     *int  `json:"start_frame,omitempty" yaml:"start_frame,omitempty"`
	EndFrame       *int  `json:"end_frame,omitempty" yaml:"end_frame,omitempty"`

	ManualStepping *bool    `json:"manual_stepping,omitempty" yaml:"manual_stepping,omitempty"`
	Rate           *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Paused         *bool    `json:"paused,omitempty" yaml:"paused,omitempty"`
	ExitOnFinish   *bool    `json:"exit_on_finish,omitempty" yaml:"exit_on_finish,omitempty"`

	HTTPAddr *string `json:"http_addr,omitempty" yaml:"http_addr,omitempty"`
	GRPCAddr *string `json:"grpc_addr,omitempty" yaml:"grpc_addr,omitempty"`
	DBPath   *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	PlotsDir *string `json:"plots_dir,omitempty" yaml:"plots_dir,omitempty"`

	// WatchInterval is the keepalive period of gRPC frame watches, as a
	// duration string like "1s".
	WatchInterval *string `json:"watch_interval,omitempty" yaml:"watch_interval,omitempty"`
}

func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// Load reads a PlaybackConfig from a .json, .yaml or .yml file no larger
// than 1MB and validates it.
func Load(path string) (*PlaybackConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	data, err := fsutil.ReadFileLimit(fsutil.OSFileSystem{}, cleanPath, maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &PlaybackConfig{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *PlaybackConfig) Validate() error {
	if c.StartFrame != nil && *c.StartFrame < 0 {
		return fmt.Errorf("start_frame must be non-negative, got %d", *c.StartFrame)
	}
	if c.EndFrame != nil && *c.EndFrame < 0 {
		return fmt.Errorf("end_frame must be non-negative, got %d", *c.EndFrame)
	}
	if c.StartFrame != nil && c.EndFrame != nil && *c.EndFrame <= *c.StartFrame {
		return fmt.Errorf("end_frame %d must be greater than start_frame %d", *c.EndFrame, *c.StartFrame)
	}
	if c.Rate != nil && (*c.Rate <= 0 || *c.Rate > 16) {
		return fmt.Errorf("rate must be in (0, 16], got %v", *c.Rate)
	}
	if c.WatchInterval != nil && *c.WatchInterval != "" {
		if _, err := time.ParseDuration(*c.WatchInterval); err != nil {
			return fmt.Errorf("invalid watch_interval '%s': %w", *c.WatchInterval, err)
		}
	}
	return nil
}

// ApplyFlags overrides the dataset directory when dir is non-empty.
func (c *PlaybackConfig) ApplyFlags(dir string) {
	if dir != "" {
		c.DatasetDir = dir
	}
}

func (c *PlaybackConfig) GetLoopInfinitely() bool {
	if c.LoopInfinitely == nil {
		return false
	}
	return *c.LoopInfinitely
}

// GetStartFrame returns the configured start frame or nil for the full range.
func (c *PlaybackConfig) GetStartFrame() *int {
	if c.StartFrame == nil {
		return nil
	}
	return ptrInt(*c.StartFrame)
}

// GetEndFrame returns the configured end frame or nil for the full range.
func (c *PlaybackConfig) GetEndFrame() *int {
	if c.EndFrame == nil {
		return nil
	}
	return ptrInt(*c.EndFrame)
}

func (c *PlaybackConfig) GetManualStepping() bool {
	if c.ManualStepping == nil {
		return false
	}
	return *c.ManualStepping
}

func (c *PlaybackConfig) GetRate() float64 {
	if c.Rate == nil {
		return DefaultRate
	}
	return *c.Rate
}

func (c *PlaybackConfig) GetPaused() bool {
	if c.Paused == nil {
		return false
	}
	return *c.Paused
}

func (c *PlaybackConfig) GetExitOnFinish() bool {
	if c.ExitOnFinish == nil {
		return false
	}
	return *c.ExitOnFinish
}

func (c *PlaybackConfig) GetHTTPAddr() string {
	if c.HTTPAddr == nil || *c.HTTPAddr == "" {
		return DefaultHTTPAddr
	}
	return *c.HTTPAddr
}

func (c *PlaybackConfig) GetGRPCAddr() string {
	if c.GRPCAddr == nil || *c.GRPCAddr == "" {
		return DefaultGRPCAddr
	}
	return *c.GRPCAddr
}

func (c *PlaybackConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

func (c *PlaybackConfig) GetPlotsDir() string {
	if c.PlotsDir == nil || *c.PlotsDir == "" {
		return DefaultPlotsDir
	}
	return *c.PlotsDir
}

// GetWatchInterval parses WatchInterval, falling back to one second.
func (c *PlaybackConfig) GetWatchInterval() time.Duration {
	if c.WatchInterval == nil || *c.WatchInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.WatchInterval)
	if err != nil {
		return time.Second
	}
	return d
}
