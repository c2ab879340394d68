package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/pipeline"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FOLIO_"

// TrackAuto selects the track from the document itself.
const TrackAuto = "auto"

// Config holds all folio settings.
type Config struct {
	Log      LogConfig      `toml:"log" envPrefix:"LOG_"`
	Reader   ReaderConfig   `toml:"reader" envPrefix:"READER_"`
	Pipeline PipelineConfig `toml:"pipeline" envPrefix:"PIPELINE_"`
	Metrics  MetricsConfig  `toml:"metrics" envPrefix:"METRICS_"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Prefix string `toml:"prefix" env:"PREFIX"`
}

// ReaderConfig configures reading sessions and plugin discovery.
type ReaderConfig struct {
	// Track is "auto", "tree" or "native".
	Track string `toml:"track" env:"TRACK"`
	// PluginDirs are searched in order; the first directory providing a
	// plugin name wins.
	PluginDirs []string `toml:"plugin_dirs" env:"PLUGIN_DIRS" envSeparator:","`
	// Watch reloads script plugins when their files change.
	Watch bool `toml:"watch" env:"WATCH"`
	// WatchDelay is the debounce window for plugin file changes.
	WatchDelay Duration `toml:"watch_delay" env:"WATCH_DELAY"`
	// ScriptTimeout bounds a single call into a script plugin.
	ScriptTimeout Duration `toml:"script_timeout" env:"SCRIPT_TIMEOUT"`
}

// PipelineConfig configures the transform pipeline.
type PipelineConfig struct {
	Enabled         bool `toml:"enabled" env:"ENABLED"`
	DefaultPriority int  `toml:"default_priority" env:"DEFAULT_PRIORITY"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" env:"ADDR"`
}

// Duration is a time.Duration that reads from strings such as "150ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDuration, text)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Reader: ReaderConfig{
			Track:         TrackAuto,
			WatchDelay:    Duration(150 * time.Millisecond),
			ScriptTimeout: Duration(2 * time.Second),
		},
		Pipeline: PipelineConfig{
			Enabled:         true,
			DefaultPriority: pipeline.DefaultPriority,
		},
	}
}

// DefaultPath returns the user config file location, or "" when the
// user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "folio", "config.toml")
}

// Load resolves settings from defaults, the TOML file at path and the
// environment, then validates the result. An empty path or a missing file
// skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return cfg, err
	}
	cfg.Reader.PluginDirs = expandPaths(cfg.Reader.PluginDirs)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.decodeTOML(path, data)
}

func (c *Config) decodeTOML(path string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	err := dec.Decode(c)
	if err == nil {
		return nil
	}

	pe := &ParseError{Path: path, Message: err.Error(), Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) && len(serr.Errors) > 0 {
		pe.Line, pe.Column = serr.Errors[0].Position()
		pe.Message = "unknown key " + strings.Join(serr.Errors[0].Key(), ".")
	}
	return pe
}

func (c *Config) mergeEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks that every setting holds a usable value.
func (c Config) Validate() error {
	var errs []error
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, &ValidationError{Path: "log.level", Value: c.Log.Level, Err: ErrInvalidLevel})
	}
	if !strings.EqualFold(c.Reader.Track, TrackAuto) {
		if _, err := content.ParseTrack(c.Reader.Track); err != nil {
			errs = append(errs, &ValidationError{Path: "reader.track", Value: c.Reader.Track, Err: ErrInvalidTrack})
		}
	}
	if c.Reader.WatchDelay < 0 {
		errs = append(errs, &ValidationError{Path: "reader.watch_delay", Value: c.Reader.WatchDelay.Std(), Err: ErrInvalidDuration})
	}
	if c.Reader.ScriptTimeout < 0 {
		errs = append(errs, &ValidationError{Path: "reader.script_timeout", Value: c.Reader.ScriptTimeout.Std(), Err: ErrInvalidDuration})
	}
	if c.Pipeline.DefaultPriority < 0 {
		errs = append(errs, &ValidationError{Path: "pipeline.default_priority", Value: c.Pipeline.DefaultPriority, Err: ErrInvalidPriority})
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// Track returns the forced track and true, or false when the track is
// chosen per document.
func (c Config) Track() (content.Track, bool) {
	if strings.EqualFold(c.Reader.Track, TrackAuto) {
		return content.TrackTree, false
	}
	track, err := content.ParseTrack(c.Reader.Track)
	return track, err == nil
}

func expandPaths(paths []string) []string {
	home, err := os.UserHomeDir()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err == nil && (p == "~" || strings.HasPrefix(p, "~/")) {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
		out = append(out, p)
	}
	return out
}
