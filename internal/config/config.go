// Package config holds lockstep settings.
//
// Settings come from three layers applied in order: built-in defaults, a
// TOML file, and LOCKSTEP_* environment variables. The result is checked by
// Validate before use.
package config

import (
	"time"

	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/scroll"
	"github.com/dshills/lockstep/internal/scrollsync"
	"github.com/dshills/lockstep/internal/session"
	"github.com/dshills/lockstep/internal/startup"
	"github.com/dshills/lockstep/internal/syncmode"
	"github.com/dshills/lockstep/internal/telemetry"
	"github.com/dshills/lockstep/internal/typst"
	"github.com/dshills/lockstep/internal/watcher"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Duration is a time.Duration written as a string ("120ms") in TOML and in
// the environment.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the complete configuration.
type Config struct {
	Sync      SyncConfig      `toml:"sync"`
	Layout    LayoutConfig    `toml:"layout"`
	Render    RenderConfig    `toml:"render"`
	Session   SessionConfig   `toml:"session"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// SyncConfig tunes scroll synchronization.
type SyncConfig struct {
	Mode            syncmode.Mode `toml:"mode"`
	EditorDebounce  Duration      `toml:"editor_debounce"`
	PreviewDebounce Duration      `toml:"preview_debounce"`
	TypingIdle      Duration      `toml:"typing_idle"`
	StartupTimeout  Duration      `toml:"startup_timeout"`
	AnchorWindow    int           `toml:"anchor_window"`

	// PreviewTolerance is in pixels, EditorTolerance in lines.
	PreviewTolerance float64 `toml:"preview_tolerance"`
	EditorTolerance  float64 `toml:"editor_tolerance"`

	Guard  Duration `toml:"guard"`
	Settle Duration `toml:"settle"`
}

// LayoutConfig mirrors the preview's page layout.
type LayoutConfig struct {
	PageGap            float64 `toml:"page_gap"`
	GeometricMinOffset float64 `toml:"geometric_min_offset"`
}

// RenderConfig locates the typesetting tools.
type RenderConfig struct {
	Typst         string   `toml:"typst"`
	PDFToText     string   `toml:"pdftotext"`
	PPI           float64  `toml:"ppi"`
	WorkDir       string   `toml:"work_dir"`
	WatchDebounce Duration `toml:"watch_debounce"`
}

// SessionConfig selects where scroll positions are remembered.
type SessionConfig struct {
	Backend  string   `toml:"backend"`
	RedisURL string   `toml:"redis_url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// TelemetryConfig configures metric export.
type TelemetryConfig struct {
	Enabled  bool     `toml:"enabled"`
	Endpoint string   `toml:"endpoint"`
	Insecure bool     `toml:"insecure"`
	Interval Duration `toml:"interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sync: SyncConfig{
			Mode:             syncmode.Auto,
			EditorDebounce:   Duration(scrollsync.DefaultEditorDebounce),
			PreviewDebounce:  Duration(scrollsync.DefaultPreviewDebounce),
			TypingIdle:       Duration(scrollsync.DefaultTypingIdle),
			StartupTimeout:   Duration(startup.DefaultTimeout),
			AnchorWindow:     scrollsync.DefaultAnchorWindow,
			PreviewTolerance: scroll.PreviewTolerance,
			EditorTolerance:  scroll.EditorTolerance,
			Guard:            Duration(scroll.DefaultGuard),
			Settle:           Duration(scroll.DefaultSettle),
		},
		Layout: LayoutConfig{
			PageGap:            position.DefaultPageGap,
			GeometricMinOffset: position.DefaultGeometricMinOffset,
		},
		Render: RenderConfig{
			Typst:         typst.DefaultBinary,
			PDFToText:     typst.DefaultPDFToText,
			PPI:           typst.DefaultPPI,
			WatchDebounce: Duration(watcher.DefaultDebounce),
		},
		Session: SessionConfig{
			Backend: BackendMemory,
			Prefix:  session.DefaultPrefix,
			TTL:     Duration(session.DefaultTTL),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Endpoint: telemetry.DefaultEndpoint,
			Interval: Duration(telemetry.DefaultInterval),
		},
	}
}

// Engine returns the scroll engine tuning.
func (c Config) Engine() scrollsync.Config {
	cfg := scrollsync.DefaultConfig()
	cfg.Mode = c.Sync.Mode
	cfg.EditorDebounce = c.Sync.EditorDebounce.Std()
	cfg.PreviewDebounce = c.Sync.PreviewDebounce.Std()
	cfg.TypingIdle = c.Sync.TypingIdle.Std()
	cfg.StartupTimeout = c.Sync.StartupTimeout.Std()
	cfg.AnchorWindow = c.Sync.AnchorWindow
	cfg.Layout = position.Layout{
		PageGap:            c.Layout.PageGap,
		GeometricMinOffset: c.Layout.GeometricMinOffset,
	}
	for _, side := range []*scroll.Config{&cfg.Preview, &cfg.Editor} {
		side.Guard = c.Sync.Guard.Std()
		side.Settle = c.Sync.Settle.Std()
	}
	cfg.Preview.Tolerance = c.Sync.PreviewTolerance
	cfg.Editor.Tolerance = c.Sync.EditorTolerance
	return cfg
}

// Provider returns the metric exporter settings.
func (c Config) Provider(version string) telemetry.ProviderConfig {
	return telemetry.ProviderConfig{
		Enabled:        c.Telemetry.Enabled,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		Interval:       c.Telemetry.Interval.Std(),
		ServiceVersion: version,
	}
}
