package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lockstep/internal/scrollsync"
	"github.com/dshills/lockstep/internal/syncmode"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, syncmode.Auto, cfg.Sync.Mode)
	assert.Equal(t, 120*time.Millisecond, cfg.Sync.EditorDebounce.Std())
	assert.Equal(t, 80*time.Millisecond, cfg.Sync.PreviewDebounce.Std())
	assert.Equal(t, 400*time.Millisecond, cfg.Sync.TypingIdle.Std())
	assert.Equal(t, 5*time.Second, cfg.Sync.StartupTimeout.Std())
	assert.Equal(t, 16.0, cfg.Layout.PageGap)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[sync]
mode = "two-way"
editor_debounce = "50ms"
anchor_window = 12
preview_tolerance = 2.5

[layout]
page_gap = 24

[render]
typst = "/usr/local/bin/typst"
ppi = 96.0

[session]
backend = "redis"
redis_url = "redis://localhost:6379/0"
ttl = "48h"

[logging]
level = "debug"
development = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, syncmode.TwoWay, cfg.Sync.Mode)
	assert.Equal(t, 50*time.Millisecond, cfg.Sync.EditorDebounce.Std())
	assert.Equal(t, 80*time.Millisecond, cfg.Sync.PreviewDebounce.Std(), "unset keys keep defaults")
	assert.Equal(t, 12, cfg.Sync.AnchorWindow)
	assert.Equal(t, 2.5, cfg.Sync.PreviewTolerance)
	assert.Equal(t, 24.0, cfg.Layout.PageGap)
	assert.Equal(t, "/usr/local/bin/typst", cfg.Render.Typst)
	assert.Equal(t, 96.0, cfg.Render.PPI)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 48*time.Hour, cfg.Session.TTL.Std())
	assert.True(t, cfg.Logging.Development)
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, "[sync]\nmode = \n")
	_, err := Load(path)
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.Equal(t, 2, perr.Line)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[sync]\neditor_debunce = \"10ms\"\n")
	_, err := Load(path)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "editor_debunce")
	assert.Equal(t, 2, perr.Line)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "[sync]\nmode = \"sideways\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[sync]\ntyping_idle = \"soon\"\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOCKSTEP_SYNC_MODE", "locked_to_pdf")
	t.Setenv("LOCKSTEP_SYNC_TYPING_IDLE", "1s")
	t.Setenv("LOCKSTEP_SYNC_ANCHOR_WINDOW", "5")
	t.Setenv("LOCKSTEP_LAYOUT_PAGE_GAP", "8.5")
	t.Setenv("LOCKSTEP_SESSION_BACKEND", "none")
	t.Setenv("LOCKSTEP_LOGGING_DEVELOPMENT", "true")
	t.Setenv("LOCKSTEP_TELEMETRY_ENDPOINT", "collector:4318")

	path := writeConfig(t, "[sync]\nmode = \"two-way\"\ntyping_idle = \"2s\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, syncmode.LockedToPDF, cfg.Sync.Mode, "environment wins over the file")
	assert.Equal(t, time.Second, cfg.Sync.TypingIdle.Std())
	assert.Equal(t, 5, cfg.Sync.AnchorWindow)
	assert.Equal(t, 8.5, cfg.Layout.PageGap)
	assert.Equal(t, BackendNone, cfg.Session.Backend)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "collector:4318", cfg.Telemetry.Endpoint)
}

func TestEnvErrors(t *testing.T) {
	tests := map[string]string{
		"LOCKSTEP_SYNC_ANCHOR_WINDOW":  "many",
		"LOCKSTEP_LOGGING_DEVELOPMENT": "sometimes",
		"LOCKSTEP_SYNC_GUARD":          "200",
		"LOCKSTEP_LAYOUT_PAGE_GAP":     "wide",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			err := ApplyEnv(&cfg, func(key string) (string, bool) {
				if key == name {
					return value, true
				}
				return "", false
			})
			var envErr *EnvError
			require.ErrorAs(t, err, &envErr)
			assert.Equal(t, name, envErr.Name)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"unknown mode", func(c *Config) { c.Sync.Mode = syncmode.Mode(42) }, "sync.mode"},
		{"negative debounce", func(c *Config) { c.Sync.EditorDebounce = Duration(-time.Millisecond) }, "sync.editor_debounce"},
		{"zero typing idle", func(c *Config) { c.Sync.TypingIdle = 0 }, "sync.typing_idle"},
		{"zero startup timeout", func(c *Config) { c.Sync.StartupTimeout = 0 }, "sync.startup_timeout"},
		{"negative window", func(c *Config) { c.Sync.AnchorWindow = -1 }, "sync.anchor_window"},
		{"zero guard", func(c *Config) { c.Sync.Guard = 0 }, "sync.guard"},
		{"geometric offset within tolerance", func(c *Config) { c.Layout.GeometricMinOffset = 3 }, "layout.geometric_min_offset"},
		{"empty typst", func(c *Config) { c.Render.Typst = "" }, "render.typst"},
		{"zero ppi", func(c *Config) { c.Render.PPI = 0 }, "render.ppi"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "etcd" }, "session.backend"},
		{"redis without url", func(c *Config) { c.Session.Backend = BackendRedis }, "session.redis_url"},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.path, verr.Path)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Render.PPI = -1
	cfg.Logging.Level = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render.ppi")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Sync.Mode = syncmode.LockedToEditor
	cfg.Sync.Guard = Duration(300 * time.Millisecond)
	cfg.Sync.EditorTolerance = 1
	cfg.Layout.PageGap = 0

	eng := cfg.Engine()
	assert.Equal(t, syncmode.LockedToEditor, eng.Mode)
	assert.Equal(t, 300*time.Millisecond, eng.Preview.Guard)
	assert.Equal(t, 300*time.Millisecond, eng.Editor.Guard)
	assert.Equal(t, 1.0, eng.Editor.Tolerance)
	assert.Equal(t, 3.0, eng.Preview.Tolerance)
	assert.Equal(t, 0.0, eng.Layout.PageGap)
	assert.Equal(t, "editor", eng.Editor.Side)

	assert.Equal(t, scrollsync.DefaultConfig(), Default().Engine(), "defaults agree with the engine")
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Enabled = true
	p := cfg.Provider("1.0.0")
	assert.True(t, p.Enabled)
	assert.Equal(t, "localhost:4318", p.Endpoint)
	assert.Equal(t, time.Minute, p.Interval)
	assert.Equal(t, "1.0.0", p.ServiceVersion)
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Sync.Mode = syncmode.TwoWay
	cfg.Session.TTL = Duration(time.Hour)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))
	assert.Contains(t, buf.String(), "two-way")
	assert.Contains(t, buf.String(), "1h0m0s")

	got, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
	assert.Error(t, d.UnmarshalText([]byte("90")))
}
