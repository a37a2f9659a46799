package config

import (
	"errors"
	"slices"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid setting. The returned error wraps one
// *ValidationError per problem.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, path, msg string, value any) {
		if !ok {
			errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
		}
	}

	s := c.Sync
	check(s.Mode.Valid(), "sync.mode", "unknown sync mode", s.Mode)
	check(s.EditorDebounce >= 0, "sync.editor_debounce", "must not be negative", s.EditorDebounce.Std())
	check(s.PreviewDebounce >= 0, "sync.preview_debounce", "must not be negative", s.PreviewDebounce.Std())
	check(s.TypingIdle > 0, "sync.typing_idle", "must be positive", s.TypingIdle.Std())
	check(s.StartupTimeout > 0, "sync.startup_timeout", "must be positive", s.StartupTimeout.Std())
	check(s.AnchorWindow >= 0, "sync.anchor_window", "must not be negative", s.AnchorWindow)
	check(s.PreviewTolerance >= 0, "sync.preview_tolerance", "must not be negative", s.PreviewTolerance)
	check(s.EditorTolerance >= 0, "sync.editor_tolerance", "must not be negative", s.EditorTolerance)
	check(s.Guard > 0, "sync.guard", "must be positive", s.Guard.Std())
	check(s.Settle >= 0, "sync.settle", "must not be negative", s.Settle.Std())

	l := c.Layout
	check(l.PageGap >= 0, "layout.page_gap", "must not be negative", l.PageGap)
	check(l.GeometricMinOffset > s.PreviewTolerance, "layout.geometric_min_offset",
		"must exceed sync.preview_tolerance", l.GeometricMinOffset)

	r := c.Render
	check(r.Typst != "", "render.typst", "must not be empty", r.Typst)
	check(r.PPI > 0, "render.ppi", "must be positive", r.PPI)
	check(r.WatchDebounce >= 0, "render.watch_debounce", "must not be negative", r.WatchDebounce.Std())

	ss := c.Session
	check(slices.Contains([]string{BackendMemory, BackendRedis, BackendNone}, ss.Backend),
		"session.backend", "must be memory, redis or none", ss.Backend)
	check(ss.Backend != BackendRedis || ss.RedisURL != "", "session.redis_url", "required for the redis backend", ss.RedisURL)
	check(ss.TTL >= 0, "session.ttl", "must not be negative", ss.TTL.Std())

	check(slices.Contains(logLevels, c.Logging.Level), "logging.level", "must be debug, info, warn or error", c.Logging.Level)

	check(c.Telemetry.Interval >= 0, "telemetry.interval", "must not be negative", c.Telemetry.Interval.Std())

	return errors.Join(errs...)
}
