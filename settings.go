package prefs

import (
	"context"
	"strings"
	"time"

	"github.com/mwantia/prefs/backend"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/log"
)

// Settings is the application-facing front-end over a settings backend. It
// adds hierarchical group navigation, key normalization and typed getters
// with defaults on top of the backend's raw key/value contract.
//
// Like the backends it wraps, a Settings instance belongs to the goroutine
// pumping its sandbox loop and is not safe for concurrent use.
type Settings struct {
	backend backend.Backend
	logger  *log.Logger
	groups  []string
}

// OpenSettings opens a backend for the coordinates and wraps it.
func OpenSettings(ctx context.Context, sandbox *Sandbox, format data.Format, scope data.Scope, organization, application string, opts ...OpenOption) (*Settings, error) {
	b, err := sandbox.Open(ctx, format, scope, organization, application, opts...)
	if err != nil {
		return nil, err
	}
	return NewSettings(b, sandbox.Logger()), nil
}

// NewSettings wraps an already constructed backend.
func NewSettings(b backend.Backend, logger *log.Logger) *Settings {
	if logger == nil {
		logger = log.Nop()
	}
	return &Settings{
		backend: b,
		logger:  logger,
	}
}

// normalizeKey collapses repeated separators and strips leading and trailing
// ones, so "/a//b/" addresses the same entry as "a/b".
func normalizeKey(key string) string {
	parts := strings.Split(key, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}

// BeginGroup prepends prefix to every key used by subsequent calls, until
// the matching EndGroup. Groups nest.
func (s *Settings) BeginGroup(prefix string) {
	s.groups = append(s.groups, normalizeKey(prefix))
}

// EndGroup undoes the innermost BeginGroup.
func (s *Settings) EndGroup() {
	if len(s.groups) == 0 {
		s.logger.Warn("Settings EndGroup without matching BeginGroup")
		return
	}
	s.groups = s.groups[:len(s.groups)-1]
}

// Group returns the current group prefix, empty at the top level.
func (s *Settings) Group() string {
	kept := make([]string, 0, len(s.groups))
	for _, group := range s.groups {
		if group != "" {
			kept = append(kept, group)
		}
	}
	return strings.Join(kept, "/")
}

// actualKey resolves key against the current group. An empty key after
// normalization is rejected with a warning, matching the backends' view
// that every entry lives under a non-empty path.
func (s *Settings) actualKey(key string) (string, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		s.logger.Warn("Settings key is empty")
		return "", false
	}
	if prefix := s.Group(); prefix != "" {
		return prefix + "/" + normalized, true
	}
	return normalized, true
}

func (s *Settings) childrenPrefix() string {
	prefix := s.Group()
	if prefix != "" {
		prefix += "/"
	}
	return prefix
}

// SetValue stores value under key, interpreted relative to the current
// group. Scalars are persisted in their canonical string form and come back
// as strings; the typed getters coerce them.
func (s *Settings) SetValue(ctx context.Context, key string, value any) {
	actual, ok := s.actualKey(key)
	if !ok {
		return
	}
	s.backend.Set(ctx, actual, value)
}

// Value returns the raw stored value under key.
func (s *Settings) Value(ctx context.Context, key string) (any, bool) {
	actual, ok := s.actualKey(key)
	if !ok {
		return nil, false
	}
	return s.backend.Get(ctx, actual)
}

// Contains reports whether key has a stored value.
func (s *Settings) Contains(ctx context.Context, key string) bool {
	_, ok := s.Value(ctx, key)
	return ok
}

// Remove deletes key and every descendant below it. Inside a group an empty
// key removes the whole group; at the top level it clears the store.
func (s *Settings) Remove(ctx context.Context, key string) {
	normalized := normalizeKey(key)
	prefix := s.Group()
	switch {
	case normalized == "" && prefix == "":
		s.backend.Clear(ctx)
	case normalized == "":
		s.backend.Remove(ctx, prefix)
	case prefix == "":
		s.backend.Remove(ctx, normalized)
	default:
		s.backend.Remove(ctx, prefix+"/"+normalized)
	}
}

// Clear removes every entry this instance can write.
func (s *Settings) Clear(ctx context.Context) {
	s.backend.Clear(ctx)
}

// Sync flushes pending writes to the backing store and folds in changes
// that arrived from outside.
func (s *Settings) Sync(ctx context.Context) {
	s.backend.Sync(ctx)
}

// ChildKeys returns the keys directly below the current group.
func (s *Settings) ChildKeys(ctx context.Context) []string {
	return s.backend.Children(ctx, s.childrenPrefix(), data.ChildKeys)
}

// ChildGroups returns the groups directly below the current group.
func (s *Settings) ChildGroups(ctx context.Context) []string {
	return s.backend.Children(ctx, s.childrenPrefix(), data.ChildGroups)
}

// AllKeys returns every key below the current group, descendants included.
func (s *Settings) AllKeys(ctx context.Context) []string {
	return s.backend.Children(ctx, s.childrenPrefix(), data.AllKeys)
}

// Status reports the backend health flag. Failures are absorbed there, not
// returned from individual operations.
func (s *Settings) Status() data.Status {
	return s.backend.Status()
}

// IsWritable reports whether writes can become durable.
func (s *Settings) IsWritable() bool {
	return s.backend.IsWritable()
}

// FileName returns the backing file path, empty for the web store backend.
func (s *Settings) FileName() string {
	return s.backend.FileName()
}

// Backend exposes the wrapped backend.
func (s *Settings) Backend() backend.Backend {
	return s.backend
}

// Close flushes pending writes and releases the backend.
func (s *Settings) Close() error {
	return s.backend.Close()
}

// String returns the value under key as a string, or def when the key is
// absent or the value cannot be represented as one.
func (s *Settings) String(ctx context.Context, key, def string) string {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toString(value)
	if !ok {
		return def
	}
	return coerced
}

// Int returns the value under key as an int, or def.
func (s *Settings) Int(ctx context.Context, key string, def int) int {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toInt64(value)
	if !ok {
		return def
	}
	return int(coerced)
}

// Int64 returns the value under key as an int64, or def.
func (s *Settings) Int64(ctx context.Context, key string, def int64) int64 {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toInt64(value)
	if !ok {
		return def
	}
	return coerced
}

// Float64 returns the value under key as a float64, or def.
func (s *Settings) Float64(ctx context.Context, key string, def float64) float64 {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toFloat64(value)
	if !ok {
		return def
	}
	return coerced
}

// Bool returns the value under key as a bool, or def. Stored strings follow
// the conventional reading: empty, "0" and "false" are false, anything else
// is true.
func (s *Settings) Bool(ctx context.Context, key string, def bool) bool {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toBool(value)
	if !ok {
		return def
	}
	return coerced
}

// Bytes returns the value under key as a byte slice, or def.
func (s *Settings) Bytes(ctx context.Context, key string, def []byte) []byte {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toBytes(value)
	if !ok {
		return def
	}
	return coerced
}

// Strings returns the value under key as a string list, or def. A plain
// stored string reads back as a single-element list.
func (s *Settings) Strings(ctx context.Context, key string, def []string) []string {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toStrings(value)
	if !ok {
		return def
	}
	return coerced
}

// Time returns the value under key as a time.Time, or def.
func (s *Settings) Time(ctx context.Context, key string, def time.Time) time.Time {
	value, present := s.Value(ctx, key)
	if !present {
		return def
	}
	coerced, ok := toTime(value)
	if !ok {
		return def
	}
	return coerced
}
