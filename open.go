package prefs

import (
	"context"

	"github.com/mwantia/prefs/backend"
	"github.com/mwantia/prefs/backend/inifile"
	"github.com/mwantia/prefs/backend/webidb"
	"github.com/mwantia/prefs/backend/webstore"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/keyspace"
)

type OpenOptions struct {
	Fallbacks bool
	ReadOnly  bool
}

type OpenOption func(*OpenOptions) error

func newDefaultOpenOptions() *OpenOptions {
	return &OpenOptions{
		Fallbacks: true,
	}
}

// WithoutFallbacks restricts reads and enumerations to the most specific
// scope prefix instead of falling back through the less specific ones.
// Writes always target the most specific prefix either way.
func WithoutFallbacks() OpenOption {
	return func(opts *OpenOptions) error {
		opts.Fallbacks = false
		return nil
	}
}

// WithReadOnly opens the conventional file engine without write access.
// The web formats ignore it.
func WithReadOnly() OpenOption {
	return func(opts *OpenOptions) error {
		opts.ReadOnly = true
		return nil
	}
}

// Open resolves format to a backend for the given settings coordinates.
// FormatNative prefers the synchronous web store. When the sandbox lacks
// persistent storage, both web formats fall back to the conventional file
// engine over a temporary path, with a one-time warning.
//
// Backends absorb storage failures into their status instead of returning
// errors; Open itself only fails on unusable arguments or missing bindings.
func (s *Sandbox) Open(ctx context.Context, format data.Format, scope data.Scope, organization, application string, opts ...OpenOption) (backend.Backend, error) {
	options := newDefaultOpenOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	// The synchronous web store is the native default.
	if format == data.FormatNative {
		format = data.FormatWebStore
	}

	temporary := false
	if (format == data.FormatWebStore || format == data.FormatWebIDB) && !s.persistent {
		if !s.warned {
			s.logger.Warn("Settings format %s requires persistent storage, falling back to the ini format over a temporary file", format)
			s.warned = true
		}
		format = data.FormatIni
		temporary = true
	}

	switch {
	case format == data.FormatWebStore:
		if s.store == nil {
			return nil, data.ErrNoKeyValueStore
		}
		return webstore.NewWebStoreBackend(s.store, scope, organization, application, options.Fallbacks, s.logger.Named("webstore")), nil

	case format == data.FormatWebIDB:
		if s.client == nil {
			return nil, data.ErrNoObjectDatabase
		}
		return webidb.NewWebIDBBackend(ctx, s.client, s.registry, s.fs, scope, organization, application, s.logger.Named("webidb")), nil

	case format == data.FormatIni || format.IsCustom():
		if organization == "" {
			return nil, data.ErrEmptyOrganization
		}
		path := keyspace.ConfPath(scope, organization, application)
		if temporary {
			path = keyspace.TempConfPath(organization, application)
		}
		engine := inifile.NewEngine(s.fs, path, s.logger.Named("inifile"))
		if options.ReadOnly {
			engine.SetReadOnly()
		}
		engine.InitAccess(ctx)
		return engine, nil

	default:
		return nil, data.ErrInvalidFormat
	}
}
