package prefs

import (
	"github.com/mwantia/prefs/kvstore"
	"github.com/mwantia/prefs/log"
	"github.com/mwantia/prefs/memfs"
	"github.com/mwantia/prefs/objectdb"
)

type SandboxOptions struct {
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
	Logger        *log.Logger

	KeyValueStore  kvstore.Store
	ObjectDatabase objectdb.Database
	FileSystem     *memfs.FS

	PersistentStorage bool
}

type SandboxOption func(*SandboxOptions) error

func newDefaultSandboxOptions() *SandboxOptions {
	return &SandboxOptions{
		LogLevel:          log.Info,
		PersistentStorage: true,
	}
}

func WithLogLevel(logLevel log.LogLevel) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithLogFile(logFile string) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

func WithoutTerminalLog() SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

// WithLogger injects a prepared logger and overrides the log level, file and
// terminal options.
func WithLogger(logger *log.Logger) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.Logger = logger
		return nil
	}
}

// WithKeyValueStore binds the synchronous primitive the web store backend
// persists through. Without one, FormatWebStore cannot be opened.
func WithKeyValueStore(store kvstore.Store) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.KeyValueStore = store
		return nil
	}
}

// WithObjectDatabase binds the transactional primitive the web IDB backend
// persists through. The sandbox takes ownership and closes it on Close.
// Without one, FormatWebIDB cannot be opened.
func WithObjectDatabase(db objectdb.Database) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.ObjectDatabase = db
		return nil
	}
}

// WithFileSystem injects a prepared virtual filesystem instead of the empty
// one the sandbox would create. Useful for seeding settings files.
func WithFileSystem(fs *memfs.FS) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.FileSystem = fs
		return nil
	}
}

// WithPersistentStorage records whether the host grants persistent storage.
// When denied, the web formats fall back to the conventional file engine
// over a temporary path, with a warning.
func WithPersistentStorage(granted bool) SandboxOption {
	return func(opts *SandboxOptions) error {
		opts.PersistentStorage = granted
		return nil
	}
}
