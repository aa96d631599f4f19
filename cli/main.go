// prefsctl inspects and edits settings stored in a prefs object database.
//
// The stack commands (get, set, unset, keys, dump) open the database through
// a full sandbox, so they see exactly what a hosted application would see,
// including the asynchronous hydration pass. The raw commands (ls, cat) read
// the stored blobs directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/mwantia/prefs"
	"github.com/mwantia/prefs/backend/webidb"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/log"
	"github.com/mwantia/prefs/objectdb/sqlite"
)

var (
	app      = kingpin.New("prefsctl", "Inspect and edit settings stored in a prefs object database.")
	dbFile   = app.Flag("db", "Path to the SQLite object database file.").Default("prefs.db").String()
	logLevel = app.Flag("log-level", "Log level (debug, info, warn, error).").Default("warn").String()
	timeout  = app.Flag("timeout", "Time budget for loading and persisting settings.").Default("10s").Duration()

	lsCmd    = app.Command("ls", "List the stored settings files.")
	lsFormat = lsCmd.Flag("format", "Output format ('text' or 'json').").Default("text").Enum("text", "json")

	catCmd  = app.Command("cat", "Print a stored settings file verbatim.")
	catPath = catCmd.Arg("path", "Stored file path, as printed by 'ls'.").Required().String()

	getCmd   = app.Command("get", "Read one settings key.")
	getOrg   = getCmd.Flag("org", "Organization name.").Required().String()
	getApp   = getCmd.Flag("app", "Application name.").String()
	getScope = getCmd.Flag("scope", "Settings scope ('user' or 'system').").Default("user").Enum("user", "system")
	getKey   = getCmd.Arg("key", "Settings key.").Required().String()

	setCmd   = app.Command("set", "Write one settings key.")
	setOrg   = setCmd.Flag("org", "Organization name.").Required().String()
	setApp   = setCmd.Flag("app", "Application name.").String()
	setScope = setCmd.Flag("scope", "Settings scope ('user' or 'system').").Default("user").Enum("user", "system")
	setKey   = setCmd.Arg("key", "Settings key.").Required().String()
	setValue = setCmd.Arg("value", "Value to store.").Required().String()

	unsetCmd   = app.Command("unset", "Remove a settings key and everything below it.")
	unsetOrg   = unsetCmd.Flag("org", "Organization name.").Required().String()
	unsetApp   = unsetCmd.Flag("app", "Application name.").String()
	unsetScope = unsetCmd.Flag("scope", "Settings scope ('user' or 'system').").Default("user").Enum("user", "system")
	unsetKey   = unsetCmd.Arg("key", "Settings key.").Required().String()

	keysCmd    = app.Command("keys", "List every key of a settings file.")
	keysOrg    = keysCmd.Flag("org", "Organization name.").Required().String()
	keysApp    = keysCmd.Flag("app", "Application name.").String()
	keysScope  = keysCmd.Flag("scope", "Settings scope ('user' or 'system').").Default("user").Enum("user", "system")
	keysFormat = keysCmd.Flag("format", "Output format ('text' or 'json').").Default("text").Enum("text", "json")

	dumpCmd    = app.Command("dump", "Print every key and value of a settings file.")
	dumpOrg    = dumpCmd.Flag("org", "Organization name.").Required().String()
	dumpApp    = dumpCmd.Flag("app", "Application name.").String()
	dumpScope  = dumpCmd.Flag("scope", "Settings scope ('user' or 'system').").Default("user").Enum("user", "system")
	dumpFormat = dumpCmd.Flag("format", "Output format ('text' or 'json').").Default("text").Enum("text", "json")
)

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case lsCmd.FullCommand():
		runLs(*dbFile, *lsFormat)
	case catCmd.FullCommand():
		runCat(*dbFile, *catPath)
	case getCmd.FullCommand():
		runGet(*dbFile, *getOrg, *getApp, *getScope, *getKey)
	case setCmd.FullCommand():
		runSet(*dbFile, *setOrg, *setApp, *setScope, *setKey, *setValue)
	case unsetCmd.FullCommand():
		runUnset(*dbFile, *unsetOrg, *unsetApp, *unsetScope, *unsetKey)
	case keysCmd.FullCommand():
		runKeys(*dbFile, *keysOrg, *keysApp, *keysScope, *keysFormat)
	case dumpCmd.FullCommand():
		runDump(*dbFile, *dumpOrg, *dumpApp, *dumpScope, *dumpFormat)
	}
}

func openDatabase(path string) *sqlite.SQLiteDatabase {
	db, err := sqlite.NewSQLiteDatabase(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %s: %v\n", path, err)
		os.Exit(1)
	}
	return db
}

// openStack builds a sandbox over the database and waits until the settings
// file has finished hydrating. It exits the process when loading fails, so
// callers can use the returned settings without further checks.
func openStack(ctx context.Context, dbPath, organization, application, scope string) (*prefs.Sandbox, *prefs.Settings) {
	db := openDatabase(dbPath)

	sandbox, err := prefs.NewSandbox(
		prefs.WithObjectDatabase(db),
		prefs.WithLogLevel(log.ParseLevel(*logLevel)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating sandbox: %v\n", err)
		os.Exit(1)
	}

	settings, err := prefs.OpenSettings(ctx, sandbox, data.FormatWebIDB, data.ParseScope(scope), organization, application)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening settings: %v\n", err)
		os.Exit(1)
	}

	backend, ok := settings.Backend().(*webidb.WebIDBBackend)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: settings are not backed by the object database\n")
		os.Exit(1)
	}

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	err = sandbox.ProcessEventsUntil(waitCtx, func() bool {
		return backend.State() == webidb.StateReady || backend.State() == webidb.StateFailed
	})
	if err != nil || backend.State() != webidb.StateReady {
		fmt.Fprintf(os.Stderr, "Error loading settings for %s/%s: status %s\n", organization, application, settings.Status())
		os.Exit(1)
	}

	return sandbox, settings
}

// persist flushes pending writes and waits for the stored blob to land.
func persist(ctx context.Context, sandbox *prefs.Sandbox, settings *prefs.Settings) {
	settings.Sync(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := sandbox.ProcessEvents(waitCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error waiting for the write to persist: %v\n", err)
		os.Exit(1)
	}
	if status := settings.Status(); !status.OK() {
		fmt.Fprintf(os.Stderr, "Error persisting settings: status %s\n", status)
		os.Exit(1)
	}
}

func runLs(dbPath, format string) {
	ctx := context.Background()
	db := openDatabase(dbPath)
	defer db.Close(ctx)

	paths, err := db.Paths(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing stored files: %v\n", err)
		os.Exit(1)
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(paths); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, path := range paths {
		fmt.Println(path)
	}
}

func runCat(dbPath, storedPath string) {
	ctx := context.Background()
	db := openDatabase(dbPath)
	defer db.Close(ctx)

	blob, err := db.Load(ctx, storedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", storedPath, err)
		os.Exit(1)
	}
	os.Stdout.Write(blob)
}

func runGet(dbPath, organization, application, scope, key string) {
	ctx := context.Background()
	sandbox, settings := openStack(ctx, dbPath, organization, application, scope)
	defer sandbox.Close(ctx)

	value, ok := settings.Value(ctx, key)
	if !ok {
		fmt.Fprintf(os.Stderr, "Key %s is not set\n", key)
		os.Exit(1)
	}
	fmt.Println(formatValue(value))
}

func runSet(dbPath, organization, application, scope, key, value string) {
	ctx := context.Background()
	sandbox, settings := openStack(ctx, dbPath, organization, application, scope)
	defer sandbox.Close(ctx)

	settings.SetValue(ctx, key, value)
	persist(ctx, sandbox, settings)
}

func runUnset(dbPath, organization, application, scope, key string) {
	ctx := context.Background()
	sandbox, settings := openStack(ctx, dbPath, organization, application, scope)
	defer sandbox.Close(ctx)

	settings.Remove(ctx, key)
	persist(ctx, sandbox, settings)
}

func runKeys(dbPath, organization, application, scope, format string) {
	ctx := context.Background()
	sandbox, settings := openStack(ctx, dbPath, organization, application, scope)
	defer sandbox.Close(ctx)

	keys := settings.AllKeys(ctx)
	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(keys); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, key := range keys {
		fmt.Println(key)
	}
}

func runDump(dbPath, organization, application, scope, format string) {
	ctx := context.Background()
	sandbox, settings := openStack(ctx, dbPath, organization, application, scope)
	defer sandbox.Close(ctx)

	values := make(map[string]string)
	for _, key := range settings.AllKeys(ctx) {
		if value, ok := settings.Value(ctx, key); ok {
			values[key] = formatValue(value)
		}
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(values); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, key := range settings.AllKeys(ctx) {
		fmt.Printf("%s=%s\n", key, values[key])
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []any:
		parts := make([]string, 0, len(v))
		for _, element := range v {
			parts = append(parts, formatValue(element))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
