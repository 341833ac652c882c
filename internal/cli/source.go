package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/internal/store"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/spf13/cobra"
)

// formFlags selects the tool a command opens a form for and the values to
// enter before acting on it.
type formFlags struct {
	toolID    string
	version   string
	history   string
	overrides string
	sets      []string
	noCache   bool
}

func (ff *formFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&ff.toolID, "tool", "", "Galaxy tool ID (fetch the schema from Galaxy)")
	f.StringVar(&ff.version, "tool-version", "", "Tool version (default: newest)")
	f.StringVar(&ff.history, "history", "", "History ID used as schema context (or GALAHAD_HISTORY env)")
	f.StringVar(&ff.overrides, "overrides", "", "YAML or JSON file of per-parameter overrides")
	f.StringArrayVar(&ff.sets, "set", nil, "Set a value before compiling, as name=value (repeatable, applied in order)")
	f.BoolVar(&ff.noCache, "no-cache", false, "Bypass the schema cache")
}

func (ff *formFlags) ref() galaxy.ToolRef {
	ref := galaxy.ToolRef{ID: ff.toolID, Version: ff.version, HistoryID: ff.history}
	if ref.HistoryID == "" {
		ref.HistoryID = cfg.Galaxy.HistoryID
	}
	return ref
}

// openForm opens a form on the tool file in args, or on --tool fetched from
// Galaxy, and applies every --set in order. The returned func releases the
// schema cache.
func openForm(ctx context.Context, args []string, ff *formFlags) (*form.Form, func(), error) {
	var source form.SchemaSource
	release := func() {}
	switch {
	case len(args) > 0:
		source = galaxy.FileSource{Path: args[0]}
	case ff.toolID != "":
		source, release = galaxySource(ctx, ff.noCache)
	default:
		return nil, nil, errors.New("a tool file or --tool is required")
	}

	overridesPath := ff.overrides
	if overridesPath == "" {
		overridesPath = cfg.Overrides
	}
	var overrides form.Overrides
	if overridesPath != "" {
		var err error
		if overrides, err = form.LoadOverrides(overridesPath); err != nil {
			release()
			return nil, nil, err
		}
	}

	driver := form.NewDriver(source, logger)
	f, err := driver.Open(ctx, ff.ref(), overrides)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("open %s: %w", describe(args, ff), err)
	}
	for _, s := range ff.sets {
		name, value, err := parseSet(s)
		if err == nil {
			_, err = driver.Update(ctx, f, name, value)
		}
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("--set %s: %w", s, err)
		}
	}
	return f, release, nil
}

func describe(args []string, ff *formFlags) string {
	if len(args) > 0 {
		return args[0]
	}
	return ff.ref().String()
}

// galaxySource returns the Galaxy client, wrapped in the schema cache
// unless caching is off. A cache that cannot be opened is skipped.
func galaxySource(ctx context.Context, noCache bool) (form.SchemaSource, func()) {
	if noCache || cfg.Cache.Disabled {
		return client, func() {}
	}
	st, err := openStore(ctx)
	if err != nil {
		logger.Warn("schema cache unavailable", "path", cfg.Cache.Path, "error", err)
		return client, func() {}
	}
	cached := store.NewCachedSource(client, st, galaxy.ServerName(cfg.Galaxy.URL), cfg.Cache.TTL, logger)
	return cached, func() { st.Close() }
}

func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	path := cfg.Cache.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// parseSet splits name=value. The value is kept as text, the way Galaxy
// form fields hold it.
func parseSet(s string) (string, any, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return "", nil, fmt.Errorf("expected name=value, got %q", s)
	}
	return strings.TrimSpace(name), value, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// tableOutput decides between a table and JSON for --output. "auto" picks a
// table only when w is a terminal.
func tableOutput(w io.Writer, output string) (bool, error) {
	switch output {
	case "table":
		return true, nil
	case "json":
		return false, nil
	case "", "auto":
		return isTerminal(w), nil
	}
	return false, fmt.Errorf("unknown output format %q (auto, table, json)", output)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
