package form

import (
	"context"
	"errors"
	"log/slog"

	"github.com/me/galahad/internal/logging"
	"github.com/me/galahad/pkg/galaxy"
)

// SchemaSource supplies a tool's input schema, optionally refreshed for the
// values currently entered in a form.
type SchemaSource interface {
	ToolSchema(ctx context.Context, ref galaxy.ToolRef, values map[string]any) (*galaxy.Tool, error)
}

// Driver opens forms and recompiles them when a refreshing parameter changes.
type Driver struct {
	source SchemaSource
	logger *slog.Logger
}

// NewDriver creates a driver fetching schemas from source.
func NewDriver(source SchemaSource, logger *slog.Logger) *Driver {
	return &Driver{
		source: source,
		logger: logging.OrDiscard(logger).With("component", "recompiler"),
	}
}

// Open fetches the schema for ref and opens a form on it.
func (d *Driver) Open(ctx context.Context, ref galaxy.ToolRef, overrides Overrides) (*Form, error) {
	tool, err := d.source.ToolSchema(ctx, ref, nil)
	if err != nil {
		return nil, err
	}
	f, err := NewForm(ref, tool, overrides)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("form opened", "tool", f.Tool().String(), "params", len(f.Compiled().Params))
	return f, nil
}

// Update sets a value and recompiles the form when the parameter asks for
// a refresh on change. A failed recompilation leaves the form as it was
// after the value was set. The reported visibility change covers the set
// and the recompilation together.
func (d *Driver) Update(ctx context.Context, f *Form, name string, v any) (Change, error) {
	before := f.Visibility()
	change, err := f.SetValue(name, v)
	if err != nil || !change.Refresh {
		return change, err
	}
	if err := d.Recompile(ctx, f); err != nil {
		return change, err
	}
	change.Visibility = DiffVisibility(before, f.Visibility())
	return change, nil
}

// Recompile refetches the schema with the form's current values and
// replaces the whole compiled state. On failure the previous state is kept,
// the form records a message and a *RecompilationError is returned. If a
// newer recompilation starts before this one finishes, this result is
// dropped and ErrStaleRecompilation is returned.
func (d *Driver) Recompile(ctx context.Context, f *Form) error {
	gen, ref, values, overrides := f.begin()
	log := d.logger.With("tool", ref.String(), "generation", gen)
	log.Debug("recompiling")

	tool, compiled, err := d.fetch(ctx, ref, values, overrides)
	if err != nil {
		if !f.fail(gen, galaxy.UserMessage(err)) {
			log.Warn("stale recompilation failed", "error", err)
			return errors.Join(ErrStaleRecompilation, err)
		}
		log.Warn("recompilation failed", "error", err)
		return &RecompilationError{Tool: ref, Err: err}
	}

	if !f.commit(gen, tool, compiled) {
		log.Warn("discarding stale recompilation")
		return ErrStaleRecompilation
	}
	log.Debug("recompiled", "params", len(compiled.Params), "groups", len(compiled.Groups))
	return nil
}

func (d *Driver) fetch(ctx context.Context, ref galaxy.ToolRef, values map[string]any, overrides Overrides) (*galaxy.Tool, *Compiled, error) {
	tool, err := d.source.ToolSchema(ctx, ref, values)
	if err != nil {
		return nil, nil, err
	}
	if tool == nil {
		return nil, nil, errNoSchema
	}
	compiled, err := CompileTool(tool.Inputs, overrides)
	if err != nil {
		return nil, nil, err
	}
	return tool, compiled, nil
}
