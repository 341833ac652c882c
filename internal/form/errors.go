package form

import (
	"errors"
	"fmt"

	"github.com/me/galahad/pkg/galaxy"
)

var (
	// ErrSchemaMalformed is returned when a parameter lacks a field its
	// type requires, such as a conditional without a test parameter.
	ErrSchemaMalformed = errors.New("malformed tool schema")

	// ErrRecompilationFailed marks a failed dynamic recompilation. The form
	// keeps its previous state.
	ErrRecompilationFailed = errors.New("recompilation failed")

	// ErrStaleRecompilation is returned when a newer recompilation was
	// started before this one finished; its result was discarded.
	ErrStaleRecompilation = errors.New("recompilation superseded by a newer request")

	// ErrUnknownParameter is returned when a value is set for a name the
	// compiled form does not contain.
	ErrUnknownParameter = errors.New("unknown parameter")

	errNoSchema = fmt.Errorf("%w: schema source returned no tool", ErrSchemaMalformed)
)

// SchemaError describes a malformed parameter.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMalformed
}

// RecompilationError wraps the cause of a failed recompilation.
type RecompilationError struct {
	Tool galaxy.ToolRef
	Err  error
}

func (e *RecompilationError) Error() string {
	return fmt.Sprintf("recompile %s: %v", e.Tool, e.Err)
}

// Unwrap exposes both ErrRecompilationFailed and the underlying cause.
func (e *RecompilationError) Unwrap() []error {
	return []error{ErrRecompilationFailed, e.Err}
}
