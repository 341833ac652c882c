package form

import (
	"fmt"
	"maps"
	"sync"

	"github.com/me/galahad/pkg/galaxy"
)

// Form is the engine state of one open form: the current compilation,
// the values entered so far and the derived visibility. It is safe for
// concurrent use.
type Form struct {
	mu         sync.Mutex
	tool       galaxy.ToolRef
	title      string
	overrides  Overrides
	compiled   *Compiled
	values     map[string]any
	visibility map[string]bool
	message    string
	generation uint64
}

// Snapshot is an immutable copy of a form's state for renderers.
type Snapshot struct {
	Tool       galaxy.ToolRef  `json:"tool"`
	Title      string          `json:"title"`
	Groups     []DisplayGroup  `json:"groups"`
	Params     []FlatParameter `json:"params"`
	Spec       Spec            `json:"spec"`
	Values     map[string]any  `json:"values"`
	Visibility map[string]bool `json:"visibility"`
	Message    string          `json:"message,omitempty"`
	Generation uint64          `json:"generation"`
}

// Change reports the effect of setting one value.
type Change struct {
	Param      string          `json:"param"`
	Changed    bool            `json:"changed"`
	Visibility map[string]bool `json:"visibility"`
	Refresh    bool            `json:"refresh"`
}

// NewForm compiles tool and opens a form seeded with the spec defaults.
func NewForm(ref galaxy.ToolRef, tool *galaxy.Tool, overrides Overrides) (*Form, error) {
	if tool == nil {
		return nil, errNoSchema
	}
	compiled, err := CompileTool(tool.Inputs, overrides)
	if err != nil {
		return nil, err
	}
	if ref.ID == "" {
		ref.ID = tool.ID
	}
	if ref.Version == "" {
		ref.Version = tool.Version
	}
	f := &Form{
		tool:      ref,
		title:     tool.Name,
		overrides: overrides,
	}
	f.install(compiled, nil)
	return f, nil
}

// install replaces the compiled state. Values of parameters that survive
// are kept when still acceptable; everything else starts at its default.
func (f *Form) install(compiled *Compiled, previous map[string]any) {
	values := make(map[string]any, len(compiled.Spec))
	for _, e := range compiled.Spec {
		values[e.Param] = e.Default
		if v, ok := previous[e.Param]; ok && keepValue(e, v) {
			values[e.Param] = v
		}
	}
	f.compiled = compiled
	f.values = values
	f.visibility = ComputeVisibility(compiled.Params, values)
}

func keepValue(e Entry, v any) bool {
	if e.Type != FieldChoice || e.Combo || len(e.Choices) == 0 {
		return true
	}
	switch list := v.(type) {
	case []string:
		for _, item := range list {
			if !e.Choices.Contains(item) {
				return false
			}
		}
		return true
	case []any:
		for _, item := range list {
			if !e.Choices.Contains(item) {
				return false
			}
		}
		return true
	}
	return e.Choices.Contains(v)
}

// Tool returns the tool the form was opened for.
func (f *Form) Tool() galaxy.ToolRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tool
}

// Compiled returns the current compilation. It must not be modified.
func (f *Form) Compiled() *Compiled {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compiled
}

// SetValue records a value and recomputes visibility from scratch.
func (f *Form) SetValue(name string, v any) (Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.compiled.Param(name)
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if e, _ := f.compiled.Spec.Lookup(name); e.Type == FieldChoice && e.Multiple {
		v = CoerceMultiple(v)
	}

	prev := f.values[name]
	f.values[name] = v
	next := ComputeVisibility(f.compiled.Params, f.values)
	change := Change{
		Param:      name,
		Changed:    valueKey(prev) != valueKey(v),
		Visibility: DiffVisibility(f.visibility, next),
	}
	change.Refresh = change.Changed && bool(p.RefreshOnChange)
	f.visibility = next
	return change, nil
}

// Values returns a copy of the current values.
func (f *Form) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.values)
}

// Visibility returns a copy of the current visibility state.
func (f *Form) Visibility() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.visibility)
}

// Snapshot returns a copy of the current state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Tool:       f.tool,
		Title:      f.title,
		Groups:     f.compiled.Groups,
		Params:     f.compiled.Params,
		Spec:       f.compiled.Spec,
		Values:     maps.Clone(f.values),
		Visibility: maps.Clone(f.visibility),
		Message:    f.message,
		Generation: f.generation,
	}
}

// Message returns the last user-visible message, such as a failed
// recompilation.
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// begin starts a recompilation and returns its generation together with
// the inputs the fetch needs.
func (f *Form) begin() (uint64, galaxy.ToolRef, map[string]any, Overrides) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	return f.generation, f.tool, maps.Clone(f.values), f.overrides
}

// commit installs a recompilation result unless a newer one has started.
func (f *Form) commit(gen uint64, tool *galaxy.Tool, compiled *Compiled) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return false
	}
	if tool.Name != "" {
		f.title = tool.Name
	}
	if tool.Version != "" {
		f.tool.Version = tool.Version
	}
	f.message = ""
	f.install(compiled, f.values)
	return true
}

// fail records a failure message unless a newer recompilation has started.
func (f *Form) fail(gen uint64, msg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return false
	}
	f.message = msg
	return true
}
