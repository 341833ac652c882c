package form

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/galahad/pkg/galaxy"
	"gopkg.in/yaml.v3"
)

// Override replaces individual attributes of a compiled entry. Nil fields
// leave the derived value in place.
type Override struct {
	Name        *string    `json:"name,omitempty" yaml:"name,omitempty"`
	Default     *any       `json:"default,omitempty" yaml:"default,omitempty"`
	Description *string    `json:"description,omitempty" yaml:"description,omitempty"`
	Optional    *bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
	Kinds       []string   `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	Type        *FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Choices     Choices    `json:"choices,omitempty" yaml:"choices,omitempty"`
	Multiple    *bool      `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Maximum     *int       `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Combo       *bool      `json:"combo,omitempty" yaml:"combo,omitempty"`
	Hide        *bool      `json:"hide,omitempty" yaml:"hide,omitempty"`
}

// Overrides maps parameter names to their overrides. Names that match no
// parameter are ignored.
type Overrides map[string]Override

func (o Override) apply(e *Entry) {
	if o.Name != nil {
		e.Name = *o.Name
	}
	if o.Default != nil {
		e.Default = FormValue(*o.Default)
	}
	if o.Description != nil {
		e.Description = *o.Description
	}
	if o.Optional != nil {
		e.Optional = *o.Optional
	}
	if o.Kinds != nil {
		e.Kinds = append([]string{}, o.Kinds...)
	}
	if o.Type != nil {
		e.Type = *o.Type
	}
	if o.Choices != nil {
		e.Choices = append(Choices{}, o.Choices...)
	}
	if o.Multiple != nil {
		e.Multiple = *o.Multiple
		if o.Maximum == nil {
			e.Maximum = 0
			if e.Multiple {
				e.Maximum = MaxMultiple
			}
		}
	}
	if o.Maximum != nil {
		e.Maximum = *o.Maximum
	}
	if o.Combo != nil {
		e.Combo = *o.Combo
	}
	if o.Hide != nil {
		e.Hide = *o.Hide
	}
}

// Compile builds the parameter spec for flattened parameters. Each
// attribute is resolved independently: an override wins, otherwise the
// derived value is used.
func Compile(params []FlatParameter, overrides Overrides) Spec {
	spec := make(Spec, 0, len(params))
	for _, p := range params {
		spec = append(spec, compileEntry(p, overrides))
	}
	return spec
}

func compileEntry(p FlatParameter, overrides Overrides) Entry {
	attrs := MapType(p.RawParameter)
	e := Entry{
		Param:       p.Name,
		Name:        p.Name,
		Default:     FormValue(NormalizeValue(p.Value)),
		Description: p.Help,
		Optional:    attrs.Optional,
		Kinds:       attrs.Kinds,
		Type:        attrs.Type,
		Choices:     attrs.Choices,
		Multiple:    attrs.Multiple,
		Maximum:     attrs.Maximum,
		Combo:       attrs.Combo,
		Hide:        attrs.Hide,
	}
	if p.Label != "" {
		e.Name = p.Label
	}
	if e.Kinds == nil {
		e.Kinds = []string{}
	}
	if o, ok := overrides[p.Name]; ok {
		o.apply(&e)
	}
	if e.Type == FieldChoice && e.Multiple {
		e.Default = CoerceMultiple(e.Default)
	}
	return e
}

// CompileTool flattens and compiles a tool's inputs in one pass.
func CompileTool(inputs []galaxy.RawParameter, overrides Overrides) (*Compiled, error) {
	groups, params, err := Flatten(inputs)
	if err != nil {
		return nil, err
	}
	return &Compiled{
		Groups: groups,
		Params: params,
		Spec:   Compile(params, overrides),
	}, nil
}

// LoadOverrides reads overrides from a YAML or JSON file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data, filepath.Ext(path))
}

// ParseOverrides decodes overrides; ext selects YAML (".yaml", ".yml") or JSON.
func ParseOverrides(data []byte, ext string) (Overrides, error) {
	var o Overrides
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("parse overrides: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("parse overrides: %w", err)
		}
	}
	if o == nil {
		o = Overrides{}
	}
	return o, nil
}
