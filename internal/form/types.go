// Package form compiles Galaxy tool input schemas into flat, renderer-ready
// form specifications and tracks conditional visibility for open forms.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/me/galahad/pkg/galaxy"
	"gopkg.in/yaml.v3"
)

// FieldType is the generic UI field type a renderer draws.
type FieldType string

const (
	FieldChoice FieldType = "choice"
	FieldText   FieldType = "text"
	FieldFile   FieldType = "file"
	FieldNumber FieldType = "number"
	FieldColor  FieldType = "color"
)

// MaxMultiple caps the number of selections of any multi-valued field.
const MaxMultiple = 100

// Choice is one label/value pair offered by a choice field.
type Choice struct {
	Label string
	Value any
}

// Choices is an ordered label->value mapping. It encodes as a JSON object
// whose keys keep their order.
type Choices []Choice

// Contains reports whether v matches the value of any choice.
func (c Choices) Contains(v any) bool {
	key := valueKey(v)
	for _, ch := range c {
		if valueKey(ch.Value) == key {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (c Choices) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ch := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(ch.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ch.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping document order.
func (c *Choices) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("choices: expected object")
	}
	out := Choices{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("choices %q: %w", label, err)
		}
		out = out.set(label, v)
	}
	*c = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler, keeping document order.
func (c *Choices) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("choices: line %d: expected mapping", n.Line)
	}
	out := Choices{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return err
		}
		out = out.set(n.Content[i].Value, v)
	}
	*c = out
	return nil
}

// set replaces the value of an existing label in place or appends a new one.
func (c Choices) set(label string, v any) Choices {
	for i := range c {
		if c[i].Label == label {
			c[i].Value = v
			return c
		}
	}
	return append(c, Choice{Label: label, Value: v})
}

// FieldAttributes is the outcome of mapping one raw parameter.
type FieldAttributes struct {
	Type     FieldType
	Optional bool
	Multiple bool
	Maximum  int
	Combo    bool
	Hide     bool
	Kinds    []string
	Choices  Choices
}

// FlatParameter is a leaf parameter after flattening. It keeps every raw
// attribute and adds its submission path and conditional wiring.
type FlatParameter struct {
	galaxy.RawParameter

	// Path is the Galaxy submission key, e.g. "section|param".
	Path string `json:"path"`

	ConditionalTest    bool     `json:"conditional_test,omitempty"`
	ConditionalParam   string   `json:"conditional_param,omitempty"`
	ConditionalDisplay string   `json:"conditional_display,omitempty"`
	ConditionalCases   []string `json:"conditional_cases,omitempty"`
}

// Dependent reports whether a controller governs p's visibility.
func (p FlatParameter) Dependent() bool {
	return p.ConditionalParam != ""
}

// DisplayGroup is a named, collapsible cluster of parameters.
type DisplayGroup struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Hidden      bool     `json:"hidden"`
	Parameters  []string `json:"parameters"`
}

// Entry is the compiled spec of one parameter.
type Entry struct {
	Param       string    `json:"-"`
	Name        string    `json:"name"`
	Default     any       `json:"default"`
	Description string    `json:"description"`
	Optional    bool      `json:"optional"`
	Kinds       []string  `json:"kinds"`
	Type        FieldType `json:"type"`
	Choices     Choices   `json:"choices,omitempty"`
	Multiple    bool      `json:"multiple,omitempty"`
	Maximum     int       `json:"maximum,omitempty"`
	Combo       bool      `json:"combo,omitempty"`
	Hide        bool      `json:"hide,omitempty"`
}

// Spec is the compiled parameter specification in flattening order.
type Spec []Entry

// Lookup returns the entry for a parameter name.
func (s Spec) Lookup(name string) (Entry, bool) {
	for _, e := range s {
		if e.Param == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns the parameter names in order.
func (s Spec) Names() []string {
	names := make([]string, len(s))
	for i, e := range s {
		names[i] = e.Param
	}
	return names
}

// MarshalJSON encodes the spec as an object keyed by parameter name.
func (s Spec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Param)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.Param, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Compiled is the full output of one compilation pass. It is never mutated
// after construction; recompilation builds a new one.
type Compiled struct {
	Groups []DisplayGroup  `json:"groups"`
	Params []FlatParameter `json:"params"`
	Spec   Spec            `json:"spec"`
}

// Param returns the flattened parameter with the given name.
func (c *Compiled) Param(name string) (FlatParameter, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return FlatParameter{}, false
}
