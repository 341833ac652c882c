package form

import (
	"strings"

	"github.com/me/galahad/pkg/galaxy"
	"gopkg.in/yaml.v3"
)

// MapType maps a raw parameter to its UI field attributes. Types outside
// the known vocabulary map to text; this never fails.
func MapType(p galaxy.RawParameter) FieldAttributes {
	attrs := FieldAttributes{Type: fieldType(p.Type)}
	if p.Optional {
		attrs.Optional = true
	}
	if p.Multiple {
		attrs.Multiple = true
		attrs.Maximum = MaxMultiple
	}
	attrs.Combo = bool(p.Textable)
	attrs.Hide = bool(p.Hidden)
	if len(p.Extensions) > 0 {
		attrs.Kinds = append([]string(nil), p.Extensions...)
	}
	if p.Options != nil {
		attrs.Choices = choicesFromOptions(p.Options)
	}
	if p.Type == galaxy.TypeBoolean && len(attrs.Choices) == 0 {
		attrs.Choices = booleanChoices()
	}
	return attrs
}

func fieldType(t galaxy.ParamType) FieldType {
	switch t {
	case galaxy.TypeSelect, galaxy.TypeGenomeBuild, galaxy.TypeDataColumn, galaxy.TypeDrillDown, galaxy.TypeBoolean:
		return FieldChoice
	case galaxy.TypeUploadDataset, galaxy.TypeData, galaxy.TypeDataCollection, galaxy.TypeHiddenData:
		return FieldFile
	case galaxy.TypeInteger, galaxy.TypeFloat:
		return FieldNumber
	case galaxy.TypeColor:
		return FieldColor
	default:
		// hidden, conditional, baseurl, directory_uri, repeat, rules,
		// section and anything unknown.
		return FieldText
	}
}

func booleanChoices() Choices {
	return Choices{{Label: "Yes", Value: "true"}, {Label: "No", Value: "false"}}
}

// choicesFromOptions flattens pairs or grouped items into label->value.
// A repeated label keeps its first position and takes the last value.
func choicesFromOptions(o *galaxy.Options) Choices {
	out := make(Choices, 0, len(o.Items))
	for _, item := range o.Items {
		out = out.set(item.Label, item.Value)
	}
	return out
}

// CoerceMultiple turns the default of a multi-select field into a list.
// Strings starting with "[" are parsed as literal lists ("['a', 'b']" or
// JSON) with element text kept as written; any other string becomes a
// one-element list and nil, "", "None" or "null" an empty one.
func CoerceMultiple(v any) []string {
	switch x := v.(type) {
	case nil:
		return []string{}
	case []string:
		return append([]string{}, x...)
	case []any:
		return stringList(x)
	case string:
		s := strings.TrimSpace(x)
		switch {
		case s == "" || s == "None" || s == "null":
			return []string{}
		case !strings.HasPrefix(s, "["):
			return []string{x}
		}
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(s), &doc); err != nil ||
			len(doc.Content) != 1 || doc.Content[0].Kind != yaml.SequenceNode {
			return []string{x}
		}
		return sequenceValues(doc.Content[0])
	default:
		return []string{valueKey(v)}
	}
}

func sequenceValues(seq *yaml.Node) []string {
	out := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		switch {
		case item.Kind == yaml.ScalarNode && item.Tag == "!!null":
		case item.Kind == yaml.ScalarNode && item.Style == 0 && item.Value == "None":
		case item.Kind == yaml.ScalarNode:
			out = append(out, item.Value)
		default:
			var v any
			if err := item.Decode(&v); err == nil {
				out = append(out, valueKey(v))
			}
		}
	}
	return out
}

func stringList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, valueKey(item))
	}
	return out
}
