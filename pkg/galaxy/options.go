package galaxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Option is one selectable entry of a parameter's options. Group is set only
// when the options came from a grouped mapping (e.g. hda/hdca for data inputs).
type Option struct {
	Label string
	Value any
	Group string
}

// Options is the choice source of a parameter. Galaxy sends either a list of
// [label, value, selected] tuples or a mapping of group name to a list of
// {name, id} items; both are decoded into a flat list in document order.
type Options struct {
	Grouped bool
	Items   []Option
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Options) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*o = Options{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		return o.decodePairs(trimmed)
	case '{':
		return o.decodeGroups(trimmed)
	default:
		return fmt.Errorf("options: unexpected JSON %.20s", string(trimmed))
	}
}

func (o *Options) decodePairs(data []byte) error {
	var pairs [][]any
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	for i, pair := range pairs {
		if len(pair) < 2 {
			return fmt.Errorf("options: entry %d has %d elements, want at least 2", i, len(pair))
		}
		o.Items = append(o.Items, Option{Label: labelString(pair[0]), Value: pair[1]})
	}
	return nil
}

func (o *Options) decodeGroups(data []byte) error {
	o.Grouped = true
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("options: %w", err)
		}
		group, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("options: group %q: %w", group, err)
		}
		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			// Non-list entries carry metadata, not choices.
			continue
		}
		for _, item := range items {
			o.Items = append(o.Items, Option{
				Label: labelString(item["name"]),
				Value: item["id"],
				Group: group,
			})
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, reproducing the shape it was
// decoded from.
func (o Options) MarshalJSON() ([]byte, error) {
	if !o.Grouped {
		pairs := make([][]any, 0, len(o.Items))
		for _, it := range o.Items {
			pairs = append(pairs, []any{it.Label, it.Value})
		}
		return json.Marshal(pairs)
	}

	var order []string
	groups := map[string][]map[string]any{}
	for _, it := range o.Items {
		if _, ok := groups[it.Group]; !ok {
			order = append(order, it.Group)
		}
		groups[it.Group] = append(groups[it.Group], map[string]any{"name": it.Label, "id": it.Value})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(g)
		buf.Write(key)
		buf.WriteByte(':')
		items, err := json.Marshal(groups[g])
		if err != nil {
			return nil, err
		}
		buf.Write(items)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func labelString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
