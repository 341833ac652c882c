package form

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NormalizeValue converts a raw default into its display form. A dataset
// selection ({"values": [{"id": ...}, ...]}) becomes the list of ids; nil
// stays nil; everything else is stringified.
func NormalizeValue(raw any) any {
	if raw == nil {
		return nil
	}
	if m, ok := raw.(map[string]any); ok {
		if ids, ok := selectionIDs(m); ok {
			return ids
		}
	}
	return valueKey(raw)
}

// FormValue replaces nil with the empty string so renderers never see null.
func FormValue(x any) any {
	if x == nil {
		return ""
	}
	return x
}

func selectionIDs(m map[string]any) ([]string, bool) {
	values, ok := m["values"].([]any)
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		item, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		id, ok := item["id"]
		if !ok {
			return nil, false
		}
		ids = append(ids, valueKey(id))
	}
	return ids, true
}

// valueKey is the canonical string form of a value, used for display and
// for comparing controller values with case values.
func valueKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
