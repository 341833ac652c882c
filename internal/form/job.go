package form

import (
	"github.com/me/galahad/pkg/galaxy"
)

// JobInputs builds the inputs of a Galaxy tool run, keyed by submission
// path. Parameters hidden by their controller are left out. Dataset and
// collection values are wrapped as {id, src} references.
func JobInputs(params []FlatParameter, values map[string]any, visibility map[string]bool) map[string]any {
	inputs := make(map[string]any, len(params))
	for _, p := range params {
		if vis, ok := visibility[p.Name]; ok && !vis {
			continue
		}
		v, ok := values[p.Name]
		if !ok {
			continue
		}
		switch p.Type {
		case galaxy.TypeData:
			inputs[p.Path] = datasetRef(v, "hda")
		case galaxy.TypeDataCollection:
			inputs[p.Path] = datasetRef(v, "hdca")
		default:
			inputs[p.Path] = v
		}
	}
	return inputs
}

func datasetRef(v any, src string) any {
	ref := func(id any) map[string]any {
		return map[string]any{"id": valueKey(id), "src": src}
	}
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return ref(x)
	case []string:
		return refList(len(x), func(i int) any { return x[i] }, ref)
	case []any:
		return refList(len(x), func(i int) any { return x[i] }, ref)
	case map[string]any:
		// Already a reference, or a {"values": [...]} selection.
		if ids, ok := selectionIDs(x); ok {
			return datasetRef(ids, src)
		}
		return x
	default:
		return ref(x)
	}
}

func refList(n int, at func(int) any, ref func(any) map[string]any) any {
	if n == 0 {
		return nil
	}
	refs := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		refs = append(refs, ref(at(i)))
	}
	if n == 1 {
		return refs[0]
	}
	return map[string]any{"values": refs}
}

// JobInputs builds the run inputs from the form's current state.
func (f *Form) JobInputs() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return JobInputs(f.compiled.Params, f.values, f.visibility)
}
