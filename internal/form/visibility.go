package form

// ComputeVisibility derives the visibility of every parameter from the
// current values. A dependent is visible only when its controller is
// visible, the controller's value is one of the controller's known
// choices, and that value equals the dependent's display value. A
// controller without a value falls back to its default; to judge only
// the values given, include every controller's value in values. Everything
// that is not a dependent is always visible.
func ComputeVisibility(params []FlatParameter, values map[string]any) map[string]bool {
	v := &visibilityPass{
		params:  make(map[string]FlatParameter, len(params)),
		values:  values,
		result:  make(map[string]bool, len(params)),
		pending: map[string]bool{},
	}
	for _, p := range params {
		v.params[p.Name] = p
	}
	for _, p := range params {
		v.visible(p.Name)
	}
	return v.result
}

type visibilityPass struct {
	params  map[string]FlatParameter
	values  map[string]any
	result  map[string]bool
	pending map[string]bool
}

func (v *visibilityPass) visible(name string) bool {
	if vis, ok := v.result[name]; ok {
		return vis
	}
	p, ok := v.params[name]
	if !ok || v.pending[name] {
		// Unknown controllers and cycles hide their dependents.
		return false
	}
	if !p.Dependent() {
		v.result[name] = true
		return true
	}

	v.pending[name] = true
	vis := v.visible(p.ConditionalParam) && v.selects(v.params[p.ConditionalParam], p.ConditionalDisplay)
	delete(v.pending, name)
	v.result[name] = vis
	return vis
}

// selects reports whether ctrl's current value is valid and equals display.
func (v *visibilityPass) selects(ctrl FlatParameter, display string) bool {
	current, ok := v.values[ctrl.Name]
	if !ok {
		current = NormalizeValue(ctrl.Value)
	}
	key := valueKey(current)
	if !acceptsValue(ctrl, key) {
		return false
	}
	return key == display
}

// acceptsValue checks key against the controller's choice set: its options
// (or the synthesized boolean pair) when present, else its case values.
func acceptsValue(ctrl FlatParameter, key string) bool {
	if choices := MapType(ctrl.RawParameter).Choices; len(choices) > 0 {
		return choices.Contains(key)
	}
	for _, c := range ctrl.ConditionalCases {
		if c == key {
			return true
		}
	}
	return false
}

// DiffVisibility returns the entries of next whose state differs from prev.
func DiffVisibility(prev, next map[string]bool) map[string]bool {
	diff := map[string]bool{}
	for name, vis := range next {
		if old, ok := prev[name]; !ok || old != vis {
			diff[name] = vis
		}
	}
	return diff
}
