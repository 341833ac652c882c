package form

import (
	"github.com/me/galahad/pkg/galaxy"
)

// PathSeparator joins nested parameter names into Galaxy submission keys.
const PathSeparator = "|"

// Flatten expands a nested input schema into display groups and a flat,
// ordered parameter list. Groups of nested sections and conditionals come
// before the group of their parent. The input is never modified.
func Flatten(inputs []galaxy.RawParameter) ([]DisplayGroup, []FlatParameter, error) {
	f := &flattener{
		groups: []DisplayGroup{},
		params: []FlatParameter{},
	}
	if _, err := f.walk(inputs, "", scope{}); err != nil {
		return nil, nil, err
	}
	return f.groups, f.params, nil
}

type flattener struct {
	groups []DisplayGroup
	params []FlatParameter
}

// scope is the conditional branch enclosing the parameters being walked.
type scope struct {
	controller string
	display    string
}

// walk appends the flattened form of inputs and returns the names that
// belong directly to the enclosing group.
func (f *flattener) walk(inputs []galaxy.RawParameter, prefix string, sc scope) ([]string, error) {
	direct := []string{}
	for _, p := range inputs {
		path := joinPath(prefix, p.Name)
		switch p.Type {
		case galaxy.TypeSection:
			children, err := f.walk(p.Inputs, path, sc)
			if err != nil {
				return nil, err
			}
			f.groups = append(f.groups, DisplayGroup{
				Name:        groupTitle(p),
				Description: p.Help,
				Hidden:      p.Expanded != nil && !bool(*p.Expanded),
				Parameters:  children,
			})

		case galaxy.TypeConditional:
			name, err := f.conditional(p, path, sc)
			if err != nil {
				return nil, err
			}
			direct = append(direct, name)

		default:
			f.params = append(f.params, FlatParameter{
				RawParameter:       p,
				Path:               path,
				ConditionalParam:   sc.controller,
				ConditionalDisplay: sc.display,
			})
			direct = append(direct, p.Name)
		}
	}
	return direct, nil
}

// conditional appends the controller, then every case's inputs, then the
// conditional's own group. It returns the controller name.
func (f *flattener) conditional(p galaxy.RawParameter, path string, sc scope) (string, error) {
	if p.TestParam == nil {
		return "", &SchemaError{Path: path, Reason: "conditional has no test_param"}
	}
	if p.TestParam.Name == "" {
		return "", &SchemaError{Path: path, Reason: "conditional test_param has no name"}
	}

	cases := make([]string, len(p.Cases))
	for i, c := range p.Cases {
		cases[i] = string(c.Value)
	}
	ctrl := FlatParameter{
		RawParameter:       *p.TestParam,
		Path:               joinPath(path, p.TestParam.Name),
		ConditionalTest:    true,
		ConditionalParam:   sc.controller,
		ConditionalDisplay: sc.display,
		ConditionalCases:   cases,
	}
	f.params = append(f.params, ctrl)

	members := []string{ctrl.Name}
	for _, c := range p.Cases {
		names, err := f.walk(c.Inputs, path, scope{controller: ctrl.Name, display: string(c.Value)})
		if err != nil {
			return "", err
		}
		members = append(members, names...)
	}
	f.groups = append(f.groups, DisplayGroup{
		Name:        groupTitle(p),
		Description: p.Help,
		Parameters:  members,
	})
	return ctrl.Name, nil
}

func groupTitle(p galaxy.RawParameter) string {
	switch {
	case p.Label != "":
		return p.Label
	case p.Title != "":
		return p.Title
	default:
		return p.Name
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + PathSeparator + name
}
