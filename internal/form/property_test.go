package form

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/me/galahad/pkg/galaxy"
)

var knownFieldTypes = map[galaxy.ParamType]FieldType{
	galaxy.TypeSelect: FieldChoice, galaxy.TypeGenomeBuild: FieldChoice, galaxy.TypeDataColumn: FieldChoice,
	galaxy.TypeDrillDown: FieldChoice, galaxy.TypeBoolean: FieldChoice,
	galaxy.TypeUploadDataset: FieldFile, galaxy.TypeData: FieldFile, galaxy.TypeDataCollection: FieldFile,
	galaxy.TypeHiddenData: FieldFile,
	galaxy.TypeInteger:    FieldNumber, galaxy.TypeFloat: FieldNumber,
	galaxy.TypeColor: FieldColor,
}

func genParamType() gopter.Gen {
	types := make([]any, len(galaxy.ParamTypes))
	for i, pt := range galaxy.ParamTypes {
		types[i] = pt
	}
	return gen.OneConstOf(types...)
}

func TestMapTypeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("vocabulary maps per table", prop.ForAll(
		func(pt galaxy.ParamType) bool {
			want, ok := knownFieldTypes[pt]
			if !ok {
				want = FieldText
			}
			return MapType(galaxy.RawParameter{Type: pt}).Type == want
		},
		genParamType(),
	))

	properties.Property("unknown types map to text", prop.ForAll(
		func(s string) bool {
			pt := galaxy.ParamType(s)
			if pt.Known() {
				return true
			}
			return MapType(galaxy.RawParameter{Type: pt}).Type == FieldText
		},
		gen.AnyString(),
	))

	properties.Property("multiple always caps at MaxMultiple", prop.ForAll(
		func(pt galaxy.ParamType, optional bool) bool {
			attrs := MapType(galaxy.RawParameter{Type: pt, Multiple: true, Optional: galaxy.Flag(optional)})
			return attrs.Multiple && attrs.Maximum == MaxMultiple
		},
		genParamType(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestFormValueProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("strings pass through", prop.ForAll(
		func(s string) bool { return FormValue(s) == s },
		gen.AnyString(),
	))
	properties.Property("numbers pass through", prop.ForAll(
		func(n int) bool { return FormValue(n) == n },
		gen.Int(),
	))
	properties.Property("normalized strings are unchanged", prop.ForAll(
		func(s string) bool { return NormalizeValue(s) == s },
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestCompileIdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("same schema and overrides compile identically", prop.ForAll(
		func(types []galaxy.ParamType, label string, multiple bool) bool {
			inputs := make([]galaxy.RawParameter, 0, len(types))
			for i, pt := range types {
				p := galaxy.RawParameter{
					Name:     "p" + string(rune('a'+i%26)) + label,
					Type:     pt,
					Label:    label,
					Multiple: galaxy.Flag(multiple),
				}
				switch pt {
				case galaxy.TypeConditional:
					p.TestParam = &galaxy.RawParameter{Name: "t" + p.Name, Type: galaxy.TypeBoolean}
					p.Cases = []galaxy.Case{{Value: "true", Inputs: []galaxy.RawParameter{{Name: "x" + p.Name, Type: galaxy.TypeText}}}}
				case galaxy.TypeSection:
					p.Inputs = []galaxy.RawParameter{{Name: "s" + p.Name, Type: galaxy.TypeInteger, Value: 1.0}}
				}
				inputs = append(inputs, p)
			}
			overrides := Overrides{"pa" + label: {Name: &label}}

			a, errA := CompileTool(inputs, overrides)
			b, errB := CompileTool(inputs, overrides)
			if errA != nil || errB != nil {
				return false
			}
			return reflect.DeepEqual(a, b)
		},
		gen.SliceOfN(8, genParamType()),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
