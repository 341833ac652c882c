package form

import (
	"reflect"
	"testing"

	"github.com/me/galahad/pkg/galaxy"
)

func TestJobInputs(t *testing.T) {
	f, err := NewForm(galaxy.ToolRef{}, mustTool(t, mappingTool), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.SetValue("reads", "d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.SetValue("do_trim", "true"); err != nil {
		t.Fatal(err)
	}

	got := f.JobInputs()
	want := map[string]any{
		"reads":                     map[string]any{"id": "d1", "src": "hda"},
		"reference|source":          "indexed",
		"reference|index":           "hg38",
		"advanced|threads":          "4",
		"advanced|scoring|match":    "2",
		"advanced|trim|do_trim":     "true",
		"advanced|trim|trim_length": "10",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("JobInputs() = %v\nwant %v", got, want)
	}
}

func TestJobInputs_DatasetShapes(t *testing.T) {
	params := []FlatParameter{
		{RawParameter: galaxy.RawParameter{Name: "single", Type: galaxy.TypeData}, Path: "single"},
		{RawParameter: galaxy.RawParameter{Name: "many", Type: galaxy.TypeData}, Path: "many"},
		{RawParameter: galaxy.RawParameter{Name: "coll", Type: galaxy.TypeDataCollection}, Path: "coll"},
		{RawParameter: galaxy.RawParameter{Name: "empty", Type: galaxy.TypeData}, Path: "empty"},
		{RawParameter: galaxy.RawParameter{Name: "hidden", Type: galaxy.TypeText}, Path: "hidden"},
	}
	values := map[string]any{
		"single": []string{"a"},
		"many":   []any{"a", "b"},
		"coll":   "c1",
		"empty":  "",
		"hidden": "x",
	}
	got := JobInputs(params, values, map[string]bool{"hidden": false})
	want := map[string]any{
		"single": map[string]any{"id": "a", "src": "hda"},
		"many": map[string]any{"values": []map[string]any{
			{"id": "a", "src": "hda"},
			{"id": "b", "src": "hda"},
		}},
		"coll":  map[string]any{"id": "c1", "src": "hdca"},
		"empty": nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("JobInputs() = %v\nwant %v", got, want)
	}
}
