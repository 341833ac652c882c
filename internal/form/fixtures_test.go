package form

import (
	"testing"

	"github.com/me/galahad/pkg/galaxy"
)

// mappingTool resembles a read mapper: a top-level dataset, a reference
// conditional with two cases, and an advanced section holding another
// section and a conditional of its own.
const mappingTool = `{
  "id": "mapper",
  "name": "Map reads",
  "version": "2.5.0",
  "inputs": [
    {"name": "reads", "type": "data", "label": "Reads", "extensions": ["fastqsanger"],
     "options": {"hda": [{"id": "d1", "name": "1: reads.fq"}], "hdca": []}},
    {"name": "reference", "type": "conditional", "label": "Reference genome",
     "test_param": {"name": "source", "type": "select", "refresh_on_change": true, "value": "indexed",
       "options": [["Built-in index", "indexed", true], ["From history", "history", false]]},
     "cases": [
       {"value": "indexed", "inputs": [
         {"name": "index", "type": "select", "value": "hg38", "options": [["hg38", "hg38", true], ["mm10", "mm10", false]]}
       ]},
       {"value": "history", "inputs": [
         {"name": "own_reference", "type": "data", "extensions": ["fasta"]}
       ]}
     ]},
    {"name": "advanced", "type": "section", "title": "Advanced options", "expanded": false, "help": "Tuning",
     "inputs": [
       {"name": "threads", "type": "integer", "value": 4},
       {"name": "scoring", "type": "section", "title": "Scoring", "inputs": [
         {"name": "match", "type": "integer", "value": 2}
       ]},
       {"name": "trim", "type": "conditional",
        "test_param": {"name": "do_trim", "type": "boolean", "value": false},
        "cases": [
          {"value": "true", "inputs": [{"name": "trim_length", "type": "integer", "value": 10}]},
          {"value": "false", "inputs": []}
        ]}
     ]}
  ]
}`

func mustTool(t *testing.T, doc string) *galaxy.Tool {
	t.Helper()
	tool, err := galaxy.DecodeTool([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeTool() error = %v", err)
	}
	return tool
}

func paramNames(params []FlatParameter) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func groupNames(groups []DisplayGroup) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}
