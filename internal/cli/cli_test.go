package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

const mapperTool = `{
  "id": "mapper",
  "name": "Map reads",
  "version": "2.5.0",
  "inputs": [
    {"name": "reads", "type": "data", "label": "Reads", "extensions": ["fastqsanger"]},
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
    {"name": "threads", "type": "integer", "value": 4}
  ]
}`

// fakeGalaxy serves the handful of Galaxy endpoints the commands use.
type fakeGalaxy struct {
	builds atomic.Int32

	mu      sync.Mutex
	run     map[string]any
	uploads []map[string]string
}

func (g *fakeGalaxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/histories/most_recently_used":
		w.Write([]byte(`{"id":"hrecent","name":"Unnamed history"}`))
	case r.URL.Path == "/api/tools/mapper/build":
		g.builds.Add(1)
		w.Write([]byte(mapperTool))
	case r.URL.Path == "/api/tools" && r.Method == "GET":
		w.Write([]byte(`[
			{"id":"bowtie2/2.4","name":"Bowtie2","version":"2.4","description":"map reads"},
			{"id":"cat1","name":"Concatenate","version":"1.0.0","description":"tail-to-head"},
			{"id":"bowtie2/2.5.0","name":"Bowtie2","version":"2.5.0","description":"map reads"}
		]`))
	case r.URL.Path == "/api/tools" && r.Method == "POST":
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		g.mu.Lock()
		g.run = payload
		g.mu.Unlock()
		w.Write([]byte(`{"outputs":[{"id":"out1","name":"aligned.bam","state":"queued"}],"jobs":[{"id":"job1","state":"new"}]}`))
	case r.URL.Path == "/api/tools/fetch":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, hdr, err := r.FormFile("files_0|file_data")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.mu.Lock()
		g.uploads = append(g.uploads, map[string]string{
			"history_id": r.FormValue("history_id"),
			"targets":    r.FormValue("targets"),
			"file":       hdr.Filename,
		})
		n := len(g.uploads)
		g.mu.Unlock()
		fmt.Fprintf(w, `{"outputs":[{"id":"up%d","name":%q,"state":"queued"}],"jobs":[]}`, n, hdr.Filename)
	case strings.HasPrefix(r.URL.Path, "/api/datasets/up"):
		id := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
		fmt.Fprintf(w, `{"id":%q,"name":"upload %s","state":"ok","file_size":1500}`, id, id)
	case r.URL.Path == "/api/datasets/out1":
		w.Write([]byte(`{"id":"out1","name":"aligned.bam","state":"ok","file_size":2048}`))
	case r.URL.Path == "/api/authenticate/baseauth":
		user, pass, ok := r.BasicAuth()
		if !ok || user != "me@example.org" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"err_msg":"Invalid password","err_code":401}`))
			return
		}
		w.Write([]byte(`{"api_key":"k-123"}`))
	default:
		http.NotFound(w, r)
	}
}

// setupCLI isolates the command from the user's environment and starts a
// fake Galaxy server.
func setupCLI(t *testing.T) (*fakeGalaxy, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GALAXY_URL", "")
	t.Setenv("GALAXY_API_KEY", "")
	t.Setenv("GALAHAD_HISTORY", "")
	t.Setenv("GALAHAD_CACHE", filepath.Join(home, "cache", "schemas.db"))

	g := &fakeGalaxy{}
	ts := httptest.NewServer(g)
	t.Cleanup(ts.Close)
	return g, ts.URL
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompileCommand_File(t *testing.T) {
	setupCLI(t)
	toolFile := writeFile(t, "mapper.json", mapperTool)

	out, err := runCLI(t, "", "compile", toolFile, "--set", "source=history", "--set", "threads=8")
	if err != nil {
		t.Fatalf("compile error: %v\noutput: %s", err, out)
	}

	var snap struct {
		Title      string          `json:"title"`
		Values     map[string]any  `json:"values"`
		Visibility map[string]bool `json:"visibility"`
		Generation uint64          `json:"generation"`
	}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if snap.Title != "Map reads" {
		t.Errorf("title = %q", snap.Title)
	}
	if snap.Values["source"] != "history" || snap.Values["threads"] != "8" {
		t.Errorf("values = %v", snap.Values)
	}
	if !snap.Visibility["own_reference"] || snap.Visibility["index"] {
		t.Errorf("visibility = %v", snap.Visibility)
	}
	if snap.Generation != 1 {
		t.Errorf("generation = %d, want 1 (source refreshes on change)", snap.Generation)
	}
}

func TestCompileCommand_SpecOnlyWithOverrides(t *testing.T) {
	setupCLI(t)
	toolFile := writeFile(t, "mapper.json", mapperTool)
	overrides := writeFile(t, "overrides.yaml", "threads:\n  name: Threads\n  hide: true\n  maximum: 16\nmissing:\n  hide: true\n")

	out, err := runCLI(t, "", "compile", toolFile, "--overrides", overrides, "--spec-only")
	if err != nil {
		t.Fatalf("compile error: %v\noutput: %s", err, out)
	}
	var spec map[string]map[string]any
	if err := json.Unmarshal([]byte(out), &spec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	threads := spec["threads"]
	if threads["name"] != "Threads" || threads["hide"] != true || threads["maximum"] != 16.0 {
		t.Errorf("threads = %v", threads)
	}
	if _, ok := spec["missing"]; ok {
		t.Error("override for a missing parameter created an entry")
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "{\n  \"reads\"") {
		t.Errorf("spec does not start with the first parameter:\n%s", out)
	}
}

func TestCompileCommand_Errors(t *testing.T) {
	setupCLI(t)
	toolFile := writeFile(t, "mapper.json", mapperTool)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no tool", []string{"compile"}, "a tool file or --tool is required"},
		{"bad set", []string{"compile", toolFile, "--set", "threads"}, "expected name=value"},
		{"unknown parameter", []string{"compile", toolFile, "--set", "nope=1"}, "unknown parameter"},
		{"missing file", []string{"compile", filepath.Join(t.TempDir(), "none.json")}, "no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCompileCommand_GalaxyCached(t *testing.T) {
	g, url := setupCLI(t)

	for i := 0; i < 2; i++ {
		if out, err := runCLI(t, "", "--galaxy", url, "compile", "--tool", "mapper", "--spec-only"); err != nil {
			t.Fatalf("compile #%d error: %v\noutput: %s", i, err, out)
		}
	}
	if n := g.builds.Load(); n != 1 {
		t.Errorf("schema built %d times, want 1", n)
	}

	out, err := runCLI(t, "", "--galaxy", url, "cache", "list", "-o", "json")
	if err != nil {
		t.Fatalf("cache list error: %v", err)
	}
	var entries []struct {
		ToolID string `json:"tool_id"`
		Name   string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].ToolID != "mapper" || entries[0].Name != "Map reads" {
		t.Errorf("entries = %+v", entries)
	}

	out, err = runCLI(t, "", "--galaxy", url, "cache", "list", "-o", "table")
	if err != nil || !strings.HasPrefix(out, "TOOL") || !strings.Contains(out, "Map reads") {
		t.Errorf("cache list table: err = %v\n%s", err, out)
	}

	out, err = runCLI(t, "", "--galaxy", url, "cache", "purge")
	if err != nil || !strings.Contains(out, "Purged 1 cached schema\n") {
		t.Errorf("cache purge: err = %v, output = %q", err, out)
	}

	if _, err := runCLI(t, "", "--galaxy", url, "compile", "--tool", "mapper", "--no-cache"); err != nil {
		t.Fatal(err)
	}
	if n := g.builds.Load(); n != 2 {
		t.Errorf("schema built %d times after purge, want 2", n)
	}
}

func TestVisibilityCommand(t *testing.T) {
	setupCLI(t)
	toolFile := writeFile(t, "mapper.json", mapperTool)

	out, err := runCLI(t, "", "visibility", toolFile, "-o", "table")
	if err != nil {
		t.Fatalf("visibility error: %v", err)
	}
	if !strings.HasPrefix(out, "PARAM") {
		t.Errorf("missing header:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "reference|index":
			if fields[1] != "true" {
				t.Errorf("index line = %q", line)
			}
		case "reference|own_reference":
			if fields[1] != "false" {
				t.Errorf("own_reference line = %q", line)
			}
		}
	}

	out, err = runCLI(t, "", "visibility", toolFile, "--set", "source=history", "--hidden", "-o", "json")
	if err != nil {
		t.Fatalf("visibility error: %v", err)
	}
	var rows []visibilityRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].Name != "index" || rows[0].Controller != "source" || rows[0].When != "indexed" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestToolsCommand(t *testing.T) {
	_, url := setupCLI(t)

	out, err := runCLI(t, "", "--galaxy", url, "tools")
	if err != nil {
		t.Fatalf("tools error: %v", err)
	}
	var tools []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &tools); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(tools) != 2 || tools[0].ID != "bowtie2/2.5.0" || tools[1].ID != "cat1" {
		t.Errorf("tools = %+v", tools)
	}

	out, err = runCLI(t, "", "--galaxy", url, "tools", "--all", "-q", "bowtie", "-o", "table")
	if err != nil {
		t.Fatalf("tools error: %v", err)
	}
	if !strings.Contains(out, "bowtie2/2.4") || strings.Contains(out, "cat1") || !strings.Contains(out, "\n2 tools\n") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestLoginCommand(t *testing.T) {
	_, url := setupCLI(t)

	out, err := runCLI(t, "secret\n", "--galaxy", url, "login", "--email", "me@example.org")
	if err != nil {
		t.Fatalf("login error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Credentials saved to") {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(os.Getenv("HOME"), ".galahad", "credentials.json"))
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	var creds struct {
		URL    string `json:"url"`
		APIKey string `json:"api_key"`
	}
	json.Unmarshal(data, &creds)
	if creds.APIKey != "k-123" || creds.URL != url {
		t.Errorf("credentials = %+v", creds)
	}

	if _, err := runCLI(t, "wrong\n", "--galaxy", url, "login", "--email", "me@example.org"); err == nil ||
		!strings.Contains(err.Error(), "Invalid password") {
		t.Errorf("err = %v, want Invalid password", err)
	}
}

func TestRunCommand(t *testing.T) {
	g, url := setupCLI(t)

	out, err := runCLI(t, "", "--galaxy", url, "run", "--tool", "mapper", "--no-cache",
		"--set", "reads=d1", "--wait", "--poll-interval", "1ms")
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Submitted mapper@2.5.0 to history hrecent") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "aligned.bam: ok (2.0 kB)") {
		t.Errorf("wait output = %s", out)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.run["tool_id"] != "mapper" || g.run["history_id"] != "hrecent" {
		t.Errorf("payload = %v", g.run)
	}
	inputs, _ := g.run["inputs"].(map[string]any)
	reads, _ := inputs["reads"].(map[string]any)
	if reads["id"] != "d1" || reads["src"] != "hda" {
		t.Errorf("inputs = %v", inputs)
	}
	if _, ok := inputs["reference|own_reference"]; ok {
		t.Errorf("hidden parameter submitted: %v", inputs)
	}
}

func TestUploadCommand(t *testing.T) {
	g, url := setupCLI(t)
	reads := writeFile(t, "reads.fq", "@r1\nACGT\n+\nIIII\n")
	ref := writeFile(t, "ref.fa", ">chr1\nACGT\n")

	out, err := runCLI(t, "", "--galaxy", url, "upload", reads, ref, "--ext", "fastqsanger", "--wait", "--poll-interval", "1ms")
	if err != nil {
		t.Fatalf("upload error: %v\noutput: %s", err, out)
	}
	for _, want := range []string{
		"Uploaded reads.fq (16 B) to history hrecent as up1",
		"Uploaded ref.fa (11 B) to history hrecent as up2",
		"upload up2: ok (1.5 kB)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.uploads) != 2 {
		t.Fatalf("uploads = %v", g.uploads)
	}
	if g.uploads[0]["history_id"] != "hrecent" || g.uploads[0]["file"] != "reads.fq" {
		t.Errorf("first upload = %v", g.uploads[0])
	}
	if !strings.Contains(g.uploads[1]["targets"], `"ext":"fastqsanger"`) {
		t.Errorf("targets = %s", g.uploads[1]["targets"])
	}
}

func TestUploadCommand_Errors(t *testing.T) {
	_, url := setupCLI(t)
	if _, err := runCLI(t, "", "--galaxy", url, "upload"); err == nil {
		t.Error("expected error without files")
	}
	if _, err := runCLI(t, "", "--galaxy", url, "upload", filepath.Join(t.TempDir(), "missing.fq"), "--history", "h1"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	setupCLI(t)
	toolFile := writeFile(t, "mapper.json", mapperTool)

	out, err := runCLI(t, "", "run", toolFile, "--dry-run", "--set", "threads=2")
	if err != nil {
		t.Fatalf("run --dry-run error: %v", err)
	}
	var inputs map[string]any
	if err := json.Unmarshal([]byte(out), &inputs); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if inputs["reference|index"] != "hg38" || inputs["threads"] != "2" {
		t.Errorf("inputs = %v", inputs)
	}
}
