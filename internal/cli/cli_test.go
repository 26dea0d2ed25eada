package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoedit/internal/config"
	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/session"
	"github.com/matzehuels/topoedit/pkg/topology"
	"github.com/matzehuels/topoedit/pkg/validate"
)

const recording = `{
	"name": "motion-recording",
	"properties": {
		"sources": [{
			"@type": "#Microsoft.VideoAnalyzer.RtspSource",
			"name": "rtspSource",
			"endpoint": {"@type": "#Microsoft.VideoAnalyzer.UnsecuredEndpoint", "url": "rtsp://camera"}
		}],
		"processors": [{
			"@type": "#Microsoft.VideoAnalyzer.SignalGateProcessor",
			"name": "gate",
			"inputs": [{"nodeName": "rtspSource"}]
		}],
		"sinks": [{
			"@type": "#Microsoft.VideoAnalyzer.FileSink",
			"name": "recorder",
			"baseDirectoryPath": "/var/media",
			"fileNamePattern": "clip",
			"maximumSizeMiB": "512",
			"inputs": [{"nodeName": "gate"}]
		}]
	}
}`

const orphan = `{
	"name": "orphan",
	"properties": {
		"sources": [{"@type": "#Microsoft.VideoAnalyzer.RtspSource", "name": "cam"}],
		"processors": [{"@type": "#Microsoft.VideoAnalyzer.MotionDetectionProcessor", "name": "motion"}]
	}
}`

// sandbox points every default directory at a fresh temp tree and writes a
// config that avoids graphviz and the cache.
func sandbox(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, env := range []string{"HOME", "XDG_CONFIG_HOME", "XDG_CACHE_HOME", "XDG_DATA_HOME"} {
		dir := filepath.Join(root, strings.ToLower(env))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		t.Setenv(env, dir)
	}
	for _, env := range []string{config.EnvConfig, config.EnvRedisAddr, config.EnvMongoURI} {
		t.Setenv(env, "")
	}

	cfgDir := filepath.Join(root, "xdg_config_home", "topoedit")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := `
[layout]
engine = "layered"

[cache]
backend = "none"
`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	captureStatus(t)
	return root
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes one command line against a fresh CLI and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestFlattenCollect(t *testing.T) {
	root := sandbox(t)
	doc := writeFile(t, root, "recording.json", recording)
	sessPath := filepath.Join(root, "recording.session.json")

	mustRun(t, "flatten", doc, "-o", sessPath)
	sess, err := session.ReadFile(sessPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := sess.Graph.NodeCount(); got != 3 {
		t.Errorf("nodes = %d, want 3", got)
	}
	if got := sess.Graph.EdgeCount(); got != 2 {
		t.Errorf("edges = %d, want 2", got)
	}

	out := mustRun(t, "collect", sessPath)
	back, err := topology.Unmarshal([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "motion-recording" || back.NodeCount() != 3 {
		t.Errorf("collected %q with %d nodes", back.Name, back.NodeCount())
	}
	sink := back.Properties.Sinks[0]
	if in := sink.Inputs(); len(in) != 1 || in[0].NodeName != "gate" {
		t.Errorf("recorder inputs = %v", in)
	}

	yamlPath := filepath.Join(root, "recording.yaml")
	mustRun(t, "collect", sessPath, "-o", yamlPath)
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "name: motion-recording") {
		t.Errorf("yaml output:\n%s", data)
	}
}

func TestValidateCommand(t *testing.T) {
	root := sandbox(t)
	good := writeFile(t, root, "good.json", recording)
	bad := writeFile(t, root, "bad.json", orphan)

	if _, err := run(t, "validate", good); err != nil {
		t.Errorf("valid document: %v", err)
	}

	out, err := run(t, "validate", bad, "--json", "--server-error", "quota exceeded")
	if !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Fatalf("err = %v, want validation failure", err)
	}
	var findings []validate.Error
	if err := json.Unmarshal([]byte(out), &findings); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(findings) == 0 || findings[len(findings)-1].Kind != validate.ServerError {
		t.Errorf("findings = %+v, want server error last", findings)
	}

	if _, err := run(t, "validate", filepath.Join(root, "missing.json")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestEditFlow(t *testing.T) {
	sandbox(t)

	id := strings.TrimSpace(mustRun(t, "edit", "new", "demo"))
	if id == "" {
		t.Fatal("edit new printed no session id")
	}

	steps := [][]string{
		{"edit", "add", "RtspSource", "cam"},
		{"edit", "set", "cam", "endpoint", `{"@type": "#Microsoft.VideoAnalyzer.UnsecuredEndpoint"}`},
		{"edit", "set", "cam", "endpoint.url", "rtsp://camera"},
		{"edit", "add", "FileSink", "rec", "--x", "40", "--y", "200"},
		{"edit", "set", "rec", "baseDirectoryPath", "/var/media"},
		{"edit", "set", "rec", "fileNamePattern", "clip"},
		{"edit", "set", "rec", "maximumSizeMiB", `"512"`},
		{"edit", "set", "rec", "scratch", "x"},
		{"edit", "set", "rec", "scratch", "--unset"},
		{"edit", "connect", "cam", "rec"},
		{"edit", "rename", "rec", "recorder"},
	}
	for _, args := range steps {
		mustRun(t, args...)
	}

	out := mustRun(t, "edit", "export")
	doc, err := topology.Unmarshal([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "demo" || len(doc.Properties.Sources) != 1 || len(doc.Properties.Sinks) != 1 {
		t.Fatalf("exported %+v", doc.Properties)
	}
	sink := doc.Properties.Sinks[0]
	if sink.Name() != "recorder" {
		t.Errorf("sink name = %q", sink.Name())
	}
	if in := sink.Inputs(); len(in) != 1 || in[0].NodeName != "cam" {
		t.Errorf("sink inputs = %v", in)
	}
	if _, ok := sink["scratch"]; ok {
		t.Error("unset property exported")
	}
	endpoint, _ := doc.Properties.Sources[0]["endpoint"].(map[string]any)
	if endpoint["url"] != "rtsp://camera" {
		t.Errorf("endpoint = %v", endpoint)
	}

	mustRun(t, "edit", "save")
	if out := mustRun(t, "store", "get", "demo"); !strings.Contains(out, `"recorder"`) {
		t.Errorf("stored document:\n%s", out)
	}

	mustRun(t, "edit", "disconnect", "cam", "recorder")
	if _, err := run(t, "edit", "export"); !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Errorf("export of disconnected graph: err = %v", err)
	}
	if _, err := run(t, "edit", "export", "--force"); err != nil {
		t.Errorf("forced export: %v", err)
	}

	for _, args := range [][]string{
		{"edit", "set", "cam", "transport", "null"},
		{"edit", "set", "cam", "transport"},
		{"edit", "set", "cam", "transport", "tcp", "--unset"},
	} {
		if _, err := run(t, args...); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("%v: err = %v, want invalid input", args, err)
		}
	}

	if _, err := run(t, "edit", "add", "NoSuchNode", "x"); err == nil {
		t.Error("unknown type accepted")
	}
	if _, err := run(t, "edit", "connect", "recorder", "cam"); err == nil {
		t.Error("sink feeding a source accepted")
	}

	if out := mustRun(t, "edit", "list"); out == "" {
		t.Error("edit list printed nothing")
	}
	mustRun(t, "edit", "close", "-s", id)
	if _, err := run(t, "edit", "show"); err == nil {
		t.Error("show after close succeeded")
	}
}

func TestStoreCommands(t *testing.T) {
	root := sandbox(t)
	good := writeFile(t, root, "good.json", recording)
	bad := writeFile(t, root, "bad.json", orphan)

	mustRun(t, "store", "put", good)
	if _, err := run(t, "store", "put", bad); !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Errorf("put invalid: err = %v", err)
	}
	mustRun(t, "store", "put", bad, "--force")

	out := mustRun(t, "store", "list", "--json")
	var entries []struct {
		Name  string `json:"name"`
		Nodes int    `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}

	mustRun(t, "store", "delete", "orphan")
	if _, err := run(t, "store", "get", "orphan"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("get deleted: err = %v", err)
	}
	mustRun(t, "edit", "open", "--from-store", "motion-recording")
}

func TestDefsCommand(t *testing.T) {
	sandbox(t)

	out := mustRun(t, "defs", "--kind", "sink", "--json")
	var defs []schema.Definition
	if err := json.Unmarshal([]byte(out), &defs); err != nil {
		t.Fatal(err)
	}
	for _, d := range defs {
		if d.Kind != topology.Sink {
			t.Errorf("%s has kind %s", d.Type, d.Kind)
		}
	}
	if len(defs) == 0 {
		t.Fatal("no sink definitions")
	}

	if out := mustRun(t, "defs", "FileSink"); !strings.Contains(out, "baseDirectoryPath") {
		t.Errorf("defs FileSink:\n%s", out)
	}
	if _, err := run(t, "defs", "--kind", "gadget"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad kind: err = %v", err)
	}
}

func TestCachePath(t *testing.T) {
	root := sandbox(t)
	path := writeFile(t, root, "cache.toml", "[cache]\nbackend = \"file\"\ndir = \"/tmp/topoedit-cache\"\n")

	if out := mustRun(t, "--config", path, "cache", "path"); strings.TrimSpace(out) != "/tmp/topoedit-cache" {
		t.Errorf("cache path = %q", out)
	}
	if out := mustRun(t, "cache", "path"); out != "" {
		t.Errorf("disabled cache printed %q", out)
	}
}

func TestResolveType(t *testing.T) {
	reg := schema.Default()
	tests := []struct {
		ref, want string
		wantErr   bool
	}{
		{ref: "#Microsoft.VideoAnalyzer.FileSink", want: "#Microsoft.VideoAnalyzer.FileSink"},
		{ref: "FileSink", want: "#Microsoft.VideoAnalyzer.FileSink"},
		{ref: "filesink", want: "#Microsoft.VideoAnalyzer.FileSink"},
		{ref: "UnsecuredEndpoint", wantErr: true},
		{ref: "Nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveType(reg, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", float64(42)},
		{"true", true},
		{`"42"`, "42"},
		{"rtsp://camera", "rtsp://camera"},
		{"null", nil},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
	obj, ok := parseValue(`{"a": 1}`).(map[string]any)
	if !ok || obj["a"] != float64(1) {
		t.Errorf("object parsed as %#v", obj)
	}
}
