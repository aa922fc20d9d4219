package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dicklesworthstone/cmdlens/internal/config"
	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
)

const stubHelp = `Usage: tool [command]

Commands:
  add       Add an item
  remove    Remove an item

Options:
  -v, --verbose   Louder
`

// stubExecutor answers every help probe with the same output.
type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, name string, args []string, opts introspect.ExecOptions) (introspect.ExecResult, error) {
	return introspect.ExecResult{Stdout: stubHelp}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Discover.Cache = false
	s := New(cfg, stubExecutor{})
	s.lookPath = func(name string) (string, error) {
		if name == "tool" {
			return "/fake/bin/tool", nil
		}
		return "", os.ErrNotExist
	}
	return s
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestParseRawText(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/parse", strings.NewReader(stubHelp))
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Commands []struct {
			Name string `json:"name"`
		} `json:"commands"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	names := map[string]bool{}
	for _, c := range doc.Commands {
		names[c.Name] = true
	}
	if !names["add"] || !names["remove"] {
		t.Errorf("commands = %v", names)
	}
}

func TestParseJSONBody(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(map[string]string{"text": stubHelp})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/parse", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "add") {
		t.Errorf("parsed document missing commands: %s", rec.Body.String())
	}
}

func TestParseInvalidJSON(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/parse", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestParseBodyTooLarge(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	big := strings.Repeat("x", maxParseBody+10)
	req := httptest.NewRequest("POST", "/api/v1/parse", strings.NewReader(big))
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestStructureKnownTool(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/structure/tool", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var structure introspect.CommandStructure
	if err := json.Unmarshal(rec.Body.Bytes(), &structure); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if structure.Target != "/fake/bin/tool" {
		t.Errorf("target = %q", structure.Target)
	}
	if len(structure.Commands) == 0 {
		t.Error("no commands discovered")
	}
}

func TestStructureUnknownTool(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/structure/nosuch", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStructureReusesInspector(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/structure/tool", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	s.mu.Lock()
	n := len(s.inspectors)
	s.mu.Unlock()
	if n != 1 {
		t.Errorf("inspectors = %d, want 1", n)
	}
}

func TestCLIsEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "realtool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	s := newTestServer(t)
	s.cfg.Discover.SearchPath = dir

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/clis", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		CLIs []struct {
			Name string `json:"name"`
		} `json:"clis"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.Count != len(body.CLIs) {
		t.Errorf("count %d != len %d", body.Count, len(body.CLIs))
	}
}

func TestCLIsBadQuery(t *testing.T) {
	s := newTestServer(t)
	for _, url := range []string{
		"/api/v1/clis?min_score=abc",
		"/api/v1/clis?limit=-2",
	} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}
