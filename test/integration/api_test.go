package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/node-allocator/internal/api"
	"github.com/eugenenazirov/node-allocator/internal/application"
	"github.com/eugenenazirov/node-allocator/internal/config"
	"github.com/eugenenazirov/node-allocator/internal/output"
	"github.com/eugenenazirov/node-allocator/internal/storage"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := storage.NewMemoryStorage(storage.DefaultCapacity())
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	handler := api.NewHandler(store, api.WithHandlerLogger(zaptest.NewLogger(t)))
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	allocatePayload := map[string]any{
		"items": []map[string]any{
			{"name": "tom.dat", "size": 1024},
			{"name": "jerry.dat", "size": 16553},
			{"name": "spike.dat", "size": 4096},
			{"name": "tyke.dat", "size": 512},
		},
		"nodes": []map[string]any{
			{"name": "node1", "capacity": 20000},
			{"name": "node2", "capacity": 4000},
		},
	}
	body, _ := json.Marshal(allocatePayload)
	rec = performRequest(t, handler, http.MethodPost, "/api/allocate", body, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from allocate, got %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		RunID       string                  `json:"runId"`
		Assignments []output.AssignmentView `json:"assignments"`
		Nodes       []output.NodeView       `json:"nodes"`
		Summary     output.Summary          `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Assignments) != 4 || response.Summary.Items != 4 {
		t.Fatalf("expected every file in the result, got %+v", response)
	}
	if response.Summary.TotalSize != 1024+16553+4096+512 {
		t.Fatalf("unexpected total size %d", response.Summary.TotalSize)
	}
	for _, n := range response.Nodes {
		if n.Occupied > n.Capacity {
			t.Fatalf("node %s over capacity: %+v", n.Name, n)
		}
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/runs/"+response.RunID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from run lookup, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodPost, "/api/allocate",
		[]byte(`{"items":[{"name":"orphan","size":1}]}`), map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without nodes, got %d", rec.Code)
	}
}

func TestBatchFlow(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := "# name size\ntom.dat 1024\njerry.dat 16553\nhuge.dat 999999\n"
	nodes := "# name capacity\nnode1 20000\nnode2 4000\n"
	if err := afero.WriteFile(fs, "/srv/files.txt", []byte(files), 0o644); err != nil {
		t.Fatalf("write files list: %v", err)
	}
	if err := afero.WriteFile(fs, "/srv/nodes.txt", []byte(nodes), 0o644); err != nil {
		t.Fatalf("write nodes list: %v", err)
	}

	cfg, err := config.Load(&config.CLIOverrides{
		ItemsFile:    stringPtr("/srv/files.txt"),
		NodesFile:    stringPtr("/srv/nodes.txt"),
		OutputFile:   stringPtr("/srv/out.json"),
		OutputFormat: stringPtr("json"),
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	var stdout bytes.Buffer
	if err := application.RunBatch(cfg, fs, &stdout, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("RunBatch returned error: %v", err)
	}

	data, err := afero.ReadFile(fs, "/srv/out.json")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rep output.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	placed := map[string]string{}
	for _, a := range rep.Assignments {
		placed[a.Item] = a.Node
	}
	if placed["huge.dat"] != cfg.UnassignedLabel {
		t.Fatalf("expected huge.dat to stay unassigned, got %q", placed["huge.dat"])
	}
	if placed["tom.dat"] == cfg.UnassignedLabel || placed["jerry.dat"] == cfg.UnassignedLabel {
		t.Fatalf("expected small files to be placed, got %v", placed)
	}
}

func stringPtr(s string) *string {
	return &s
}
