package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calegari/polyingest/internal/chunker"
	"github.com/calegari/polyingest/internal/config"
	"github.com/calegari/polyingest/internal/docintel"
	"github.com/calegari/polyingest/internal/extractor"
	"github.com/calegari/polyingest/internal/language"
	"github.com/calegari/polyingest/internal/pipeline"
)

type stubIndex struct{}

func (stubIndex) Index(ctx context.Context, chunks []chunker.Chunk) (int, error) {
	return len(chunks), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ext := extractor.New(docintel.Local{}, []extractor.Format{extractor.FormatText}, 100, log)
	decider := language.NewDecider(nil, language.Settings{TargetLanguage: "en"}, log)
	worker := pipeline.NewWorker(ext, decider, nil, nil, stubIndex{}, chunker.Config{
		ChunkSize:    50,
		ChunkOverlap: 10,
		MinChunkSize: 10,
	}, 50, "en", log)
	orch := pipeline.NewOrchestrator(worker, 2, log)
	runs := pipeline.NewRunStore(time.Hour)

	return NewServer(orch, runs, log, config.Config{APIKey: "test-key"})
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer test-key")
	return req
}

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStartRunRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"paths":["a.txt"]}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected an error field in the body")
	}
}

func TestStartRunRejectsBadKey(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"paths":["a.txt"]}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestStartRunValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/runs", []byte(`not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid body: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/runs", []byte(`{"paths":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty paths: status = %d, want 400", rec.Code)
	}
}

func TestRunStatusNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(map[string][]string{"paths": {path}})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/runs", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var started startRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatal(err)
	}
	if started.RunID == "" {
		t.Fatal("expected a run_id")
	}
	if started.PollURL != "/api/runs/"+started.RunID {
		t.Fatalf("poll_url = %q", started.PollURL)
	}

	deadline := time.Now().Add(5 * time.Second)
	var snap pipeline.RunSnapshot
	for {
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, authedRequest(http.MethodGet, started.PollURL, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("poll status = %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Status == pipeline.RunCompleted || snap.Status == pipeline.RunFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run did not finish, status = %s", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if snap.Status != pipeline.RunCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", snap.Status, snap.Error)
	}
	if snap.Report == nil {
		t.Fatal("expected a report")
	}
	if snap.Report.Succeeded != 1 || snap.Report.Failed != 0 {
		t.Fatalf("report = %d succeeded / %d failed", snap.Report.Succeeded, snap.Report.Failed)
	}
}
