package server_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deployctl/internal/config"
	"deployctl/internal/database"
	"deployctl/internal/deploy"
	"deployctl/internal/history"
	"deployctl/internal/runner"
	"deployctl/internal/server"
)

const testToken = "s3cret"

type testEnv struct {
	router http.Handler
	store  *history.Store
	orch   *deploy.Orchestrator
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		Project: config.ProjectConfig{
			Dir:          filepath.Join(base, "monorepo"),
			Remote:       "origin",
			Branch:       "main",
			Requirements: filepath.Join(base, "monorepo", "requirements.txt"),
			VenvDir:      filepath.Join(base, "monorepo", "venv"),
			Python:       "python3",
			StaticDir:    filepath.Join(base, "monorepo", "static"),
		},
		Backup: config.BackupConfig{
			Root:          filepath.Join(base, "backups"),
			RetentionDays: 30,
			MinFreeMB:     1,
		},
		Services:  []string{"gunicorn"},
		Execution: config.ExecutionConfig{StepTimeoutSeconds: 60},
		Server: config.ServerConfig{
			PathPrefix:  "/deploy",
			DeployToken: testToken,
		},
	}
	if err := os.MkdirAll(cfg.Project.Dir, 0755); err != nil {
		t.Fatalf("failed to create project dir: %v", err)
	}

	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	store := history.NewStore(db)
	hub := deploy.NewHub()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	orch := deploy.New(cfg, runner.NewFake(), deploy.Options{
		Store:  store,
		Hub:    hub,
		Logger: log,
	})

	srv := server.New(cfg, orch, store, hub, log)
	return &testEnv{router: srv.Router(), store: store, orch: orch, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("X-Deploy-Token", token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestHealthzIsPublic(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/deploy/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestVersionIsPublic(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/deploy/api/version", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if _, ok := decode(t, w)["version"]; !ok {
		t.Errorf("expected version field, got %s", w.Body.String())
	}
}

func TestTokenAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/deploy/api/runs", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}

	w = env.request(t, http.MethodGet, "/deploy/api/runs", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}

	w = env.request(t, http.MethodGet, "/deploy/api/runs", testToken)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", w.Code)
	}
}

func TestTokenAuthUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Server.DeployToken = ""

	w := env.request(t, http.MethodGet, "/deploy/api/runs", "anything")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestTriggerDeploy(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/deploy/api/deploy", testToken)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	runID, _ := body["run_id"].(string)
	if runID == "" {
		t.Fatalf("expected run_id in response: %v", body)
	}
	if got, _ := body["status_url"].(string); got != "/deploy/api/runs/"+runID {
		t.Errorf("unexpected status_url %q", got)
	}

	waitForRun(t, env.store, runID)

	w = env.request(t, http.MethodGet, "/deploy/api/runs/"+runID, testToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	result := decode(t, w)
	if _, ok := result["run"]; !ok {
		t.Errorf("expected run in response: %v", result)
	}
	if _, ok := result["steps"]; !ok {
		t.Errorf("expected steps in response: %v", result)
	}
}

func TestTriggerDeployConflict(t *testing.T) {
	env := newTestEnv(t)

	// Hold the run slot so the API sees a deploy in flight.
	if _, err := env.orch.Begin(history.TriggerCLI); err != nil {
		t.Fatalf("failed to claim run slot: %v", err)
	}

	w := env.request(t, http.MethodPost, "/deploy/api/deploy", testToken)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/deploy/api/runs/nope", testToken)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStreamFinishedRunReplays(t *testing.T) {
	env := newTestEnv(t)

	run, err := env.store.CreateRun(history.TriggerAPI)
	if err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}
	if err := env.store.StartRun(run.ID); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}
	now := time.Now()
	if err := env.store.RecordStep(run.ID, "snapshot", "ok", nil, "snapshot created at /backups/x", now, now); err != nil {
		t.Fatalf("failed to record step: %v", err)
	}
	if err := env.store.FinishRun(run.ID, history.StatusSuccess, "/backups/x", "abc123", ""); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	w := env.request(t, http.MethodGet, "/deploy/api/runs/"+run.ID+"/stream", testToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected SSE content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "data: ==> snapshot") {
		t.Errorf("expected replayed step header in stream:\n%s", body)
	}
	if !strings.Contains(body, "snapshot created at /backups/x") {
		t.Errorf("expected replayed output in stream:\n%s", body)
	}
	if !strings.Contains(body, `event: complete`) || !strings.Contains(body, `"success"`) {
		t.Errorf("expected complete event in stream:\n%s", body)
	}
}

func TestListRunsEmpty(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/deploy/api/runs", testToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	runs, ok := body["runs"].([]any)
	if !ok {
		t.Fatalf("expected runs array, got %v", body)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

// waitForRun polls until the run reaches a terminal status.
func waitForRun(t *testing.T, store *history.Store, id string) *history.Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := store.GetRun(id)
		if err != nil {
			t.Fatalf("failed to fetch run: %v", err)
		}
		if run.Status == history.StatusSuccess || run.Status == history.StatusFailed {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return nil
}
