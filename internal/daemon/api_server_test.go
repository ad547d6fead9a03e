package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidbatch/internal/api"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
)

func newTestAPI(t *testing.T) (*apiServer, *Daemon) {
	t.Helper()
	cfg := testConfig(t)
	writeVideo(t, cfg.Paths.InputDir, "a.mp4", 100)
	writeVideo(t, cfg.Paths.InputDir, "b.mkv", 100)
	d, _ := startDaemon(t, cfg)
	return newAPIServer(cfg.Paths.APIBind, d, logging.NewNop()), d
}

func doRequest(t *testing.T, srv *apiServer, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := srv.app.Test(req, int((5 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

func TestAPIScanListsFiles(t *testing.T) {
	srv, d := newTestAPI(t)

	resp, body := doRequest(t, srv, jsonRequest(http.MethodPost, "/api/scan", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan status %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	scanned := decode[api.FileListResponse](t, body)
	if len(scanned.Files) != 2 {
		t.Fatalf("expected 2 files, got %+v", scanned.Files)
	}
	d.WaitForProbes()

	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("files status %d", resp.StatusCode)
	}
	listed := decode[api.FileListResponse](t, body)
	for _, file := range listed.Files {
		if file.Status != "ready" || file.Resolution != "1280x720" {
			t.Fatalf("expected probed file, got %+v", file)
		}
	}
}

func TestAPIScanRejectsBadRoot(t *testing.T) {
	srv, _ := newTestAPI(t)

	payload := `{"root":"` + filepath.Join(t.TempDir(), "nope") + `"}`
	resp, body := doRequest(t, srv, jsonRequest(http.MethodPost, "/api/scan", payload))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, body)
	}
	errResp := decode[api.ErrorResponse](t, body)
	if errResp.Code != "invalid_path" || errResp.Error == "" {
		t.Fatalf("unexpected error body: %+v", errResp)
	}
}

func TestAPIBatchLifecycle(t *testing.T) {
	srv, d := newTestAPI(t)
	doRequest(t, srv, jsonRequest(http.MethodPost, "/api/scan", ""))
	d.WaitForProbes()

	resp, body := doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{"resolution":480}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}
	started := decode[api.BatchResponse](t, body)
	if started.Batch.Target.Resolution != 480 || started.Batch.Target.FPS != d.cfg.Encoder.DefaultFPS {
		t.Fatalf("expected default fps fill-in, got %+v", started.Batch.Target)
	}
	d.WaitForBatch()

	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/batch", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batch status %d", resp.StatusCode)
	}
	state := decode[api.BatchResponse](t, body).Batch
	if state.Phase != "completed" || state.Completed != 2 || state.ProgressPercent != 100 {
		t.Fatalf("unexpected batch state: %+v", state)
	}

	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results status %d", resp.StatusCode)
	}
	results := decode[api.ResultsResponse](t, body).Results
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if !strings.HasPrefix(results[0].DownloadURL, api.ResultsPath) {
		t.Fatalf("unexpected download url %q", results[0].DownloadURL)
	}

	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, results[0].DownloadURL, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status %d: %s", resp.StatusCode, body)
	}
	if string(body) != "mp4" {
		t.Fatalf("unexpected download body %q", body)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), results[0].OutputName) {
		t.Fatalf("unexpected content disposition %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestAPIBatchRejectsInvalidAndEmpty(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp, body := doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{"resolution":720,"fps":90}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad fps, got %d: %s", resp.StatusCode, body)
	}
	resp, body = doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty catalog, got %d: %s", resp.StatusCode, body)
	}
	resp, _ = doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{not json`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestAPIBatchConflictWhileRunning(t *testing.T) {
	cfg := testConfig(t)
	writeVideo(t, cfg.Paths.InputDir, "a.mp4", 100)
	stubProbe(t)
	runner := &blockingRunner{release: make(chan struct{}), started: make(chan struct{}, 4)}
	d, err := New(cfg, logging.NewNop(), nil, WithRunner(runner))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	srv := newAPIServer(cfg.Paths.APIBind, d, logging.NewNop())

	doRequest(t, srv, jsonRequest(http.MethodPost, "/api/scan", ""))
	d.WaitForProbes()
	resp, body := doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}
	<-runner.started

	resp, body = doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{}`))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.StatusCode, body)
	}
	if code := decode[api.ErrorResponse](t, body).Code; code != "already_running" {
		t.Fatalf("unexpected code %q", code)
	}
	resp, body = doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch", `{"resolution":720,"fps":120}`))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for invalid target while running, got %d: %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, srv, jsonRequest(http.MethodPost, "/api/batch/stop", ""))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 from stop, got %d", resp.StatusCode)
	}
	if !decode[api.BatchResponse](t, body).Batch.CancelRequested {
		t.Fatal("expected cancel requested")
	}
	close(runner.release)
	d.WaitForBatch()
}

func TestAPIDownloadConfinedToOutputDir(t *testing.T) {
	srv, d := newTestAPI(t)
	writeVideo(t, d.cfg.Paths.StateDir, "private.mp4", 4)

	for _, path := range []string{
		"/api/results/missing.mp4",
		"/api/results/..%2Fstate%2Fprivate.mp4",
		"/api/results/%2E%2E",
	} {
		resp, body := doRequest(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d: %s", path, resp.StatusCode, body)
		}
	}
}

func TestAPIUpload(t *testing.T) {
	srv, d := newTestAPI(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "phone clip.mov")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("frames")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, body := doRequest(t, srv, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	file := decode[api.FileResponse](t, body).File
	if file.Name != "phone clip.mov" || file.SizeBytes != int64(len("frames")) {
		t.Fatalf("unexpected uploaded file: %+v", file)
	}
	d.WaitForProbes()
	if len(d.Files()) != 1 {
		t.Fatalf("expected upload in catalog, got %d files", len(d.Files()))
	}

	resp, body = doRequest(t, srv, jsonRequest(http.MethodPost, "/api/upload", `{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without file field, got %d: %s", resp.StatusCode, body)
	}
}

func TestAPIStatusAndLogs(t *testing.T) {
	srv, d := newTestAPI(t)
	d.hub.Publish(logging.LogEvent{Level: "INFO", Message: "hello"})

	resp, body := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code %d", resp.StatusCode)
	}
	status := decode[api.DaemonStatus](t, body)
	if !status.Running || status.PID == 0 || len(status.Dependencies) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/logs?limit=1", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logs code %d", resp.StatusCode)
	}
	events := decode[api.LogsResponse](t, body).Events
	if len(events) != 1 || events[0].Message != "hello" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestAPILogsSinceCursor(t *testing.T) {
	srv, d := newTestAPI(t)
	d.hub.Publish(logging.LogEvent{Level: "INFO", Message: "first"})

	resp, body := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logs code %d: %s", resp.StatusCode, body)
	}
	cursor := decode[api.LogsResponse](t, body).Next
	if cursor == 0 {
		t.Fatal("expected a non-zero cursor after a published event")
	}

	d.hub.Publish(logging.LogEvent{Level: "INFO", Message: "second"})
	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/logs?since=%d", cursor), nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logs since code %d: %s", resp.StatusCode, body)
	}
	page := decode[api.LogsResponse](t, body)
	if len(page.Events) != 1 || page.Events[0].Message != "second" || page.Next != cursor+1 {
		t.Fatalf("unexpected incremental page: %+v", page)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		d.hub.Publish(logging.LogEvent{Level: "INFO", Message: "third"})
	}()
	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/logs?since=%d&wait=1", page.Next), nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logs wait code %d: %s", resp.StatusCode, body)
	}
	waited := decode[api.LogsResponse](t, body)
	if len(waited.Events) != 1 || waited.Events[0].Message != "third" {
		t.Fatalf("expected waiter to receive third event, got %+v", waited)
	}

	resp, body = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/logs?since=abc", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad cursor, got %d: %s", resp.StatusCode, body)
	}
}

func TestServeAPIListensAndStops(t *testing.T) {
	cfg := testConfig(t)
	d, _ := startDaemon(t, cfg)

	addr, err := d.ServeAPI(context.Background())
	if err != nil {
		t.Fatalf("ServeAPI: %v", err)
	}
	resp, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := http.Get("http://" + addr + "/api/status"); err == nil {
		t.Fatal("expected server to be stopped")
	}
}

// blockingRunner holds each encode until release is closed.
type blockingRunner struct {
	release chan struct{}
	started chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, _ string, args []string) (encoding.ProcessResult, error) {
	r.started <- struct{}{}
	select {
	case <-r.release:
	case <-ctx.Done():
		return encoding.ProcessResult{ExitCode: -1}, ctx.Err()
	}
	return (&fakeRunner{}).Run(ctx, "", args)
}
