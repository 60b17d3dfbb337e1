package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookforge/internal/api"
	"bookforge/internal/pipeline"
	"bookforge/internal/reward"
	"bookforge/internal/semindex"
	"bookforge/internal/services/embedder"
	"bookforge/internal/services/scrape"
	"bookforge/internal/testsupport"
)

func newTestDaemon(t *testing.T, token string) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Paths.APIToken = token

	store := testsupport.MustOpenStore(t, cfg)
	indexStore, err := semindex.Open(cfg)
	if err != nil {
		t.Fatalf("open index store: %v", err)
	}
	t.Cleanup(func() { _ = indexStore.Close() })

	local := embedder.NewLocal(cfg.Embeddings.Dimensions)
	index := semindex.New(indexStore, local, nil)
	worker := semindex.NewWorker(index, store, cfg.Index, nil)
	scorer := reward.NewScorer(local, nil)

	acquirer := &testsupport.StubAcquirer{Result: scrape.Result{
		Title: "Chapter One",
		Text:  "John walked through the forest. It was a cold day.",
	}}
	generator := &testsupport.StubGenerator{
		RewriteText: "John pushed through the frozen forest.",
		ReviewText:  "Minor issues only.",
	}

	pl := pipeline.New(store, index, scorer, acquirer, generator, nil)
	d, err := New(cfg, store, index, worker, pl, nil)
	if err != nil {
		t.Fatalf("daemon New failed: %v", err)
	}
	return d
}

func doJSON(t *testing.T, server *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestAPIFullChapterFlow(t *testing.T) {
	d := newTestDaemon(t, "")
	server := httptest.NewServer(d.api.Handler())
	t.Cleanup(server.Close)

	var started api.VersionResponse
	if status := doJSON(t, server, http.MethodPost, "/api/chapters",
		api.StartChapterRequest{Locator: "https://example.org/ch1"}, &started); status != http.StatusCreated {
		t.Fatalf("start chapter status = %d", status)
	}
	chapterID := started.Version.ChapterID
	if chapterID == "" || started.Version.Type != "original" {
		t.Fatalf("unexpected start response: %+v", started)
	}

	// Decision before any draft maps a guard rejection to 409.
	var rejection api.ErrorResponse
	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/chapters/%s/decision", chapterID),
		api.DecisionRequest{Decision: "looks fine"}, &rejection); status != http.StatusConflict {
		t.Fatalf("premature decision status = %d", status)
	}
	if rejection.Error == "" {
		t.Fatal("rejection reason missing")
	}

	var draft api.DraftResponse
	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/chapters/%s/draft", chapterID), nil, &draft); status != http.StatusCreated {
		t.Fatalf("draft status = %d", status)
	}
	if draft.ReviewFeedback != "Minor issues only." {
		t.Fatalf("review feedback = %q", draft.ReviewFeedback)
	}

	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/chapters/%s/decision", chapterID),
		api.DecisionRequest{Decision: "approve"}, nil); status != http.StatusCreated {
		t.Fatalf("decision status = %d", status)
	}
	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/chapters/%s/summary", chapterID), nil, nil); status != http.StatusCreated {
		t.Fatalf("summary status = %d", status)
	}

	var history api.VersionListResponse
	if status := doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/chapters/%s/versions", chapterID), nil, &history); status != http.StatusOK {
		t.Fatalf("versions status = %d", status)
	}
	if len(history.Versions) != 4 {
		t.Fatalf("history length = %d, want 4", len(history.Versions))
	}

	var stage api.StageResponse
	if status := doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/chapters/%s/stage", chapterID), nil, &stage); status != http.StatusOK {
		t.Fatalf("stage status = %d", status)
	}
	if stage.Stage != "summarized" {
		t.Fatalf("stage = %q", stage.Stage)
	}

	var score api.ScoreResponse
	if status := doJSON(t, server, http.MethodPost, fmt.Sprintf("/api/chapters/%s/score", chapterID),
		api.ScoreRequest{Feedback: "approve"}, &score); status != http.StatusOK {
		t.Fatalf("score status = %d", status)
	}
	if score.Score < 1.0 {
		t.Fatalf("approval score = %v", score.Score)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	d := newTestDaemon(t, "")
	server := httptest.NewServer(d.api.Handler())
	t.Cleanup(server.Close)

	if status := doJSON(t, server, http.MethodPost, "/api/chapters/missing/score",
		api.ScoreRequest{Feedback: "approve"}, nil); status != http.StatusNotFound {
		t.Fatalf("missing chapter score status = %d", status)
	}
	if status := doJSON(t, server, http.MethodPost, "/api/search",
		api.SearchRequest{Query: "   "}, nil); status != http.StatusBadRequest {
		t.Fatalf("empty query status = %d", status)
	}

	resp, err := server.Client().Post(server.URL+"/api/chapters", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", resp.StatusCode)
	}

	if status := doJSON(t, server, http.MethodGet, "/api/chapters/only-id", nil, nil); status != http.StatusNotFound {
		t.Fatalf("unroutable path status = %d", status)
	}
}

func TestAPIBearerAuth(t *testing.T) {
	d := newTestDaemon(t, "secret-token")
	server := httptest.NewServer(d.api.Handler())
	t.Cleanup(server.Close)

	resp, err := server.Client().Get(server.URL + "/api/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d", resp.StatusCode)
	}
	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.DatabasePath == "" {
		t.Fatal("status missing database path")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	d := newTestDaemon(t, "")
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	// Second daemon with its own stores but the same lock file.
	other := newTestDaemon(t, "")
	other.cfg.Paths.LogDir = d.cfg.Paths.LogDir
	second, err := New(other.cfg, other.store, other.index, other.worker, other.pipeline, nil)
	if err != nil {
		t.Fatalf("rebuild daemon: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}
