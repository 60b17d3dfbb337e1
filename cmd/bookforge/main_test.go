package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	configPath := filepath.Join(root, "bookforge.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[embeddings]
provider = "local"
dimensions = 32

[scrape]
save_snapshots = false
`, filepath.Join(root, "data"), filepath.Join(root, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIStartVersionsStage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>The Storm</title></head><body><h1>The Storm</h1><p>John walked through the forest.</p></body></html>`))
	}))
	t.Cleanup(server.Close)

	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "start", server.URL)
	if err != nil {
		t.Fatalf("start failed: %v\n%s", err, out)
	}
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "Started" {
		t.Fatalf("unexpected start output: %q", out)
	}
	chapterID := fields[2]

	out, err = runCLI(t, configPath, "versions", chapterID)
	if err != nil {
		t.Fatalf("versions failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "original") {
		t.Fatalf("versions output missing original: %q", out)
	}

	out, err = runCLI(t, configPath, "stage", chapterID)
	if err != nil {
		t.Fatalf("stage failed: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != "scraped" {
		t.Fatalf("stage = %q, want scraped", out)
	}

	// The inline observer indexed the original, so search sees it.
	out, err = runCLI(t, configPath, "search", "walked through the forest")
	if err != nil {
		t.Fatalf("search failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, chapterID) {
		t.Fatalf("search output missing chapter: %q", out)
	}

	out, err = runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Chapters: 1") || !strings.Contains(out, "Indexed vectors: 1") {
		t.Fatalf("unexpected status output: %q", out)
	}
}

func TestCLIConfigInitAndShow(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bookforge.toml")

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--config", configPath, "config", "init"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	// Re-running without --force refuses to overwrite.
	cmd = newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--config", configPath, "config", "init"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}

	showOut, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v\n%s", err, showOut)
	}
	if !strings.Contains(showOut, "data_dir") {
		t.Fatalf("unexpected show output: %q", showOut)
	}
}
