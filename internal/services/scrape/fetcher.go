package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bookforge/internal/config"
	"bookforge/internal/services"
	"bookforge/internal/textutil"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 4 << 20
)

var (
	titleTagPattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1TagPattern    = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	scriptPattern   = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern      = regexp.MustCompile(`<[^<]+?>`)
	blankPattern    = regexp.MustCompile(`\n\s*\n`)
)

// Result is the reduced form of a fetched page.
type Result struct {
	Title        string
	Text         string
	AuxReference string
}

// Fetcher retrieves chapter pages over plain HTTP.
type Fetcher struct {
	cfg         config.Scrape
	snapshotDir string
	httpClient  *http.Client
}

// NewFetcher builds a fetcher from the scrape configuration. snapshotDir may
// be empty when snapshots are disabled.
func NewFetcher(cfg config.Scrape, snapshotDir string) *Fetcher {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Fetcher{
		cfg:         cfg,
		snapshotDir: snapshotDir,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the locator, extracts a title and plain text, and (when
// enabled) saves the raw HTML snapshot whose path becomes the aux reference.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (Result, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Result{}, services.Wrap(services.ErrValidation, "scrape", "fetch", "locator is empty", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "scrape", "fetch",
			fmt.Sprintf("bad locator %q", locator), err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrCollaborator, "scrape", "fetch", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, services.Wrap(services.ErrCollaborator, "scrape", "fetch",
			fmt.Sprintf("http %d from %s", resp.StatusCode, locator), nil)
	}

	maxBytes := f.cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return Result{}, services.Wrap(services.ErrCollaborator, "scrape", "fetch", "read body", err)
	}

	html := string(body)
	result := Result{
		Title: extractTitle(html),
		Text:  extractText(html),
	}
	if result.Text == "" {
		return Result{}, services.Wrap(services.ErrCollaborator, "scrape", "fetch",
			fmt.Sprintf("no textual content at %s", locator), nil)
	}

	if f.cfg.SaveSnapshots && f.snapshotDir != "" {
		path, err := f.saveSnapshot(result.Title, body)
		if err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "scrape", "fetch", "save snapshot", err)
		}
		result.AuxReference = path
	}
	return result, nil
}

func (f *Fetcher) saveSnapshot(title string, body []byte) (string, error) {
	if err := os.MkdirAll(f.snapshotDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%d.html", textutil.Slug(title), time.Now().UnixMilli())
	path := filepath.Join(f.snapshotDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// extractTitle prefers the first h1 over the document title and falls back
// to "Untitled Chapter" when neither is present.
func extractTitle(html string) string {
	for _, pattern := range []*regexp.Regexp{h1TagPattern, titleTagPattern} {
		if match := pattern.FindStringSubmatch(html); match != nil {
			if title := cleanFragment(match[1]); title != "" {
				return cases.Title(language.English).String(strings.ToLower(title))
			}
		}
	}
	return "Untitled Chapter"
}

// extractText strips markup and collapses runs of blank lines.
func extractText(html string) string {
	text := scriptPattern.ReplaceAllString(html, " ")
	text = tagPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(text)
	text = blankPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func cleanFragment(fragment string) string {
	fragment = tagPattern.ReplaceAllString(fragment, "")
	return strings.Join(strings.Fields(fragment), " ")
}
