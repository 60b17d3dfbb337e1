package versions_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"bookforge/internal/services"
	"bookforge/internal/versions"
)

func openStore(t *testing.T) *versions.Store {
	t.Helper()
	store, err := versions.OpenPath(filepath.Join(t.TempDir(), "chapters.db"))
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAssignsGaplessSequences(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, "ch1", versions.TypeOriginal, "Once upon a time.", "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if first.Sequence != 1 {
		t.Fatalf("first sequence = %d, want 1", first.Sequence)
	}

	second, err := store.Append(ctx, "ch1", versions.TypeAIDraft, "Long ago, in a time before memory...", "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if second.Sequence != 2 {
		t.Fatalf("second sequence = %d, want 2", second.Sequence)
	}

	list, err := store.ListVersions(ctx, "ch1")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(list))
	}
	for i, version := range list {
		if version.Sequence != int64(i+1) {
			t.Fatalf("sequence gap at index %d: %d", i, version.Sequence)
		}
	}
}

func TestAppendValidation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		chapterID string
		verType   versions.Type
		content   string
	}{
		{"empty chapter id", "", versions.TypeOriginal, "text"},
		{"empty content", "ch1", versions.TypeOriginal, "   "},
		{"unknown type", "ch1", versions.Type("review"), "text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Append(ctx, tc.chapterID, tc.verType, tc.content, "")
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAppendStoresAuxReference(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	version, err := store.Append(ctx, "ch1", versions.TypeOriginal, "text", "/snapshots/ch1.html")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	fetched, err := store.GetBySequence(ctx, "ch1", version.Sequence)
	if err != nil {
		t.Fatalf("GetBySequence failed: %v", err)
	}
	if fetched.AuxReference != "/snapshots/ch1.html" {
		t.Fatalf("aux reference lost: %q", fetched.AuxReference)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("created_at not persisted")
	}
}

func TestListVersionsUnknownChapterIsEmpty(t *testing.T) {
	store := openStore(t)

	list, err := store.ListVersions(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(list))
	}
}

func TestGetLatestPicksGreatestSequence(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustAppend(t, store, "ch1", versions.TypeOriginal, "original")
	mustAppend(t, store, "ch1", versions.TypeAIDraft, "draft one")
	mustAppend(t, store, "ch1", versions.TypeAIDraft, "draft two")

	latest, err := store.GetLatest(ctx, "ch1", versions.TypeAIDraft)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.Content != "draft two" {
		t.Fatalf("unexpected latest draft: %q", latest.Content)
	}

	_, err = store.GetLatest(ctx, "ch1", versions.TypeFinalDraft)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestScanIsRestartable(t *testing.T) {
	store := openStore(t)
	for i := 0; i < 5; i++ {
		mustAppend(t, store, fmt.Sprintf("ch%d", i), versions.TypeOriginal, fmt.Sprintf("text %d", i))
	}

	ctx := context.Background()
	var seen []versions.Key
	var cursor int64
	for {
		batch, next, err := store.Scan(ctx, cursor, 2)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, version := range batch {
			seen = append(seen, version.Key())
		}
		cursor = next
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 versions across batches, got %d", len(seen))
	}
}

func TestSubscribeObservesCommittedAppends(t *testing.T) {
	store := openStore(t)

	var mu sync.Mutex
	var observed []versions.Key
	store.Subscribe(func(v versions.Version) {
		mu.Lock()
		observed = append(observed, v.Key())
		mu.Unlock()
	})

	mustAppend(t, store, "ch1", versions.TypeOriginal, "text")
	mustAppend(t, store, "ch1", versions.TypeAIDraft, "draft")

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(observed))
	}
	if observed[1].Sequence != 2 {
		t.Fatalf("unexpected notification order: %v", observed)
	}
}

func TestConcurrentAppendsKeepSequencesGapless(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 10
	chapters := []string{"alpha", "beta", "gamma"}

	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			chapter := chapters[w%len(chapters)]
			for i := 0; i < perWriter; i++ {
				if _, err := store.Append(ctx, chapter, versions.TypeAIDraft, fmt.Sprintf("writer %d draft %d", w, i), ""); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent append failed: %v", err)
	}

	for _, chapter := range chapters {
		list, err := store.ListVersions(ctx, chapter)
		if err != nil {
			t.Fatalf("ListVersions failed: %v", err)
		}
		for i, version := range list {
			if version.Sequence != int64(i+1) {
				t.Fatalf("chapter %s: sequence %d at index %d", chapter, version.Sequence, i)
			}
		}
	}
}

func TestStatsAndChapters(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	mustAppend(t, store, "ch1", versions.TypeOriginal, "text")
	mustAppend(t, store, "ch1", versions.TypeAIDraft, "draft")
	mustAppend(t, store, "ch2", versions.TypeOriginal, "text")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[versions.TypeOriginal] != 2 || stats[versions.TypeAIDraft] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	chapters, err := store.Chapters(ctx)
	if err != nil {
		t.Fatalf("Chapters failed: %v", err)
	}
	if len(chapters) != 2 || chapters[0] != "ch1" || chapters[1] != "ch2" {
		t.Fatalf("unexpected chapters: %v", chapters)
	}
}

func TestCheckHealth(t *testing.T) {
	store := openStore(t)
	mustAppend(t, store, "ch1", versions.TypeOriginal, "text")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.TotalVersions != 1 || !health.IntegrityCheck {
		t.Fatalf("unexpected health counts: %+v", health)
	}
}

func TestParseType(t *testing.T) {
	if parsed, ok := versions.ParseType(" Final_Draft "); !ok || parsed != versions.TypeFinalDraft {
		t.Fatalf("ParseType failed: %v %v", parsed, ok)
	}
	if _, ok := versions.ParseType("review"); ok {
		t.Fatal("review must not parse as a version type")
	}
}

func mustAppend(t *testing.T, store *versions.Store, chapterID string, versionType versions.Type, content string) *versions.Version {
	t.Helper()
	version, err := store.Append(context.Background(), chapterID, versionType, content, "")
	if err != nil {
		t.Fatalf("Append(%s, %s) failed: %v", chapterID, versionType, err)
	}
	return version
}
