package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rae1st/oscillate/engine"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dsn, nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestRepositoryStateRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveState(ctx, 42, []byte(`{"volume":0.8}`)); err != nil {
		t.Fatalf("save state: %v", err)
	}

	blob, err := repo.LoadState(ctx, 42)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if string(blob) != `{"volume":0.8}` {
		t.Fatalf("unexpected blob: %s", blob)
	}

	// Upsert replaces.
	if err := repo.SaveState(ctx, 42, []byte(`{"volume":0.5}`)); err != nil {
		t.Fatalf("second save: %v", err)
	}
	blob, err = repo.LoadState(ctx, 42)
	if err != nil {
		t.Fatalf("reload state: %v", err)
	}
	if string(blob) != `{"volume":0.5}` {
		t.Fatalf("expected upsert to replace, got %s", blob)
	}
}

func TestRepositoryLoadStateMissing(t *testing.T) {
	repo := openTestRepository(t)

	blob, err := repo.LoadState(context.Background(), 999)
	if err != nil {
		t.Fatalf("load missing state: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil for missing state, got %s", blob)
	}
}

func TestRepositoryClearState(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveState(ctx, 1, []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.ClearState(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	blob, err := repo.LoadState(ctx, 1)
	if err != nil || blob != nil {
		t.Fatalf("expected cleared state, got %s, %v", blob, err)
	}
}

func TestRepositoryHistoryAndStats(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	for i, title := range []string{"first", "second", "third"} {
		track, err := engine.NewTrack(engine.Track{
			Title:    title,
			AudioURL: "https://cdn.example.com/" + title,
			Duration: 100 + i,
			Requester: &engine.Requester{
				ID:   7,
				Name: "listener",
			},
		})
		if err != nil {
			t.Fatalf("new track: %v", err)
		}
		if err := repo.SaveHistory(ctx, 42, track); err != nil {
			t.Fatalf("save history: %v", err)
		}
	}

	history, err := repo.History(ctx, 42, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Requester == nil || history[0].Requester.Name != "listener" {
		t.Fatalf("requester lost: %+v", history[0].Requester)
	}

	stats, err := repo.EntityStats(ctx, 42)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TracksPlayed != 3 {
		t.Fatalf("expected 3 tracks played, got %d", stats.TracksPlayed)
	}
	if stats.PlaytimeSecond != 100+101+102 {
		t.Fatalf("expected playtime 303, got %d", stats.PlaytimeSecond)
	}
}

func TestRepositoryStatsMissingEntity(t *testing.T) {
	repo := openTestRepository(t)

	stats, err := repo.EntityStats(context.Background(), 123)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.EntityID != 123 || stats.TracksPlayed != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestMemoryStoreMatchesRepositorySemantics(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()

	if err := mem.SaveState(ctx, 5, []byte("blob")); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, err := mem.LoadState(ctx, 5)
	if err != nil || string(blob) != "blob" {
		t.Fatalf("round trip failed: %s, %v", blob, err)
	}

	missing, err := mem.LoadState(ctx, 6)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing entity, got %s, %v", missing, err)
	}

	track, err := engine.NewTrack(engine.Track{Title: "t", AudioURL: "https://a", Duration: 60})
	if err != nil {
		t.Fatalf("new track: %v", err)
	}
	if err := mem.SaveHistory(ctx, 5, track); err != nil {
		t.Fatalf("save history: %v", err)
	}

	stats, err := mem.EntityStats(ctx, 5)
	if err != nil || stats.TracksPlayed != 1 || stats.PlaytimeSecond != 60 {
		t.Fatalf("unexpected stats: %+v, %v", stats, err)
	}
}
