package repository

import (
	"context"
	"strings"
	"testing"

	"recbox/kv"
	"recbox/model"
)

func newTestRepo(t *testing.T) (RecordingRepository, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewKVRecordingRepository(store), store
}

func TestListOrdersNewestFirst(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	// Seed the blob directly with out-of-order createdAt values.
	blob := `[
		{"id":"a","title":"first","audioUri":"file://a.m4a","audioDuration":1000,"createdAt":"2025-03-01T10:00:00Z"},
		{"id":"c","title":"third","audioUri":"file://c.m4a","audioDuration":3000,"createdAt":"2025-03-01T12:00:00Z"},
		{"id":"b","title":"second","audioUri":"file://b.m4a","audioDuration":2000,"createdAt":"2025-03-01T11:00:00Z"}
	]`
	if err := store.Set(ctx, "saved_recordings", blob); err != nil {
		t.Fatalf("seed: %v", err)
	}

	recs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(recs))
	}
	for i, want := range []string{"c", "b", "a"} {
		if recs[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, recs[i].ID)
		}
	}
}

func TestCreateAssignsFieldsAndPrepends(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, &model.Recording{
		Title:         "Standup",
		AudioURI:      "file://a.m4a",
		AudioDuration: 65000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected a non-empty id")
	}
	if rec.CreatedAt == "" {
		t.Error("expected createdAt to be set")
	}

	recs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(recs))
	}
	if recs[0].Title != "Standup" || recs[0].AudioDuration != 65000 {
		t.Errorf("unexpected record: %+v", recs[0])
	}
}

func TestCreateIDsAreUnique(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec, err := repo.Create(ctx, &model.Recording{AudioURI: "file://x.m4a"})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %s at iteration %d", rec.ID, i)
		}
		seen[rec.ID] = true
	}
}

func TestCreateDefaultsBlankTitle(t *testing.T) {
	repo, _ := newTestRepo(t)

	rec, err := repo.Create(context.Background(), &model.Recording{AudioURI: "file://x.m4a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(rec.Title, "Recording ") {
		t.Errorf("expected generated default title, got %q", rec.Title)
	}
}

func TestListLenientOnMissingOrMalformedBlob(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	// Missing key.
	recs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list on empty store: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty list, got %d", len(recs))
	}

	// Malformed blob.
	if err := store.Set(ctx, "saved_recordings", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	recs, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("list on malformed blob: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty list on malformed blob, got %d", len(recs))
	}
}

func TestUpdateMutatesAndNormalizesEmptyPoints(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, &model.Recording{
		AudioURI:      "file://x.m4a",
		AudioDuration: 1000,
		ActionablePoints: []model.ActionablePoint{
			{ID: "p1", Title: "follow up", Priority: model.PriorityHigh, Status: model.StatusPending},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.Update(ctx, rec.ID, func(r *model.Recording) {
		r.ActionablePoints = []model.ActionablePoint{}
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}

	got, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ActionablePoints != nil {
		t.Errorf("expected empty points to normalize to absent, got %+v", got.ActionablePoints)
	}

	// The persisted blob stays compact: no actionablePoints key at all.
	blob, err := store.Get(ctx, "saved_recordings")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if strings.Contains(blob, "actionablePoints") {
		t.Errorf("expected actionablePoints to be omitted from blob: %s", blob)
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	repo, _ := newTestRepo(t)

	found, err := repo.Update(context.Background(), "nope", func(r *model.Recording) {})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if found {
		t.Error("expected found=false for a missing record")
	}
}

func TestDeleteRemovesRecord(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, &model.Recording{AudioURI: "file://x.m4a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := repo.Delete(ctx, rec.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed == nil || removed.ID != rec.ID {
		t.Fatalf("expected removed record %s, got %+v", rec.ID, removed)
	}

	recs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty index after delete, got %d", len(recs))
	}

	// Deleting again is a miss, not an error.
	removed, err = repo.Delete(ctx, rec.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed != nil {
		t.Error("expected nil for a missing record")
	}
}

func TestFindByAudioIdentity(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, &model.Recording{AudioURI: "file://a.m4a", AudioDuration: 1000}); err != nil {
		t.Fatalf("create: %v", err)
	}
	want, err := repo.Create(ctx, &model.Recording{AudioURI: "file://b.m4a", AudioDuration: 2000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindByAudioIdentity(ctx, "file://b.m4a", 2000)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Fatalf("expected %s, got %+v", want.ID, got)
	}

	// Same uri with a different duration is a different identity.
	got, err = repo.FindByAudioIdentity(ctx, "file://b.m4a", 9999)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Errorf("expected no match, got %+v", got)
	}
}
