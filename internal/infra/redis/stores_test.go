package redis

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"worksafe/internal/domain"
	"worksafe/internal/quiz"
)

func TestStateStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewStateStore(newClient(mr))

	if _, err := store.Get(ctx, "worksafe:theme"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "worksafe:theme", []byte("dark")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "worksafe:theme")
	if err != nil || string(got) != "dark" {
		t.Fatalf("expected dark, got %q (%v)", got, err)
	}
	if err := store.Delete(ctx, "worksafe:theme"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("worksafe:theme") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestPlayStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewPlayStore(newClient(mr), time.Minute)

	session := quiz.Start(domain.QuizCatalog()["q1"], rand.New(rand.NewSource(3)))
	session.Select(1)
	if err := store.Save(ctx, "u1", session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("worksafe:play:u1") {
		t.Fatalf("expected redis key to be set")
	}

	loaded, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Selected == nil || *loaded.Selected != 1 {
		t.Fatalf("expected selection to survive, got %+v", loaded.Selected)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, "u1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session to expire, got %v", err)
	}

	_ = store.Save(ctx, "u2", session)
	_ = store.Delete(ctx, "u2")
	if mr.Exists("worksafe:play:u2") {
		t.Fatalf("expected redis key to be removed")
	}
}
