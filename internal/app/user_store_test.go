package app_test

import (
	"context"
	"errors"
	"testing"

	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/domain"
	"techkwiz-quiz-service/internal/infra/memory"
)

func TestUserStoreMalformedRecordIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	_ = kv.Set(ctx, "techkwiz_user:u1", "{not json")
	store := app.NewUserStore(kv, discardLogger(), 500)

	user, err := store.Load(ctx, "u1")
	if err != nil || user != nil {
		t.Fatalf("expected nil user for malformed record, got %+v err=%v", user, err)
	}

	created, err := store.Ensure(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if created.Name != "Guest" || created.Coins != 500 || created.Level != 1 || created.QuizHistory == nil {
		t.Fatalf("unexpected guest %+v", created)
	}
}

func TestUserStoreEnsureGeneratesID(t *testing.T) {
	store := app.NewUserStore(memory.NewKVStore(), discardLogger(), 500)
	user, err := store.Ensure(context.Background(), "", "Ada")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if user.ID == "" || user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUserStoreRoundTripsThroughKV(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	first := app.NewUserStore(kv, discardLogger(), 500)
	if _, err := first.Ensure(ctx, "u1", "Ada"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := first.Update(ctx, "u1", func(u *domain.UserRecord) error {
		u.Coins = 1234
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	second := app.NewUserStore(kv, discardLogger(), 500)
	user, err := second.Load(ctx, "u1")
	if err != nil || user == nil || user.Coins != 1234 || user.Name != "Ada" {
		t.Fatalf("expected stored record, got %+v err=%v", user, err)
	}
}

func TestUserStoreUpdateGuards(t *testing.T) {
	ctx := context.Background()
	store := app.NewUserStore(memory.NewKVStore(), discardLogger(), 100)

	if _, err := store.Update(ctx, "ghost", func(*domain.UserRecord) error { return nil }); !errors.Is(err, domain.ErrUnknownUser) {
		t.Fatalf("expected unknown user, got %v", err)
	}

	_, _ = store.Ensure(ctx, "u1", "Ada")
	if _, err := store.Update(ctx, "u1", func(u *domain.UserRecord) error {
		u.Coins -= 101
		return nil
	}); err == nil {
		t.Fatalf("expected negative balance to be refused")
	}

	boom := errors.New("boom")
	if _, err := store.Update(ctx, "u1", func(u *domain.UserRecord) error {
		u.Coins = 0
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	user, _ := store.Load(ctx, "u1")
	if user.Coins != 100 {
		t.Fatalf("expected balance unchanged, got %d", user.Coins)
	}
}

func TestUserStoreWriteFailureKeepsMemoryCopy(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{KVStore: memory.NewKVStore()}
	store := app.NewUserStore(kv, discardLogger(), 100)
	_, _ = store.Ensure(ctx, "u1", "Ada")

	kv.setFailing(true)
	user, err := store.Update(ctx, "u1", func(u *domain.UserRecord) error {
		u.Coins += 50
		return nil
	})
	if !errors.Is(err, domain.ErrPersistence) || user.Coins != 150 {
		t.Fatalf("expected persistence warning with updated record, got %+v err=%v", user, err)
	}
	loaded, _ := store.Load(ctx, "u1")
	if loaded.Coins != 150 {
		t.Fatalf("expected in-memory balance 150, got %d", loaded.Coins)
	}
}

func TestUserStoresSharingOneKVSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	a := app.NewUserStore(kv, discardLogger(), 100)
	b := app.NewUserStore(kv, discardLogger(), 100)
	credit := func(n int) func(*domain.UserRecord) error {
		return func(u *domain.UserRecord) error {
			u.Coins += n
			return nil
		}
	}

	if _, err := a.Ensure(ctx, "u1", "Ada"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := b.Update(ctx, "u1", credit(500)); err != nil {
		t.Fatalf("update b: %v", err)
	}
	user, err := a.Update(ctx, "u1", credit(50))
	if err != nil || user.Coins != 650 {
		t.Fatalf("expected a to build on b's write, got %+v err=%v", user, err)
	}

	persisted, err := app.NewUserStore(kv, discardLogger(), 100).Load(ctx, "u1")
	if err != nil || persisted == nil || persisted.Coins != 650 {
		t.Fatalf("expected 650 persisted coins, got %+v err=%v", persisted, err)
	}
}

func TestUserStoreRecoveredWriteFlushesMemoryCopy(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{KVStore: memory.NewKVStore()}
	store := app.NewUserStore(kv, discardLogger(), 100)
	_, _ = store.Ensure(ctx, "u1", "Ada")

	kv.setFailing(true)
	_, _ = store.Update(ctx, "u1", func(u *domain.UserRecord) error {
		u.Coins += 50
		return nil
	})
	kv.setFailing(false)
	if _, err := store.Update(ctx, "u1", func(u *domain.UserRecord) error {
		u.Coins += 25
		return nil
	}); err != nil {
		t.Fatalf("update after recovery: %v", err)
	}

	persisted, _ := app.NewUserStore(kv, discardLogger(), 100).Load(ctx, "u1")
	if persisted == nil || persisted.Coins != 175 {
		t.Fatalf("expected 175 persisted coins, got %+v", persisted)
	}
}
