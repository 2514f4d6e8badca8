package redis

import (
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionStoreRestoresCharge(t *testing.T) {
	mr, client := newTestClient(t)
	if err := mr.Set("quiz:session:u1", "programming"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewSessionStore(client, time.Minute, discardLogger())
	session := store.GetOrCreate("u1")
	if got := session.ChargedCategory(); got != "programming" {
		t.Fatalf("expected restored charge, got %q", got)
	}
}

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Minute, discardLogger())

	session := store.GetOrCreate("u1")
	if mr.Exists("quiz:session:u1") {
		t.Fatalf("expected no key before a charge")
	}

	store.persist("u1", "programming")
	if got, _ := mr.Get("quiz:session:u1"); got != "programming" {
		t.Fatalf("expected charge persisted, got %q", got)
	}
	if ttl := mr.TTL("quiz:session:u1"); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}
	store.persist("u1", "")
	if mr.Exists("quiz:session:u1") {
		t.Fatalf("expected charge key removed")
	}

	store.DeleteIfIdle("u1")
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected idle session removed")
	}

	// A fresh session for the same user starts uncharged.
	session = store.GetOrCreate("u1")
	if session.ChargedCategory() != "" {
		t.Fatalf("expected no charge, got %q", session.ChargedCategory())
	}
}
