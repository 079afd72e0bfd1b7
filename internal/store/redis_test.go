package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rs.Close() })
	return rs
}

func testMessage(roomID uuid.UUID, id, content string, at time.Time) models.Message {
	return models.Message{
		ID:       id,
		RoomID:   roomID,
		SenderID: uuid.New(),
		Content:  content,
		SentAt:   at,
	}
}

func TestCacheMessageSkipsUnprimedRoom(t *testing.T) {
	rs := newTestRedis(t)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)

	// the room's history lives in SQL only; appending here would create
	// a cache missing everything persisted before it
	opening := testMessage(roomID, "01AAAAAAAAAAAAAAAAAAAAAAAA", "opening", base)
	reply := testMessage(roomID, "01BBBBBBBBBBBBBBBBBBBBBBBB", "reply", base.Add(time.Second))

	if err := rs.CacheMessage(ctx, &reply); err != nil {
		t.Fatal(err)
	}
	cached, err := rs.GetRoomMessages(ctx, roomID.String())
	if err != nil {
		t.Fatal(err)
	}
	if cached != nil {
		t.Fatalf("cold room must stay uncached, got %+v", cached)
	}

	// the poll path seeds the cache from a full SQL read; appends stick
	// from then on
	if err := rs.PrimeRoomMessages(ctx, roomID.String(), []models.Message{opening}); err != nil {
		t.Fatal(err)
	}
	if err := rs.CacheMessage(ctx, &reply); err != nil {
		t.Fatal(err)
	}

	cached, err = rs.GetRoomMessages(ctx, roomID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached messages, got %d", len(cached))
	}
	if cached[0].Content != "opening" || cached[1].Content != "reply" {
		t.Fatalf("wrong order: %q then %q", cached[0].Content, cached[1].Content)
	}
}

func TestPrimeReplacesWholesale(t *testing.T) {
	rs := newTestRedis(t)
	ctx := context.Background()
	roomID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)

	opening := testMessage(roomID, "01AAAAAAAAAAAAAAAAAAAAAAAA", "opening", base)
	reply := testMessage(roomID, "01BBBBBBBBBBBBBBBBBBBBBBBB", "reply", base.Add(time.Second))

	if err := rs.PrimeRoomMessages(ctx, roomID.String(), []models.Message{opening}); err != nil {
		t.Fatal(err)
	}
	// a re-prime carries the full authoritative timeline; stale members
	// from the previous generation must not linger
	if err := rs.PrimeRoomMessages(ctx, roomID.String(), []models.Message{opening, reply}); err != nil {
		t.Fatal(err)
	}

	cached, err := rs.GetRoomMessages(ctx, roomID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 2 {
		t.Fatalf("expected 2 cached messages, got %d", len(cached))
	}

	if err := rs.PrimeRoomMessages(ctx, roomID.String(), []models.Message{opening}); err != nil {
		t.Fatal(err)
	}
	cached, err = rs.GetRoomMessages(ctx, roomID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 1 || cached[0].Content != "opening" {
		t.Fatalf("prime did not replace the set: %+v", cached)
	}
}

func TestCorruptCacheEntryFailsTheRead(t *testing.T) {
	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rs.Close() })

	ctx := context.Background()
	roomID := uuid.New()
	opening := testMessage(roomID, "01AAAAAAAAAAAAAAAAAAAAAAAA", "opening", time.Now().UTC())

	if err := rs.PrimeRoomMessages(ctx, roomID.String(), []models.Message{opening}); err != nil {
		t.Fatal(err)
	}
	if _, err := mr.ZAdd(roomMessagesKey(roomID.String()), 1, "not-json"); err != nil {
		t.Fatal(err)
	}

	// a partial decode must not be served as the timeline
	if _, err := rs.GetRoomMessages(ctx, roomID.String()); err == nil {
		t.Fatal("expected an error for a corrupt cache entry")
	}

	// the poisoned key is dropped so the next poll re-primes from SQL
	cached, err := rs.GetRoomMessages(ctx, roomID.String())
	if err != nil {
		t.Fatal(err)
	}
	if cached != nil {
		t.Fatalf("poisoned key should be gone, got %+v", cached)
	}
}

func TestAllowSendBudget(t *testing.T) {
	rs := newTestRedis(t)
	ctx := context.Background()
	actorID := uuid.New().String()

	for i := 0; i < sendRateMax; i++ {
		ok, err := rs.AllowSend(ctx, actorID)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("send %d should be within budget", i+1)
		}
	}

	ok, err := rs.AllowSend(ctx, actorID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("send over budget should be throttled")
	}

	// a different actor has its own counter
	ok, err = rs.AllowSend(ctx, uuid.New().String())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("unrelated actor throttled")
	}
}
