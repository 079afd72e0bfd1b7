package ws

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

func newTestClient(h *Hub, buffer int) *Client {
	return &Client{
		hub:      h,
		send:     make(chan []byte, buffer),
		identity: auth.Identity{ID: uuid.New(), Role: models.RoleCustomer},
		groups:   make(map[string]bool),
	}
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected delivery: %s", payload)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastReachesGroupMembers(t *testing.T) {
	h := NewHub(zerolog.Nop())

	member := newTestClient(h, 8)
	outsider := newTestClient(h, 8)
	h.Register(member)
	h.Register(outsider)
	h.Join(member, "room-1")
	h.Join(outsider, "room-2")

	h.Broadcast([]string{"room-1"}, []byte("hello"))

	if got := string(recv(t, member)); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
	expectNothing(t, outsider)
}

func TestBroadcastDeliversOncePerConnection(t *testing.T) {
	h := NewHub(zerolog.Nop())

	// an admin reading a support room is in both targeted groups
	admin := newTestClient(h, 8)
	h.Register(admin)
	h.Join(admin, "room-1")
	h.Join(admin, AdminGroup)

	h.Broadcast([]string{"room-1", AdminGroup}, []byte("support message"))

	recv(t, admin)
	expectNothing(t, admin)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := NewHub(zerolog.Nop())

	c := newTestClient(h, 8)
	h.Register(c)
	h.Join(c, "room-1")
	h.Leave(c, "room-1")

	h.Broadcast([]string{"room-1"}, []byte("after leave"))
	expectNothing(t, c)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := NewHub(zerolog.Nop())

	slow := newTestClient(h, 1)
	fast := newTestClient(h, 8)
	h.Register(slow)
	h.Register(fast)
	h.Join(slow, "room-1")
	h.Join(fast, "room-1")

	// first fills the slow buffer, second overflows it
	h.Broadcast([]string{"room-1"}, []byte("one"))
	h.Broadcast([]string{"room-1"}, []byte("two"))

	// the fast subscriber still gets both
	if got := string(recv(t, fast)); got != "one" {
		t.Fatalf("expected %q, got %q", "one", got)
	}
	if got := string(recv(t, fast)); got != "two" {
		t.Fatalf("expected %q, got %q", "two", got)
	}

	// slow got the first, then its channel was closed on overflow
	if got := string(recv(t, slow)); got != "one" {
		t.Fatalf("expected %q, got %q", "one", got)
	}
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("expected closed channel for dropped subscriber")
		}
	case <-time.After(time.Second):
		t.Fatal("dropped subscriber's channel was not closed")
	}
}

func TestSendAfterDropIsSilentlyDiscarded(t *testing.T) {
	h := NewHub(zerolog.Nop())

	c := newTestClient(h, 1)
	h.Register(c)
	h.Join(c, "room-1")

	// overflow the buffer so the hub drops the connection and closes
	// its outbound channel
	h.Broadcast([]string{"room-1"}, []byte("one"))
	h.Broadcast([]string{"room-1"}, []byte("two"))

	recv(t, c)
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected closed channel for dropped subscriber")
		}
	case <-time.After(time.Second):
		t.Fatal("dropped subscriber's channel was not closed")
	}

	// the read pump may still be handling an in-flight send_message and
	// answer it with an ack; that write must be a no-op, not a panic
	c.trySend([]byte(`{"type":"ack","status":"ok"}`))
	c.sendAck(ack{TempID: "temp-1", Status: "error", Reason: "room not found"})
}

func TestUnregisterReleasesMemberships(t *testing.T) {
	h := NewHub(zerolog.Nop())

	c := newTestClient(h, 8)
	h.Register(c)
	h.Join(c, "room-1")
	h.Unregister(c)

	// channel closes on unregister
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected closed channel after unregister")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unregister")
	}

	// broadcasting afterwards must not panic on the gone connection
	h.Broadcast([]string{"room-1"}, []byte("into the void"))
}
