package chat

import (
	"testing"
	"time"
)

func mkMsg(id, sender, content string, at time.Time) Message {
	return Message{ID: id, SenderID: sender, Content: content, SentAt: at}
}

func contents(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

func TestTimelineDeduplicatesPushAndPoll(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	msg := mkMsg("01A", "other", "hello", base)
	tl.Apply(msg) // push
	tl.Apply(msg) // poll re-delivers the same message

	if got := len(tl.Messages()); got != 1 {
		t.Fatalf("expected 1 entry after duplicate delivery, got %d", got)
	}
}

func TestTimelineOptimisticSendReplacedByEcho(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	tl.Apply(mkMsg("01A", "other", "hi", base))
	tl.AppendLocal("my reply")

	entries := tl.Messages()
	if len(entries) != 2 || !entries[1].Pending {
		t.Fatalf("expected pending entry at tail: %+v", entries)
	}

	// authoritative echo arrives via push
	echo := mkMsg("01B", "me", "my reply", base.Add(time.Second))
	tl.Apply(echo)

	entries = tl.Messages()
	if len(entries) != 2 {
		t.Fatalf("echo must replace the provisional entry, got %d entries", len(entries))
	}
	if entries[1].ID != "01B" || entries[1].Pending {
		t.Fatalf("provisional entry not replaced: %+v", entries[1])
	}
}

func TestTimelineResolveByAck(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	tempID := tl.AppendLocal("offer")
	ackMsg := mkMsg("01C", "me", "offer", base)
	tl.Resolve(tempID, ackMsg)

	entries := tl.Messages()
	if len(entries) != 1 || entries[0].ID != "01C" || entries[0].Pending {
		t.Fatalf("ack did not resolve provisional entry: %+v", entries)
	}

	// the push echo of the same message is then a duplicate
	tl.Apply(ackMsg)
	if got := len(tl.Messages()); got != 1 {
		t.Fatalf("expected 1 entry after echo, got %d", got)
	}
}

func TestTimelineResolveAfterEchoDropsProvisional(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	tempID := tl.AppendLocal("fast echo")
	echo := mkMsg("01D", "me", "fast echo", base)

	tl.Apply(echo) // push beats the ack
	tl.Resolve(tempID, echo)

	if got := len(tl.Messages()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestTimelineFailRemovesProvisional(t *testing.T) {
	tl := NewTimeline("me")

	tempID := tl.AppendLocal("doomed")
	tl.Fail(tempID)

	if got := len(tl.Messages()); got != 0 {
		t.Fatalf("expected empty timeline after failed send, got %d", got)
	}
}

func TestTimelineMergeOrdering(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	// deliveries arrive out of order
	tl.Apply(mkMsg("01C", "other", "third", base.Add(2*time.Second)))
	tl.Apply(mkMsg("01A", "other", "first", base))
	tl.Apply(mkMsg("01B", "me", "second", base.Add(time.Second)))

	got := contents(tl.Messages())
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestTimelineTieBreakByID(t *testing.T) {
	tl := NewTimeline("me")
	at := time.Now()

	tl.Apply(mkMsg("01B", "other", "b", at))
	tl.Apply(mkMsg("01A", "other", "a", at))

	got := contents(tl.Messages())
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("equal sent_at must break ties by id: %v", got)
	}
}

func TestTimelineResetPreservesProvisional(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	tl.Apply(mkMsg("01A", "other", "old", base))
	tl.AppendLocal("in flight")

	// authoritative poll result does not yet include the in-flight send
	tl.Reset([]Message{
		mkMsg("01A", "other", "old", base),
		mkMsg("01B", "other", "new", base.Add(time.Second)),
	})

	entries := tl.Messages()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after reset, got %d", len(entries))
	}
	if !entries[2].Pending || entries[2].Content != "in flight" {
		t.Fatalf("provisional entry lost on reset: %+v", entries)
	}
}

func TestTimelineResetAbsorbsLandedProvisional(t *testing.T) {
	tl := NewTimeline("me")
	base := time.Now()

	tl.AppendLocal("landed")

	// the poll result already contains the authoritative echo
	tl.Reset([]Message{mkMsg("01A", "me", "landed", base)})

	entries := tl.Messages()
	if len(entries) != 1 || entries[0].Pending {
		t.Fatalf("landed provisional should be absorbed: %+v", entries)
	}
}
