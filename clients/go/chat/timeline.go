package chat

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var tempCounter uint64

// NewTempID returns a client-local provisional message id. Temp ids
// never collide with server ids, which are ULIDs.
func NewTempID() string {
	return fmt.Sprintf("temp-%d", atomic.AddUint64(&tempCounter, 1))
}

// Entry is one timeline position: either an authoritative message or a
// provisional local send awaiting its echo.
type Entry struct {
	Message
	Pending bool
}

// Timeline merges three message sources for one room into a single
// gap-free, duplicate-free, time-ordered view: the initial bulk fetch,
// push deliveries, and periodic poll fetches. Deduplication is by
// message id; a provisional local entry is replaced in place when its
// authoritative echo arrives.
type Timeline struct {
	mu      sync.Mutex
	selfID  string
	entries []Entry
	seen    map[string]bool
}

// NewTimeline creates a timeline for the given local actor.
func NewTimeline(selfID string) *Timeline {
	return &Timeline{
		selfID: selfID,
		seen:   make(map[string]bool),
	}
}

// AppendLocal records a user-initiated send before the network round
// trip completes, so rendering is not blocked on latency. Returns the
// provisional entry's temporary id.
func (t *Timeline) AppendLocal(content string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tempID := NewTempID()
	t.entries = append(t.entries, Entry{
		Message: Message{ID: tempID, SenderID: t.selfID, Content: content},
		Pending: true,
	})
	t.seen[tempID] = true
	return tempID
}

// Apply merges one incoming message, from push or poll. A message whose
// id is already present is discarded; an authoritative echo of an
// outstanding provisional entry replaces it in place.
func (t *Timeline) Apply(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(msg)
	t.sortLocked()
}

func (t *Timeline) apply(msg Message) {
	if t.seen[msg.ID] {
		return
	}

	if msg.SenderID == t.selfID {
		for i := range t.entries {
			if t.entries[i].Pending && t.entries[i].Content == msg.Content {
				delete(t.seen, t.entries[i].ID)
				t.entries[i] = Entry{Message: msg}
				t.seen[msg.ID] = true
				return
			}
		}
	}

	t.entries = append(t.entries, Entry{Message: msg})
	t.seen[msg.ID] = true
}

// Resolve replaces the provisional entry for tempID with its
// acknowledged authoritative message.
func (t *Timeline) Resolve(tempID string, msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Pending && t.entries[i].ID == tempID {
			delete(t.seen, tempID)
			if t.seen[msg.ID] {
				// Echo already arrived via push; just drop the
				// provisional entry.
				t.entries = append(t.entries[:i], t.entries[i+1:]...)
			} else {
				t.entries[i] = Entry{Message: msg}
				t.seen[msg.ID] = true
			}
			t.sortLocked()
			return
		}
	}

	// Provisional entry gone (e.g. wiped by a reset); apply normally.
	t.apply(msg)
	t.sortLocked()
}

// Fail removes the provisional entry for a send that was rejected, so
// the user can retry.
func (t *Timeline) Fail(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Pending && t.entries[i].ID == tempID {
			delete(t.seen, tempID)
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// Reset replaces the timeline wholesale with an authoritative poll
// result, re-appending outstanding provisional entries. Used as a
// self-healing measure against missed push events.
func (t *Timeline) Reset(msgs []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pending []Entry
	for _, e := range t.entries {
		if e.Pending {
			pending = append(pending, e)
		}
	}

	t.entries = t.entries[:0]
	t.seen = make(map[string]bool)
	for _, m := range msgs {
		if t.seen[m.ID] {
			continue
		}
		t.entries = append(t.entries, Entry{Message: m})
		t.seen[m.ID] = true
	}

	for _, p := range pending {
		// A provisional entry whose echo landed in the poll result is
		// already represented; match by sender and content.
		matched := false
		for _, e := range t.entries {
			if !e.Pending && e.SenderID == t.selfID && e.Content == p.Content {
				matched = true
				break
			}
		}
		if !matched {
			t.entries = append(t.entries, p)
			t.seen[p.ID] = true
		}
	}

	t.sortLocked()
}

// Messages returns a copy of the current view, oldest first.
func (t *Timeline) Messages() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// sortLocked re-sorts by (SentAt, ID). Provisional entries render at
// the tail until their echo arrives; stable sort keeps their relative
// submission order.
func (t *Timeline) sortLocked() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		a, b := t.entries[i], t.entries[j]
		if a.Pending != b.Pending {
			// Provisional entries render at the tail, after
			// everything authoritative.
			return !a.Pending
		}
		if a.Pending {
			return false
		}
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.Before(b.SentAt)
		}
		return a.ID < b.ID
	})
}
