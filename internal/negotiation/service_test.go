package negotiation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

func newTestService(t *testing.T) (*Service, store.DataStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return NewService(s, zerolog.Nop()), s
}

func TestStartCreatesOrderRoomAndOpeningMessage(t *testing.T) {
	svc, ds := newTestService(t)
	ctx := context.Background()

	customer, err := ds.CreateActor(ctx, "Budi", models.RoleCustomer, "")
	if err != nil {
		t.Fatal(err)
	}
	worker, err := ds.CreateActor(ctx, "Agus", models.RoleWorker, "")
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Start(ctx, StartInput{
		ParticipantID:  customer.ID,
		CounterpartyID: worker.ID,
		ProjectType:    "Renovasi",
		PropertyType:   "Rumah",
		Budget:         "50jt",
		Location:       "Bandung",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Reused {
		t.Fatal("first start must not be marked reused")
	}
	if res.Order == nil || res.Order.ChatRoomID == nil || *res.Order.ChatRoomID != res.Room.ID {
		t.Fatal("order not linked to room")
	}

	msgs, err := ds.ListMessages(ctx, res.Room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].SenderID != customer.ID {
		t.Fatalf("expected one participant-authored opening message, got %d", len(msgs))
	}
}

func TestStartReturnsExistingOpenNegotiation(t *testing.T) {
	svc, ds := newTestService(t)
	ctx := context.Background()

	customer, _ := ds.CreateActor(ctx, "Budi", models.RoleCustomer, "")
	worker, _ := ds.CreateActor(ctx, "Agus", models.RoleWorker, "")

	in := StartInput{
		ParticipantID:  customer.ID,
		CounterpartyID: worker.ID,
		ProjectType:    "Renovasi",
		Location:       "Bandung",
	}

	first, err := svc.Start(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Start(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Reused {
		t.Fatal("second start should reuse the open negotiation")
	}
	if second.Room.ID != first.Room.ID {
		t.Fatalf("expected room %s, got %s", first.Room.ID, second.Room.ID)
	}
	if second.Order == nil || second.Order.ID != first.Order.ID {
		t.Fatal("linked order not returned on reuse")
	}

	// only the original opening message exists
	msgs, err := ds.ListMessages(ctx, first.Room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("reuse must not append another opening message, got %d", len(msgs))
	}
}

func TestStartValidation(t *testing.T) {
	svc, ds := newTestService(t)
	ctx := context.Background()

	customer, _ := ds.CreateActor(ctx, "Budi", models.RoleCustomer, "")
	worker, _ := ds.CreateActor(ctx, "Agus", models.RoleWorker, "")
	otherCustomer, _ := ds.CreateActor(ctx, "Citra", models.RoleCustomer, "")

	cases := []struct {
		name string
		in   StartInput
	}{
		{"missing project type", StartInput{ParticipantID: customer.ID, CounterpartyID: worker.ID, Location: "Bandung"}},
		{"missing location", StartInput{ParticipantID: customer.ID, CounterpartyID: worker.ID, ProjectType: "Renovasi"}},
		{"self negotiation", StartInput{ParticipantID: customer.ID, CounterpartyID: customer.ID, ProjectType: "Renovasi", Location: "Bandung"}},
		{"counterparty not a worker", StartInput{ParticipantID: customer.ID, CounterpartyID: otherCustomer.ID, ProjectType: "Renovasi", Location: "Bandung"}},
	}
	for _, tc := range cases {
		if _, err := svc.Start(ctx, tc.in); !errors.Is(err, chaterr.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}
