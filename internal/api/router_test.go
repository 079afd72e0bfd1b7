package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/Bufv/NGULIKANG-FINAL/internal/auth"
	"github.com/Bufv/NGULIKANG-FINAL/internal/handlers"
	"github.com/Bufv/NGULIKANG-FINAL/internal/metrics"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/negotiation"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
	"github.com/Bufv/NGULIKANG-FINAL/internal/ws"
)

const testSecret = "test-secret"

type testServer struct {
	srv   *httptest.Server
	store store.DataStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithRedis(t, nil)
}

func newTestServerWithRedis(t *testing.T, rdb *store.RedisStore) *testServer {
	t.Helper()
	ds, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ds.Close)

	logger := zerolog.Nop()
	verifier := auth.NewVerifier(testSecret)
	hub := ws.NewHub(logger)
	gateway := ws.NewGateway(ds, rdb, hub, verifier, logger)
	negotiationSvc := negotiation.NewService(ds, logger)
	handler := handlers.NewHandler(ds, rdb, negotiationSvc, gateway, logger)

	srv := httptest.NewServer(NewRouter(logger, handler, gateway, verifier))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: ds}
}

func (ts *testServer) actor(t *testing.T, name string, role models.Role) (*models.Actor, string) {
	t.Helper()
	a, err := ts.store.CreateActor(context.Background(), name, role, "")
	if err != nil {
		t.Fatal(err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  a.ID.String(),
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return a, token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "GET", "/api/chat/rooms", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = ts.do(t, "GET", "/api/chat/rooms", "garbage-token", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestSupportRoomFlow(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.actor(t, "Budi", models.RoleCustomer)

	opened := testutil.ToFloat64(metrics.RoomsOpened.WithLabelValues(string(models.RoomSupport)))

	var first struct {
		Room *models.ChatRoom `json:"room"`
	}
	resp := ts.do(t, "POST", "/api/chat/support", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	decode(t, resp, &first)
	if first.Room.Kind != models.RoomSupport || first.Room.Status != models.RoomOpen {
		t.Fatalf("unexpected room: %+v", first.Room)
	}

	// second request returns the same open room
	var second struct {
		Room *models.ChatRoom `json:"room"`
	}
	decode(t, ts.do(t, "POST", "/api/chat/support", token, nil), &second)
	if second.Room.ID != first.Room.ID {
		t.Fatal("support room not reused")
	}

	// only the create counts as an opened room
	if got := testutil.ToFloat64(metrics.RoomsOpened.WithLabelValues(string(models.RoomSupport))) - opened; got != 1 {
		t.Fatalf("expected 1 opened support room, got %v", got)
	}
}

func TestSendAndPollMessages(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.actor(t, "Budi", models.RoleCustomer)

	var created struct {
		Room *models.ChatRoom `json:"room"`
	}
	decode(t, ts.do(t, "POST", "/api/chat/support", token, nil), &created)
	roomPath := "/api/chat/rooms/" + created.Room.ID.String()

	resp := ts.do(t, "POST", roomPath+"/messages", token, map[string]string{"content": "halo"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var sent models.Message
	decode(t, resp, &sent)
	if sent.Content != "halo" {
		t.Fatalf("unexpected message: %+v", sent)
	}

	// blank content is rejected before touching the store
	resp = ts.do(t, "POST", roomPath+"/messages", token, map[string]string{"content": "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", resp.StatusCode)
	}

	var timeline struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, ts.do(t, "GET", roomPath+"/messages", token, nil), &timeline)
	if len(timeline.Messages) != 1 || timeline.Messages[0].ID != sent.ID {
		t.Fatalf("poll read mismatch: %+v", timeline.Messages)
	}
}

func TestCloseRoomIdempotentOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.actor(t, "Budi", models.RoleCustomer)
	_, otherToken := ts.actor(t, "Citra", models.RoleCustomer)

	var created struct {
		Room *models.ChatRoom `json:"room"`
	}
	decode(t, ts.do(t, "POST", "/api/chat/support", token, nil), &created)
	closePath := "/api/chat/rooms/" + created.Room.ID.String() + "/close"

	// an unrelated customer may not close it
	resp := ts.do(t, "PUT", closePath, otherToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp = ts.do(t, "PUT", closePath, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var closed struct {
		Room *models.ChatRoom `json:"room"`
	}
	decode(t, resp, &closed)
	if closed.Room.Status != models.RoomClosed {
		t.Fatalf("expected CLOSED, got %s", closed.Room.Status)
	}

	// duplicate close returns the terminal state, not an error
	resp = ts.do(t, "PUT", closePath, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on duplicate close, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestNegotiationFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, customerToken := ts.actor(t, "Budi", models.RoleCustomer)
	worker, workerToken := ts.actor(t, "Agus", models.RoleWorker)

	start := map[string]string{
		"worker_id":    worker.ID.String(),
		"project_type": "Renovasi",
		"location":     "Bandung",
		"budget":       "50jt",
	}

	resp := ts.do(t, "POST", "/api/negotiation/start", customerToken, start)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var res struct {
		Room   *models.ChatRoom `json:"room"`
		Order  *models.Order    `json:"order"`
		Reused bool             `json:"reused"`
	}
	decode(t, resp, &res)
	if res.Order == nil || res.Order.Status != models.OrderStatusPending {
		t.Fatalf("unexpected order: %+v", res.Order)
	}

	// repeat start reuses the open negotiation
	resp = ts.do(t, "POST", "/api/negotiation/start", customerToken, start)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on reuse, got %d", resp.StatusCode)
	}
	var reused struct {
		Room   *models.ChatRoom `json:"room"`
		Reused bool             `json:"reused"`
	}
	decode(t, resp, &reused)
	if !reused.Reused || reused.Room.ID != res.Room.ID {
		t.Fatalf("expected reuse of room %s", res.Room.ID)
	}

	// workers cannot start negotiations
	resp = ts.do(t, "POST", "/api/negotiation/start", workerToken, start)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for worker, got %d", resp.StatusCode)
	}

	// the worker sees the negotiation in its room list
	var rooms struct {
		Rooms []models.ChatRoom `json:"rooms"`
	}
	decode(t, ts.do(t, "GET", "/api/negotiation/rooms", workerToken, nil), &rooms)
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].ID != res.Room.ID {
		t.Fatalf("worker room list wrong: %+v", rooms.Rooms)
	}

	// the engaged worker shows as unavailable
	var workers struct {
		Workers []models.WorkerAvailability `json:"workers"`
	}
	decode(t, ts.do(t, "GET", "/api/negotiation/workers", customerToken, nil), &workers)
	if len(workers.Workers) != 1 || workers.Workers[0].Available {
		t.Fatalf("worker availability wrong: %+v", workers.Workers)
	}

	// linked order is reachable from the room
	var order models.Order
	decode(t, ts.do(t, "GET", "/api/negotiation/rooms/"+res.Room.ID.String()+"/order", customerToken, nil), &order)
	if order.ID != res.Order.ID {
		t.Fatalf("expected order %s, got %s", res.Order.ID, order.ID)
	}
}

func TestPollNeverHidesNegotiationOpening(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rdb.Close() })

	ts := newTestServerWithRedis(t, rdb)
	_, customerToken := ts.actor(t, "Budi", models.RoleCustomer)
	worker, _ := ts.actor(t, "Agus", models.RoleWorker)

	var res struct {
		Room *models.ChatRoom `json:"room"`
	}
	decode(t, ts.do(t, "POST", "/api/negotiation/start", customerToken, map[string]string{
		"worker_id":    worker.ID.String(),
		"project_type": "Renovasi",
		"location":     "Bandung",
	}), &res)
	roomPath := "/api/chat/rooms/" + res.Room.ID.String()

	// a send lands before any poll has warmed the cache; the opening
	// message exists only in SQL at this point
	resp := ts.do(t, "POST", roomPath+"/messages", customerToken, map[string]string{"content": "boleh nego?"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// every poll must return the full timeline, opening included
	for i := 0; i < 2; i++ {
		var timeline struct {
			Messages []models.Message `json:"messages"`
		}
		decode(t, ts.do(t, "GET", roomPath+"/messages", customerToken, nil), &timeline)
		if len(timeline.Messages) != 2 {
			t.Fatalf("poll %d: expected 2 messages, got %d", i+1, len(timeline.Messages))
		}
		if timeline.Messages[0].Content == "boleh nego?" {
			t.Fatalf("poll %d: opening message lost from timeline", i+1)
		}
	}

	// once warmed, appends reach the cache directly
	resp = ts.do(t, "POST", roomPath+"/messages", customerToken, map[string]string{"content": "harga pas"})
	resp.Body.Close()
	var timeline struct {
		Messages []models.Message `json:"messages"`
	}
	decode(t, ts.do(t, "GET", roomPath+"/messages", customerToken, nil), &timeline)
	if len(timeline.Messages) != 3 {
		t.Fatalf("expected 3 messages after warm append, got %d", len(timeline.Messages))
	}

	// a cache that lost part of the history is never served as the
	// timeline; the poll falls back to SQL and re-primes
	all, err := ts.store.ListMessages(context.Background(), res.Room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := rdb.PrimeRoomMessages(context.Background(), res.Room.ID.String(), all[1:]); err != nil {
		t.Fatal(err)
	}
	decode(t, ts.do(t, "GET", roomPath+"/messages", customerToken, nil), &timeline)
	if len(timeline.Messages) != 3 {
		t.Fatalf("incomplete cache served as the timeline: got %d messages", len(timeline.Messages))
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "GET", "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health struct {
		Status string `json:"status"`
	}
	decode(t, resp, &health)
	if health.Status != "healthy" {
		t.Fatalf("expected healthy, got %s", health.Status)
	}
}
