package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// and test backend; production runs on PostgresStore.
type SQLiteStore struct {
	db *sql.DB

	// appends take this lock so sent_at assignment order matches
	// insert order; SQLite is single-writer anyway.
	appendMu sync.Mutex
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/chat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chat.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS actors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_rooms (
		id TEXT PRIMARY KEY,
		participant_id TEXT NOT NULL,
		counterparty_id TEXT,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'OPEN',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- at most one OPEN support room per participant and one OPEN
	-- negotiation room per (participant, counterparty) pair
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_open_support
		ON chat_rooms(participant_id) WHERE kind = 'SUPPORT' AND status = 'OPEN';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_open_negotiation
		ON chat_rooms(participant_id, counterparty_id) WHERE kind = 'NEGOTIATION' AND status = 'OPEN';
	CREATE INDEX IF NOT EXISTS idx_rooms_updated ON chat_rooms(updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES chat_rooms(id),
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL,
		sent_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages(room_id, sent_at, id);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		participant_id TEXT NOT NULL,
		counterparty_id TEXT NOT NULL,
		service_type TEXT NOT NULL DEFAULT 'borongan',
		status TEXT NOT NULL DEFAULT 'pending',
		total_price INTEGER NOT NULL DEFAULT 0,
		project_type TEXT NOT NULL DEFAULT '',
		property_type TEXT NOT NULL DEFAULT '',
		budget TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		start_date DATETIME,
		chat_room_id TEXT UNIQUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isSQLiteUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// storeErr wraps unexpected driver failures as retryable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", chaterr.ErrTransient, op, err)
}

// CreateActor creates a new actor record.
func (s *SQLiteStore) CreateActor(ctx context.Context, name string, role models.Role, avatar string) (*models.Actor, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actors (id, name, role, avatar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), name, string(role), avatar, now, now)
	if err != nil {
		return nil, storeErr("create actor", err)
	}

	return &models.Actor{ID: id, Name: name, Role: role, Avatar: avatar, CreatedAt: now, UpdatedAt: now}, nil
}

// GetActor retrieves an actor by ID. Returns nil when absent: actors are
// provisioned by the account subsystem and may not be mirrored yet.
func (s *SQLiteStore) GetActor(ctx context.Context, id uuid.UUID) (*models.Actor, error) {
	actor := &models.Actor{}
	var idStr, role string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, avatar, created_at, updated_at
		FROM actors WHERE id = ?
	`, id.String()).Scan(&idStr, &actor.Name, &role, &actor.Avatar, &actor.CreatedAt, &actor.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get actor", err)
	}
	actor.ID = uuid.MustParse(idStr)
	actor.Role = models.Role(role)
	return actor, nil
}

// ListWorkers lists all workers together with their availability for the
// given participant. A worker is available when no negotiation room
// exists between the pair or the latest one is closed.
func (s *SQLiteStore) ListWorkers(ctx context.Context, participantID uuid.UUID) ([]models.WorkerAvailability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, avatar, created_at, updated_at
		FROM actors WHERE role = ?
	`, string(models.RoleWorker))
	if err != nil {
		return nil, storeErr("list workers", err)
	}
	defer rows.Close()

	var workers []models.WorkerAvailability
	for rows.Next() {
		var w models.Actor
		var idStr, role string
		if err := rows.Scan(&idStr, &w.Name, &role, &w.Avatar, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, storeErr("scan worker", err)
		}
		w.ID = uuid.MustParse(idStr)
		w.Role = models.Role(role)

		var status string
		err := s.db.QueryRowContext(ctx, `
			SELECT status FROM chat_rooms
			WHERE participant_id = ? AND counterparty_id = ? AND kind = ?
			ORDER BY updated_at DESC LIMIT 1
		`, participantID.String(), idStr, string(models.RoomNegotiation)).Scan(&status)

		entry := models.WorkerAvailability{Worker: w, Available: true}
		if err == nil {
			rs := models.RoomStatus(status)
			entry.RoomStatus = &rs
			entry.Available = rs == models.RoomClosed
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, storeErr("worker availability", err)
		}
		workers = append(workers, entry)
	}
	return workers, rows.Err()
}

func (s *SQLiteStore) scanRoom(row *sql.Row) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	var idStr, participant, kind, status string
	var counterparty sql.NullString
	err := row.Scan(&idStr, &participant, &counterparty, &kind, &status, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	room.ID = uuid.MustParse(idStr)
	room.ParticipantID = uuid.MustParse(participant)
	if counterparty.Valid {
		cp := uuid.MustParse(counterparty.String)
		room.CounterpartyID = &cp
	}
	room.Kind = models.RoomKind(kind)
	room.Status = models.RoomStatus(status)
	return room, nil
}

const sqliteRoomCols = `id, participant_id, counterparty_id, kind, status, created_at, updated_at`

// GetOrCreateSupportRoom returns the participant's open support room,
// creating it if necessary; created reports which happened. The partial
// unique index makes the create race-safe: the loser of a concurrent
// insert re-reads the winner's row.
func (s *SQLiteStore) GetOrCreateSupportRoom(ctx context.Context, participantID uuid.UUID) (*models.ChatRoom, bool, error) {
	for {
		room, err := s.scanRoom(s.db.QueryRowContext(ctx, `
			SELECT `+sqliteRoomCols+` FROM chat_rooms
			WHERE participant_id = ? AND kind = ? AND status = ?
		`, participantID.String(), string(models.RoomSupport), string(models.RoomOpen)))
		if err == nil {
			return room, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, storeErr("get support room", err)
		}

		id := uuid.New()
		now := time.Now().UTC()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO chat_rooms (id, participant_id, counterparty_id, kind, status, created_at, updated_at)
			VALUES (?, ?, NULL, ?, ?, ?, ?)
		`, id.String(), participantID.String(), string(models.RoomSupport), string(models.RoomOpen), now, now)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				continue // lost the race, re-read
			}
			return nil, false, storeErr("create support room", err)
		}
		return &models.ChatRoom{
			ID:            id,
			ParticipantID: participantID,
			Kind:          models.RoomSupport,
			Status:        models.RoomOpen,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, true, nil
	}
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.scanRoom(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteRoomCols+` FROM chat_rooms WHERE id = ?
	`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: room %s", chaterr.ErrNotFound, id)
		}
		return nil, storeErr("get room", err)
	}
	return room, nil
}

// GetOpenNegotiationRoom retrieves the open negotiation room for a
// (participant, counterparty) pair, or ErrNotFound.
func (s *SQLiteStore) GetOpenNegotiationRoom(ctx context.Context, participantID, counterpartyID uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.scanRoom(s.db.QueryRowContext(ctx, `
		SELECT `+sqliteRoomCols+` FROM chat_rooms
		WHERE participant_id = ? AND counterparty_id = ? AND kind = ? AND status = ?
	`, participantID.String(), counterpartyID.String(), string(models.RoomNegotiation), string(models.RoomOpen)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no open negotiation room", chaterr.ErrNotFound)
		}
		return nil, storeErr("get negotiation room", err)
	}
	return room, nil
}

// CloseRoom transitions a room to CLOSED. Closing an already-closed room
// returns the terminal row together with ErrAlreadyClosed and does not
// bump updated_at.
func (s *SQLiteStore) CloseRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_rooms SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, string(models.RoomClosed), now, id.String(), string(models.RoomOpen))
	if err != nil {
		return nil, storeErr("close room", err)
	}

	room, gerr := s.GetRoom(ctx, id)
	if gerr != nil {
		return nil, gerr
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return room, fmt.Errorf("%w: room %s", chaterr.ErrAlreadyClosed, id)
	}
	return room, nil
}

// TouchRoom bumps updated_at so the room floats to the top of list
// views. Best-effort; a missed bump only affects list-sort freshness.
func (s *SQLiteStore) TouchRoom(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_rooms SET updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id.String())
	if err != nil {
		return storeErr("touch room", err)
	}
	return nil
}

// ListRooms lists rooms visible to the filter's actor, most recently
// active first. Participant, counterparty and last-message attributes
// are resolved for list rendering.
func (s *SQLiteStore) ListRooms(ctx context.Context, f RoomFilter) ([]models.ChatRoom, error) {
	query := `SELECT ` + sqliteRoomCols + ` FROM chat_rooms WHERE `
	var args []interface{}

	switch f.Role {
	case models.RoleAdmin:
		// Admins see the support queue; default to open conversations
		query += `kind = ?`
		args = append(args, string(models.RoomSupport))
		status := models.RoomOpen
		if f.Status != nil {
			status = *f.Status
		}
		query += ` AND status = ?`
		args = append(args, string(status))
	case models.RoleWorker:
		query += `counterparty_id = ? AND kind = ?`
		args = append(args, f.ActorID.String(), string(models.RoomNegotiation))
		if f.Status != nil {
			query += ` AND status = ?`
			args = append(args, string(*f.Status))
		}
	default:
		query += `participant_id = ?`
		args = append(args, f.ActorID.String())
		if f.Kind != nil {
			query += ` AND kind = ?`
			args = append(args, string(*f.Kind))
		}
		if f.Status != nil {
			query += ` AND status = ?`
			args = append(args, string(*f.Status))
		}
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list rooms", err)
	}
	defer rows.Close()

	var list []models.ChatRoom
	for rows.Next() {
		room := models.ChatRoom{}
		var idStr, participant, kind, status string
		var counterparty sql.NullString
		if err := rows.Scan(&idStr, &participant, &counterparty, &kind, &status, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, storeErr("scan room", err)
		}
		room.ID = uuid.MustParse(idStr)
		room.ParticipantID = uuid.MustParse(participant)
		if counterparty.Valid {
			cp := uuid.MustParse(counterparty.String)
			room.CounterpartyID = &cp
		}
		room.Kind = models.RoomKind(kind)
		room.Status = models.RoomStatus(status)
		list = append(list, room)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate rooms", err)
	}

	for i := range list {
		if err := s.resolveRoomRefs(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// resolveRoomRefs fills participant/counterparty attributes and the
// latest message preview.
func (s *SQLiteStore) resolveRoomRefs(ctx context.Context, room *models.ChatRoom) error {
	var err error
	room.Participant, err = s.GetActor(ctx, room.ParticipantID)
	if err != nil {
		return err
	}
	if room.CounterpartyID != nil {
		room.Counterparty, err = s.GetActor(ctx, *room.CounterpartyID)
		if err != nil {
			return err
		}
	}

	msg := models.Message{}
	var roomIDStr, senderStr string
	qerr := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, sender_id, content, sent_at FROM messages
		WHERE room_id = ? ORDER BY sent_at DESC, id DESC LIMIT 1
	`, room.ID.String()).Scan(&msg.ID, &roomIDStr, &senderStr, &msg.Content, &msg.SentAt)
	if qerr != nil {
		if errors.Is(qerr, sql.ErrNoRows) {
			return nil
		}
		return storeErr("last message", qerr)
	}
	msg.RoomID = uuid.MustParse(roomIDStr)
	msg.SenderID = uuid.MustParse(senderStr)
	room.LastMessage = &msg
	return nil
}

// AppendMessage durably records a message. The id is a monotonic ULID
// and sent_at is assigned here, under the append lock, so the persisted
// order is the observable order.
func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	s.appendMu.Lock()
	msg := &models.Message{
		ID:       ulid.Make().String(),
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		SentAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, roomID.String(), senderID.String(), content, msg.SentAt)
	s.appendMu.Unlock()
	if err != nil {
		return nil, storeErr("append message", err)
	}

	msg.Sender, err = s.GetActor(ctx, senderID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the room's full timeline, oldest first, with
// resolved sender attributes.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.room_id, m.sender_id, m.content, m.sent_at,
		       a.name, a.role, a.avatar
		FROM messages m
		LEFT JOIN actors a ON a.id = m.sender_id
		WHERE m.room_id = ?
		ORDER BY m.sent_at ASC, m.id ASC
	`, roomID.String())
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var roomIDStr, senderStr string
		var name, role, avatar sql.NullString
		if err := rows.Scan(&msg.ID, &roomIDStr, &senderStr, &msg.Content, &msg.SentAt, &name, &role, &avatar); err != nil {
			return nil, storeErr("scan message", err)
		}
		msg.RoomID = uuid.MustParse(roomIDStr)
		msg.SenderID = uuid.MustParse(senderStr)
		if name.Valid {
			msg.Sender = &models.Actor{
				ID:     msg.SenderID,
				Name:   name.String,
				Role:   models.Role(role.String),
				Avatar: avatar.String,
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of persisted messages in a room.
func (s *SQLiteStore) CountMessages(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE room_id = ?
	`, roomID.String()).Scan(&count)
	if err != nil {
		return 0, storeErr("count messages", err)
	}
	return count, nil
}

// CreateNegotiation atomically creates the pending order, the
// negotiation room, the write-once order->room link and the opening
// message. A concurrent start for the same pair surfaces as ErrConflict.
func (s *SQLiteStore) CreateNegotiation(ctx context.Context, p NegotiationParams) (*models.ChatRoom, *models.Order, *models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, storeErr("begin negotiation", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	order := &models.Order{
		ID:             uuid.New(),
		ParticipantID:  p.ParticipantID,
		CounterpartyID: p.CounterpartyID,
		ServiceType:    models.ServiceTypeBorongan,
		Status:         models.OrderStatusPending,
		TotalPrice:     0,
		ProjectType:    p.ProjectType,
		PropertyType:   p.PropertyType,
		Budget:         p.Budget,
		Location:       p.Location,
		StartDate:      p.StartDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, participant_id, counterparty_id, service_type, status, total_price,
			project_type, property_type, budget, location, start_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)
	`, order.ID.String(), p.ParticipantID.String(), p.CounterpartyID.String(),
		order.ServiceType, order.Status, p.ProjectType, p.PropertyType, p.Budget, p.Location,
		p.StartDate, now, now)
	if err != nil {
		return nil, nil, nil, storeErr("create order", err)
	}

	room := &models.ChatRoom{
		ID:             uuid.New(),
		ParticipantID:  p.ParticipantID,
		CounterpartyID: &p.CounterpartyID,
		Kind:           models.RoomNegotiation,
		Status:         models.RoomOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_rooms (id, participant_id, counterparty_id, kind, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, room.ID.String(), p.ParticipantID.String(), p.CounterpartyID.String(),
		string(models.RoomNegotiation), string(models.RoomOpen), now, now)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, nil, nil, fmt.Errorf("%w: open negotiation room exists for pair", chaterr.ErrConflict)
		}
		return nil, nil, nil, storeErr("create negotiation room", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET chat_room_id = ? WHERE id = ?
	`, room.ID.String(), order.ID.String())
	if err != nil {
		return nil, nil, nil, storeErr("link order", err)
	}
	order.ChatRoomID = &room.ID

	opening := &models.Message{
		ID:       ulid.Make().String(),
		RoomID:   room.ID,
		SenderID: p.ParticipantID,
		Content:  p.OpeningContent,
		SentAt:   now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`, opening.ID, room.ID.String(), p.ParticipantID.String(), p.OpeningContent, now)
	if err != nil {
		return nil, nil, nil, storeErr("opening message", err)
	}

	if err := tx.Commit(); err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, nil, nil, fmt.Errorf("%w: open negotiation room exists for pair", chaterr.ErrConflict)
		}
		return nil, nil, nil, storeErr("commit negotiation", err)
	}
	return room, order, opening, nil
}

// GetOrderByRoom retrieves the order linked to a negotiation room.
func (s *SQLiteStore) GetOrderByRoom(ctx context.Context, roomID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	var idStr, participant, counterparty string
	var roomIDStr sql.NullString
	var startDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, participant_id, counterparty_id, service_type, status, total_price,
		       project_type, property_type, budget, location, start_date, chat_room_id,
		       created_at, updated_at
		FROM orders WHERE chat_room_id = ?
	`, roomID.String()).Scan(&idStr, &participant, &counterparty, &order.ServiceType,
		&order.Status, &order.TotalPrice, &order.ProjectType, &order.PropertyType,
		&order.Budget, &order.Location, &startDate, &roomIDStr, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no order for room %s", chaterr.ErrNotFound, roomID)
		}
		return nil, storeErr("get order", err)
	}
	order.ID = uuid.MustParse(idStr)
	order.ParticipantID = uuid.MustParse(participant)
	order.CounterpartyID = uuid.MustParse(counterparty)
	if startDate.Valid {
		t := startDate.Time
		order.StartDate = &t
	}
	if roomIDStr.Valid {
		r := uuid.MustParse(roomIDStr.String)
		order.ChatRoomID = &r
	}
	return order, nil
}
