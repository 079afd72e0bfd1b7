package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunMigrations applies the schema. Idempotent; run at startup.
func RunMigrations(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS actors (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS chat_rooms (
		id UUID PRIMARY KEY,
		participant_id UUID NOT NULL,
		counterparty_id UUID,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_open_support
		ON chat_rooms(participant_id) WHERE kind = 'SUPPORT' AND status = 'OPEN';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_open_negotiation
		ON chat_rooms(participant_id, counterparty_id) WHERE kind = 'NEGOTIATION' AND status = 'OPEN';
	CREATE INDEX IF NOT EXISTS idx_rooms_updated ON chat_rooms(updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		room_id UUID NOT NULL REFERENCES chat_rooms(id),
		sender_id UUID NOT NULL,
		content TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages(room_id, sent_at, id);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		participant_id UUID NOT NULL,
		counterparty_id UUID NOT NULL,
		service_type TEXT NOT NULL DEFAULT 'borongan',
		status TEXT NOT NULL DEFAULT 'pending',
		total_price BIGINT NOT NULL DEFAULT 0,
		project_type TEXT NOT NULL DEFAULT '',
		property_type TEXT NOT NULL DEFAULT '',
		budget TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ,
		chat_room_id UUID UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateActor creates a new actor record.
func (s *PostgresStore) CreateActor(ctx context.Context, name string, role models.Role, avatar string) (*models.Actor, error) {
	actor := &models.Actor{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO actors (id, name, role, avatar)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, role, avatar, created_at, updated_at
	`, uuid.New(), name, string(role), avatar).Scan(
		&actor.ID, &actor.Name, &actor.Role, &actor.Avatar, &actor.CreatedAt, &actor.UpdatedAt,
	)
	if err != nil {
		return nil, storeErr("create actor", err)
	}
	return actor, nil
}

// GetActor retrieves an actor by ID. Returns nil when absent.
func (s *PostgresStore) GetActor(ctx context.Context, id uuid.UUID) (*models.Actor, error) {
	actor := &models.Actor{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, role, avatar, created_at, updated_at
		FROM actors WHERE id = $1
	`, id).Scan(&actor.ID, &actor.Name, &actor.Role, &actor.Avatar, &actor.CreatedAt, &actor.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get actor", err)
	}
	return actor, nil
}

// ListWorkers lists workers with availability relative to a participant.
func (s *PostgresStore) ListWorkers(ctx context.Context, participantID uuid.UUID) ([]models.WorkerAvailability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.name, a.role, a.avatar, a.created_at, a.updated_at, r.status
		FROM actors a
		LEFT JOIN LATERAL (
			SELECT status FROM chat_rooms
			WHERE participant_id = $1 AND counterparty_id = a.id AND kind = 'NEGOTIATION'
			ORDER BY updated_at DESC LIMIT 1
		) r ON TRUE
		WHERE a.role = $2
	`, participantID, string(models.RoleWorker))
	if err != nil {
		return nil, storeErr("list workers", err)
	}
	defer rows.Close()

	var workers []models.WorkerAvailability
	for rows.Next() {
		var w models.Actor
		var status *string
		if err := rows.Scan(&w.ID, &w.Name, &w.Role, &w.Avatar, &w.CreatedAt, &w.UpdatedAt, &status); err != nil {
			return nil, storeErr("scan worker", err)
		}
		entry := models.WorkerAvailability{Worker: w, Available: true}
		if status != nil {
			rs := models.RoomStatus(*status)
			entry.RoomStatus = &rs
			entry.Available = rs == models.RoomClosed
		}
		workers = append(workers, entry)
	}
	return workers, rows.Err()
}

const pgRoomCols = `id, participant_id, counterparty_id, kind, status, created_at, updated_at`

func scanPgRoom(row pgx.Row) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := row.Scan(&room.ID, &room.ParticipantID, &room.CounterpartyID,
		&room.Kind, &room.Status, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetOrCreateSupportRoom returns the participant's open support room,
// creating it atomically if absent; created reports which happened.
func (s *PostgresStore) GetOrCreateSupportRoom(ctx context.Context, participantID uuid.UUID) (*models.ChatRoom, bool, error) {
	for {
		room, err := scanPgRoom(s.pool.QueryRow(ctx, `
			SELECT `+pgRoomCols+` FROM chat_rooms
			WHERE participant_id = $1 AND kind = 'SUPPORT' AND status = 'OPEN'
		`, participantID))
		if err == nil {
			return room, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, storeErr("get support room", err)
		}

		room, err = scanPgRoom(s.pool.QueryRow(ctx, `
			INSERT INTO chat_rooms (id, participant_id, kind, status)
			VALUES ($1, $2, 'SUPPORT', 'OPEN')
			RETURNING `+pgRoomCols+`
		`, uuid.New(), participantID))
		if err != nil {
			if isPgUniqueViolation(err) {
				continue // lost the race, re-read
			}
			return nil, false, storeErr("create support room", err)
		}
		return room, true, nil
	}
}

// GetRoom retrieves a room by ID.
func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	room, err := scanPgRoom(s.pool.QueryRow(ctx, `
		SELECT `+pgRoomCols+` FROM chat_rooms WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: room %s", chaterr.ErrNotFound, id)
		}
		return nil, storeErr("get room", err)
	}
	return room, nil
}

// GetOpenNegotiationRoom retrieves the open negotiation room for a pair.
func (s *PostgresStore) GetOpenNegotiationRoom(ctx context.Context, participantID, counterpartyID uuid.UUID) (*models.ChatRoom, error) {
	room, err := scanPgRoom(s.pool.QueryRow(ctx, `
		SELECT `+pgRoomCols+` FROM chat_rooms
		WHERE participant_id = $1 AND counterparty_id = $2 AND kind = 'NEGOTIATION' AND status = 'OPEN'
	`, participantID, counterpartyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no open negotiation room", chaterr.ErrNotFound)
		}
		return nil, storeErr("get negotiation room", err)
	}
	return room, nil
}

// CloseRoom transitions a room to CLOSED; see SQLiteStore.CloseRoom for
// the idempotency contract.
func (s *PostgresStore) CloseRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	room, err := scanPgRoom(s.pool.QueryRow(ctx, `
		UPDATE chat_rooms SET status = 'CLOSED', updated_at = NOW()
		WHERE id = $1 AND status = 'OPEN'
		RETURNING `+pgRoomCols+`
	`, id))
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeErr("close room", err)
	}

	room, gerr := s.GetRoom(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	return room, fmt.Errorf("%w: room %s", chaterr.ErrAlreadyClosed, id)
}

// TouchRoom bumps updated_at; best-effort.
func (s *PostgresStore) TouchRoom(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chat_rooms SET updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return storeErr("touch room", err)
	}
	return nil
}

// ListRooms lists rooms visible to the filter's actor, most recently
// active first.
func (s *PostgresStore) ListRooms(ctx context.Context, f RoomFilter) ([]models.ChatRoom, error) {
	query := `SELECT ` + pgRoomCols + ` FROM chat_rooms WHERE `
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch f.Role {
	case models.RoleAdmin:
		status := models.RoomOpen
		if f.Status != nil {
			status = *f.Status
		}
		query += `kind = 'SUPPORT' AND status = ` + arg(string(status))
	case models.RoleWorker:
		query += `counterparty_id = ` + arg(f.ActorID) + ` AND kind = 'NEGOTIATION'`
		if f.Status != nil {
			query += ` AND status = ` + arg(string(*f.Status))
		}
	default:
		query += `participant_id = ` + arg(f.ActorID)
		if f.Kind != nil {
			query += ` AND kind = ` + arg(string(*f.Kind))
		}
		if f.Status != nil {
			query += ` AND status = ` + arg(string(*f.Status))
		}
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list rooms", err)
	}
	defer rows.Close()

	var list []models.ChatRoom
	for rows.Next() {
		room := models.ChatRoom{}
		if err := rows.Scan(&room.ID, &room.ParticipantID, &room.CounterpartyID,
			&room.Kind, &room.Status, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, storeErr("scan room", err)
		}
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

func (s *PostgresStore) resolveRoomRefs(ctx context.Context, room *models.ChatRoom) error {
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
	qerr := s.pool.QueryRow(ctx, `
		SELECT id, room_id, sender_id, content, sent_at FROM messages
		WHERE room_id = $1 ORDER BY sent_at DESC, id DESC LIMIT 1
	`, room.ID).Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.SentAt)
	if qerr != nil {
		if errors.Is(qerr, pgx.ErrNoRows) {
			return nil
		}
		return storeErr("last message", qerr)
	}
	room.LastMessage = &msg
	return nil
}

// AppendMessage durably records a message. ULIDs are monotonic within
// the process, so ties on sent_at resolve in creation order.
func (s *PostgresStore) AppendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string) (*models.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:       ulid.Make().String(),
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING sent_at
	`, msg.ID, roomID, senderID, content).Scan(&msg.SentAt)
	if err != nil {
		return nil, storeErr("append message", err)
	}

	msg.Sender, err = s.GetActor(ctx, senderID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the room's full timeline, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.room_id, m.sender_id, m.content, m.sent_at,
		       a.name, a.role, a.avatar
		FROM messages m
		LEFT JOIN actors a ON a.id = m.sender_id
		WHERE m.room_id = $1
		ORDER BY m.sent_at ASC, m.id ASC
	`, roomID)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var name, role, avatar *string
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.SentAt,
			&name, &role, &avatar); err != nil {
			return nil, storeErr("scan message", err)
		}
		if name != nil {
			msg.Sender = &models.Actor{ID: msg.SenderID, Name: *name, Role: models.Role(*role)}
			if avatar != nil {
				msg.Sender.Avatar = *avatar
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of persisted messages in a room.
func (s *PostgresStore) CountMessages(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE room_id = $1
	`, roomID).Scan(&count)
	if err != nil {
		return 0, storeErr("count messages", err)
	}
	return count, nil
}

// CreateNegotiation atomically creates order, room, link and opening
// message; ErrConflict when an open room already exists for the pair.
func (s *PostgresStore) CreateNegotiation(ctx context.Context, p NegotiationParams) (*models.ChatRoom, *models.Order, *models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, nil, storeErr("begin negotiation", err)
	}
	defer tx.Rollback(ctx)

	order := &models.Order{
		ID:             uuid.New(),
		ParticipantID:  p.ParticipantID,
		CounterpartyID: p.CounterpartyID,
		ServiceType:    models.ServiceTypeBorongan,
		Status:         models.OrderStatusPending,
		ProjectType:    p.ProjectType,
		PropertyType:   p.PropertyType,
		Budget:         p.Budget,
		Location:       p.Location,
		StartDate:      p.StartDate,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, participant_id, counterparty_id, project_type, property_type,
			budget, location, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, order.ID, p.ParticipantID, p.CounterpartyID, p.ProjectType, p.PropertyType,
		p.Budget, p.Location, p.StartDate).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, nil, nil, storeErr("create order", err)
	}

	room, err := scanPgRoom(tx.QueryRow(ctx, `
		INSERT INTO chat_rooms (id, participant_id, counterparty_id, kind, status)
		VALUES ($1, $2, $3, 'NEGOTIATION', 'OPEN')
		RETURNING `+pgRoomCols+`
	`, uuid.New(), p.ParticipantID, p.CounterpartyID))
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, nil, nil, fmt.Errorf("%w: open negotiation room exists for pair", chaterr.ErrConflict)
		}
		return nil, nil, nil, storeErr("create negotiation room", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET chat_room_id = $1 WHERE id = $2
	`, room.ID, order.ID); err != nil {
		return nil, nil, nil, storeErr("link order", err)
	}
	order.ChatRoomID = &room.ID

	opening := &models.Message{
		ID:       ulid.Make().String(),
		RoomID:   room.ID,
		SenderID: p.ParticipantID,
		Content:  p.OpeningContent,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, room_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING sent_at
	`, opening.ID, room.ID, p.ParticipantID, p.OpeningContent).Scan(&opening.SentAt)
	if err != nil {
		return nil, nil, nil, storeErr("opening message", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isPgUniqueViolation(err) {
			return nil, nil, nil, fmt.Errorf("%w: open negotiation room exists for pair", chaterr.ErrConflict)
		}
		return nil, nil, nil, storeErr("commit negotiation", err)
	}
	return room, order, opening, nil
}

// GetOrderByRoom retrieves the order linked to a negotiation room.
func (s *PostgresStore) GetOrderByRoom(ctx context.Context, roomID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, participant_id, counterparty_id, service_type, status, total_price,
		       project_type, property_type, budget, location, start_date, chat_room_id,
		       created_at, updated_at
		FROM orders WHERE chat_room_id = $1
	`, roomID).Scan(&order.ID, &order.ParticipantID, &order.CounterpartyID, &order.ServiceType,
		&order.Status, &order.TotalPrice, &order.ProjectType, &order.PropertyType,
		&order.Budget, &order.Location, &order.StartDate, &order.ChatRoomID,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no order for room %s", chaterr.ErrNotFound, roomID)
		}
		return nil, storeErr("get order", err)
	}
	return order, nil
}
