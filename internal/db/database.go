package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
)

type Database struct {
	db *sql.DB
}

// RoomSummary is a listing row for the HTTP surface.
type RoomSummary struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"admin_id"`
	MemberCount  int       `json:"member_count"`
	DrawingCount int       `json:"drawing_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func New(dbPath string) (*Database, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("module", "db").Str("path", dbPath).Msg("database initialized")
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rooms (
		room_id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS room_members (
		room_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		PRIMARY KEY (room_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_room_members_user_id ON room_members(user_id);

	CREATE TABLE IF NOT EXISTS room_drawings (
		room_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		x0 REAL NOT NULL,
		y0 REAL NOT NULL,
		x1 REAL NOT NULL,
		y1 REAL NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		size REAL NOT NULL DEFAULT 0,
		shape TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (room_id, seq)
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		room_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL,
		text TEXT NOT NULL,
		client_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages(room_id, seq);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// User operations

// UpsertUser creates the user if absent and returns the stored record. An
// existing record is never modified, so concurrent first connections for the
// same user converge on one row.
func (d *Database) UpsertUser(ctx context.Context, u model.User) (*model.User, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (user_id, email, username) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, u.UserID, u.Email, u.Username)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.UserID, err)
	}

	stored, err := d.GetUser(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("upsert user %s: row missing after insert", u.UserID)
	}
	return stored, nil
}

func (d *Database) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := d.db.QueryRowContext(ctx,
		"SELECT user_id, email, username FROM users WHERE user_id = ?",
		userID,
	).Scan(&u.UserID, &u.Email, &u.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &u, nil
}

// Room operations

// EnsureRoom creates an empty room document if none exists for roomID.
func (d *Database) EnsureRoom(ctx context.Context, roomID string) error {
	_, err := d.db.ExecContext(ctx, "INSERT OR IGNORE INTO rooms (room_id) VALUES (?)", roomID)
	if err != nil {
		return fmt.Errorf("ensure room %s: %w", roomID, err)
	}
	return nil
}

// LoadOrCreateRoom returns the room, creating it first if needed.
func (d *Database) LoadOrCreateRoom(ctx context.Context, roomID string) (*model.Room, error) {
	if err := d.EnsureRoom(ctx, roomID); err != nil {
		return nil, err
	}
	room, err := d.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("load room %s: row missing after insert", roomID)
	}
	return room, nil
}

// GetRoom returns nil, nil when the room does not exist.
func (d *Database) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room := &model.Room{RoomID: roomID, Users: []model.Member{}, Drawings: []model.DrawingOp{}}

	err := d.db.QueryRowContext(ctx, "SELECT admin_id FROM rooms WHERE room_id = ?", roomID).Scan(&room.AdminID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}

	members, err := d.db.QueryContext(ctx,
		"SELECT user_id, username FROM room_members WHERE room_id = ? ORDER BY position ASC",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("get room %s members: %w", roomID, err)
	}
	defer members.Close()
	for members.Next() {
		var m model.Member
		if err := members.Scan(&m.UserID, &m.Username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		room.Users = append(room.Users, m)
	}
	if err := members.Err(); err != nil {
		return nil, err
	}

	room.Drawings, err = d.GetDrawings(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (d *Database) GetDrawings(ctx context.Context, roomID string) ([]model.DrawingOp, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT x0, y0, x1, y1, color, size, shape, created_by
		FROM room_drawings WHERE room_id = ? ORDER BY seq ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %s drawings: %w", roomID, err)
	}
	defer rows.Close()

	drawings := make([]model.DrawingOp, 0)
	for rows.Next() {
		var op model.DrawingOp
		var shape string
		if err := rows.Scan(&op.X0, &op.Y0, &op.X1, &op.Y1, &op.Color, &op.Size, &shape, &op.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan drawing: %w", err)
		}
		op.Shape = model.Shape(shape)
		drawings = append(drawings, op)
	}
	return drawings, rows.Err()
}

// SaveRoster replaces the room's roster and admin in one transaction.
func (d *Database) SaveRoster(ctx context.Context, roomID string, users []model.Member, adminID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save roster %s: %w", roomID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO rooms (room_id) VALUES (?)", roomID); err != nil {
		return fmt.Errorf("save roster %s: %w", roomID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE rooms SET admin_id = ?, updated_at = CURRENT_TIMESTAMP WHERE room_id = ?",
		adminID, roomID,
	); err != nil {
		return fmt.Errorf("save roster %s: %w", roomID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM room_members WHERE room_id = ?", roomID); err != nil {
		return fmt.Errorf("save roster %s: %w", roomID, err)
	}
	for i, m := range users {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO room_members (room_id, user_id, username, position) VALUES (?, ?, ?, ?)",
			roomID, m.UserID, m.Username, i,
		); err != nil {
			return fmt.Errorf("save roster %s: %w", roomID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save roster %s: %w", roomID, err)
	}
	return nil
}

// AppendDrawing adds op at the tail of the room's history.
func (d *Database) AppendDrawing(ctx context.Context, roomID string, op model.DrawingOp) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append drawing %s: %w", roomID, err)
	}
	defer tx.Rollback()

	// Ensure room exists
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO rooms (room_id) VALUES (?)", roomID); err != nil {
		return fmt.Errorf("append drawing %s: %w", roomID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_drawings (room_id, seq, x0, y0, x1, y1, color, size, shape, created_by)
		SELECT ?, COALESCE(MAX(seq) + 1, 0), ?, ?, ?, ?, ?, ?, ?, ?
		FROM room_drawings WHERE room_id = ?
	`, roomID, op.X0, op.Y0, op.X1, op.Y1, op.Color, op.Size, string(op.Shape), op.CreatedBy, roomID); err != nil {
		return fmt.Errorf("append drawing %s: %w", roomID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE rooms SET updated_at = CURRENT_TIMESTAMP WHERE room_id = ?", roomID,
	); err != nil {
		return fmt.Errorf("append drawing %s: %w", roomID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append drawing %s: %w", roomID, err)
	}
	return nil
}

// TruncateDrawings keeps only the first keep ops of the room's history.
func (d *Database) TruncateDrawings(ctx context.Context, roomID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM room_drawings WHERE room_id = ? AND seq >= ?",
		roomID, keep,
	)
	if err != nil {
		return fmt.Errorf("truncate drawings %s: %w", roomID, err)
	}
	return nil
}

// RoomsWithMember lists the rooms whose roster contains userID.
func (d *Database) RoomsWithMember(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT room_id FROM room_members WHERE user_id = ? ORDER BY room_id ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("rooms with member %s: %w", userID, err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		rooms = append(rooms, id)
	}
	return rooms, rows.Err()
}

func (d *Database) ListRooms(ctx context.Context, limit, offset int) ([]RoomSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.room_id, r.admin_id, r.created_at, r.updated_at,
			(SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.room_id),
			(SELECT COUNT(*) FROM room_drawings d WHERE d.room_id = r.room_id)
		FROM rooms r
		ORDER BY r.updated_at DESC, r.room_id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []RoomSummary
	for rows.Next() {
		var r RoomSummary
		if err := rows.Scan(&r.ID, &r.AdminID, &r.CreatedAt, &r.UpdatedAt, &r.MemberCount, &r.DrawingCount); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes the room document with its roster and history. Chat
// messages are kept. It reports whether a room was deleted.
func (d *Database) DeleteRoom(ctx context.Context, roomID string) (bool, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete room %s: %w", roomID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM room_drawings WHERE room_id = ?", roomID); err != nil {
		return false, fmt.Errorf("delete room %s: %w", roomID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM room_members WHERE room_id = ?", roomID); err != nil {
		return false, fmt.Errorf("delete room %s: %w", roomID, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM rooms WHERE room_id = ?", roomID)
	if err != nil {
		return false, fmt.Errorf("delete room %s: %w", roomID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return n > 0, nil
}

// Chat operations

// InsertChatMessage persists msg and sets its Seq.
func (d *Database) InsertChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, room_id, user_id, username, text, client_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.RoomID, msg.UserID, msg.Username, msg.Text, msg.ClientID, msg.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	msg.Seq = seq
	return nil
}

// RecentChatMessages returns up to limit of the room's latest messages, oldest first.
func (d *Database) RecentChatMessages(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, id, room_id, user_id, username, text, client_id, created_at
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent chat %s: %w", roomID, err)
	}
	defer rows.Close()

	msgs := make([]model.ChatMessage, 0, limit)
	for rows.Next() {
		var m model.ChatMessage
		var createdAt int64
		if err := rows.Scan(&m.Seq, &m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Text, &m.ClientID, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Stats

func (d *Database) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := []struct {
		key   string
		table string
	}{
		{"room_count", "rooms"},
		{"user_count", "users"},
		{"drawing_count", "room_drawings"},
		{"chat_count", "chat_messages"},
	}
	for _, c := range counts {
		var n int
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(&n); err != nil {
			return nil, err
		}
		stats[c.key] = n
	}

	return stats, nil
}
