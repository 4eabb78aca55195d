// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/wfunc/roomsync/models"
)

const createRoomEvents = `
CREATE TABLE IF NOT EXISTS room_events (
    id SERIAL PRIMARY KEY,
    code VARCHAR(16) NOT NULL,
    kind VARCHAR(32) NOT NULL,
    player_id VARCHAR(36),
    status VARCHAR(16) NOT NULL,
    seq BIGINT NOT NULL DEFAULT 0,
    players INTEGER NOT NULL DEFAULT 0,
    detail TEXT,
    occurred_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const insertRoomEvent = `
INSERT INTO room_events (code, kind, player_id, status, seq, players, detail, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// SQLRecorder writes room events with plain database/sql and lib/pq.
type SQLRecorder struct {
	db *sql.DB
}

func NewSQLRecorder(host string, port int, user, password, dbname string) (*SQLRecorder, error) {
	db, err := sql.Open("postgres", dsn(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	r, err := NewSQLRecorderFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewSQLRecorderFromDB checks the connection and creates the room_events
// table if needed.
func NewSQLRecorderFromDB(db *sql.DB) (*SQLRecorder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createRoomEvents); err != nil {
		return nil, err
	}
	return &SQLRecorder{db: db}, nil
}

func (r *SQLRecorder) Record(ctx context.Context, e models.RoomEvent) error {
	_, err := r.db.ExecContext(ctx, insertRoomEvent,
		e.Code, string(e.Kind), e.PlayerID, e.Status, int64(e.Seq), e.Players, e.Detail, e.OccurredAt)
	return err
}

func (r *SQLRecorder) Close() error {
	return r.db.Close()
}
