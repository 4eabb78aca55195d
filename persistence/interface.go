// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/models"
)

// Recorder writes the room audit log. It is write-only: nothing in the
// server reads the log back.
type Recorder interface {
	Record(ctx context.Context, event models.RoomEvent) error
	Close() error
}

var (
	ErrQueueFull      = errors.New("recorder queue full")
	ErrRecorderClosed = errors.New("recorder closed")
	ErrUnknownDriver  = errors.New("unknown database driver")
)

// NopRecorder discards every event. It is used when the database is
// disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.RoomEvent) error { return nil }
func (NopRecorder) Close() error                                   { return nil }

// Open builds the recorder selected by cfg. The result is not buffered; wrap
// it with NewAsyncRecorder before handing it to rooms.
func Open(cfg config.DatabaseConfig) (Recorder, error) {
	if !cfg.Enabled {
		return NopRecorder{}, nil
	}
	pg := cfg.Postgres
	switch cfg.Driver {
	case config.DriverGorm:
		return NewGormRecorder(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case config.DriverSQL:
		return NewSQLRecorder(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func dsn(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}
