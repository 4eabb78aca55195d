// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/models"
)

// GormRecorder writes room events through GORM.
type GormRecorder struct {
	db *gorm.DB
}

// zapWriter routes GORM's own log lines into the process logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...any) {
	logger.Log.Warnf(format, args...)
}

func NewGormRecorder(host string, port int, user, password, dbname string) (*GormRecorder, error) {
	gormLogger := gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})

	db, err := gorm.Open(postgres.Open(dsn(host, port, user, password, dbname)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormRecorderFromDB(db)
}

// NewGormRecorderFromDB migrates the room_events table on an open handle.
func NewGormRecorderFromDB(db *gorm.DB) (*GormRecorder, error) {
	if err := db.AutoMigrate(&models.GormRoomEvent{}); err != nil {
		return nil, err
	}
	return &GormRecorder{db: db}, nil
}

func (r *GormRecorder) Record(ctx context.Context, event models.RoomEvent) error {
	return r.db.WithContext(ctx).Create(models.NewGormRoomEvent(event)).Error
}

func (r *GormRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
