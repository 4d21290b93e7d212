package usagelog

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gaesaju/gaesaju/ai/monitoring"
)

// RequestLog is one persisted provider request outcome.
type RequestLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RequestID      string    `gorm:"index;size:64" json:"requestId"`
	Provider       string    `gorm:"index;size:32" json:"provider"`
	Status         string    `gorm:"size:16" json:"status"` // completed or failed
	ErrorCode      string    `gorm:"size:64" json:"errorCode,omitempty"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}

// QueryRecorder receives query latency observations. Satisfied by the
// metrics collector.
type QueryRecorder interface {
	RecordDBQuery(operation string, duration time.Duration)
}

// Store persists request outcomes through GORM. It implements
// monitoring.Persister; the monitor calls PersistEvent best-effort, so a
// broken database degrades to log warnings instead of failed requests.
type Store struct {
	db      *gorm.DB
	metrics QueryRecorder
	logger  *zap.Logger
}

// Open connects to the configured database and migrates the request-log
// table. driver is "sqlite" or "postgres".
func Open(driver, dsn string, metrics QueryRecorder, logger *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&RequestLog{}); err != nil {
		return nil, fmt.Errorf("migrate request log table: %w", err)
	}

	logger.Info("request log store opened", zap.String("driver", driver))

	return &Store{
		db:      db,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "usagelog")),
	}, nil
}

// PersistEvent stores completed and failed request events. Other event
// kinds are ignored.
func (s *Store) PersistEvent(e monitoring.Event) error {
	var status string
	switch e.Type {
	case monitoring.EventRequestCompleted:
		status = "completed"
	case monitoring.EventRequestFailed:
		status = "failed"
	default:
		return nil
	}

	rec := RequestLog{
		RequestID:      e.RequestID,
		Provider:       string(e.Provider),
		Status:         status,
		ErrorCode:      string(e.ErrorCode),
		ResponseTimeMs: e.ResponseTime.Milliseconds(),
		CreatedAt:      e.Timestamp,
	}

	start := time.Now()
	err := s.db.Create(&rec).Error
	s.observe("insert", start)
	if err != nil {
		return fmt.Errorf("persist request log: %w", err)
	}
	return nil
}

// Recent returns the latest request logs, newest first.
func (s *Store) Recent(limit int) ([]RequestLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var logs []RequestLog
	start := time.Now()
	err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error
	s.observe("select", start)
	if err != nil {
		return nil, fmt.Errorf("query request logs: %w", err)
	}
	return logs, nil
}

// PurgeOlderThan deletes logs created before the cutoff and returns the
// number removed.
func (s *Store) PurgeOlderThan(cutoff time.Time) (int64, error) {
	start := time.Now()
	res := s.db.Where("created_at < ?", cutoff).Delete(&RequestLog{})
	s.observe("delete", start)
	if res.Error != nil {
		return 0, fmt.Errorf("purge request logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, time.Since(start))
	}
}
