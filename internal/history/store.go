// Package history persists finished calls.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CallLog is one row of the "call_logs" table.
type CallLog struct {
	gorm.Model

	RoomID       string    `gorm:"index;size:128"`
	CallType     string    `gorm:"size:16"`
	Participants string    `gorm:"size:2048"` // comma separated user ids
	StartedAt    time.Time `gorm:"index"`
	EndedAt      time.Time
	DurationSec  int64
	Reason       string `gorm:"size:64"`
	Status       string `gorm:"size:16"`
}

func fromRecord(rec domain.CallRecord) CallLog {
	ids := make([]string, len(rec.Participants))
	for i, u := range rec.Participants {
		ids[i] = string(u)
	}
	return CallLog{
		RoomID:       string(rec.RoomID),
		CallType:     string(rec.CallType),
		Participants: strings.Join(ids, ","),
		StartedAt:    rec.StartedAt,
		EndedAt:      rec.EndedAt,
		DurationSec:  rec.Duration,
		Reason:       rec.Reason,
		Status:       string(rec.FinalStatus),
	}
}

func (l CallLog) toRecord() domain.CallRecord {
	var parts []domain.UserID
	if l.Participants != "" {
		for _, p := range strings.Split(l.Participants, ",") {
			parts = append(parts, domain.UserID(p))
		}
	}
	return domain.CallRecord{
		RoomID:       domain.RoomID(l.RoomID),
		CallType:     domain.CallType(l.CallType),
		Participants: parts,
		StartedAt:    l.StartedAt,
		EndedAt:      l.EndedAt,
		Duration:     l.DurationSec,
		Reason:       l.Reason,
		FinalStatus:  domain.CallStatus(l.Status),
	}
}

// Store implements core.HistoryStore on top of gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return db, nil
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&CallLog{}); err != nil {
		return nil, fmt.Errorf("migrate call_logs: %w", err)
	}
	log.Info().Str("module", "history").Msg("call history ready")
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, rec domain.CallRecord) error {
	row := fromRecord(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record call %s: %w", rec.RoomID, err)
	}
	return nil
}

// Recent returns up to limit calls, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.CallRecord, error) {
	var rows []CallLog
	err := s.db.WithContext(ctx).
		Order("ended_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load call history: %w", err)
	}
	out := make([]domain.CallRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}
