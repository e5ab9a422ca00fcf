package core

import (
	"context"

	"github.com/dkeye/Callroom/internal/domain"
)

//go:generate mockgen -source=history_iface.go -destination=mocks/mock_history.go -package=mocks

// HistoryRecorder receives every call that leaves the active call table.
type HistoryRecorder interface {
	Record(ctx context.Context, rec domain.CallRecord) error
}

// HistoryStore adds read access for the admin API.
type HistoryStore interface {
	HistoryRecorder
	Recent(ctx context.Context, limit int) ([]domain.CallRecord, error)
}
