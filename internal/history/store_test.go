package history

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStoreRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	records := []domain.CallRecord{
		{RoomID: "r1", CallType: domain.CallTypeVideo, Participants: []domain.UserID{"alice", "bob"},
			StartedAt: base, EndedAt: base.Add(time.Minute), Duration: 60, Reason: "ended", FinalStatus: domain.CallStatusConnected},
		{RoomID: "r2", CallType: domain.CallTypeAudio, Participants: []domain.UserID{"carol"},
			StartedAt: base, EndedAt: base.Add(3 * time.Minute), Duration: 180, Reason: "timeout", FinalStatus: domain.CallStatusConnecting},
		{RoomID: "r3", CallType: domain.CallTypeVideo,
			StartedAt: base, EndedAt: base.Add(2 * time.Minute), Duration: 120, Reason: "declined", FinalStatus: domain.CallStatusConnecting},
	}
	for _, rec := range records {
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s): %v", rec.RoomID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].RoomID != "r2" || got[1].RoomID != "r3" {
		t.Fatalf("Recent order = %+v", got)
	}
	if got[0].Reason != "timeout" || got[0].Duration != 180 || got[0].CallType != domain.CallTypeAudio {
		t.Errorf("r2 = %+v", got[0])
	}
	if len(got[1].Participants) != 0 {
		t.Errorf("r3 participants = %v", got[1].Participants)
	}

	all, _ := s.Recent(ctx, 10)
	if len(all) != 3 {
		t.Fatalf("Recent(10) returned %d", len(all))
	}
	if last := all[2]; !slices.Equal(last.Participants, []domain.UserID{"alice", "bob"}) || last.FinalStatus != domain.CallStatusConnected {
		t.Errorf("r1 = %+v", last)
	}
}
