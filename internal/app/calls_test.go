package app

import (
	"slices"
	"testing"
	"time"

	"github.com/dkeye/Callroom/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTable() (*CallTable, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewCallTable(clock.Now), clock
}

func TestCallTableSingleSessionPerRoom(t *testing.T) {
	table, clock := newTestTable()

	s, created := table.GetOrCreate("r1", "bob", domain.CallTypeVideo)
	if !created || s.Status != domain.CallStatusConnecting {
		t.Fatalf("created=%v status=%q", created, s.Status)
	}
	start := s.StartTime

	clock.Advance(time.Second)
	s, created = table.GetOrCreate("r1", "carol", domain.CallTypeAudio)
	if created {
		t.Error("second offer must not create a new session")
	}
	if s.HasParticipant("carol") || s.CallType != domain.CallTypeVideo || !s.StartTime.Equal(start) {
		t.Errorf("existing session was modified: %+v", s)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}

func TestCallTableAnswerAndEnd(t *testing.T) {
	table, _ := newTestTable()
	table.GetOrCreate("r1", "bob", domain.CallTypeVideo)

	s, ok := table.MarkAnswered("r1", "alice")
	if !ok || s.Status != domain.CallStatusConnected || !s.HasParticipant("alice") {
		t.Fatalf("MarkAnswered = %+v, %v", s, ok)
	}
	// A copy must not leak writes back into the table.
	s.AddParticipant("mallory")
	if got, _ := table.Get("r1"); got.HasParticipant("mallory") {
		t.Error("table shares state with returned copy")
	}

	ended, ok := table.End("r1")
	if !ok || len(ended.Participants) != 2 {
		t.Fatalf("End = %+v, %v", ended, ok)
	}
	if _, ok := table.End("r1"); ok {
		t.Error("second End should report false")
	}

	fresh, created := table.GetOrCreate("r1", "alice", domain.CallTypeAudio)
	if !created || fresh.Status != domain.CallStatusConnecting || fresh.HasParticipant("bob") {
		t.Errorf("session after end is not fresh: %+v", fresh)
	}
}

func TestCallTableAnswerWithoutSession(t *testing.T) {
	table, _ := newTestTable()
	if _, ok := table.MarkAnswered("r9", "alice"); ok {
		t.Error("MarkAnswered on missing room should report false")
	}
	if table.Len() != 0 {
		t.Error("MarkAnswered must not create sessions")
	}
}

func TestCallTableSessionsInvolving(t *testing.T) {
	table, _ := newTestTable()
	table.GetOrCreate("r2", "alice", domain.CallTypeVideo)
	table.GetOrCreate("r1", "bob", domain.CallTypeVideo)
	table.MarkAnswered("r1", "alice")
	table.GetOrCreate("r3", "carol", domain.CallTypeVideo)

	var rooms []domain.RoomID
	for _, s := range table.SessionsInvolving("alice") {
		rooms = append(rooms, s.RoomID)
	}
	if !slices.Equal(rooms, []domain.RoomID{"r1", "r2"}) {
		t.Errorf("rooms = %v", rooms)
	}
	if got := table.SessionsInvolving("dave"); len(got) != 0 {
		t.Errorf("dave sessions = %v", got)
	}
}

func TestCallTableStaleConnecting(t *testing.T) {
	table, clock := newTestTable()
	table.GetOrCreate("old", "bob", domain.CallTypeVideo)
	table.GetOrCreate("answered", "bob", domain.CallTypeVideo)
	table.MarkAnswered("answered", "alice")

	clock.Advance(50 * time.Second)
	table.GetOrCreate("young", "carol", domain.CallTypeVideo)
	clock.Advance(10 * time.Second)

	if got := table.StaleConnecting(60 * time.Second); !slices.Equal(got, []domain.RoomID{"old"}) {
		t.Errorf("stale = %v, want [old]", got)
	}
	if got := table.StaleConnecting(0); got != nil {
		t.Errorf("zero timeout should disable expiry, got %v", got)
	}

	snap := table.Snapshot()
	if len(snap) != 3 || snap[0].RoomID != "answered" {
		t.Errorf("snapshot = %+v", snap)
	}
}
