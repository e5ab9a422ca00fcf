package app

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// CallTable holds at most one live CallSession per room.
// Callers only ever see copies.
type CallTable struct {
	mu       sync.RWMutex
	sessions map[domain.RoomID]*domain.CallSession
	now      func() time.Time
}

func NewCallTable(now func() time.Time) *CallTable {
	if now == nil {
		now = time.Now
	}
	return &CallTable{
		sessions: make(map[domain.RoomID]*domain.CallSession),
		now:      now,
	}
}

// GetOrCreate returns the existing session for room untouched, or starts a
// new connecting one with initiator as the only participant.
func (t *CallTable) GetOrCreate(room domain.RoomID, initiator domain.UserID, ct domain.CallType) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[room]; ok {
		return s.Clone(), false
	}
	s := domain.NewCallSession(room, initiator, ct, t.now())
	t.sessions[room] = s
	log.Info().Str("module", "app.calls").Str("room", string(room)).Str("user", string(initiator)).Str("call_type", string(ct)).Msg("call session created")
	return s.Clone(), true
}

// MarkAnswered adds the answerer and moves the session to connected.
// It reports false, leaving the table untouched, when room has no session.
func (t *CallTable) MarkAnswered(room domain.RoomID, answerer domain.UserID) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[room]
	if !ok {
		log.Warn().Str("module", "app.calls").Str("room", string(room)).Str("user", string(answerer)).Msg("answer for unknown call ignored")
		return domain.CallSession{}, false
	}
	s.AddParticipant(answerer)
	s.Status = domain.CallStatusConnected
	return s.Clone(), true
}

func (t *CallTable) End(room domain.RoomID) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[room]
	if !ok {
		return domain.CallSession{}, false
	}
	delete(t.sessions, room)
	return s.Clone(), true
}

func (t *CallTable) Get(room domain.RoomID) (domain.CallSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[room]
	if !ok {
		return domain.CallSession{}, false
	}
	return s.Clone(), true
}

// SessionsInvolving lists every session uid participates in, ordered by room.
func (t *CallTable) SessionsInvolving(uid domain.UserID) []domain.CallSession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []domain.CallSession
	for _, s := range t.sessions {
		if s.HasParticipant(uid) {
			out = append(out, s.Clone())
		}
	}
	slices.SortFunc(out, func(a, b domain.CallSession) int {
		return cmp.Compare(a.RoomID, b.RoomID)
	})
	return out
}

// StaleConnecting lists rooms whose session is still connecting after maxAge.
func (t *CallTable) StaleConnecting(maxAge time.Duration) []domain.RoomID {
	if maxAge <= 0 {
		return nil
	}
	cutoff := t.now().Add(-maxAge)
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []domain.RoomID
	for room, s := range t.sessions {
		if s.Status == domain.CallStatusConnecting && !s.StartTime.After(cutoff) {
			out = append(out, room)
		}
	}
	slices.Sort(out)
	return out
}

func (t *CallTable) Snapshot() []domain.CallSession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.CallSession, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s.Clone())
	}
	slices.SortFunc(out, func(a, b domain.CallSession) int {
		return cmp.Compare(a.RoomID, b.RoomID)
	})
	return out
}

func (t *CallTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

func (t *CallTable) Now() time.Time { return t.now() }
