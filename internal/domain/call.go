package domain

import (
	"errors"
	"slices"
	"time"
)

type CallType string

const (
	CallTypeVideo CallType = "video"
	CallTypeAudio CallType = "audio"
)

var ErrUnknownCallType = errors.New("unknown call type")

// ParseCallType defaults to video when the peer does not say.
func ParseCallType(raw string) (CallType, error) {
	switch CallType(raw) {
	case "":
		return CallTypeVideo, nil
	case CallTypeVideo, CallTypeAudio:
		return CallType(raw), nil
	default:
		return "", ErrUnknownCallType
	}
}

// CallStatus values are part of the wire format; keep them stable.
// Ended sessions are not stored, so there is no ended status.
type CallStatus string

const (
	CallStatusConnecting CallStatus = "connecting"
	CallStatusConnected  CallStatus = "connected"
)

// CallSession is the live call state for one room.
type CallSession struct {
	RoomID       RoomID
	Participants map[UserID]struct{}
	StartTime    time.Time
	CallType     CallType
	Status       CallStatus
}

func NewCallSession(room RoomID, initiator UserID, ct CallType, now time.Time) *CallSession {
	return &CallSession{
		RoomID:       room,
		Participants: map[UserID]struct{}{initiator: {}},
		StartTime:    now,
		CallType:     ct,
		Status:       CallStatusConnecting,
	}
}

func (s *CallSession) HasParticipant(u UserID) bool {
	_, ok := s.Participants[u]
	return ok
}

// AddParticipant reports whether u was not yet part of the call.
func (s *CallSession) AddParticipant(u UserID) bool {
	if s.HasParticipant(u) {
		return false
	}
	s.Participants[u] = struct{}{}
	return true
}

// ParticipantList returns participants in a stable order.
func (s *CallSession) ParticipantList() []UserID {
	out := make([]UserID, 0, len(s.Participants))
	for u := range s.Participants {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

func (s *CallSession) Duration(now time.Time) time.Duration {
	if now.Before(s.StartTime) {
		return 0
	}
	return now.Sub(s.StartTime)
}

// Clone returns a copy that shares no maps with s.
func (s *CallSession) Clone() CallSession {
	c := *s
	c.Participants = make(map[UserID]struct{}, len(s.Participants))
	for u := range s.Participants {
		c.Participants[u] = struct{}{}
	}
	return c
}

// CallRecord is a finished call as kept in the history store.
type CallRecord struct {
	RoomID       RoomID     `json:"roomId"`
	CallType     CallType   `json:"callType"`
	Participants []UserID   `json:"participants"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      time.Time  `json:"endedAt"`
	Duration     int64      `json:"duration"`
	Reason       string     `json:"reason"`
	FinalStatus  CallStatus `json:"finalStatus"`
}

func NewCallRecord(s CallSession, reason string, endedAt time.Time) CallRecord {
	return CallRecord{
		RoomID:       s.RoomID,
		CallType:     s.CallType,
		Participants: s.ParticipantList(),
		StartedAt:    s.StartTime,
		EndedAt:      endedAt,
		Duration:     int64(s.Duration(endedAt).Seconds()),
		Reason:       reason,
		FinalStatus:  s.Status,
	}
}
