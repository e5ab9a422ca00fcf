package protocol

import (
	"time"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Timestamps on outbound events are unix milliseconds.
func stamp(now time.Time) int64 { return now.UnixMilli() }

type Welcome struct {
	Type         Type                `json:"type"`
	ConnectionID domain.ConnectionID `json:"connectionId"`
	ICEServers   []webrtc.ICEServer  `json:"iceServers"`
	Timestamp    int64               `json:"timestamp"`
}

func NewWelcome(cid domain.ConnectionID, servers []webrtc.ICEServer, now time.Time) Welcome {
	return Welcome{Type: TypeWelcome, ConnectionID: cid, ICEServers: servers, Timestamp: stamp(now)}
}

type RoomState struct {
	Type      Type            `json:"type"`
	RoomID    domain.RoomID   `json:"roomId"`
	Members   []domain.UserID `json:"members"`
	Timestamp int64           `json:"timestamp"`
}

func NewRoomState(room domain.RoomID, members []domain.UserID, now time.Time) RoomState {
	return RoomState{Type: TypeRoomState, RoomID: room, Members: members, Timestamp: stamp(now)}
}

// Presence is user-joined or user-left.
type Presence struct {
	Type      Type          `json:"type"`
	RoomID    domain.RoomID `json:"roomId"`
	UserID    domain.UserID `json:"userId,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

func NewUserJoined(room domain.RoomID, user domain.UserID, now time.Time) Presence {
	return Presence{Type: TypeUserJoined, RoomID: room, UserID: user, Timestamp: stamp(now)}
}

func NewUserLeft(room domain.RoomID, user domain.UserID, now time.Time) Presence {
	return Presence{Type: TypeUserLeft, RoomID: room, UserID: user, Timestamp: stamp(now)}
}

type OnlineUsers struct {
	Type      Type            `json:"type"`
	Users     []domain.UserID `json:"users"`
	Timestamp int64           `json:"timestamp"`
}

func NewOnlineUsers(users []domain.UserID, now time.Time) OnlineUsers {
	return OnlineUsers{Type: TypeOnlineUsers, Users: users, Timestamp: stamp(now)}
}

type ReceiveCall struct {
	Type       Type                      `json:"type"`
	RoomID     domain.RoomID             `json:"roomId"`
	SignalData webrtc.SessionDescription `json:"signalData"`
	From       Peer                      `json:"from"`
	CallType   domain.CallType           `json:"callType"`
	Timestamp  int64                     `json:"timestamp"`
}

func NewReceiveCall(m *CallOffer, now time.Time) ReceiveCall {
	return ReceiveCall{
		Type:       TypeReceiveCall,
		RoomID:     m.RoomID,
		SignalData: m.SignalData,
		From:       m.From,
		CallType:   m.CallType,
		Timestamp:  stamp(now),
	}
}

type CallAccepted struct {
	Type      Type                      `json:"type"`
	RoomID    domain.RoomID             `json:"roomId"`
	Signal    webrtc.SessionDescription `json:"signal"`
	From      Peer                      `json:"from"`
	Timestamp int64                     `json:"timestamp"`
}

func NewCallAccepted(m *CallAnswer, now time.Time) CallAccepted {
	return CallAccepted{
		Type:      TypeCallAccepted,
		RoomID:    m.To.RoomID,
		Signal:    m.Signal,
		From:      m.From,
		Timestamp: stamp(now),
	}
}

type ICECandidateOut struct {
	Type      Type                    `json:"type"`
	RoomID    domain.RoomID           `json:"roomId"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      *Peer                   `json:"from,omitempty"`
	Timestamp int64                   `json:"timestamp"`
}

func NewICECandidate(m *ICECandidate, now time.Time) ICECandidateOut {
	return ICECandidateOut{
		Type:      TypeICECandidate,
		RoomID:    m.RoomID,
		Candidate: *m.Candidate,
		From:      m.From,
		Timestamp: stamp(now),
	}
}

// CallClosed is call-rejected or call-ended.
type CallClosed struct {
	Type      Type          `json:"type"`
	RoomID    domain.RoomID `json:"roomId"`
	Reason    string        `json:"reason"`
	Duration  int64         `json:"duration,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

func NewCallRejected(room domain.RoomID, reason string, now time.Time) CallClosed {
	return CallClosed{Type: TypeCallRejected, RoomID: room, Reason: reason, Timestamp: stamp(now)}
}

// NewCallEnded carries the call duration in seconds when a session existed.
func NewCallEnded(room domain.RoomID, reason string, duration time.Duration, now time.Time) CallClosed {
	return CallClosed{
		Type:      TypeCallEnded,
		RoomID:    room,
		Reason:    reason,
		Duration:  int64(duration.Seconds()),
		Timestamp: stamp(now),
	}
}

type CallError struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewCallError(message string, err error) CallError {
	e := CallError{Type: TypeCallError, Message: message}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

type ParticipantToggled struct {
	Type      Type          `json:"type"`
	RoomID    domain.RoomID `json:"roomId"`
	UserID    domain.UserID `json:"userId"`
	Muted     bool          `json:"muted"`
	Timestamp int64         `json:"timestamp"`
}

func NewParticipantToggled(m *MediaToggle, now time.Time) ParticipantToggled {
	t := TypeAudioToggled
	if m.Media == MediaVideo {
		t = TypeVideoToggled
	}
	return ParticipantToggled{
		Type:      t,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Muted:     *m.Muted,
		Timestamp: stamp(now),
	}
}

// ActiveCall is the administrative view of one live session.
type ActiveCall struct {
	RoomID           domain.RoomID     `json:"roomId"`
	ParticipantCount int               `json:"participantCount"`
	Duration         int64             `json:"duration"`
	Status           domain.CallStatus `json:"status"`
	CallType         domain.CallType   `json:"callType"`
}

func NewActiveCall(s domain.CallSession, now time.Time) ActiveCall {
	return ActiveCall{
		RoomID:           s.RoomID,
		ParticipantCount: len(s.Participants),
		Duration:         int64(s.Duration(now).Seconds()),
		Status:           s.Status,
		CallType:         s.CallType,
	}
}

type ActiveCalls struct {
	Type      Type         `json:"type"`
	Calls     []ActiveCall `json:"calls"`
	Timestamp int64        `json:"timestamp"`
}

func NewActiveCalls(sessions []domain.CallSession, now time.Time) ActiveCalls {
	calls := make([]ActiveCall, 0, len(sessions))
	for _, s := range sessions {
		calls = append(calls, NewActiveCall(s, now))
	}
	return ActiveCalls{Type: TypeActiveCalls, Calls: calls, Timestamp: stamp(now)}
}

type Pong struct {
	Type Type `json:"type"`
}

func NewPong() Pong { return Pong{Type: TypePong} }
