// Package protocol defines the signaling events exchanged over the socket.
// Every frame is a JSON object whose "type" field selects one variant.
package protocol

import "github.com/dkeye/Callroom/internal/domain"

// Type identifies the kind of signaling message.
type Type string

// Inbound types.
const (
	TypeJoin           Type = "join"
	TypeLeave          Type = "leave"
	TypeCallOffer      Type = "call-offer"
	TypeCallAnswer     Type = "call-answer"
	TypeICECandidate   Type = "new-ice-candidate"
	TypeRejectCall     Type = "reject-call"
	TypeEndCall        Type = "end-call"
	TypeToggleAudio    Type = "toggle-audio"
	TypeToggleVideo    Type = "toggle-video"
	TypeGetActiveCalls Type = "get-active-calls"
	TypePing           Type = "ping"
)

// Outbound types. new-ice-candidate is reused as-is.
const (
	TypeWelcome      Type = "welcome"
	TypeRoomState    Type = "room-state"
	TypeUserJoined   Type = "user-joined"
	TypeUserLeft     Type = "user-left"
	TypeOnlineUsers  Type = "online-users"
	TypeReceiveCall  Type = "receive-call"
	TypeCallAccepted Type = "call-accepted"
	TypeCallRejected Type = "call-rejected"
	TypeCallEnded    Type = "call-ended"
	TypeCallError    Type = "call-error"
	TypeAudioToggled Type = "participant-audio-toggled"
	TypeVideoToggled Type = "participant-video-toggled"
	TypeActiveCalls  Type = "active-calls"
	TypePong         Type = "pong"
)

// Reasons carried by call-ended and call-rejected.
const (
	ReasonEnded                   = "ended"
	ReasonDeclined                = "declined"
	ReasonParticipantDisconnected = "participant_disconnected"
	ReasonTimeout                 = "timeout"
)

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Peer names one side of a call as the client knows it.
type Peer struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name,omitempty"`
}

// Target addresses the caller when answering.
type Target struct {
	RoomID domain.RoomID `json:"roomId"`
	ID     domain.UserID `json:"id"`
	Name   string        `json:"name,omitempty"`
}
