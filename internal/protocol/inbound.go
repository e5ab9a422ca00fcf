package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/pion/webrtc/v4"
)

var (
	ErrBadJSON      = errors.New("bad json")
	ErrMissingType  = errors.New("missing type")
	ErrUnknownType  = errors.New("unknown type")
	ErrBadPayload   = errors.New("bad payload")
	ErrMissingField = errors.New("missing field")
	ErrInvalidField = errors.New("invalid field")
)

// Inbound is one validated client event.
type Inbound interface {
	Kind() Type
	Validate() error
}

// DecodeError keeps the announced type so the sender can be told what failed.
type DecodeError struct {
	Type Type
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidField, field, err)
}

// Decode parses and validates one frame. Unknown or incomplete events are
// rejected here so handlers only ever see well-formed variants.
func Decode(data []byte) (Inbound, error) {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrBadJSON, err)}
	}

	var msg Inbound
	switch env.Type {
	case "":
		return nil, &DecodeError{Err: ErrMissingType}
	case TypeJoin:
		msg = &Join{}
	case TypeLeave:
		msg = &Leave{}
	case TypeCallOffer:
		msg = &CallOffer{}
	case TypeCallAnswer:
		msg = &CallAnswer{}
	case TypeICECandidate:
		msg = &ICECandidate{}
	case TypeRejectCall:
		msg = &RejectCall{}
	case TypeEndCall:
		msg = &EndCall{}
	case TypeToggleAudio:
		msg = &MediaToggle{Media: MediaAudio}
	case TypeToggleVideo:
		msg = &MediaToggle{Media: MediaVideo}
	case TypeGetActiveCalls:
		msg = &GetActiveCalls{}
	case TypePing:
		msg = &Ping{}
	default:
		return nil, &DecodeError{Type: env.Type, Err: ErrUnknownType}
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, &DecodeError{Type: env.Type, Err: fmt.Errorf("%w: %v", ErrBadPayload, err)}
	}
	if err := msg.Validate(); err != nil {
		return nil, &DecodeError{Type: env.Type, Err: err}
	}
	return msg, nil
}

func validRoom(field string, id *domain.RoomID) error {
	if *id == "" {
		return missing(field)
	}
	parsed, err := domain.ParseRoomID(string(*id))
	if err != nil {
		return invalid(field, err)
	}
	*id = parsed
	return nil
}

func validUser(field string, id *domain.UserID) error {
	if *id == "" {
		return missing(field)
	}
	parsed, err := domain.ParseUserID(string(*id))
	if err != nil {
		return invalid(field, err)
	}
	*id = parsed
	return nil
}

func validPeer(field string, p *Peer) error {
	if err := validUser(field+".id", &p.ID); err != nil {
		return err
	}
	if err := domain.CheckUsername(p.Name); err != nil {
		return invalid(field+".name", err)
	}
	return nil
}

// Join binds the connection to a room. UserID may be omitted when the
// handshake credential already names the user.
type Join struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId,omitempty"`
}

func (*Join) Kind() Type { return TypeJoin }

func (m *Join) Validate() error {
	if err := validRoom("roomId", &m.RoomID); err != nil {
		return err
	}
	if m.UserID == "" {
		return nil
	}
	return validUser("userId", &m.UserID)
}

type Leave struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId,omitempty"`
}

func (*Leave) Kind() Type { return TypeLeave }

func (m *Leave) Validate() error {
	return validRoom("roomId", &m.RoomID)
}

type CallOffer struct {
	RoomID     domain.RoomID             `json:"roomId"`
	SignalData webrtc.SessionDescription `json:"signalData"`
	From       Peer                      `json:"from"`
	// To optionally names the callee directly.
	To       domain.UserID   `json:"to,omitempty"`
	CallType domain.CallType `json:"callType,omitempty"`
}

func (*CallOffer) Kind() Type { return TypeCallOffer }

func (m *CallOffer) Validate() error {
	if err := validRoom("roomId", &m.RoomID); err != nil {
		return err
	}
	if err := validPeer("from", &m.From); err != nil {
		return err
	}
	if m.SignalData.Type != webrtc.SDPTypeOffer {
		return missing("signalData (offer)")
	}
	if m.To != "" {
		if err := validUser("to", &m.To); err != nil {
			return err
		}
	}
	ct, err := domain.ParseCallType(string(m.CallType))
	if err != nil {
		return invalid("callType", err)
	}
	m.CallType = ct
	return nil
}

type CallAnswer struct {
	Signal webrtc.SessionDescription `json:"signal"`
	To     Target                    `json:"to"`
	From   Peer                      `json:"from"`
}

func (*CallAnswer) Kind() Type { return TypeCallAnswer }

func (m *CallAnswer) Validate() error {
	if m.Signal.Type != webrtc.SDPTypeAnswer {
		return missing("signal (answer)")
	}
	if err := validRoom("to.roomId", &m.To.RoomID); err != nil {
		return err
	}
	if err := validUser("to.id", &m.To.ID); err != nil {
		return err
	}
	return validPeer("from", &m.From)
}

type ICECandidate struct {
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
	RoomID    domain.RoomID            `json:"roomId"`
	From      *Peer                    `json:"from,omitempty"`
}

func (*ICECandidate) Kind() Type { return TypeICECandidate }

func (m *ICECandidate) Validate() error {
	if m.Candidate == nil {
		return missing("candidate")
	}
	return validRoom("roomId", &m.RoomID)
}

type RejectCall struct {
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason,omitempty"`
}

func (*RejectCall) Kind() Type { return TypeRejectCall }

func (m *RejectCall) Validate() error {
	if m.Reason == "" {
		m.Reason = ReasonDeclined
	}
	return validRoom("roomId", &m.RoomID)
}

type EndCall struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (*EndCall) Kind() Type { return TypeEndCall }

func (m *EndCall) Validate() error {
	return validRoom("roomId", &m.RoomID)
}

// MediaToggle covers toggle-audio and toggle-video.
type MediaToggle struct {
	Media  MediaKind     `json:"-"`
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
	Muted  *bool         `json:"muted"`
}

func (m *MediaToggle) Kind() Type {
	if m.Media == MediaVideo {
		return TypeToggleVideo
	}
	return TypeToggleAudio
}

func (m *MediaToggle) Validate() error {
	if err := validRoom("roomId", &m.RoomID); err != nil {
		return err
	}
	if err := validUser("userId", &m.UserID); err != nil {
		return err
	}
	if m.Muted == nil {
		return missing("muted")
	}
	return nil
}

type GetActiveCalls struct{}

func (*GetActiveCalls) Kind() Type      { return TypeGetActiveCalls }
func (*GetActiveCalls) Validate() error { return nil }

type Ping struct{}

func (*Ping) Kind() Type      { return TypePing }
func (*Ping) Validate() error { return nil }
