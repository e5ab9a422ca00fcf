package core

import (
	"github.com/dkeye/Callroom/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnectionID
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	Members() []domain.ConnectionID
	// Users lists the distinct identities of the members, sorted.
	Users() []domain.UserID
	Has(cid domain.ConnectionID) bool

	// AddMember reports false when the connection was already a member.
	AddMember(ms MemberSession) bool
	RemoveMember(cid domain.ConnectionID) bool
	Broadcast(except domain.ConnectionID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	// StopRoomIfEmpty drops the room once its last member left.
	StopRoomIfEmpty(id domain.RoomID)
}
