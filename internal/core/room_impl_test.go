package core_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/dkeye/Callroom/internal/core"
	"github.com/dkeye/Callroom/internal/core/mocks"
	"github.com/dkeye/Callroom/internal/domain"
	"go.uber.org/mock/gomock"
)

func member(cid domain.ConnectionID, uid domain.UserID, conn core.SignalConnection) core.MemberSession {
	return core.NewMemberSession(domain.NewMember(cid, uid), conn)
}

func TestRoomMembership(t *testing.T) {
	ctrl := gomock.NewController(t)
	room := core.NewRoomService("r1")

	a := mocks.NewMockSignalConnection(ctrl)
	b := mocks.NewMockSignalConnection(ctrl)

	if !room.AddMember(member("c1", "alice", a)) {
		t.Fatal("first add should report true")
	}
	if room.AddMember(member("c1", "alice", a)) {
		t.Error("re-adding the same connection should report false")
	}
	room.AddMember(member("c2", "bob", b))
	room.AddMember(member("c3", "alice", b))

	if got := room.MemberCount(); got != 3 {
		t.Errorf("MemberCount = %d, want 3", got)
	}
	if got := room.Members(); !slices.Equal(got, []domain.ConnectionID{"c1", "c2", "c3"}) {
		t.Errorf("Members = %v", got)
	}
	if got := room.Users(); !slices.Equal(got, []domain.UserID{"alice", "bob"}) {
		t.Errorf("Users = %v", got)
	}
	if !room.RemoveMember("c2") || room.RemoveMember("c2") {
		t.Error("RemoveMember should report true once")
	}
	if room.Has("c2") || !room.Has("c1") {
		t.Error("Has disagrees with membership")
	}
}

func TestRoomBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	room := core.NewRoomService("r1")
	frame := core.Frame(`{"type":"user-joined"}`)

	sender := mocks.NewMockSignalConnection(ctrl)
	ok := mocks.NewMockSignalConnection(ctrl)
	slow := mocks.NewMockSignalConnection(ctrl)

	// sender has no expectations: it must never receive its own broadcast.
	ok.EXPECT().TrySend(frame).Return(nil)
	slow.EXPECT().TrySend(frame).Return(errors.New("backpressure"))

	room.AddMember(member("s", "alice", sender))
	room.AddMember(member("o", "bob", ok))
	room.AddMember(member("x", "carol", slow))

	res := room.Broadcast("s", frame)
	if res.SendTo != 1 {
		t.Errorf("SendTo = %d, want 1", res.SendTo)
	}
	if !slices.Equal(res.Dropped, []domain.ConnectionID{"x"}) {
		t.Errorf("Dropped = %v, want [x]", res.Dropped)
	}
}
