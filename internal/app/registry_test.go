package app

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/dkeye/Callroom/internal/core/mocks"
	"github.com/dkeye/Callroom/internal/domain"
	"go.uber.org/mock/gomock"
)

func newTestRegistry(t *testing.T) (*Registry, *gomock.Controller) {
	t.Helper()
	return NewRegistry(NewRoomManager()), gomock.NewController(t)
}

func TestRegistryAttachIdentity(t *testing.T) {
	reg, ctrl := newTestRegistry(t)
	reg.RegisterConnection("c1", mocks.NewMockSignalConnection(ctrl), "", nil)
	reg.RegisterConnection("c2", mocks.NewMockSignalConnection(ctrl), "", nil)

	if _, err := reg.AttachIdentity("nope", "alice"); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("err = %v, want ErrConnectionNotFound", err)
	}

	old, err := reg.AttachIdentity("c1", "alice")
	if err != nil || old != "" {
		t.Fatalf("first attach: old=%q err=%v", old, err)
	}
	// Attaching again on the same connection is a no-op.
	if old, _ := reg.AttachIdentity("c1", "alice"); old != "" {
		t.Errorf("re-attach reported superseded %q", old)
	}

	old, _ = reg.AttachIdentity("c2", "alice")
	if old != "c1" {
		t.Errorf("superseded = %q, want c1", old)
	}
	if cid, ok := reg.ResolveConnection("alice"); !ok || cid != "c2" {
		t.Errorf("ResolveConnection = %q, %v; want c2", cid, ok)
	}
	if got := reg.OnlineUsers(); !slices.Equal(got, []domain.UserID{"alice"}) {
		t.Errorf("OnlineUsers = %v", got)
	}
}

func TestRegistryJoinLeave(t *testing.T) {
	reg, ctrl := newTestRegistry(t)
	reg.RegisterConnection("c1", mocks.NewMockSignalConnection(ctrl), "", nil)
	reg.RegisterConnection("c2", mocks.NewMockSignalConnection(ctrl), "", nil)
	_, _ = reg.AttachIdentity("c1", "alice")
	_, _ = reg.AttachIdentity("c2", "bob")

	if added, err := reg.JoinRoom("c1", "r1"); err != nil || !added {
		t.Fatalf("join: added=%v err=%v", added, err)
	}
	if added, _ := reg.JoinRoom("c1", "r1"); added {
		t.Error("joining twice must be idempotent")
	}
	_, _ = reg.JoinRoom("c2", "r1")
	_, _ = reg.JoinRoom("c1", "r2")

	if _, err := reg.JoinRoom("ghost", "r1"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("ghost join err = %v", err)
	}
	if got := reg.MembersOf("r1"); !slices.Equal(got, []domain.ConnectionID{"c1", "c2"}) {
		t.Errorf("MembersOf(r1) = %v", got)
	}
	if got := reg.UsersIn("r1"); !slices.Equal(got, []domain.UserID{"alice", "bob"}) {
		t.Errorf("UsersIn(r1) = %v", got)
	}
	if got := reg.Rooms(); len(got) != 2 || got[0].ID != "r1" || got[0].MemberCount != 2 {
		t.Errorf("Rooms = %+v", got)
	}

	if !reg.LeaveRoom("c1", "r2") {
		t.Error("leave r2 should report true")
	}
	if reg.LeaveRoom("c1", "r2") {
		t.Error("second leave should report false")
	}
	if got := reg.Rooms(); len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("empty room r2 not dropped: %+v", got)
	}
	if reg.InRoom("c1", "r2") {
		t.Error("c1 still in r2")
	}
	if got := reg.UsersIn("r2"); len(got) != 0 {
		t.Errorf("empty room users = %v", got)
	}
}

func TestRegistryRemoveConnection(t *testing.T) {
	reg, ctrl := newTestRegistry(t)
	reg.RegisterConnection("c1", mocks.NewMockSignalConnection(ctrl), "", nil)
	reg.RegisterConnection("c2", mocks.NewMockSignalConnection(ctrl), "", nil)
	_, _ = reg.AttachIdentity("c1", "alice")
	_, _ = reg.JoinRoom("c1", "r2")
	_, _ = reg.JoinRoom("c1", "r1")

	removed, ok := reg.RemoveConnection("c1")
	if !ok {
		t.Fatal("RemoveConnection reported unknown connection")
	}
	if removed.User != "alice" || !removed.Current {
		t.Errorf("removed = %+v", removed)
	}
	if !slices.Equal(removed.Rooms, []domain.RoomID{"r1", "r2"}) {
		t.Errorf("rooms = %v", removed.Rooms)
	}
	if _, ok := reg.ResolveConnection("alice"); ok {
		t.Error("alice still resolvable")
	}
	if len(reg.MembersOf("r1")) != 0 {
		t.Error("r1 still has members")
	}
	if _, ok := reg.RemoveConnection("c1"); ok {
		t.Error("second remove should report false")
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}

func TestRegistryRemoveSupersededConnection(t *testing.T) {
	reg, ctrl := newTestRegistry(t)
	reg.RegisterConnection("old", mocks.NewMockSignalConnection(ctrl), "", nil)
	reg.RegisterConnection("new", mocks.NewMockSignalConnection(ctrl), "", nil)
	_, _ = reg.AttachIdentity("old", "alice")
	_, _ = reg.AttachIdentity("new", "alice")

	removed, _ := reg.RemoveConnection("old")
	if removed.User != "alice" || removed.Current {
		t.Errorf("removed = %+v, want non-current alice", removed)
	}
	if cid, ok := reg.ResolveConnection("alice"); !ok || cid != "new" {
		t.Errorf("alice resolves to %q, %v", cid, ok)
	}
}

func TestRegistryKick(t *testing.T) {
	reg, ctrl := newTestRegistry(t)
	conn := mocks.NewMockSignalConnection(ctrl)
	conn.EXPECT().Close()

	ctx, cancel := context.WithCancel(context.Background())
	reg.RegisterConnection("c1", conn, "alice", cancel)

	if !reg.Kick("c1") {
		t.Fatal("Kick reported unknown connection")
	}
	if ctx.Err() == nil {
		t.Error("connection context not cancelled")
	}
	if reg.Kick("ghost") {
		t.Error("kicking unknown connection should report false")
	}
	if got := reg.SubjectOf("c1"); got != "alice" {
		t.Errorf("SubjectOf = %q", got)
	}
}
