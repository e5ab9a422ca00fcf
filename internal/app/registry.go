package app

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dkeye/Callroom/internal/core"
	"github.com/dkeye/Callroom/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrConnectionNotFound = errors.New("connection not found")

type connEntry struct {
	Conn   core.SignalConnection
	User   domain.UserID
	Rooms  map[domain.RoomID]struct{}
	Cancel context.CancelFunc
	// Subject is the identity proven by the handshake credential, if any.
	Subject domain.UserID
}

// Registry is the authoritative userId <-> connectionId map plus the
// connection -> rooms membership.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*connEntry
	users map[domain.UserID]domain.ConnectionID
	rooms core.RoomManager
}

func NewRegistry(rooms core.RoomManager) *Registry {
	return &Registry{
		conns: make(map[domain.ConnectionID]*connEntry),
		users: make(map[domain.UserID]domain.ConnectionID),
		rooms: rooms,
	}
}

func (r *Registry) RegisterConnection(
	cid domain.ConnectionID,
	conn core.SignalConnection,
	subject domain.UserID,
	cancel context.CancelFunc,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = &connEntry{
		Conn:    conn,
		Rooms:   make(map[domain.RoomID]struct{}),
		Cancel:  cancel,
		Subject: subject,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Str("subject", string(subject)).Msg("registered connection")
}

// AttachIdentity binds uid to cid. A newer connection for the same user
// supersedes the older one; superseded is the connection that lost the user.
func (r *Registry) AttachIdentity(cid domain.ConnectionID, uid domain.UserID) (superseded domain.ConnectionID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[cid]
	if !ok {
		return "", ErrConnectionNotFound
	}
	if e.User != "" && e.User != uid && r.users[e.User] == cid {
		delete(r.users, e.User)
	}
	if prev, ok := r.users[uid]; ok && prev != cid {
		superseded = prev
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("old_sid", string(prev)).Str("sid", string(cid)).Msg("identity moved to newer connection")
	}
	e.User = uid
	r.users[uid] = cid
	return superseded, nil
}

func (r *Registry) JoinRoom(cid domain.ConnectionID, room domain.RoomID) (bool, error) {
	r.mu.Lock()
	e, ok := r.conns[cid]
	if !ok {
		r.mu.Unlock()
		return false, ErrConnectionNotFound
	}
	e.Rooms[room] = struct{}{}
	ms := core.NewMemberSession(domain.NewMember(cid, e.User), e.Conn)
	r.mu.Unlock()

	return r.rooms.GetOrCreate(room).AddMember(ms), nil
}

func (r *Registry) LeaveRoom(cid domain.ConnectionID, room domain.RoomID) bool {
	r.mu.Lock()
	if e, ok := r.conns[cid]; ok {
		delete(e.Rooms, room)
	}
	r.mu.Unlock()

	rs, ok := r.rooms.Get(room)
	if !ok {
		return false
	}
	removed := rs.RemoveMember(cid)
	r.rooms.StopRoomIfEmpty(room)
	return removed
}

func (r *Registry) ResolveConnection(uid domain.UserID) (domain.ConnectionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.users[uid]
	return cid, ok
}

func (r *Registry) MembersOf(room domain.RoomID) []domain.ConnectionID {
	rs, ok := r.rooms.Get(room)
	if !ok {
		return nil
	}
	return rs.Members()
}

// Rooms lists the rooms that currently have members.
func (r *Registry) Rooms() []core.RoomInfo { return r.rooms.List() }

// UsersIn lists the distinct identities present in room.
func (r *Registry) UsersIn(room domain.RoomID) []domain.UserID {
	rs, ok := r.rooms.Get(room)
	if !ok {
		return []domain.UserID{}
	}
	return rs.Users()
}

func (r *Registry) InRoom(cid domain.ConnectionID, room domain.RoomID) bool {
	rs, ok := r.rooms.Get(room)
	return ok && rs.Has(cid)
}

func (r *Registry) UserOf(cid domain.ConnectionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok || e.User == "" {
		return "", false
	}
	return e.User, true
}

func (r *Registry) SubjectOf(cid domain.ConnectionID) domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[cid]; ok {
		return e.Subject
	}
	return ""
}

func (r *Registry) Conn(cid domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

func (r *Registry) Connections() []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnectionID, 0, len(r.conns))
	for cid := range r.conns {
		out = append(out, cid)
	}
	return out
}

func (r *Registry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.users))
	for uid := range r.users {
		out = append(out, uid)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast fans data out to every member of room except one connection.
func (r *Registry) Broadcast(room domain.RoomID, except domain.ConnectionID, data core.Frame) core.PublishResult {
	rs, ok := r.rooms.Get(room)
	if !ok {
		return core.PublishResult{}
	}
	return rs.Broadcast(except, data)
}

// Removed is what a connection held at the moment it was purged.
type Removed struct {
	User  domain.UserID
	Rooms []domain.RoomID
	// Current is false when the user had already moved to a newer connection.
	Current bool
}

// RemoveConnection purges cid and all of its memberships. The returned
// snapshot is taken under the same lock as the purge.
func (r *Registry) RemoveConnection(cid domain.ConnectionID) (Removed, bool) {
	r.mu.Lock()
	e, ok := r.conns[cid]
	if !ok {
		r.mu.Unlock()
		return Removed{}, false
	}
	delete(r.conns, cid)
	out := Removed{User: e.User}
	if e.User != "" && r.users[e.User] == cid {
		delete(r.users, e.User)
		out.Current = true
	}
	for room := range e.Rooms {
		out.Rooms = append(out.Rooms, room)
	}
	r.mu.Unlock()

	slices.Sort(out.Rooms)
	for _, room := range out.Rooms {
		if rs, ok := r.rooms.Get(room); ok {
			rs.RemoveMember(cid)
			r.rooms.StopRoomIfEmpty(room)
		}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Str("user", string(out.User)).Int("rooms", len(out.Rooms)).Msg("removed connection")
	return out, true
}

// Kick cancels the connection context and closes its transport.
// The adapter's read loop then reports the disconnect.
func (r *Registry) Kick(cid domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.conns[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	e.Conn.Close()
	log.Info().Str("module", "app.registry").Str("sid", string(cid)).Msg("kicked connection")
	return true
}
