package orch

import (
	"fmt"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/dkeye/Callroom/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleJoin(sid domain.ConnectionID, m *protocol.Join) {
	uid := m.UserID
	if subject := o.Registry.SubjectOf(sid); subject != "" {
		switch {
		case uid == "":
			uid = subject
		case uid != subject:
			o.sendError(sid, "join rejected", fmt.Errorf("%w: token is for %q", ErrIdentityMismatch, subject))
			return
		}
	}
	if uid == "" {
		o.sendError(sid, "join rejected", fmt.Errorf("%w: userId", protocol.ErrMissingField))
		return
	}

	if current, ok := o.Registry.UserOf(sid); ok && current != uid {
		o.sendError(sid, "join rejected", fmt.Errorf("%w: connection is %q", ErrIdentityMismatch, current))
		return
	}

	if _, err := o.Registry.AttachIdentity(sid, uid); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("join from unknown connection")
		return
	}
	o.publishPresence()

	added, err := o.Registry.JoinRoom(sid, m.RoomID)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("join room")
		return
	}
	now := o.now()
	if added {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(uid)).Str("room", string(m.RoomID)).Msg("joined room")
		o.broadcast(m.RoomID, sid, protocol.NewUserJoined(m.RoomID, uid, now))
	}
	o.sendTo(sid, protocol.NewRoomState(m.RoomID, o.Registry.UsersIn(m.RoomID), now))
}

func (o *Orchestrator) handleLeave(sid domain.ConnectionID, m *protocol.Leave) {
	if !o.Registry.LeaveRoom(sid, m.RoomID) {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(m.RoomID)).Msg("leave for room not joined")
		return
	}
	uid, _ := o.Registry.UserOf(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(uid)).Str("room", string(m.RoomID)).Msg("left room")
	o.broadcast(m.RoomID, sid, protocol.NewUserLeft(m.RoomID, uid, o.now()))
}

// checkSender rejects events whose claimed sender is not this connection's user.
// An identity is attached only by join, so a connection that never joined
// cannot speak for anyone.
func (o *Orchestrator) checkSender(sid domain.ConnectionID, claimed domain.UserID) error {
	uid, ok := o.Registry.UserOf(sid)
	if !ok {
		return ErrNotJoined
	}
	if uid != claimed {
		return fmt.Errorf("%w: connection is %q, event claims %q", ErrIdentityMismatch, uid, claimed)
	}
	return nil
}
