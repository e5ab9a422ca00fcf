package orch

import (
	"slices"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/dkeye/Callroom/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleOffer(sid domain.ConnectionID, m *protocol.CallOffer) {
	if err := o.checkSender(sid, m.From.ID); err != nil {
		o.sendError(sid, "call offer rejected", err)
		return
	}

	session, created := o.Calls.GetOrCreate(m.RoomID, m.From.ID, m.CallType)
	if !created {
		log.Info().Str("module", "orch").Str("room", string(m.RoomID)).Str("status", string(session.Status)).Msg("offer for live call, session kept")
	}

	out := protocol.NewReceiveCall(m, o.now())
	if target, ok := o.offerTarget(sid, m); ok {
		o.sendTo(target, out)
		log.Info().Str("module", "orch").Str("room", string(m.RoomID)).Str("from", string(m.From.ID)).Str("to_sid", string(target)).Msg("offer delivered")
		return
	}
	// Membership may lag behind intent, so fall back to the whole room.
	res := o.broadcast(m.RoomID, sid, out)
	if res.SendTo == 0 && len(res.Dropped) == 0 {
		log.Warn().Str("module", "orch").Str("room", string(m.RoomID)).Msg("offer reached nobody")
		return
	}
	log.Info().Str("module", "orch").Str("room", string(m.RoomID)).Str("from", string(m.From.ID)).Int("sent_to", res.SendTo).Msg("offer broadcast")
}

// offerTarget picks a single callee: the named user when connected, else the
// only other member of the room.
func (o *Orchestrator) offerTarget(sid domain.ConnectionID, m *protocol.CallOffer) (domain.ConnectionID, bool) {
	if m.To != "" {
		if cid, ok := o.Registry.ResolveConnection(m.To); ok && cid != sid {
			return cid, true
		}
		return "", false
	}
	others := slices.DeleteFunc(o.Registry.MembersOf(m.RoomID), func(cid domain.ConnectionID) bool {
		return cid == sid
	})
	if len(others) == 1 {
		return others[0], true
	}
	return "", false
}

func (o *Orchestrator) handleAnswer(sid domain.ConnectionID, m *protocol.CallAnswer) {
	if err := o.checkSender(sid, m.From.ID); err != nil {
		o.sendError(sid, "call answer rejected", err)
		return
	}
	caller, ok := o.Registry.ResolveConnection(m.To.ID)
	if !ok {
		o.sendError(sid, "caller is not connected", ErrPeerNotFound)
		return
	}
	if _, ok := o.Calls.MarkAnswered(m.To.RoomID, m.From.ID); !ok {
		return
	}
	log.Info().Str("module", "orch").Str("room", string(m.To.RoomID)).Str("user", string(m.From.ID)).Msg("call answered")
	o.sendTo(caller, protocol.NewCallAccepted(m, o.now()))
}

func (o *Orchestrator) handleCandidate(sid domain.ConnectionID, m *protocol.ICECandidate) {
	if m.From == nil {
		uid, _ := o.Registry.UserOf(sid)
		m.From = &protocol.Peer{ID: uid}
	}
	if err := o.checkSender(sid, m.From.ID); err != nil {
		o.sendError(sid, "ice candidate rejected", err)
		return
	}
	o.broadcast(m.RoomID, sid, protocol.NewICECandidate(m, o.now()))
}

func (o *Orchestrator) handleReject(sid domain.ConnectionID, m *protocol.RejectCall) {
	out := protocol.NewCallRejected(m.RoomID, m.Reason, o.now())
	session, ok := o.Calls.End(m.RoomID)
	if !ok {
		o.broadcast(m.RoomID, "", out)
		return
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(m.RoomID)).Str("reason", m.Reason).Msg("call rejected")
	o.record(session, m.Reason, o.now())
	o.notifyClosed(session, out)
}

func (o *Orchestrator) handleEnd(sid domain.ConnectionID, m *protocol.EndCall) {
	now := o.now()
	session, ok := o.Calls.End(m.RoomID)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(m.RoomID)).Msg("end for room without call")
		o.broadcast(m.RoomID, "", protocol.NewCallEnded(m.RoomID, protocol.ReasonEnded, 0, now))
		return
	}
	d := session.Duration(now)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(m.RoomID)).Dur("duration", d).Msg("call ended")
	o.record(session, protocol.ReasonEnded, now)
	o.notifyClosed(session, protocol.NewCallEnded(m.RoomID, protocol.ReasonEnded, d, now))
}

func (o *Orchestrator) handleToggle(sid domain.ConnectionID, m *protocol.MediaToggle) {
	if err := o.checkSender(sid, m.UserID); err != nil {
		o.sendError(sid, "media toggle rejected", err)
		return
	}
	o.broadcast(m.RoomID, sid, protocol.NewParticipantToggled(m, o.now()))
}

// notifyClosed tells the room, plus any participant whose connection is not
// in the room's group, that the session is gone.
func (o *Orchestrator) notifyClosed(s domain.CallSession, out protocol.CallClosed) {
	o.broadcast(s.RoomID, "", out)
	for _, uid := range s.ParticipantList() {
		cid, ok := o.Registry.ResolveConnection(uid)
		if !ok || o.Registry.InRoom(cid, s.RoomID) {
			continue
		}
		o.sendTo(cid, out)
	}
}
