package orch

import (
	"context"
	"time"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/dkeye/Callroom/internal/protocol"
	"github.com/rs/zerolog/log"
)

// OnDisconnect purges sid and force-ends every call its user was part of.
// The user's identity is captured by RemoveConnection before the entry is gone.
func (o *Orchestrator) OnDisconnect(sid domain.ConnectionID) {
	removed, ok := o.Registry.RemoveConnection(sid)
	if !ok {
		return
	}
	now := o.now()

	if removed.User != "" && removed.Current {
		for _, s := range o.Calls.SessionsInvolving(removed.User) {
			ended, ok := o.Calls.End(s.RoomID)
			if !ok {
				continue
			}
			log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(removed.User)).Str("room", string(ended.RoomID)).Msg("call ended by disconnect")
			o.record(ended, protocol.ReasonParticipantDisconnected, now)
			o.notifyClosed(ended, protocol.NewCallEnded(ended.RoomID, protocol.ReasonParticipantDisconnected, ended.Duration(now), now))
		}
	} else if removed.User != "" {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(removed.User)).Msg("superseded connection closed, calls kept")
	}

	for _, room := range removed.Rooms {
		o.broadcast(room, sid, protocol.NewUserLeft(room, removed.User, now))
	}
	if removed.User != "" {
		o.publishPresence()
	}
}

// Reap ends connecting sessions older than RingTimeout.
func (o *Orchestrator) Reap() {
	now := o.now()
	for _, room := range o.Calls.StaleConnecting(o.RingTimeout) {
		s, ok := o.Calls.End(room)
		if !ok {
			continue
		}
		log.Info().Str("module", "orch").Str("room", string(room)).Dur("age", s.Duration(now)).Msg("unanswered call expired")
		o.record(s, protocol.ReasonTimeout, now)
		o.notifyClosed(s, protocol.NewCallEnded(room, protocol.ReasonTimeout, s.Duration(now), now))
	}
}

// RunReaper feeds a reap event into the loop every interval.
func (o *Orchestrator) RunReaper(ctx context.Context, every time.Duration) error {
	if o.RingTimeout <= 0 || every <= 0 {
		log.Info().Str("module", "orch").Msg("call expiry disabled")
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := o.enqueue(ctx, event{kind: evReap}); err != nil {
				return nil
			}
		}
	}
}
