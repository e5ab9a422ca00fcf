package orch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Callroom/internal/app"
	"github.com/dkeye/Callroom/internal/core"
	"github.com/dkeye/Callroom/internal/domain"
	"github.com/dkeye/Callroom/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrStopped          = errors.New("orchestrator stopped")
	ErrIdentityMismatch = errors.New("identity mismatch")
	ErrPeerNotFound     = errors.New("peer not connected")
	ErrNotJoined        = errors.New("join first")
)

const historyTimeout = 3 * time.Second

type eventKind int

const (
	evInbound eventKind = iota
	evDisconnect
	evReap
)

type event struct {
	kind eventKind
	sid  domain.ConnectionID
	msg  protocol.Inbound
}

// Orchestrator owns the registry and the call table and applies every
// signaling event to them one at a time.
type Orchestrator struct {
	Registry *app.Registry
	Calls    *app.CallTable
	Policy   app.Policy
	// History is optional.
	History core.HistoryRecorder
	// RingTimeout ends connecting sessions nobody answered; zero disables it.
	RingTimeout time.Duration

	events chan event
	done   chan struct{}
}

func New(reg *app.Registry, calls *app.CallTable, policy app.Policy, queue int) *Orchestrator {
	if queue <= 0 {
		queue = 256
	}
	return &Orchestrator{
		Registry: reg,
		Calls:    calls,
		Policy:   policy,
		events:   make(chan event, queue),
		done:     make(chan struct{}),
	}
}

// Run processes events until ctx is done. Handlers never run concurrently.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	log.Info().Str("module", "orch").Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "orch").Msg("event loop stopped")
			return nil
		case ev := <-o.events:
			o.dispatch(ev)
		}
	}
}

// Submit queues an inbound event from connection sid.
func (o *Orchestrator) Submit(ctx context.Context, sid domain.ConnectionID, msg protocol.Inbound) error {
	return o.enqueue(ctx, event{kind: evInbound, sid: sid, msg: msg})
}

// Disconnect queues the transport loss of sid. It only fails once the loop stopped.
func (o *Orchestrator) Disconnect(sid domain.ConnectionID) error {
	return o.enqueue(context.Background(), event{kind: evDisconnect, sid: sid})
}

func (o *Orchestrator) enqueue(ctx context.Context, ev event) error {
	select {
	case <-o.done:
		return ErrStopped
	default:
	}
	select {
	case o.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

func (o *Orchestrator) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "orch").Str("sid", string(ev.sid)).Interface("panic", r).Msg("handler panic recovered")
		}
	}()
	switch ev.kind {
	case evInbound:
		o.Handle(ev.sid, ev.msg)
	case evDisconnect:
		o.OnDisconnect(ev.sid)
	case evReap:
		o.Reap()
	}
}

// Handle routes one validated event. It is what the loop calls; tests call it directly.
func (o *Orchestrator) Handle(sid domain.ConnectionID, msg protocol.Inbound) {
	switch m := msg.(type) {
	case *protocol.Join:
		o.handleJoin(sid, m)
	case *protocol.Leave:
		o.handleLeave(sid, m)
	case *protocol.CallOffer:
		o.handleOffer(sid, m)
	case *protocol.CallAnswer:
		o.handleAnswer(sid, m)
	case *protocol.ICECandidate:
		o.handleCandidate(sid, m)
	case *protocol.RejectCall:
		o.handleReject(sid, m)
	case *protocol.EndCall:
		o.handleEnd(sid, m)
	case *protocol.MediaToggle:
		o.handleToggle(sid, m)
	case *protocol.GetActiveCalls:
		o.sendTo(sid, protocol.NewActiveCalls(o.Calls.Snapshot(), o.now()))
	default:
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("unhandled event")
	}
}

func (o *Orchestrator) now() time.Time { return o.Calls.Now() }

func encode(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode outbound")
		return nil, false
	}
	return b, true
}

func (o *Orchestrator) sendTo(cid domain.ConnectionID, v any) bool {
	conn, ok := o.Registry.Conn(cid)
	if !ok {
		return false
	}
	data, ok := encode(v)
	if !ok {
		return false
	}
	if err := conn.TrySend(data); err != nil {
		o.onDropped(cid, err)
		return false
	}
	return true
}

func (o *Orchestrator) broadcast(room domain.RoomID, except domain.ConnectionID, v any) core.PublishResult {
	data, ok := encode(v)
	if !ok {
		return core.PublishResult{}
	}
	res := o.Registry.Broadcast(room, except, data)
	for _, cid := range res.Dropped {
		o.onDropped(cid, nil)
	}
	return res
}

func (o *Orchestrator) sendError(cid domain.ConnectionID, message string, err error) {
	log.Warn().Err(err).Str("module", "orch").Str("sid", string(cid)).Msg(message)
	o.sendTo(cid, protocol.NewCallError(message, err))
}

// publishPresence is best effort: a full queue just misses this snapshot.
func (o *Orchestrator) publishPresence() {
	data, ok := encode(protocol.NewOnlineUsers(o.Registry.OnlineUsers(), o.now()))
	if !ok {
		return
	}
	for _, cid := range o.Registry.Connections() {
		if conn, ok := o.Registry.Conn(cid); ok {
			_ = conn.TrySend(data)
		}
	}
}

func (o *Orchestrator) onDropped(cid domain.ConnectionID, err error) {
	log.Warn().Err(err).Str("module", "orch").Str("sid", string(cid)).Msg("outbound frame dropped")
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(cid) {
	case app.KickMember:
		o.Registry.Kick(cid)
	case app.NoAction:
	}
}

func (o *Orchestrator) record(s domain.CallSession, reason string, endedAt time.Time) {
	if o.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := o.History.Record(ctx, domain.NewCallRecord(s, reason, endedAt)); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("room", string(s.RoomID)).Msg("record call history")
	}
}
