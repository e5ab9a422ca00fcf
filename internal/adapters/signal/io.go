package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Callroom/internal/core"
	"github.com/dkeye/Callroom/internal/domain"
	"github.com/dkeye/Callroom/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid domain.ConnectionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.forgetLimits(sid)
		if err := ctl.Orch.Disconnect(sid); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("disconnect not delivered")
		}
		c.Close()
	}()

	pongWait := ctl.Cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	limiter := rate.NewLimiter(limitOf(ctl.Cfg.EventRate), ctl.Cfg.EventBurst)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			if !limiter.Allow() {
				log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("inbound frame over rate, dropped")
				continue
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

// handleSignal validates one frame at the boundary and hands it to the loop.
func (ctl *SignalWSController) handleSignal(ctx context.Context, sid domain.ConnectionID, c core.SignalConnection, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad signal")
		ctl.sendJSON(c, protocol.NewCallError("invalid event", err))
		return
	}

	switch m := msg.(type) {
	case *protocol.Ping:
		ctl.handlePing(c)
		return
	case *protocol.CallOffer:
		if !ctl.Offers.Allow(ctl.offerKey(sid)) {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("room", string(m.RoomID)).Msg("offer over rate")
			ctl.sendJSON(c, protocol.NewCallError("call offer rejected", ErrRateLimited))
			return
		}
	}

	if err := ctl.Orch.Submit(ctx, sid, msg); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("event not queued")
	}
}

// offerKey limits per user once the connection announced one.
func (ctl *SignalWSController) offerKey(sid domain.ConnectionID) string {
	if uid, ok := ctl.Orch.Registry.UserOf(sid); ok {
		return "user:" + string(uid)
	}
	return string(sid)
}

// forgetLimits drops the buckets offerKey made for sid. The user bucket goes
// only while sid is still that user's current connection.
func (ctl *SignalWSController) forgetLimits(sid domain.ConnectionID) {
	ctl.Offers.Forget(string(sid))
	uid, ok := ctl.Orch.Registry.UserOf(sid)
	if !ok {
		return
	}
	if current, ok := ctl.Orch.Registry.ResolveConnection(uid); ok && current == sid {
		ctl.Offers.Forget("user:" + string(uid))
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
