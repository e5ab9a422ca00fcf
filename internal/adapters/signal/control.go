package signal

import (
	"github.com/dkeye/Callroom/internal/core"
	"github.com/dkeye/Callroom/internal/protocol"
)

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, protocol.NewPong())
}
