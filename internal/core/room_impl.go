package core

import (
	"slices"
	"sync"

	"github.com/dkeye/Callroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id    domain.RoomID
	mu    sync.RWMutex
	byCID map[domain.ConnectionID]MemberSession
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:    id,
		byCID: make(map[domain.ConnectionID]MemberSession),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCID)
}

func (r *roomImpl) Has(cid domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byCID[cid]
	return ok
}

func (r *roomImpl) AddMember(ms MemberSession) bool {
	cid := ms.Meta().Conn
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCID[cid]; ok {
		return false
	}
	r.byCID[cid] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(cid)).Str("user", string(ms.Meta().User)).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(cid domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCID[cid]; !ok {
		return false
	}
	delete(r.byCID, cid)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(cid)).Msg("member removed")
	return true
}

func (r *roomImpl) Broadcast(except domain.ConnectionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for cid, ms := range r.byCID {
		if cid == except {
			continue
		}
		if err := ms.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("except", string(except)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) Members() []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnectionID, 0, len(r.byCID))
	for cid := range r.byCID {
		out = append(out, cid)
	}
	slices.Sort(out)
	return out
}

func (r *roomImpl) Users() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.byCID))
	for _, ms := range r.byCID {
		if uid := ms.Meta().User; uid != "" && !slices.Contains(out, uid) {
			out = append(out, uid)
		}
	}
	slices.Sort(out)
	return out
}
