// Package broadcast implements the dirty-entity fan-out and peer movement
// broadcast: when the simulation emits a changed, newly placed, or
// destroyed entity, the router works out which sessions currently
// subscribe to its chunk and sends them the matching ENTITY_* message;
// PLAYER_MOVE goes to every session sharing a chunk with the mover,
// excluding the mover itself.
package broadcast

import (
	"log/slog"

	"github.com/ironfoundry/forge/proto"
	"github.com/ironfoundry/forge/session"
	"github.com/ironfoundry/forge/world"
)

// Router implements sim.EntityListener and supplies session.Hooks; wire it
// with engine.SetEntityListener(router) and
// handler.Hooks = session.Hooks{OnJoin: router.Join, OnMove: router.Move,
// OnLeave: router.Leave}. It reads the session table under a
// short-critical-section lock when iterating sessions.
type Router struct {
	Mgr *session.Manager
	Log *slog.Logger
}

// NewRouter constructs a Router over the given session table.
func NewRouter(mgr *session.Manager, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{Mgr: mgr, Log: log}
}

// EntitiesUpdated is the sim.DirtyListener passed to sim.NewEngine: it
// sends ENTITY_UPDATE to every session whose AoI contains the changed
// entity's chunk.
func (r *Router) EntitiesUpdated(tick int64, dirty []*world.Entity) {
	for _, e := range dirty {
		r.fanOut(e.X, e.Y, func(s *session.Session) {
			s.Send(proto.ENTITY_UPDATE, proto.EntityUpdateMsg{Entity: wireEntity(e)})
		})
	}
}

// EntityAdded implements sim.EntityListener: fans out ENTITY_ADD.
func (r *Router) EntityAdded(tick int64, e *world.Entity) {
	r.fanOut(e.X, e.Y, func(s *session.Session) {
		s.Send(proto.ENTITY_ADD, proto.EntityAddMsg{Entity: wireEntity(e)})
	})
}

// EntityRemoved implements sim.EntityListener: fans out ENTITY_REMOVE to
// whoever was subscribed to the entity's last known chunk.
func (r *Router) EntityRemoved(tick int64, e *world.Entity) {
	r.fanOut(e.X, e.Y, func(s *session.Session) {
		s.Send(proto.ENTITY_REMOVE, proto.EntityRemoveMsg{ID: e.ID})
	})
}

// fanOut calls send for every currently connected session subscribed to
// the chunk containing (x, y).
func (r *Router) fanOut(x, y int, send func(*session.Session)) {
	chunk := world.ChunkPosFor(x, y)
	r.Mgr.Range(func(s *session.Session) {
		if s.Subscribes(chunk) {
			send(s)
		}
	})
}

// Join implements the session.Hooks.OnJoin lifecycle hook: sends
// PLAYER_JOIN for every existing peer to the new session, then broadcasts
// PLAYER_JOIN for the new session to everyone else.
func (r *Router) Join(s *session.Session) {
	r.Mgr.Range(func(peer *session.Session) {
		if peer == s {
			return
		}
		peer.Send(proto.PLAYER_JOIN, playerJoinMsg(s))
		s.Send(proto.PLAYER_JOIN, playerJoinMsg(peer))
	})
}

// Move implements session.Hooks.OnMove: PLAYER_MOVE is broadcast to every
// session sharing at least one chunk with the mover, excluding the mover
// itself.
func (r *Router) Move(s *session.Session) {
	r.Mgr.Range(func(peer *session.Session) {
		if peer == s || !s.SharesChunkWith(peer) {
			return
		}
		peer.Send(proto.PLAYER_MOVE, proto.PlayerMoveMsg{PlayerID: s.PlayerID, X: s.X, Y: s.Y})
	})
}

// Leave implements session.Hooks.OnLeave: broadcasts PLAYER_LEAVE to every
// other session.
func (r *Router) Leave(s *session.Session) {
	r.Mgr.Range(func(peer *session.Session) {
		if peer == s {
			return
		}
		peer.Send(proto.PLAYER_LEAVE, proto.PlayerLeaveMsg{PlayerID: s.PlayerID})
	})
}

// Chat implements session.Hooks.OnChat: echoes a player's message to every
// connected session, including the sender.
func (r *Router) Chat(s *session.Session, text string) {
	msg := proto.ChatMsg{PlayerID: s.PlayerID, Name: s.Name, Text: text}
	r.Mgr.Range(func(peer *session.Session) {
		peer.Send(proto.CHAT, msg)
	})
}

func playerJoinMsg(s *session.Session) proto.PlayerJoinMsg {
	return proto.PlayerJoinMsg{PlayerID: s.PlayerID, Name: s.Name, X: s.X, Y: s.Y}
}

func wireEntity(e *world.Entity) proto.WireEntity {
	var state map[string]any
	if e.State != nil {
		state = e.State.Encode()
	}
	return proto.WireEntity{
		ID: e.ID, Kind: e.KindName, X: e.X, Y: e.Y,
		Direction: e.Dir.String(), State: state,
	}
}
