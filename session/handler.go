package session

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/inventory"
	"github.com/ironfoundry/forge/persistence"
	"github.com/ironfoundry/forge/proto"
	"github.com/ironfoundry/forge/sim"
	"github.com/ironfoundry/forge/world"
)

// identityNamespace seeds the deterministic display-name -> UUID mapping
// used to key persisted player records. There is no notion of a password
// or account; a player's display name *is* its whole identity, reloaded on
// the next AUTH with the same name, so the durable id must be a pure
// function of the name rather than randomly generated at AUTH time.
var identityNamespace = uuid.MustParse("6f6e6b6f-7267-4533-9fd2-4c6f7267655f")

// Allower decides whether a display name may authenticate against an
// operator-maintained whitelist. Satisfied by *server.Whitelist without
// session needing to import server.
type Allower interface {
	Allow(displayName string) (reason string, ok bool)
}

// Hooks let the broadcast router react to session lifecycle events without
// session importing broadcast — that wiring is the server package's job.
// OnJoin, OnMove and OnLeave are called from inside a running Engine
// transaction (so they may range over other sessions' position/AoI state);
// OnChat is called directly on the sending session's read goroutine.
type Hooks struct {
	// OnJoin runs after a session finishes authenticating and has been
	// added to the Manager: send PLAYER_JOIN for every existing peer to
	// the new session, and broadcast PLAYER_JOIN for the new session to
	// everyone else.
	OnJoin func(s *Session)
	// OnMove runs after a session's position (and therefore AoI) has been
	// updated, to rebroadcast PLAYER_MOVE to chunk-sharing peers. CHUNK_DATA
	// for newly entered chunks has already been streamed by the AoI
	// recomputation before the hook runs.
	OnMove func(s *Session)
	// OnLeave runs once, just before a disconnecting session is removed
	// from the Manager, to broadcast PLAYER_LEAVE.
	OnLeave func(s *Session)
	// OnChat runs when an authenticated session sends a CHAT message, to
	// fan it out to every connected session.
	OnChat func(s *Session, text string)
}

// maxChatLen bounds a single CHAT message's text, matching the teacher's
// habit of capping anything that lands in a fixed-size broadcast buffer.
const maxChatLen = 256

// Handler accepts connections and drives each one's read loop. Every
// mutation of shared state (the Store, a session's position/AoI, the
// session table) happens inside an Engine.Exec closure, so it runs
// serialised on the simulation worker's single goroutine exactly like a
// tick: any state the simulation writes is only ever touched through the
// action queue.
type Handler struct {
	Mgr     *Manager
	Engine  *sim.Engine
	Cat     *catalog.Catalog
	Persist *persistence.Provider
	Log     *slog.Logger
	Hooks   Hooks
	// Allower gates AUTH against a whitelist. Nil allows everyone.
	Allower Allower
}

// NewHandler constructs a Handler. persist may be nil to disable player
// persistence (an ephemeral server).
func NewHandler(mgr *Manager, engine *sim.Engine, cat *catalog.Catalog, persist *persistence.Provider, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Mgr: mgr, Engine: engine, Cat: cat, Persist: persist, Log: log}
}

// Serve drives one accepted connection until it disconnects. Meant to be
// run in its own goroutine per connection: one blocking-read goroutine per
// socket gives the same never-blocks-the-simulation property as a
// manually multiplexed non-blocking poller, without hand-rolled epoll
// plumbing.
func (h *Handler) Serve(conn net.Conn) {
	s := newSession(conn)
	defer h.disconnect(s)

	for {
		payload, err := proto.ReadFrame(s.reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				h.Log.Debug("session read error, tearing down", "addr", s.RemoteAddr(), "error", err)
			}
			return
		}
		env, err := proto.Decode(payload)
		if err != nil {
			// Protocol framing error on an otherwise-complete frame: skip
			// it and keep reading.
			h.Log.Debug("discarding malformed frame", "addr", s.RemoteAddr(), "error", err)
			continue
		}
		h.dispatch(s, env)
	}
}

func (h *Handler) dispatch(s *Session, env proto.Envelope) {
	if !s.Authenticated {
		if env.T == proto.AUTH {
			h.handleAuth(s, env)
		}
		// Any other message from an unauthenticated session is ignored,
		// not a disconnect.
		return
	}

	switch env.T {
	case proto.PLAYER_MOVE:
		h.handleMove(s, env)
	case proto.CHUNK_REQUEST:
		h.handleChunkRequest(s, env)
	case proto.PLAYER_ACTION:
		h.handlePlayerAction(s, env)
	case proto.INVENTORY_ACTION:
		h.handleInventoryAction(s, env)
	case proto.SYNC:
		h.handleSync(s, env)
	case proto.CHAT:
		h.handleChat(s, env)
	default:
		h.Log.Debug("ignoring unhandled message type", "type", env.T)
	}
}

func (h *Handler) handleAuth(s *Session, env proto.Envelope) {
	var msg proto.AuthMsg
	if err := proto.DecodeInto(env, &msg); err != nil || msg.DisplayName == "" {
		h.Log.Debug("malformed AUTH, ignoring", "error", err)
		return
	}

	if h.Allower != nil {
		if _, ok := h.Allower.Allow(msg.DisplayName); !ok {
			s.Send(proto.AUTH_RESPONSE, proto.AuthResponseMsg{Success: false})
			s.Close()
			return
		}
	}

	done := h.Engine.Exec(func(e *sim.Engine) {
		id := uuid.NewSHA1(identityNamespace, []byte(msg.DisplayName))
		s.Name = msg.DisplayName
		s.Inventory = inventory.New(h.Cat)
		s.X, s.Y = 0, 0

		if h.Persist != nil {
			if rec, ok, err := h.Persist.LoadPlayer(id); err != nil {
				h.Log.Warn("load player failed, starting fresh", "name", msg.DisplayName, "error", err)
			} else if ok {
				s.X, s.Y = rec.X, rec.Y
				for _, slot := range rec.Inventory {
					if slot.Item != "" {
						s.Inventory.Add(slot.Item, slot.Count)
					}
				}
			}
		}

		s.PlayerID = e.Store.AllocateEntityID()
		s.Authenticated = true
		h.Mgr.Add(s)

		s.Send(proto.AUTH_RESPONSE, proto.AuthResponseMsg{
			Success: true, PlayerID: s.PlayerID, SpawnX: s.X, SpawnY: s.Y, Tick: e.Tick(),
		})
		s.Send(proto.CATALOG, catalogMsg(h.Cat))
		s.Send(proto.INVENTORY_UPDATE, inventoryUpdateMsg(s.Inventory))

		recomputeAoI(e, s)
		if h.Hooks.OnJoin != nil {
			h.Hooks.OnJoin(s)
		}
	})
	<-done
}

func (h *Handler) handleMove(s *Session, env proto.Envelope) {
	var msg proto.PlayerMoveMsg
	if err := proto.DecodeInto(env, &msg); err != nil {
		return
	}
	h.Engine.Exec(func(e *sim.Engine) {
		// Player position is fully client-authoritative: applied as
		// received, no server-side speed or collision check.
		s.X, s.Y = msg.X, msg.Y
		recomputeAoI(e, s)
		if h.Hooks.OnMove != nil {
			h.Hooks.OnMove(s)
		}
	})
}

func (h *Handler) handleChunkRequest(s *Session, env proto.Envelope) {
	var msg proto.ChunkRequestMsg
	if err := proto.DecodeInto(env, &msg); err != nil {
		return
	}
	h.Engine.Exec(func(e *sim.Engine) {
		pos := world.ChunkPos{X: msg.CX, Y: msg.CY}
		s.AoI[pos] = struct{}{}
		sendChunk(e, s, pos)
	})
}

func (h *Handler) handlePlayerAction(s *Session, env proto.Envelope) {
	var msg proto.PlayerActionMsg
	if err := proto.DecodeInto(env, &msg); err != nil {
		return
	}
	h.Engine.Exec(func(e *sim.Engine) {
		switch msg.Action {
		case proto.ActionBuild:
			// An illegal BUILD is a silent no-op: the client observes the
			// absence of an ENTITY_ADD.
			e.Build(msg.Kind, msg.X, msg.Y, world.ParseDirection(msg.Direction))
		case proto.ActionDestroy:
			e.Destroy(msg.EntityID)
		case proto.ActionConfigure:
			e.Configure(msg.EntityID, msg.Recipe)
		}
	})
}

func (h *Handler) handleSync(s *Session, env proto.Envelope) {
	var msg proto.SyncMsg
	_ = proto.DecodeInto(env, &msg)
	h.Engine.Exec(func(e *sim.Engine) {
		s.Send(proto.SYNC, proto.SyncMsg{ClientTime: msg.ClientTime, Tick: e.Tick()})
	})
}

func (h *Handler) handleChat(s *Session, env proto.Envelope) {
	var msg proto.ChatMsg
	if err := proto.DecodeInto(env, &msg); err != nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if len(text) > maxChatLen {
		text = text[:maxChatLen]
	}
	if h.Hooks.OnChat != nil {
		h.Hooks.OnChat(s, text)
	}
}

// disconnect runs the disconnect sequence: persist the player, broadcast
// PLAYER_LEAVE, remove the session, drop the partial read buffer (by
// simply letting s and its *bufio.Reader go out of scope).
func (h *Handler) disconnect(s *Session) {
	s.Close()
	if !s.Authenticated {
		return
	}
	done := h.Engine.Exec(func(e *sim.Engine) {
		if h.Persist != nil {
			rec := persistence.PlayerRecord{
				ID: uuid.NewSHA1(identityNamespace, []byte(s.Name)),
				Name: s.Name, X: s.X, Y: s.Y,
				Inventory: inventorySlotsToRecord(s.Inventory),
			}
			if err := h.Persist.SavePlayer(rec); err != nil {
				h.Log.Warn("persist player on disconnect failed", "name", s.Name, "error", err)
			}
		}
		if h.Hooks.OnLeave != nil {
			h.Hooks.OnLeave(s)
		}
		h.Mgr.Remove(s)
	})
	<-done
}
