// Package session implements the per-connection state of a client: a
// socket handle, authentication gating, and the subscribed-chunk Area of
// Interest that drives what CHUNK_DATA/ENTITY_* traffic a client receives.
package session

import (
	"bufio"
	"net"
	"sync"

	"github.com/ironfoundry/forge/inventory"
	"github.com/ironfoundry/forge/proto"
	"github.com/ironfoundry/forge/world"
)

// Session is one connected client. Everything but the read loop itself
// (owned by Handler.Serve) may be touched from the simulation goroutine via
// Engine.Exec, so writes to the socket are serialised by sendMu and AoI/
// identity fields are only ever mutated from within a running transaction.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader

	sendMu sync.Mutex

	// PlayerID is the process-wide entity id assigned to this session's
	// player avatar once authenticated.
	PlayerID uint64
	// Name is the display name sent with AUTH; also the player's durable
	// identity, reloaded on the next AUTH that carries the same name.
	Name string

	Authenticated bool

	X, Y float64

	Inventory *inventory.Inventory

	// AoI is the current subscribed-chunk set.
	AoI map[world.ChunkPos]struct{}
}

// newSession wraps an accepted connection and enables TCP_NODELAY.
func newSession(conn net.Conn) *Session {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		AoI:    make(map[world.ChunkPos]struct{}),
	}
}

// Send encodes and writes one message to the client. Safe for concurrent
// use; the broadcast router and this session's own handler goroutine may
// both call it.
func (s *Session) Send(t proto.Type, data any) error {
	payload, err := proto.EncodeMessage(t, data)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return proto.WriteFrame(s.conn, payload)
}

// Close closes the underlying connection. Idempotent.
func (s *Session) Close() error { return s.conn.Close() }

// RemoteAddr identifies the peer, for logging.
func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr().String() }

// Subscribes reports whether pos is in the current AoI.
func (s *Session) Subscribes(pos world.ChunkPos) bool {
	_, ok := s.AoI[pos]
	return ok
}

// SharesChunkWith reports whether s and other currently have at least one
// AoI chunk in common. PLAYER_MOVE broadcasts to every session sharing at
// least one chunk with the mover.
func (s *Session) SharesChunkWith(other *Session) bool {
	small, big := s.AoI, other.AoI
	if len(big) < len(small) {
		small, big = big, small
	}
	for pos := range small {
		if _, ok := big[pos]; ok {
			return true
		}
	}
	return false
}
