package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironfoundry/forge/broadcast"
	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/persistence"
	"github.com/ironfoundry/forge/session"
	"github.com/ironfoundry/forge/sim"
	"github.com/ironfoundry/forge/world"
)

// Server owns every long-lived piece of the running game: the chunk
// store, the simulation engine, the broadcast router and the session
// table, plus the TCP listener that feeds new connections to the session
// handler.
type Server struct {
	log     *slog.Logger
	address string

	cat     *catalog.Catalog
	store   *world.Store
	persist *persistence.Provider

	engine  *sim.Engine
	router  *broadcast.Router
	mgr     *session.Manager
	handler *session.Handler

	seed        int64
	flushEvery  time.Duration
	evictRadius int32

	listener net.Listener
	flusher  *persistence.Flusher
}

// Listen binds the TCP socket players connect to: one listening TCP
// socket, with TCP_NODELAY applied per accepted connection in
// session.newSession. Call once, before Run.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.address, err)
	}
	s.listener = l
	s.log.Info("listening", "address", l.Addr().String())
	return nil
}

// Run drives the accept loop, the simulation tick loop and the periodic
// persistence flush until ctx is cancelled, then performs an orderly
// shutdown: stop accepting, run a final flush, stop ticking, close every
// session's socket. It blocks until shutdown completes.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	// The simulation loop gets its own cancellation so a final flush can
	// still run (via Engine.Exec) after the accept loop has been told to
	// stop but before the engine itself stops draining its queue.
	engineCtx, cancelEngine := context.WithCancel(context.Background())
	defer cancelEngine()

	s.flusher = persistence.NewFlusher(s.runFlush, s.flushEvery, s.log)
	s.flusher.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.engine.Run(engineCtx) })
	g.Go(func() error { return s.acceptLoop(gctx) })

	<-gctx.Done()
	s.log.Info("server shutting down")

	_ = s.listener.Close()
	s.flusher.Stop() // runs one last synchronous flush
	cancelEngine()

	s.mgr.Range(func(sess *session.Session) { sess.Close() })
	if s.persist != nil {
		if err := s.persist.Close(); err != nil {
			s.log.Warn("close persistence failed", "error", err)
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// acceptLoop accepts connections and spawns one goroutine per connection
// to run the session handler's blocking read loop: a goroutine per socket
// never blocks the single simulation worker, the same property a
// hand-rolled epoll poller would buy at the cost of manual multiplexing.
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handler.Serve(conn)
	}
}

// runFlush is the persistence.FlushFunc driving both the periodic flush
// (via s.flusher) and an explicit "save" command: it always funnels
// through Engine.Exec so the flush itself runs under the single-writer
// discipline that owns the Store.
func (s *Server) runFlush() error {
	<-s.engine.Exec(func(e *sim.Engine) { s.flushOnce(e) })
	return nil
}

// flushOnce persists every dirty chunk and the world metadata, then
// evicts chunks far from every connected player. Must only run inside a
// running Engine transaction.
func (s *Server) flushOnce(e *sim.Engine) {
	if err := s.store.FlushDirty(); err != nil {
		s.log.Warn("periodic flush failed", "error", err)
	}
	if s.persist != nil {
		meta := persistence.WorldMeta{Seed: s.seed, NextEntityID: s.store.NextEntityID(), Tick: e.Tick()}
		if err := s.persist.SaveMeta(meta); err != nil {
			s.log.Warn("persist world metadata failed", "error", err)
		}
	}
	var chunks []world.ChunkPos
	s.mgr.Range(func(sess *session.Session) {
		chunks = append(chunks, world.ChunkPosFor(int(sess.X), int(sess.Y)))
	})
	if evicted := s.store.EvictFarChunks(chunks, s.evictRadius); evicted > 0 {
		s.log.Debug("evicted far chunks", "count", evicted)
	}
}

// Players returns the display names of every currently connected,
// authenticated session.
func (s *Server) Players() []string {
	var names []string
	s.mgr.Range(func(sess *session.Session) { names = append(names, sess.Name) })
	return names
}

// Kick disconnects the named player, if connected. Returns false if no
// session with that name is online. Closing the socket unblocks that
// session's Handler.Serve read loop, which runs the normal disconnect
// sequence (persist, broadcast PLAYER_LEAVE, remove).
func (s *Server) Kick(name string) bool {
	found := false
	s.mgr.Range(func(sess *session.Session) {
		if sess.Name == name {
			found = true
			sess.Close()
		}
	})
	return found
}

// Status is a snapshot of server-wide counters, for the operator console.
type Status struct {
	Tick          int64
	Players       int
	LoadedChunks  int
	LoadedEntities int
}

// Status reports a snapshot of server-wide counters.
func (s *Server) Status() Status {
	return Status{
		Tick:           s.engine.Tick(),
		Players:        s.mgr.Count(),
		LoadedChunks:   s.store.LoadedChunkCount(),
		LoadedEntities: s.store.EntityCount(),
	}
}

// Save forces an immediate, synchronous flush (chunks + world metadata),
// outside the regular FlushInterval cadence — the operator console's
// "save" command.
func (s *Server) Save() {
	_ = s.runFlush()
}

// Log returns the server's logger, for components built around it (the
// operator console, in particular).
func (s *Server) Log() *slog.Logger { return s.log }
