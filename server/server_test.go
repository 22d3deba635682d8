package server

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/ironfoundry/forge/proto"
)

// testClient is a minimal hand-rolled client speaking the wire protocol
// directly, standing in for the real client the spec describes (spec
// §4.3).
type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dialTestClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(typ proto.Type, msg any) {
	c.t.Helper()
	payload, err := proto.EncodeMessage(typ, msg)
	if err != nil {
		c.t.Fatalf("encode: %v", err)
	}
	if err := proto.WriteFrame(c.conn, payload); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

// recv reads frames until one of the given types arrives, or the deadline
// passes. Other message types encountered along the way are discarded.
func (c *testClient) recv(deadline time.Time, types ...proto.Type) proto.Envelope {
	c.t.Helper()
	c.conn.SetReadDeadline(deadline)
	want := make(map[proto.Type]bool, len(types))
	for _, typ := range types {
		want[typ] = true
	}
	for {
		payload, err := proto.ReadFrame(c.r)
		if err != nil {
			c.t.Fatalf("read frame (waiting for %v): %v", types, err)
		}
		env, err := proto.Decode(payload)
		if err != nil {
			c.t.Fatalf("decode: %v", err)
		}
		if want[env.T] {
			return env
		}
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	conf := Config{Log: log, Address: "127.0.0.1:0"}
	srv, err := conf.New()
	if err != nil {
		t.Fatalf("conf.New: %v", err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv
}

func TestAuthHandshakeSendsCatalogAndInventory(t *testing.T) {
	srv := newTestServer(t)
	c := dialTestClient(t, srv.listener.Addr().String())

	c.send(proto.AUTH, proto.AuthMsg{DisplayName: "alice"})
	deadline := time.Now().Add(2 * time.Second)

	c.recv(deadline, proto.AUTH_RESPONSE)
	c.recv(deadline, proto.CATALOG)
	c.recv(deadline, proto.INVENTORY_UPDATE)
}

func TestSecondPlayerTriggersJoinBroadcast(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.listener.Addr().String()

	a := dialTestClient(t, addr)
	a.send(proto.AUTH, proto.AuthMsg{DisplayName: "alice"})
	deadline := time.Now().Add(2 * time.Second)
	a.recv(deadline, proto.AUTH_RESPONSE)
	a.recv(deadline, proto.CATALOG)
	a.recv(deadline, proto.INVENTORY_UPDATE)

	b := dialTestClient(t, addr)
	b.send(proto.AUTH, proto.AuthMsg{DisplayName: "bob"})
	b.recv(deadline, proto.AUTH_RESPONSE)
	b.recv(deadline, proto.CATALOG)
	b.recv(deadline, proto.INVENTORY_UPDATE)

	// alice should receive a PLAYER_JOIN for bob once bob authenticates.
	env := a.recv(deadline, proto.PLAYER_JOIN)
	var join proto.PlayerJoinMsg
	if err := proto.DecodeInto(env, &join); err != nil {
		t.Fatalf("decode PLAYER_JOIN: %v", err)
	}
	if join.Name != "bob" {
		t.Fatalf("expected PLAYER_JOIN for bob, got %q", join.Name)
	}
}

func TestStatusReflectsConnectedPlayers(t *testing.T) {
	srv := newTestServer(t)
	if st := srv.Status(); st.Players != 0 {
		t.Fatalf("expected 0 players before any connection, got %d", st.Players)
	}

	c := dialTestClient(t, srv.listener.Addr().String())
	c.send(proto.AUTH, proto.AuthMsg{DisplayName: "alice"})
	deadline := time.Now().Add(2 * time.Second)
	c.recv(deadline, proto.AUTH_RESPONSE)

	// Status is read off the Manager directly (safe for concurrent
	// reads), so poll briefly rather than relying on strict ordering with
	// the Engine.Exec closure that registered the session.
	var st Status
	for i := 0; i < 50; i++ {
		st = srv.Status()
		if st.Players == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if st.Players != 1 {
		t.Fatalf("expected 1 player online, got %d", st.Players)
	}
}
