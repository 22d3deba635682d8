package session

import (
	"net"
	"testing"

	"github.com/ironfoundry/forge/world"
)

func pipeSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	return newSession(server), client
}

func TestSessionSubscribes(t *testing.T) {
	s, _ := pipeSession(t)
	pos := world.ChunkPos{X: 1, Y: 2}
	if s.Subscribes(pos) {
		t.Fatal("fresh session should not subscribe to anything")
	}
	s.AoI[pos] = struct{}{}
	if !s.Subscribes(pos) {
		t.Fatal("expected pos to be subscribed after adding to AoI")
	}
}

func TestSessionSharesChunkWith(t *testing.T) {
	a, _ := pipeSession(t)
	b, _ := pipeSession(t)

	if a.SharesChunkWith(b) {
		t.Fatal("two empty AoIs should not share a chunk")
	}

	a.AoI[world.ChunkPos{X: 0, Y: 0}] = struct{}{}
	a.AoI[world.ChunkPos{X: 1, Y: 0}] = struct{}{}
	b.AoI[world.ChunkPos{X: 5, Y: 5}] = struct{}{}
	if a.SharesChunkWith(b) {
		t.Fatal("disjoint AoIs should not share a chunk")
	}

	b.AoI[world.ChunkPos{X: 1, Y: 0}] = struct{}{}
	if !a.SharesChunkWith(b) {
		t.Fatal("expected overlapping AoI chunk to be detected")
	}
}
