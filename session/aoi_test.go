package session

import (
	"io"
	"net"
	"testing"

	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/sim"
	"github.com/ironfoundry/forge/world"
)

// newDrainedSession wraps a net.Pipe server side, discarding everything
// written to it on a background goroutine so Session.Send never blocks
// waiting for a reader (spec's CHUNK_DATA streaming otherwise deadlocks
// against net.Pipe's unbuffered, synchronous semantics).
func newDrainedSession(t *testing.T) *Session {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	go io.Copy(io.Discard, client)
	return newSession(server)
}

type flatGen struct{ tile int32 }

func (g flatGen) TileAt(x, y int) int32 { return g.tile }

type nopProvider struct{}

func (nopProvider) LoadChunk(pos world.ChunkPos) (*world.Chunk, bool, error) { return nil, false, nil }
func (nopProvider) SaveChunk(c *world.Chunk) error                           { return nil }

func newAoITestEngine(t *testing.T) *sim.Engine {
	t.Helper()
	cat := catalog.DefaultCatalog()
	store := world.NewStore(cat, flatGen{tile: int32(catalog.TileGrass)}, nopProvider{}, nil)
	return sim.NewEngine(store, cat, nil, nil)
}

func TestRecomputeAoICoversViewDistanceSquare(t *testing.T) {
	eng := newAoITestEngine(t)
	s := newDrainedSession(t)
	s.X, s.Y = 0, 0

	recomputeAoI(eng, s)

	view := int32(eng.Catalog().Constants.ViewDistance)
	want := int((2*view + 1) * (2*view + 1))
	if len(s.AoI) != want {
		t.Fatalf("expected %d subscribed chunks, got %d", want, len(s.AoI))
	}
	if !s.Subscribes(world.ChunkPos{X: 0, Y: 0}) {
		t.Fatal("expected the player's own chunk to be subscribed")
	}
	if s.Subscribes(world.ChunkPos{X: view + 1, Y: 0}) {
		t.Fatal("expected a chunk beyond view distance to not be subscribed")
	}
}

func TestRecomputeAoIShrinksAfterMoveAway(t *testing.T) {
	eng := newAoITestEngine(t)
	s := newDrainedSession(t)
	s.X, s.Y = 0, 0
	recomputeAoI(eng, s)

	far := int(world.ChunkSize) * 100
	s.X, s.Y = float64(far), float64(far)
	recomputeAoI(eng, s)

	if s.Subscribes(world.ChunkPos{X: 0, Y: 0}) {
		t.Fatal("expected origin chunk to have fallen out of AoI after moving far away")
	}
}
