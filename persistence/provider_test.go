package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/ironfoundry/forge/world"
)

func openTestProvider(t *testing.T) *Provider {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestLoadChunkMissingReturnsNotOK(t *testing.T) {
	p := openTestProvider(t)
	_, ok, err := p.LoadChunk(world.ChunkPos{X: 3, Y: -4})
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a chunk that was never saved")
	}
}

func TestSaveAndLoadChunkRoundTrips(t *testing.T) {
	p := openTestProvider(t)
	pos := world.ChunkPos{X: 7, Y: -2}
	c := world.NewChunk(pos)
	c.SetTile(int(pos.X)*world.ChunkSize, int(pos.Y)*world.ChunkSize, 5)

	if err := p.SaveChunk(c); err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}

	got, ok, err := p.LoadChunk(pos)
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true after saving")
	}
	if got.Pos != pos {
		t.Fatalf("expected pos %v, got %v", pos, got.Pos)
	}
	if got.Tiles != c.Tiles {
		t.Fatal("expected tiles to round-trip unchanged")
	}
}

func TestWorldMetaRoundTrips(t *testing.T) {
	p := openTestProvider(t)

	if _, ok, err := p.LoadMeta(); err != nil {
		t.Fatalf("LoadMeta: %v", err)
	} else if ok {
		t.Fatal("expected ok=false before any SaveMeta")
	}

	want := WorldMeta{Seed: 42, NextEntityID: 17, Tick: 1000}
	if err := p.SaveMeta(want); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	got, ok, err := p.LoadMeta()
	if err != nil {
		t.Fatalf("LoadMeta: %v", err)
	}
	if !ok || got != want {
		t.Fatalf("expected %+v, got %+v (ok=%v)", want, got, ok)
	}
}

func TestPlayerRecordRoundTrips(t *testing.T) {
	p := openTestProvider(t)
	id := uuid.New()

	if _, ok, err := p.LoadPlayer(id); err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	} else if ok {
		t.Fatal("expected ok=false for a player that was never saved")
	}

	want := PlayerRecord{
		ID: id, Name: "alice", X: 12.5, Y: -3.25,
		Inventory: []PlayerInvSlot{{Item: "iron-plate", Count: 10}},
	}
	if err := p.SavePlayer(want); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	got, ok, err := p.LoadPlayer(id)
	if err != nil {
		t.Fatalf("LoadPlayer: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true after saving")
	}
	if got.Name != want.Name || got.X != want.X || got.Y != want.Y {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if len(got.Inventory) != 1 || got.Inventory[0] != want.Inventory[0] {
		t.Fatalf("expected inventory to round-trip, got %+v", got.Inventory)
	}
}
