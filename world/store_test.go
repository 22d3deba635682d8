package world

import (
	"testing"

	"github.com/ironfoundry/forge/catalog"
)

type flatGenerator struct{ tile int32 }

func (g flatGenerator) TileAt(x, y int) int32 { return g.tile }

type memProvider struct {
	chunks map[ChunkPos]*Chunk
	saves  int
}

func newMemProvider() *memProvider { return &memProvider{chunks: make(map[ChunkPos]*Chunk)} }

func (p *memProvider) LoadChunk(pos ChunkPos) (*Chunk, bool, error) {
	c, ok := p.chunks[pos]
	return c, ok, nil
}

func (p *memProvider) SaveChunk(c *Chunk) error {
	p.saves++
	p.chunks[c.Pos] = c
	return nil
}

func newTestStore() (*Store, *catalog.Catalog, *memProvider) {
	cat := catalog.DefaultCatalog()
	prov := newMemProvider()
	gen := flatGenerator{tile: int32(catalog.TileGrass)}
	return NewStore(cat, gen, prov, nil), cat, prov
}

func TestGetChunkIdempotent(t *testing.T) {
	s, _, _ := newTestStore()
	c1 := s.GetChunk(0, 0)
	c2 := s.GetChunk(0, 0)
	if c1 != c2 {
		t.Fatal("GetChunk returned a different chunk for the same position")
	}
}

func TestPlaceAndRemoveEntity(t *testing.T) {
	s, _, _ := newTestStore()

	e := s.PlaceEntity("miner", 5, 5, North)
	if e == nil {
		t.Fatal("expected placement to succeed on grass")
	}
	if got := s.EntityAt(5, 5); got != e {
		t.Fatalf("EntityAt did not return the placed entity: %v", got)
	}

	// A second entity may not occupy the same tile.
	if dup := s.PlaceEntity("chest", 5, 5, North); dup != nil {
		t.Fatal("expected placement on an occupied tile to fail")
	}

	removed := s.RemoveEntity(e.ID)
	if removed != e {
		t.Fatal("RemoveEntity did not return the removed entity")
	}
	if s.EntityAt(5, 5) != nil {
		t.Fatal("tile still occupied after removal")
	}
	if s.EntityByID(e.ID) != nil {
		t.Fatal("id index still resolves a removed entity")
	}
}

func TestPlaceEntityRejectsForbiddenTile(t *testing.T) {
	cat := catalog.DefaultCatalog()
	prov := newMemProvider()
	gen := flatGenerator{tile: int32(catalog.TileWater)}
	s := NewStore(cat, gen, prov, nil)

	if e := s.PlaceEntity("miner", 0, 0, North); e != nil {
		t.Fatal("expected placement on water to be rejected")
	}
}

func TestEntityIDsStrictlyIncreasing(t *testing.T) {
	s, _, _ := newTestStore()
	a := s.PlaceEntity("chest", 1, 1, North)
	b := s.PlaceEntity("chest", 2, 2, North)
	if b.ID <= a.ID {
		t.Fatalf("entity ids not strictly increasing: %d then %d", a.ID, b.ID)
	}
}

func TestEvictFarChunksPersistsDirty(t *testing.T) {
	s, _, prov := newTestStore()
	s.GetChunk(0, 0)
	s.GetChunk(100, 100)

	s.PlaceEntity("chest", 100*ChunkSize+1, 100*ChunkSize+1, North) // dirties chunk (100,100)

	evicted := s.EvictFarChunks([]ChunkPos{{X: 0, Y: 0}}, 2)
	if evicted != 1 {
		t.Fatalf("expected exactly the far chunk to be evicted, got %d", evicted)
	}
	if s.LoadedChunkCount() != 1 {
		t.Fatalf("expected 1 chunk to remain loaded, got %d", s.LoadedChunkCount())
	}
	if prov.saves != 1 {
		t.Fatalf("expected the dirty evicted chunk to be saved, saves=%d", prov.saves)
	}
}

func TestEntitiesInRadius(t *testing.T) {
	s, _, _ := newTestStore()
	s.PlaceEntity("chest", 0, 0, North)
	s.PlaceEntity("chest", 3, 3, North)
	s.PlaceEntity("chest", 50, 50, North)

	near := s.EntitiesInRadius(0, 0, 4)
	if len(near) != 2 {
		t.Fatalf("expected 2 entities within radius 4, got %d", len(near))
	}
}
