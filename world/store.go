// Package world holds the chunked tile/entity model and the in-memory
// Chunk Store: idempotent chunk loading, tile and entity lookup by world
// coordinate, and distance-based eviction of chunks far from every player.
package world

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/brentp/intintmap"
	"github.com/cespare/xxhash/v2"

	"github.com/ironfoundry/forge/catalog"
)

// Generator produces the tile kind at a world coordinate as a pure function
// of (seed, x, y). Implemented by worldgen.Generator; kept as an interface
// here so world doesn't import worldgen (it's the other way around —
// worldgen has no reason to know about Store).
type Generator interface {
	TileAt(x, y int) int32
}

// Provider is the subset of persistence.Provider the Chunk Store needs:
// loading and saving one chunk at a time.
type Provider interface {
	LoadChunk(pos ChunkPos) (*Chunk, bool, error)
	SaveChunk(c *Chunk) error
}

// Store is the in-memory chunk table plus tile/entity lookup by world
// coordinate. A Store is owned exclusively by the simulation worker: every
// method is safe to call only from that single goroutine, never
// concurrently.
type Store struct {
	cat   *catalog.Catalog
	gen   Generator
	prov  Provider
	log   *slog.Logger

	chunks map[ChunkPos]*Chunk

	// occupancy maps an encoded (x,y) tile position to the occupying
	// entity's ID, enforcing "at most one entity per tile" in O(1).
	occupancy *intintmap.Map
	// index maps entity ID to the entity itself, the process-wide
	// id→Entity index.
	index map[uint64]*Entity

	nextEntityID atomic.Uint64
	tick         int64
}

// NewStore constructs an empty Store. gen and prov must not be nil; prov
// may be a no-op provider if persistence is disabled.
func NewStore(cat *catalog.Catalog, gen Generator, prov Provider, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		cat:       cat,
		gen:       gen,
		prov:      prov,
		log:       log,
		chunks:    make(map[ChunkPos]*Chunk),
		occupancy: intintmap.New(1024, 0.6),
		index:     make(map[uint64]*Entity),
	}
}

// SetTick records the current simulation tick, used to timestamp chunk
// touches. Eviction does not read these timestamps.
func (s *Store) SetTick(tick int64) { s.tick = tick }

// RestoreNextEntityID seeds the entity ID allocator from persisted world
// metadata so IDs keep strictly increasing across the process lifetime,
// surviving a restart.
func (s *Store) RestoreNextEntityID(n uint64) {
	s.nextEntityID.Store(n)
}

// NextEntityID returns the current allocator value, for persisting into
// world_meta on flush.
func (s *Store) NextEntityID() uint64 { return s.nextEntityID.Load() }

// AllocateEntityID hands out the next id from the process-wide allocator.
// Player avatars draw their ids from the same allocator as placed
// machines, so ids never collide; only placed machines are entered in the
// id→Entity index.
func (s *Store) AllocateEntityID() uint64 { return s.nextEntityID.Add(1) }

func encodePos(x, y int) int64 {
	return int64(uint32(int32(x)))<<32 | int64(uint32(int32(y)))
}

// GetChunk returns the chunk at (cx, cy), idempotently: an already-loaded
// chunk is returned as-is; otherwise it is loaded from persistence, or
// failing that generated fresh from the seed.
func (s *Store) GetChunk(cx, cy int32) *Chunk {
	pos := ChunkPos{X: cx, Y: cy}
	if c, ok := s.chunks[pos]; ok {
		c.lastTouched = s.tick
		return c
	}

	if c, ok, err := s.prov.LoadChunk(pos); err != nil {
		s.log.Warn("load chunk from persistence failed, regenerating", "cx", cx, "cy", cy, "error", err)
	} else if ok {
		c.lastTouched = s.tick
		s.chunks[pos] = c
		s.reindexChunk(c)
		return c
	}

	c := s.generate(pos)
	c.lastTouched = s.tick
	s.chunks[pos] = c
	return c
}

// generate allocates and fills a new chunk purely from (seed, cx, cy).
func (s *Store) generate(pos ChunkPos) *Chunk {
	c := NewChunk(pos)
	base := ChunkSize
	for ly := 0; ly < base; ly++ {
		for lx := 0; lx < base; lx++ {
			wx := int(pos.X)*base + lx
			wy := int(pos.Y)*base + ly
			c.Tiles[ly*base+lx] = s.gen.TileAt(wx, wy)
		}
	}
	return c
}

// reindexChunk populates the occupancy map and id index for every entity in
// a chunk just loaded from persistence.
func (s *Store) reindexChunk(c *Chunk) {
	for id, e := range c.Entities {
		s.occupancy.Put(encodePos(e.X, e.Y), int64(id))
		s.index[id] = e
	}
}

// GetTile returns the catalog tile kind at world coordinate (x, y).
func (s *Store) GetTile(x, y int) catalog.TileKind {
	pos := ChunkPosFor(x, y)
	c := s.GetChunk(pos.X, pos.Y)
	id := int(c.Tile(x, y))
	t, _ := s.cat.Tile(id)
	return t
}

// EntityAt returns the entity occupying world tile (x, y), if any.
func (s *Store) EntityAt(x, y int) *Entity {
	id, ok := s.occupancy.Get(encodePos(x, y))
	if !ok {
		return nil
	}
	return s.index[uint64(id)]
}

// EntityByID returns the entity with the given ID, if loaded.
func (s *Store) EntityByID(id uint64) *Entity {
	return s.index[id]
}

// EntitiesInRadius returns every loaded entity within r tiles (Chebyshev
// distance, matching chunk-grid locality) of (x, y).
func (s *Store) EntitiesInRadius(x, y int, r int) []*Entity {
	var out []*Entity
	minCX, maxCX := ChunkPosFor(x-r, y).X, ChunkPosFor(x+r, y).X
	minCY, maxCY := ChunkPosFor(x, y-r).Y, ChunkPosFor(x, y+r).Y
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			c, ok := s.chunks[ChunkPos{X: cx, Y: cy}]
			if !ok {
				continue
			}
			for _, e := range c.Entities {
				dx, dy := e.X-x, e.Y-y
				if abs(dx) <= r && abs(dy) <= r {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// PlaceEntity places a new entity of kindName at (x, y) facing dir, if the
// tile is unoccupied and the catalog's placement rule allows it. It
// returns the created entity, or nil if placement was illegal — an
// illegal BUILD is a silent no-op.
func (s *Store) PlaceEntity(kindName string, x, y int, dir Direction) *Entity {
	kind, ok := s.cat.EntityByName(kindName)
	if !ok {
		return nil
	}
	if s.EntityAt(x, y) != nil {
		return nil
	}
	tile := s.GetTile(x, y)
	if !s.cat.CanPlace(kindName, tile.Name) {
		return nil
	}

	id := s.AllocateEntityID()
	e := &Entity{ID: id, KindName: kindName, X: x, Y: y, Dir: dir, State: NewState(kindName)}
	if ms, ok := e.State.(*MinerState); ok {
		ms.Cooldown = kind.Cooldown
	}

	pos := ChunkPosFor(x, y)
	c := s.GetChunk(pos.X, pos.Y)
	c.Entities[id] = e
	c.Dirty = true
	s.occupancy.Put(encodePos(x, y), int64(id))
	s.index[id] = e
	return e
}

// RemoveEntity destroys the entity with the given ID, if it exists. Its
// buffered items dissolve rather than spawning a ground item. Returns the
// removed entity, or nil if no such entity was loaded (an unknown-id
// DESTROY is a no-op).
func (s *Store) RemoveEntity(id uint64) *Entity {
	e, ok := s.index[id]
	if !ok {
		return nil
	}
	pos := ChunkPosFor(e.X, e.Y)
	c, ok := s.chunks[pos]
	if ok {
		delete(c.Entities, id)
		c.Dirty = true
	}
	s.occupancy.Del(encodePos(e.X, e.Y))
	delete(s.index, id)
	return e
}

// MarkDirty flags e as changed since the last broadcast/persist and marks
// its owning chunk dirty for the next flush.
func (s *Store) MarkDirty(e *Entity) {
	e.Dirty = true
	pos := ChunkPosFor(e.X, e.Y)
	if c, ok := s.chunks[pos]; ok {
		c.Dirty = true
	}
}

// TouchPlayerChunk records that a player is currently within view of pos
// by stamping the chunk with the current tick. EvictFarChunks does not
// read this stamp; it decides by distance alone.
func (s *Store) TouchPlayerChunk(pos ChunkPos) {
	if c, ok := s.chunks[pos]; ok {
		c.lastTouched = s.tick
	}
}

// EvictFarChunks unloads (persisting first if dirty) every loaded chunk
// further than radius chunks (Chebyshev) from every position in
// playerChunks. The choice is by distance only: every chunk beyond the
// radius is evicted in the same call, and how recently a chunk was used
// is not considered.
func (s *Store) EvictFarChunks(playerChunks []ChunkPos, radius int32) (evicted int) {
	for pos, c := range s.chunks {
		if nearAny(pos, playerChunks, radius) {
			continue
		}
		if c.Dirty {
			if err := s.prov.SaveChunk(c); err != nil {
				s.log.Warn("persist chunk on eviction failed, keeping dirty flag", "cx", pos.X, "cy", pos.Y, "error", err)
				continue
			}
			c.Dirty = false
		}
		for id, e := range c.Entities {
			s.occupancy.Del(encodePos(e.X, e.Y))
			delete(s.index, id)
		}
		delete(s.chunks, pos)
		evicted++
	}
	return evicted
}

func nearAny(pos ChunkPos, around []ChunkPos, radius int32) bool {
	for _, a := range around {
		if abs32(pos.X-a.X) <= radius && abs32(pos.Y-a.Y) <= radius {
			return true
		}
	}
	return false
}

// DirtyChunks returns every currently loaded chunk with its dirty flag set,
// for the periodic flush policy.
func (s *Store) DirtyChunks() []*Chunk {
	var out []*Chunk
	for _, c := range s.chunks {
		if c.Dirty {
			out = append(out, c)
		}
	}
	return out
}

// FlushDirty persists every dirty loaded chunk and clears its dirty flag on
// success, as the periodic flush policy requires.
func (s *Store) FlushDirty() error {
	for _, c := range s.DirtyChunks() {
		if err := s.prov.SaveChunk(c); err != nil {
			s.log.Warn("persist chunk on flush failed, keeping dirty flag", "cx", c.Pos.X, "cy", c.Pos.Y, "error", err)
			continue
		}
		c.Dirty = false
	}
	return nil
}

// LoadedChunkCount reports how many chunks currently sit in memory.
func (s *Store) LoadedChunkCount() int { return len(s.chunks) }

// EntityCount reports how many entities currently sit in memory.
func (s *Store) EntityCount() int { return len(s.index) }

// AllChunks iterates every currently loaded chunk. Order is unspecified.
func (s *Store) AllChunks(f func(*Chunk)) {
	for _, c := range s.chunks {
		f(c)
	}
}

// ChunkKey hashes a ChunkPos into a stable 64-bit key, used by Persistence
// for LevelDB keys.
func ChunkKey(pos ChunkPos) uint64 {
	var b [8]byte
	b[0], b[1], b[2], b[3] = byte(pos.X), byte(pos.X>>8), byte(pos.X>>16), byte(pos.X>>24)
	b[4], b[5], b[6], b[7] = byte(pos.Y), byte(pos.Y>>8), byte(pos.Y>>16), byte(pos.Y>>24)
	return xxhash.Sum64(b[:])
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

// ErrUnknownEntityKind names the error for an entity kind the catalog
// doesn't define. No function in this package returns it: PlaceEntity
// reports an unknown kind by returning nil.
var ErrUnknownEntityKind = fmt.Errorf("world: unknown entity kind")
