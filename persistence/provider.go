// Package persistence implements the embedded save format: a LevelDB
// key-value store holding three logical "tables" (chunks, world_meta,
// players) as prefix-namespaced keys, with zstd-compressed msgpack record
// bodies so old or foreign readers that don't know a field just ignore it
// (forward-readable).
package persistence

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ironfoundry/forge/world"
)

const (
	prefixChunk  = 'c'
	prefixMeta   = 'm'
	prefixPlayer = 'p'
)

// WorldMeta is the single record stored under the world_meta table's
// "world" key: the seed and entity-id allocator state that must survive a restart,
// since next_entity_id must keep increasing across the process lifetime.
type WorldMeta struct {
	Seed         int64  `msgpack:"seed"`
	NextEntityID uint64 `msgpack:"next_entity_id"`
	Tick         int64  `msgpack:"tick"`
}

// PlayerRecord is the persisted state of one player (the players table),
// keyed by their durable uuid.UUID identity rather than their
// per-connection session id.
type PlayerRecord struct {
	ID        uuid.UUID       `msgpack:"id"`
	Name      string          `msgpack:"name"`
	X         float64         `msgpack:"x"`
	Y         float64         `msgpack:"y"`
	Inventory []PlayerInvSlot `msgpack:"inventory"`
}

// PlayerInvSlot is one slot of a persisted player inventory.
type PlayerInvSlot struct {
	Item  string `msgpack:"item"`
	Count int    `msgpack:"count"`
}

// Provider is the LevelDB-backed store implementing world.Provider (chunk
// load/save) plus the world_meta and players tables. All methods are safe
// for concurrent use; the background flush goroutine and the simulation
// worker may call them from different goroutines, guarded by mu.
type Provider struct {
	mu  sync.Mutex
	db  *leveldb.DB
	log *slog.Logger

	zEnc *zstd.Encoder
	zDec *zstd.Decoder
}

// Open opens (creating if absent) the LevelDB store at dir.
func Open(dir string, log *slog.Logger) (*Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", dir, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		enc.Close()
		return nil, fmt.Errorf("persistence: create zstd decoder: %w", err)
	}
	return &Provider{db: db, log: log, zEnc: enc, zDec: dec}, nil
}

// Close releases the underlying LevelDB handle and compression resources.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zEnc.Close()
	p.zDec.Close()
	return p.db.Close()
}

func chunkKey(pos world.ChunkPos) []byte {
	h := world.ChunkKey(pos)
	return []byte(fmt.Sprintf("%c/%016x", prefixChunk, h))
}

func metaKey(name string) []byte {
	return []byte(fmt.Sprintf("%c/%s", prefixMeta, name))
}

func playerKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%c/%s", prefixPlayer, id.String()))
}

// encodeRecord msgpack-encodes v and compresses the result.
func (p *Provider) encodeRecord(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return p.zEnc.EncodeAll(raw, nil), nil
}

// decodeRecord decompresses and msgpack-decodes into v.
func (p *Provider) decodeRecord(data []byte, v any) error {
	raw, err := p.zDec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompress record: %w", err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

// chunkRecord is the on-disk shape of a chunk: tiles plus its entities,
// each entity's kind-specific state carried as a self-describing map so
// adding a new MachineState field never breaks old saves.
type chunkRecord struct {
	X        int32          `msgpack:"x"`
	Y        int32          `msgpack:"y"`
	Tiles    []int32        `msgpack:"tiles"`
	Entities []entityRecord `msgpack:"entities"`
}

type entityRecord struct {
	ID    uint64         `msgpack:"id"`
	Kind  string         `msgpack:"kind"`
	X     int            `msgpack:"x"`
	Y     int            `msgpack:"y"`
	Dir   uint8          `msgpack:"dir"`
	State map[string]any `msgpack:"state"`
}

// LoadChunk implements world.Provider.
func (p *Provider) LoadChunk(pos world.ChunkPos) (*world.Chunk, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.db.Get(chunkKey(pos), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persistence: get chunk %v: %w", pos, err)
	}

	var rec chunkRecord
	if err := p.decodeRecord(data, &rec); err != nil {
		return nil, false, fmt.Errorf("persistence: decode chunk %v: %w", pos, err)
	}

	c := world.NewChunk(pos)
	if len(rec.Tiles) == world.ChunkSize*world.ChunkSize {
		copy(c.Tiles[:], rec.Tiles)
	}
	for _, er := range rec.Entities {
		e := &world.Entity{
			ID: er.ID, KindName: er.Kind, X: er.X, Y: er.Y,
			Dir:   world.Direction(er.Dir),
			State: world.DecodeState(er.Kind, er.State),
		}
		c.Entities[e.ID] = e
	}
	return c, true, nil
}

// SaveChunk implements world.Provider.
func (p *Provider) SaveChunk(c *world.Chunk) error {
	rec := chunkRecord{
		X: c.Pos.X, Y: c.Pos.Y,
		Tiles:    append([]int32(nil), c.Tiles[:]...),
		Entities: make([]entityRecord, 0, len(c.Entities)),
	}
	for _, e := range c.Entities {
		var state map[string]any
		if e.State != nil {
			state = e.State.Encode()
		}
		rec.Entities = append(rec.Entities, entityRecord{
			ID: e.ID, Kind: e.KindName, X: e.X, Y: e.Y, Dir: uint8(e.Dir), State: state,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := p.encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("persistence: encode chunk %v: %w", c.Pos, err)
	}
	if err := p.db.Put(chunkKey(c.Pos), data, nil); err != nil {
		return fmt.Errorf("persistence: put chunk %v: %w", c.Pos, err)
	}
	return nil
}

// LoadMeta reads world_meta, returning ok=false if no world has ever been
// saved (a fresh world).
func (p *Provider) LoadMeta() (WorldMeta, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.db.Get(metaKey("world"), nil)
	if err == leveldb.ErrNotFound {
		return WorldMeta{}, false, nil
	}
	if err != nil {
		return WorldMeta{}, false, fmt.Errorf("persistence: get world meta: %w", err)
	}
	var m WorldMeta
	if err := p.decodeRecord(data, &m); err != nil {
		return WorldMeta{}, false, fmt.Errorf("persistence: decode world meta: %w", err)
	}
	return m, true, nil
}

// SaveMeta writes world_meta.
func (p *Provider) SaveMeta(m WorldMeta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := p.encodeRecord(m)
	if err != nil {
		return fmt.Errorf("persistence: encode world meta: %w", err)
	}
	if err := p.db.Put(metaKey("world"), data, nil); err != nil {
		return fmt.Errorf("persistence: put world meta: %w", err)
	}
	return nil
}

// LoadPlayer reads a player's persisted record, returning ok=false if this
// player has never been saved (a brand-new display name).
func (p *Provider) LoadPlayer(id uuid.UUID) (PlayerRecord, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.db.Get(playerKey(id), nil)
	if err == leveldb.ErrNotFound {
		return PlayerRecord{}, false, nil
	}
	if err != nil {
		return PlayerRecord{}, false, fmt.Errorf("persistence: get player %s: %w", id, err)
	}
	var rec PlayerRecord
	if err := p.decodeRecord(data, &rec); err != nil {
		return PlayerRecord{}, false, fmt.Errorf("persistence: decode player %s: %w", id, err)
	}
	return rec, true, nil
}

// SavePlayer writes a player's persisted record.
func (p *Provider) SavePlayer(rec PlayerRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := p.encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("persistence: encode player %s: %w", rec.ID, err)
	}
	if err := p.db.Put(playerKey(rec.ID), data, nil); err != nil {
		return fmt.Errorf("persistence: put player %s: %w", rec.ID, err)
	}
	return nil
}
