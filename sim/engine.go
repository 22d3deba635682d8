package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/world"
)

// ExecFunc performs one synchronised transaction against the Engine's
// Store. It is only ever called from the Engine's own goroutine: the
// simulation is single-writer.
type ExecFunc func(*Engine)

// transaction is one item on Engine's queue. The simulation tick itself is
// queued as just another transaction, so ticks and player actions never
// interleave unpredictably.
type transaction interface {
	run(e *Engine)
}

type execTransaction struct {
	f    ExecFunc
	done chan struct{}
}

func (t execTransaction) run(e *Engine) {
	t.f(e)
	close(t.done)
}

type tickTransaction struct{}

func (tickTransaction) run(e *Engine) { e.step() }

// DirtyListener is notified with every entity that changed state during a
// tick or transaction, for the broadcast router to fan out.
type DirtyListener func(tick int64, dirty []*world.Entity)

// EntityListener is notified of entities placed and destroyed during a
// tick or transaction, so the broadcast router can tell ENTITY_ADD and
// ENTITY_REMOVE apart from a plain ENTITY_UPDATE.
type EntityListener interface {
	EntityAdded(tick int64, e *world.Entity)
	EntityRemoved(tick int64, e *world.Entity)
}

// Engine owns a world.Store and runs the fixed-rate tick simulation plus
// every queued player action, in one strict total order.
type Engine struct {
	Store *world.Store
	cat   *catalog.Catalog
	log   *slog.Logger

	queue    chan transaction
	tick     int64
	tickRate int

	onDirty  DirtyListener
	onEntity EntityListener

	dirtyThisTick map[uint64]*world.Entity
	addedThisTick map[uint64]struct{}
}

// NewEngine constructs an Engine. tickRate is read from the catalog's
// Constants.WorldTickRate (default 60).
func NewEngine(store *world.Store, cat *catalog.Catalog, log *slog.Logger, onDirty DirtyListener) *Engine {
	if log == nil {
		log = slog.Default()
	}
	rate := cat.Constants.WorldTickRate
	if rate <= 0 {
		rate = 60
	}
	return &Engine{
		Store:         store,
		cat:           cat,
		log:           log,
		queue:         make(chan transaction, 256),
		tickRate:      rate,
		onDirty:       onDirty,
		dirtyThisTick: make(map[uint64]*world.Entity),
		addedThisTick: make(map[uint64]struct{}),
	}
}

// SetEntityListener registers the callback notified of entities placed and
// destroyed (ENTITY_ADD/ENTITY_REMOVE). Call before Run; not safe to
// change concurrently with a running Engine.
func (e *Engine) SetEntityListener(l EntityListener) { e.onEntity = l }

// Tick returns the current simulation tick counter.
func (e *Engine) Tick() int64 { return e.tick }

// Catalog returns the immutable content catalog the Engine was built with.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Exec queues f to run with exclusive access to the Store, returning a
// channel closed once it has run. Safe to call from any goroutine.
func (e *Engine) Exec(f ExecFunc) <-chan struct{} {
	c := make(chan struct{})
	e.queue <- execTransaction{f: f, done: c}
	return c
}

// Run drives the transaction queue and the tick ticker until ctx is
// cancelled. It blocks; call it from its own goroutine — the server
// orchestrator runs this under errgroup alongside the accept loop; the
// periodic flush runs separately, on the persistence Flusher's goroutine.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case e.queue <- tickTransaction{}:
			default:
				e.log.Warn("tick queue full, dropping a tick", "tick", e.tick)
			}
		case tx := <-e.queue:
			tx.run(e)
		}
	}
}

// MarkEntityDirty flags ent as changed by something outside the normal
// per-tick machine update — an inventory transfer, for instance — so the
// broadcast router's ENTITY_UPDATE fan-out picks it up on the next flush.
// Only safe to call from within a running transaction.
func (e *Engine) MarkEntityDirty(ent *world.Entity) { e.markDirty(ent) }

// markDirty records e as changed during the transaction currently running,
// for the post-step dirty-set flush to the broadcast router.
func (e *Engine) markDirty(ent *world.Entity) {
	e.Store.MarkDirty(ent)
	e.dirtyThisTick[ent.ID] = ent
}

// markAdded records ent as newly placed this tick, notifying the entity
// listener immediately (BUILD responses are meant to feel immediate) and
// excluding it from the plain dirty-update batch so a freshly built entity
// never gets both an ENTITY_ADD and an ENTITY_UPDATE in the same flush.
func (e *Engine) markAdded(ent *world.Entity) {
	e.addedThisTick[ent.ID] = struct{}{}
	if e.onEntity != nil {
		e.onEntity.EntityAdded(e.tick, ent)
	}
}

// markRemoved notifies the entity listener that ent no longer exists. ent
// still carries its last position, which the broadcast router needs to
// know which subscribers to tell (the Store itself has already forgotten
// it by the time this runs).
func (e *Engine) markRemoved(ent *world.Entity) {
	delete(e.dirtyThisTick, ent.ID)
	delete(e.addedThisTick, ent.ID)
	if e.onEntity != nil {
		e.onEntity.EntityRemoved(e.tick, ent)
	}
}

// step runs one simulation tick: every loaded entity's kind-specific
// update, then flushes the accumulated dirty set to the broadcast
// listener.
func (e *Engine) step() {
	e.tick++
	e.Store.SetTick(e.tick)

	e.Store.AllChunks(func(c *world.Chunk) {
		for _, ent := range c.Entities {
			for _, d := range stepEntity(e.Store, e.cat, ent) {
				e.markDirty(d)
			}
		}
	})

	e.flushDirty()
}

func (e *Engine) flushDirty() {
	if len(e.dirtyThisTick) == 0 {
		return
	}
	batch := make([]*world.Entity, 0, len(e.dirtyThisTick))
	for id, ent := range e.dirtyThisTick {
		if _, justAdded := e.addedThisTick[id]; justAdded {
			continue
		}
		batch = append(batch, ent)
		ent.Dirty = false
	}
	for k := range e.dirtyThisTick {
		delete(e.dirtyThisTick, k)
	}
	for k := range e.addedThisTick {
		delete(e.addedThisTick, k)
	}
	if e.onDirty != nil && len(batch) > 0 {
		e.onDirty(e.tick, batch)
	}
}
