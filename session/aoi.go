package session

import (
	"github.com/ironfoundry/forge/proto"
	"github.com/ironfoundry/forge/sim"
	"github.com/ironfoundry/forge/world"
)

// recomputeAoI rebuilds s's subscribed-chunk set around its current
// position: every chunk within the catalog's view distance, Chebyshev
// distance, of the player's chunk. Newly entered chunks are streamed as
// CHUNK_DATA; chunks that fall out of range are simply dropped from the
// set with no desubscribe message — the client ages them out on its own.
func recomputeAoI(e *sim.Engine, s *Session) {
	view := int32(e.Catalog().Constants.ViewDistance)
	center := world.ChunkPosFor(int(s.X), int(s.Y))

	span := int(2*view + 1)
	next := make(map[world.ChunkPos]struct{}, span*span)
	for dx := -view; dx <= view; dx++ {
		for dy := -view; dy <= view; dy++ {
			pos := world.ChunkPos{X: center.X + dx, Y: center.Y + dy}
			next[pos] = struct{}{}
			if _, already := s.AoI[pos]; !already {
				sendChunk(e, s, pos)
			}
		}
	}
	s.AoI = next
	e.Store.TouchPlayerChunk(center)
}

// sendChunk loads (or generates) the chunk at pos and streams it as a
// CHUNK_DATA message.
func sendChunk(e *sim.Engine, s *Session, pos world.ChunkPos) {
	c := e.Store.GetChunk(pos.X, pos.Y)
	s.Send(proto.CHUNK_DATA, chunkDataMsg(c))
}
