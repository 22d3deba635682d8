package worldgen

import (
	"math"
	"math/rand"

	"github.com/segmentio/fasthash/fnv1a"
)

// resourceSpec is one resource kind's region-level frequency and per-patch
// size/richness ranges.
type resourceSpec struct {
	Tile      string // catalog tile name the patch overlays onto the base biome tile
	Frequency float64
	RMin, RMax float64
	MinR, MaxR float64
}

// defaultResources are the three ore kinds the default catalog defines.
var defaultResources = []resourceSpec{
	{Tile: "iron_ore", Frequency: 0.00035, RMin: 4, RMax: 12, MinR: 0.3, MaxR: 0.9},
	{Tile: "copper_ore", Frequency: 0.00035, RMin: 4, RMax: 12, MinR: 0.3, MaxR: 0.9},
	{Tile: "coal_ore", Frequency: 0.0005, RMin: 5, RMax: 14, MinR: 0.3, MaxR: 0.8},
}

// patch is one resource deposit.
type patch struct {
	CenterX, CenterY int
	Radius           float64
	Richness         float64
	ShapeSeed        int64
	Tile             string
}

// regionKey identifies a RegionSize x RegionSize partition of the world.
type regionKey struct{ X, Y int32 }

// regionSeed derives the second-level RNG seed for a region, a pure
// function of (world_seed, region_x, region_y).
func regionSeed(worldSeed int64, rx, ry int32) int64 {
	h := fnv1a.HashUint64(uint64(worldSeed))
	h = fnv1a.AddUint64(h, uint64(uint32(rx)))
	h = fnv1a.AddUint64(h, uint64(uint32(ry)))
	return int64(h)
}

// generatePatches produces the patch list for one region: for each resource
// kind, the expected count is frequency * region_area with the fractional
// part resolved by a Bernoulli trial.
func generatePatches(worldSeed int64, rx, ry int32, regionSize int, resources []resourceSpec) []patch {
	r := rand.New(rand.NewSource(regionSeed(worldSeed, rx, ry)))
	area := float64(regionSize * regionSize)

	var out []patch
	for _, spec := range resources {
		expected := spec.Frequency * area
		count := int(expected)
		frac := expected - float64(count)
		if r.Float64() < frac {
			count++
		}
		for i := 0; i < count; i++ {
			cx := int(rx)*regionSize + r.Intn(regionSize)
			cy := int(ry)*regionSize + r.Intn(regionSize)
			out = append(out, patch{
				CenterX:   cx,
				CenterY:   cy,
				Radius:    spec.RMin + r.Float64()*(spec.RMax-spec.RMin),
				Richness:  spec.MinR + r.Float64()*(spec.MaxR-spec.MinR),
				ShapeSeed: r.Int63(),
				Tile:      spec.Tile,
			})
		}
	}
	return out
}

// patchCache memoizes per-region patch lists. Memoization is an
// implementation detail only — generatePatches stays a pure function of
// its arguments, so caching never changes what a query returns.
type patchCache struct {
	regionSize int
	resources  []resourceSpec
	worldSeed  int64
	cache      map[regionKey][]patch
}

func newPatchCache(worldSeed int64, regionSize int, resources []resourceSpec) *patchCache {
	return &patchCache{regionSize: regionSize, resources: resources, worldSeed: worldSeed, cache: make(map[regionKey][]patch)}
}

func (pc *patchCache) region(rx, ry int32) []patch {
	k := regionKey{X: rx, Y: ry}
	if p, ok := pc.cache[k]; ok {
		return p
	}
	p := generatePatches(pc.worldSeed, rx, ry, pc.regionSize, pc.resources)
	pc.cache[k] = p
	return p
}

// candidates returns every patch from the region enclosing (x, y) and its
// eight neighbours.
func (pc *patchCache) candidates(x, y int) []patch {
	rx := int32(floorDivInt(x, pc.regionSize))
	ry := int32(floorDivInt(y, pc.regionSize))
	var out []patch
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			out = append(out, pc.region(rx+dx, ry+dy)...)
		}
	}
	return out
}

func floorDivInt(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// resolve picks the winning patch at (x, y), if any, and whether placement
// rolls succeed there: winner-takes-proximity, then a hash-seeded
// Bernoulli placement roll.
func (pc *patchCache) resolve(x, y int, shapeNoise noiseField, detailNoise noiseField, noiseStrength float64) (string, bool) {
	var winner *patch
	var winnerProximity float64

	for _, p := range pc.candidates(x, y) {
		p := p
		effRadius := p.Radius * (1 + shapeNoise.Sample(float64(x), float64(y))*noiseStrength)
		if effRadius <= 0 {
			continue
		}
		dist := math.Hypot(float64(x-p.CenterX), float64(y-p.CenterY))
		if dist > effRadius {
			continue
		}
		proximity := 1 - dist/effRadius
		if winner == nil || proximity > winnerProximity {
			w := p
			winner = &w
			winnerProximity = proximity
		}
	}
	if winner == nil {
		return "", false
	}

	detail := detailNoise.Sample(float64(x), float64(y))
	prob := winner.Richness * (1 - 0.7*(1-winnerProximity)) * (0.85 + 0.15*detail)
	roll := hashUnit(winner.ShapeSeed, int64(x), int64(y))
	if roll < prob {
		return winner.Tile, true
	}
	return "", false
}
