// Package worldgen implements the deterministic biome and resource-patch
// tile generator: every tile kind is a pure function of (world seed, x,
// y), so two generators constructed with the same seed produce
// byte-identical worlds and nothing here is ever persisted.
package worldgen

import (
	"math"

	"github.com/ironfoundry/forge/catalog"
)

// Generator implements world.Generator: TileAt(x, y int) int32.
type Generator struct {
	cat  *catalog.Catalog
	seed int64

	elevation   noiseField
	moisture    noiseField
	temperature noiseField
	detail      noiseField
	shape       noiseField

	spawnRadius       float64
	seaLevel          float64
	beachThreshold    float64
	mountainThreshold float64
	regionSize        int
	noiseStrength     float64

	patches *patchCache
}

// New builds a Generator for the given world seed, reading tunables from
// the catalog's Constants: no hidden config outside the catalog.
func New(cat *catalog.Catalog, seed int64) *Generator {
	g := &Generator{
		cat:  cat,
		seed: seed,

		// Octave counts and base frequencies: elevation 6 octaves/low
		// frequency, moisture 4, temperature 3, detail 1/high frequency.
		elevation:   newNoiseField(seed+1, 6, 1.0/220, 0.5),
		moisture:    newNoiseField(seed+2, 4, 1.0/180, 0.5),
		temperature: newNoiseField(seed+3, 3, 1.0/260, 0.55),
		detail:      newNoiseField(seed+4, 1, 1.0/6, 0.5),
		shape:       newNoiseField(seed+5, 2, 1.0/9, 0.5),

		spawnRadius:       float64(cat.Constants.SpawnRadius),
		seaLevel:          cat.Constants.SeaLevel,
		beachThreshold:    cat.Constants.BeachThreshold,
		mountainThreshold: cat.Constants.MountainThreshold,
		regionSize:        cat.Constants.RegionSize,
		noiseStrength:     0.35,
	}
	g.patches = newPatchCache(seed, g.regionSize, defaultResources)
	return g
}

// TileAt returns the catalog tile kind ID at world coordinate (x, y).
func (g *Generator) TileAt(x, y int) int32 {
	fx, fy := float64(x), float64(y)

	elevation := g.elevation.Sample(fx, fy)
	elevation += g.spawnBoost(fx, fy)
	moisture := g.moisture.Sample(fx, fy)
	temperature := g.temperature.Sample(fx, fy)

	b := classify(elevation, moisture, temperature, g.seaLevel, g.beachThreshold, g.mountainThreshold)
	tileName := b.resolveTile(g.seed, x, y)

	if b.Name != "OCEAN" && b.Name != "LAKE" {
		if resourceTile, ok := g.patches.resolve(x, y, g.shape, g.detail, g.noiseStrength); ok {
			tileName = resourceTile
		}
	}

	t, ok := g.cat.TileByName(tileName)
	if !ok {
		t, _ = g.cat.TileByName("grass")
	}
	return int32(t.ID)
}

// spawnBoost raises elevation quadratically within the spawn radius so
// spawn is guaranteed walkable.
func (g *Generator) spawnBoost(x, y float64) float64 {
	if g.spawnRadius <= 0 {
		return 0
	}
	dist := distance(x, y, 0, 0)
	if dist >= g.spawnRadius {
		return 0
	}
	t := 1 - dist/g.spawnRadius
	return 0.6 * t * t
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return math.Sqrt(dx*dx + dy*dy)
}
