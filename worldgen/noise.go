package worldgen

import (
	"math"

	"github.com/segmentio/fasthash/fnv1a"
)

// noiseField is a hash-lattice value-noise generator summed over several
// octaves, standing in for a simplex/perlin implementation: built on the
// standard library plus the hash already used for resource placement
// (fasthash/fnv1a) rather than vendoring an unrelated noise library for a
// single primitive; see DESIGN.md.
type noiseField struct {
	seed        int64
	octaves     int
	frequency   float64
	persistence float64
}

func newNoiseField(seed int64, octaves int, frequency, persistence float64) noiseField {
	return noiseField{seed: seed, octaves: octaves, frequency: frequency, persistence: persistence}
}

// Sample returns a value in roughly [-1, 1] for world coordinate (x, y).
func (n noiseField) Sample(x, y float64) float64 {
	var total, amplitude, freq, maxAmp float64
	amplitude = 1
	freq = n.frequency
	for o := 0; o < n.octaves; o++ {
		total += lattice2D(n.seed, x*freq, y*freq) * amplitude
		maxAmp += amplitude
		amplitude *= n.persistence
		freq *= 2
	}
	if maxAmp == 0 {
		return 0
	}
	return total / maxAmp
}

// lattice2D is bilinearly-interpolated value noise over an integer lattice,
// each corner's value coming from hashLattice.
func lattice2D(seed int64, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	x1, y1 := x0+1, y0+1

	sx := smoothstep(x - x0)
	sy := smoothstep(y - y0)

	v00 := hashLattice(seed, int64(x0), int64(y0))
	v10 := hashLattice(seed, int64(x1), int64(y0))
	v01 := hashLattice(seed, int64(x0), int64(y1))
	v11 := hashLattice(seed, int64(x1), int64(y1))

	ix0 := lerp(v00, v10, sx)
	ix1 := lerp(v01, v11, sx)
	return lerp(ix0, ix1, sy)
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }
func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// hashLattice returns a deterministic value in [-1, 1] for an integer
// lattice point, purely a function of (seed, x, y).
func hashLattice(seed int64, x, y int64) float64 {
	h := fnv1a.HashUint64(uint64(seed))
	h = fnv1a.AddUint64(h, uint64(x))
	h = fnv1a.AddUint64(h, uint64(y))
	// Top 53 bits give a uniform mantissa's worth of entropy.
	return float64(h>>11)/float64(1<<53)*2 - 1
}

// hashUnit returns a deterministic value in [0, 1) for an arbitrary set of
// integer coordinates, used for biome secondary-tile selection and the
// final hash-seeded placement roll — purely a function of position.
func hashUnit(seed int64, coords ...int64) float64 {
	h := fnv1a.HashUint64(uint64(seed))
	for _, c := range coords {
		h = fnv1a.AddUint64(h, uint64(c))
	}
	return float64(h>>11) / float64(1<<53)
}
