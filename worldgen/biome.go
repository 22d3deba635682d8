package worldgen

// biome is one leaf of the nine-biome classification decision tree.
// BaseTile is always produced; SecondaryTile replaces it with probability
// SecondaryChance, decided by a positional hash so the choice stays a
// pure function of (x, y).
type biome struct {
	Name            string
	BaseTile        string
	SecondaryTile   string
	SecondaryChance float64
}

var (
	biomeOcean     = biome{Name: "OCEAN", BaseTile: "water"}
	biomeLake      = biome{Name: "LAKE", BaseTile: "water"}
	biomeBeach     = biome{Name: "BEACH", BaseTile: "sand"}
	biomePlains    = biome{Name: "PLAINS", BaseTile: "grass", SecondaryTile: "dirt", SecondaryChance: 0.08}
	biomeForest    = biome{Name: "FOREST", BaseTile: "grass", SecondaryTile: "dirt", SecondaryChance: 0.3}
	biomeDesert    = biome{Name: "DESERT", BaseTile: "sand", SecondaryTile: "stone", SecondaryChance: 0.05}
	biomeSwamp     = biome{Name: "SWAMP", BaseTile: "dirt", SecondaryTile: "grass", SecondaryChance: 0.25}
	biomeMountains = biome{Name: "MOUNTAINS", BaseTile: "stone", SecondaryTile: "snow", SecondaryChance: 0.2}
	biomeTundra    = biome{Name: "TUNDRA", BaseTile: "snow", SecondaryTile: "stone", SecondaryChance: 0.1}
)

// classify walks the fixed decision tree over (elevation, moisture,
// temperature).
func classify(elevation, moisture, temperature, seaLevel, beachThreshold, mountainThreshold float64) biome {
	switch {
	case elevation < seaLevel-0.15:
		return biomeOcean
	case elevation < seaLevel:
		return biomeLake
	case elevation < seaLevel+beachThreshold:
		return biomeBeach
	case elevation > mountainThreshold:
		if temperature < -0.2 {
			return biomeTundra
		}
		return biomeMountains
	case moisture > 0.35 && temperature > 0.1:
		return biomeSwamp
	case moisture < -0.3 && temperature > 0.2:
		return biomeDesert
	case moisture > 0.1:
		return biomeForest
	default:
		return biomePlains
	}
}

// resolveTile picks BaseTile or SecondaryTile for a concrete world
// coordinate, using the positional hash so the same tile is produced every
// time it's queried.
func (b biome) resolveTile(seed int64, x, y int) string {
	if b.SecondaryTile == "" {
		return b.BaseTile
	}
	if hashUnit(seed, int64(x), int64(y), hashSaltSecondary) < b.SecondaryChance {
		return b.SecondaryTile
	}
	return b.BaseTile
}

const hashSaltSecondary = 0x5EC0DA
