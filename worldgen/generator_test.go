package worldgen

import (
	"testing"

	"github.com/ironfoundry/forge/catalog"
)

func TestGeneratorDeterministic(t *testing.T) {
	cat := catalog.DefaultCatalog()
	g1 := New(cat, 42)
	g2 := New(cat, 42)

	for _, p := range [][2]int{{0, 0}, {100, -200}, {-5000, 5000}, {128, 128}, {-1, -1}} {
		a := g1.TileAt(p[0], p[1])
		b := g2.TileAt(p[0], p[1])
		if a != b {
			t.Fatalf("TileAt(%d,%d) not deterministic: %d vs %d", p[0], p[1], a, b)
		}
	}
}

func TestGeneratorDifferentSeedsDiffer(t *testing.T) {
	cat := catalog.DefaultCatalog()
	g1 := New(cat, 1)
	g2 := New(cat, 2)

	differs := false
	for x := 0; x < 2000; x += 17 {
		for y := 0; y < 2000; y += 23 {
			if g1.TileAt(x, y) != g2.TileAt(x, y) {
				differs = true
			}
		}
	}
	if !differs {
		t.Fatal("expected different seeds to produce different terrain somewhere in a 2000x2000 sample")
	}
}

func TestSpawnAreaWalkable(t *testing.T) {
	cat := catalog.DefaultCatalog()
	g := New(cat, 7)

	for x := -200; x <= 200; x += 40 {
		for y := -200; y <= 200; y += 40 {
			id := g.TileAt(x, y)
			tile, ok := cat.Tile(int(id))
			if !ok {
				t.Fatalf("TileAt(%d,%d) returned unknown tile id %d", x, y, id)
			}
			if !tile.Walkable {
				t.Errorf("spawn area tile (%d,%d) = %s is not walkable", x, y, tile.Name)
			}
		}
	}
}

func TestResourcePatchesAppearSomewhere(t *testing.T) {
	cat := catalog.DefaultCatalog()
	g := New(cat, 99)

	found := map[string]bool{}
	for x := -2000; x < 2000; x += 3 {
		for y := -2000; y < 2000; y += 3 {
			id := g.TileAt(x, y)
			tile, _ := cat.Tile(int(id))
			if tile.ResourceItem != "" {
				found[tile.Name] = true
			}
		}
	}
	if len(found) == 0 {
		t.Fatal("expected at least one resource tile in a 4000x4000 sample")
	}
}
