package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml"
)

// snapshotFile mirrors the subset of Catalog that the admin content store
// can override. It is the on-disk shape of a catalog snapshot, loaded via
// LoadRemote. Tables and entries absent from the file keep their
// embedded-default values, so an operator can override a handful of
// recipes without republishing every table. An entry present in the file
// replaces the default entry whole, and a [constants] table replaces all
// constants: fields omitted there are zero, not the defaults.
type snapshotFile struct {
	Tiles            []TileKind                 `toml:"tiles"`
	Entities         []EntityKind                `toml:"entities"`
	Items            []Item                      `toml:"items"`
	FurnaceRecipes   map[string]FurnaceRecipe    `toml:"furnace_recipes"`
	AssemblerRecipes map[string]AssemblerRecipe  `toml:"assembler_recipes"`
	PlacementRules   map[string]PlacementRule    `toml:"placement_rules"`
	Constants        *Constants                  `toml:"constants"`
}

// LoadRemote reads a catalog snapshot from the admin content store. A
// MONGO_URI environment variable names that store; since no document
// database driver is part of this repository's dependency surface, the
// admin tool is modelled as publishing a TOML snapshot file, and uri is the
// filesystem path to it. LoadRemote never returns a partial catalog: on
// any error it returns the error and the caller is expected to fall back
// to DefaultCatalog.
func LoadRemote(uri string, log *slog.Logger) (*Catalog, error) {
	if log == nil {
		log = slog.Default()
	}
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("read catalog snapshot: %w", err)
	}
	var snap snapshotFile
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot: %w", err)
	}

	c := DefaultCatalog()
	for _, t := range snap.Tiles {
		c.Tiles[t.ID] = t
		c.TilesByName[t.Name] = t
	}
	for _, e := range snap.Entities {
		c.Entities[e.ID] = e
		c.EntitiesByName[e.Name] = e
	}
	for _, it := range snap.Items {
		c.Items[it.Name] = it
	}
	for k, v := range snap.FurnaceRecipes {
		c.FurnaceRecipes[k] = v
	}
	for k, v := range snap.AssemblerRecipes {
		c.AssemblerRecipes[k] = v
	}
	for k, v := range snap.PlacementRules {
		c.PlacementRules[k] = v
	}
	if snap.Constants != nil {
		c.Constants = *snap.Constants
	}

	log.Info("loaded remote content catalog", "source", uri,
		"tiles", len(c.Tiles), "entities", len(c.Entities), "items", len(c.Items))
	return c, nil
}

// LoadFromEnv resolves the catalog from the environment: if MONGO_URI is
// set and readable, use it; otherwise fall back to embedded defaults.
func LoadFromEnv(log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		log.Info("MONGO_URI not set, using embedded content catalog")
		return DefaultCatalog()
	}
	c, err := LoadRemote(uri, log)
	if err != nil {
		log.Warn("content store unreachable, falling back to embedded catalog", "error", err)
		return DefaultCatalog()
	}
	return c
}
