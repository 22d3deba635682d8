// Package server wires the catalog, world store, simulation engine,
// broadcast router and session layer into one running game server
// a single Config.New call assembles every long-lived
// component and hands back a ready-to-Listen *Server.
package server

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/ironfoundry/forge/broadcast"
	"github.com/ironfoundry/forge/catalog"
	"github.com/ironfoundry/forge/persistence"
	"github.com/ironfoundry/forge/session"
	"github.com/ironfoundry/forge/sim"
	"github.com/ironfoundry/forge/world"
	"github.com/ironfoundry/forge/worldgen"
)

// Allower decides whether a display name may join the server (an
// operator-maintained whitelist). A nil Allower on Config allows everyone.
type Allower interface {
	Allow(displayName string) (reason string, ok bool)
}

type allower struct{}

func (allower) Allow(string) (string, bool) { return "", true }

// Config holds everything needed to construct a Server. Fields left zero
// take the defaults commented below.
type Config struct {
	// Log is the Logger used throughout the server. Defaults to
	// slog.Default().
	Log *slog.Logger

	// Address is the host:port the TCP listener binds to.
	// Defaults to ":9999".
	Address string

	// CatalogPath is the filesystem path to a published catalog snapshot
	// (modelled, per catalog.LoadRemote, as a TOML file path standing in
	// for the MONGO_URI-addressed admin store, since no document-database
	// driver is part of this repository's stack). Empty uses
	// catalog.DefaultCatalog.
	CatalogPath string

	// SaveDir enables LevelDB-backed persistence when non-empty. Left
	// empty, the server runs fully in memory: nothing loads or survives a
	// restart.
	SaveDir string

	// Seed is the world generation seed, used only when no save exists
	// yet; an existing save's seed from world_meta always wins so a
	// restart never regenerates different terrain.
	Seed int64

	// FlushInterval is how often dirty chunks and world_meta are
	// persisted. Zero uses the catalog's FlushInterval constant, itself
	// defaulting to 30 seconds.
	FlushInterval time.Duration

	// ChunkEvictRadius: chunks further than this many chunks (Chebyshev)
	// from every connected player are evicted on each flush. Zero uses
	// the catalog's ChunkEvictRadius constant.
	ChunkEvictRadius int32

	// Allower gates AUTH against a whitelist. Nil allows everyone.
	Allower Allower
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Address == "" {
		conf.Address = ":9999"
	}
	if conf.Allower == nil {
		conf.Allower = allower{}
	}
	return conf
}

// New wires the full dependency graph and returns a Server. It does not
// yet bind a socket or start the simulation loop — call Server.Listen and
// then Server.Run for that: stop accepting, send no more updates, run a
// final flush, close sockets describes the shutdown half of that same
// lifecycle.
func (conf Config) New() (*Server, error) {
	conf = conf.withDefaults()
	log := conf.Log

	cat := catalog.DefaultCatalog()
	if conf.CatalogPath != "" {
		remote, err := catalog.LoadRemote(conf.CatalogPath, log)
		if err != nil {
			log.Warn("load remote catalog failed, falling back to defaults", "path", conf.CatalogPath, "error", err)
		} else {
			cat = remote
		}
	}

	var persist *persistence.Provider
	var prov world.Provider = noopProvider{}
	seed := conf.Seed
	var nextID uint64
	var tick int64
	if conf.SaveDir != "" {
		p, err := persistence.Open(conf.SaveDir, log)
		if err != nil {
			return nil, fmt.Errorf("server: open save directory %s: %w", conf.SaveDir, err)
		}
		persist = p
		prov = p
		if meta, ok, err := p.LoadMeta(); err != nil {
			log.Warn("load world metadata failed, starting fresh", "error", err)
		} else if ok {
			seed, nextID, tick = meta.Seed, meta.NextEntityID, meta.Tick
		}
	}

	gen := worldgen.New(cat, seed)
	store := world.NewStore(cat, gen, prov, log)
	store.RestoreNextEntityID(nextID)
	store.SetTick(tick)

	mgr := session.NewManager()
	router := broadcast.NewRouter(mgr, log)

	engine := sim.NewEngine(store, cat, log, router.EntitiesUpdated)
	engine.SetEntityListener(router)

	handler := session.NewHandler(mgr, engine, cat, persist, log)
	handler.Hooks = session.Hooks{OnJoin: router.Join, OnMove: router.Move, OnLeave: router.Leave, OnChat: router.Chat}
	handler.Allower = conf.Allower

	flush := conf.FlushInterval
	if flush <= 0 {
		flush = time.Duration(cat.Constants.FlushInterval) * time.Second
		if flush <= 0 {
			flush = 30 * time.Second
		}
	}
	evictRadius := conf.ChunkEvictRadius
	if evictRadius <= 0 {
		evictRadius = int32(cat.Constants.ChunkEvictRadius)
		if evictRadius <= 0 {
			evictRadius = 8
		}
	}

	return &Server{
		log:         log,
		address:     conf.Address,
		cat:         cat,
		store:       store,
		persist:     persist,
		engine:      engine,
		router:      router,
		mgr:         mgr,
		handler:     handler,
		seed:        seed,
		flushEvery:  flush,
		evictRadius: evictRadius,
	}, nil
}

// noopProvider is used when persistence is disabled: every chunk is
// freshly generated and nothing is ever saved, matching a server that
// runs fully in memory.
type noopProvider struct{}

func (noopProvider) LoadChunk(world.ChunkPos) (*world.Chunk, bool, error) { return nil, false, nil }
func (noopProvider) SaveChunk(*world.Chunk) error                        { return nil }

// UserConfig is the on-disk operator configuration: a flat,
// toml-friendly counterpart to Config that Config() turns into the
// fully-wired in-process shape.
type UserConfig struct {
	Network struct {
		// Address is the host:port the TCP listener binds to.
		Address string
	}
	World struct {
		// SaveData controls whether the LevelDB persistence provider is
		// used. If false, the server runs entirely in memory.
		SaveData bool
		// Folder is the save directory used when SaveData is true.
		Folder string
		// Seed seeds world generation for a fresh world.
		Seed int64
		// FlushIntervalSeconds overrides the catalog's FlushInterval
		// constant when non-zero.
		FlushIntervalSeconds int
	}
	Catalog struct {
		// RemotePath, if set, is passed to catalog.LoadRemote; otherwise
		// the embedded default catalog is used.
		RemotePath string
	}
	Whitelist struct {
		Enabled bool
		File    string
	}
}

// DefaultUserConfig returns an operator configuration with sensible
// defaults filled in.
func DefaultUserConfig() UserConfig {
	var c UserConfig
	c.Network.Address = ":9999"
	c.World.SaveData = true
	c.World.Folder = "world"
	c.Whitelist.File = "whitelist.toml"
	return c
}

// Config converts a UserConfig into a Config ready for New, opening the
// whitelist file as a side effect.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:              log,
		Address:          uc.Network.Address,
		CatalogPath:      uc.Catalog.RemotePath,
		Seed:             uc.World.Seed,
		ChunkEvictRadius: 0,
	}
	if uc.World.FlushIntervalSeconds > 0 {
		conf.FlushInterval = time.Duration(uc.World.FlushIntervalSeconds) * time.Second
	}
	if uc.World.SaveData {
		conf.SaveDir = uc.World.Folder
	}

	whitelistFile := uc.Whitelist.File
	if whitelistFile == "" {
		whitelistFile = "whitelist.toml"
	}
	wl, err := LoadWhitelist(whitelistFile)
	if err != nil {
		return conf, fmt.Errorf("load whitelist: %w", err)
	}
	wl.SetEnabled(uc.Whitelist.Enabled)
	conf.Allower = wl
	return conf, nil
}

// ReadUserConfig reads the operator configuration at path, creating it
// with DefaultUserConfig's values if it doesn't exist yet: the server is
// driven by a small operator-edited config rather than a service
// registry.
func ReadUserConfig(path string) (UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return UserConfig{}, fmt.Errorf("read config: %w", err)
		}
		uc := DefaultUserConfig()
		encoded, mErr := toml.Marshal(uc)
		if mErr != nil {
			return UserConfig{}, fmt.Errorf("encode default config: %w", mErr)
		}
		if wErr := os.WriteFile(path, encoded, 0644); wErr != nil {
			return UserConfig{}, fmt.Errorf("write default config: %w", wErr)
		}
		return uc, nil
	}
	uc := DefaultUserConfig()
	if err := toml.Unmarshal(data, &uc); err != nil {
		return UserConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return uc, nil
}
