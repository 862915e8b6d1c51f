package players

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/vergame/client/pkg/client"
	"github.com/vergame/client/pkg/protocol"
)

const (
	ModuleName = "players"

	DefaultOtherCharPrefab = "Prefabs/OtherChar"
	DefaultRosterSize      = 256
)

// DefaultSpawnPosition is where every remote character is placed. Position
// data in the spawnChar payload is not read.
var DefaultSpawnPosition = protocol.Vec3{X: -2.2, Y: -0.05, Z: 0.11}

// Visual is whatever the renderer returns for an instantiated prefab.
type Visual any

// VisualSpawner creates the on-screen representation of a character.
type VisualSpawner interface {
	Instantiate(prefab string, pos protocol.Vec3) (Visual, error)
}

// VisualSpawnerFunc adapts a function to VisualSpawner.
type VisualSpawnerFunc func(prefab string, pos protocol.Vec3) (Visual, error)

func (f VisualSpawnerFunc) Instantiate(prefab string, pos protocol.Vec3) (Visual, error) {
	return f(prefab, pos)
}

// Player is a remote character the server told us about.
type Player struct {
	ID        int
	SpawnedAt time.Time
	Visual    Visual
}

type Module struct {
	client *client.Client

	spawner VisualSpawner
	prefab  string
	roster  *lru.Cache[int, *Player]

	onSelfSpawn   []func(id int)
	onRemoteSpawn []func(p *Player)
}

// New creates the module. rosterSize bounds how many remote players are
// remembered; zero uses DefaultRosterSize.
func New(spawner VisualSpawner, prefab string, rosterSize int) *Module {
	if prefab == "" {
		prefab = DefaultOtherCharPrefab
	}
	if rosterSize <= 0 {
		rosterSize = DefaultRosterSize
	}
	roster, err := lru.New[int, *Player](rosterSize)
	if err != nil {
		panic(fmt.Sprintf("players: roster: %v", err))
	}
	return &Module{
		spawner: spawner,
		prefab:  prefab,
		roster:  roster,
	}
}

func (m *Module) Name() string { return ModuleName }

func (m *Module) Init(c *client.Client) {
	m.client = c
	c.Handle(protocol.CmdSpawnChar, m.handleSpawnChar)
}

func (m *Module) Reset() {
	m.roster.Purge()
}

// From retrieves the players module from a client.
func From(c *client.Client) *Module {
	mod := c.Module(ModuleName)
	if mod == nil {
		return nil
	}
	return mod.(*Module)
}

// events

func (m *Module) OnSelfSpawn(cb func(id int)) { m.onSelfSpawn = append(m.onSelfSpawn, cb) }
func (m *Module) OnRemoteSpawn(cb func(p *Player)) {
	m.onRemoteSpawn = append(m.onRemoteSpawn, cb)
}

func (m *Module) handleSpawnChar(msg protocol.Message) error {
	d, ok := msg.(protocol.SpawnChar)
	if !ok {
		return fmt.Errorf("spawnChar: unexpected message %T", msg)
	}
	log := m.client.Logger.With(zap.Int("char_id", d.Char.ID))

	if d.Char.ID == m.client.Identity() {
		log.Info("[SPAWN] spawn message was myself")
		for _, cb := range m.onSelfSpawn {
			cb(d.Char.ID)
		}
		return nil
	}

	if m.spawner == nil {
		return fmt.Errorf("spawnChar %d: no visual spawner", d.Char.ID)
	}
	visual, err := m.spawner.Instantiate(m.prefab, DefaultSpawnPosition)
	if err != nil {
		return fmt.Errorf("spawnChar %d: instantiate %s: %w", d.Char.ID, m.prefab, err)
	}
	log.Info("[SPAWN] remote character shown", zap.String("prefab", m.prefab))

	p := &Player{ID: d.Char.ID, SpawnedAt: time.Now(), Visual: visual}
	m.roster.Add(p.ID, p)
	for _, cb := range m.onRemoteSpawn {
		cb(p)
	}
	return nil
}

// GetPlayer returns a remembered remote player, or nil.
func (m *Module) GetPlayer(id int) *Player {
	p, _ := m.roster.Peek(id)
	return p
}

// GetAllPlayers returns remembered remote players, oldest first.
func (m *Module) GetAllPlayers() []*Player {
	return m.roster.Values()
}

// GetPlayerCount returns the number of remembered remote players.
func (m *Module) GetPlayerCount() int {
	return m.roster.Len()
}
