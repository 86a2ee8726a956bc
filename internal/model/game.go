package model

import (
	"fmt"
	"time"

	"github.com/skoryh/dogtown/internal/lootgen"
)

// RetiredPlayerFunc observes a player leaving the game. It runs inside
// UpdateState; implementations must not re-enter the game.
type RetiredPlayerFunc func(p *Player)

// lootGenConfig is the per-session generator template.
type lootGenConfig struct {
	basePeriod  time.Duration
	probability float64
}

// Game owns the map set and the per-map sessions. It has no locking and
// no loop of its own; the application gateway serializes every call.
type Game struct {
	maps       []*Map
	mapIndex   map[string]int
	sessions   []*Session
	lootCfg    *lootGenConfig
	lootRandom lootgen.RandomSource
	retireTime float64
	onRetired  RetiredPlayerFunc
}

// NewGame creates an empty game with the default retirement timeout.
func NewGame() *Game {
	return &Game{
		mapIndex:   make(map[string]int),
		retireTime: 60.0,
	}
}

// AddMap registers a map. Map ids are unique.
func (g *Game) AddMap(m *Map) error {
	if _, ok := g.mapIndex[m.ID()]; ok {
		return fmt.Errorf("map %q already exists", m.ID())
	}
	g.mapIndex[m.ID()] = len(g.maps)
	g.maps = append(g.maps, m)
	return nil
}

// Maps returns the maps in registration order.
func (g *Game) Maps() []*Map { return g.maps }

// FindMap returns the map with the given id, or nil.
func (g *Game) FindMap(id string) *Map {
	if idx, ok := g.mapIndex[id]; ok {
		return g.maps[idx]
	}
	return nil
}

func (g *Game) Sessions() []*Session { return g.sessions }

// SetLootGeneratorConfig installs the spawn template applied to every
// session created afterwards. basePeriod is in seconds.
func (g *Game) SetLootGeneratorConfig(basePeriod float64, probability float64) {
	g.lootCfg = &lootGenConfig{
		basePeriod:  time.Duration(basePeriod * float64(time.Second)),
		probability: probability,
	}
}

// SetLootRandomSource overrides the random source handed to session loot
// generators. Tests only; nil restores the default.
func (g *Game) SetLootRandomSource(fn lootgen.RandomSource) { g.lootRandom = fn }

// DogRetirementTime is the idle timeout in seconds after which a player
// retires.
func (g *Game) DogRetirementTime() float64 { return g.retireTime }
func (g *Game) SetDogRetirementTime(seconds float64) { g.retireTime = seconds }

// SetRetiredPlayerCallback installs the retirement observer.
func (g *Game) SetRetiredPlayerCallback(fn RetiredPlayerFunc) { g.onRetired = fn }

func (g *Game) onPlayerRetired(p *Player) {
	if g.onRetired != nil {
		g.onRetired(p)
	}
}

// FindSessionByMapID returns the live session for a map, or nil.
func (g *Game) FindSessionByMapID(mapID string) *Session {
	for _, s := range g.sessions {
		if s.Map().ID() == mapID {
			return s
		}
	}
	return nil
}

// GetOrCreateSession returns the session for mapID, creating it on first
// use. Each session gets its own loot generator so spawn droughts are
// tracked per map.
func (g *Game) GetOrCreateSession(mapID string) (*Session, error) {
	if s := g.FindSessionByMapID(mapID); s != nil {
		return s, nil
	}

	m := g.FindMap(mapID)
	if m == nil {
		return nil, fmt.Errorf("map %q not found", mapID)
	}

	var gen *lootgen.Generator
	if g.lootCfg != nil {
		gen = lootgen.New(g.lootCfg.basePeriod, g.lootCfg.probability, g.lootRandom)
	}

	s := newSession(mapID+"_session", m, g, gen)
	g.sessions = append(g.sessions, s)
	return s, nil
}

// FindPlayerByToken scans all sessions. The gateway's hash index answers
// the hot path; this is the authoritative fallback.
func (g *Game) FindPlayerByToken(token string) (*Player, *Session) {
	for _, s := range g.sessions {
		if p := s.FindPlayerByToken(token); p != nil {
			return p, s
		}
	}
	return nil, nil
}

// UpdateState advances every session by dt seconds.
func (g *Game) UpdateState(dt float64) {
	for _, s := range g.sessions {
		s.UpdateState(dt)
	}
}
