package model

import (
	"math"
	"time"

	"github.com/skoryh/dogtown/internal/collision"
	"github.com/skoryh/dogtown/internal/lootgen"
)

// Capture radii for the collision providers.
const (
	dogGatherWidth = 0.6
	officeWidth    = 0.5
)

// idleEpsilon: below this speed magnitude the dog counts as standing.
const idleEpsilon = 1e-10

// Session is the live world of one map: its players and the loot on the
// ground. Sessions are created on first join and live for the process.
type Session struct {
	id         string
	gameMap    *Map
	game       *Game
	players    []*Player
	loots      []Loot
	nextLootID int
	lootGen    *lootgen.Generator
}

func newSession(id string, m *Map, game *Game, gen *lootgen.Generator) *Session {
	return &Session{id: id, gameMap: m, game: game, lootGen: gen}
}

func (s *Session) ID() string { return s.id }
func (s *Session) Map() *Map { return s.gameMap }
func (s *Session) Players() []*Player { return s.players }
func (s *Session) Loots() []Loot { return s.loots }
func (s *Session) NextLootID() int { return s.nextLootID }

func (s *Session) AddPlayer(p *Player) { s.players = append(s.players, p) }
func (s *Session) AddLoot(l Loot) { s.loots = append(s.loots, l) }

// SetNextLootID is used by state restore.
func (s *Session) SetNextLootID(id int) { s.nextLootID = id }

// FindPlayerByToken scans the session's players. The gateway keeps a hash
// index for the hot path; Game.FindPlayerByToken is the caller of this scan.
func (s *Session) FindPlayerByToken(token string) *Player {
	for _, p := range s.players {
		if p.Token() == token {
			return p
		}
	}
	return nil
}

// UpdateState advances the session by dt seconds: clocks, loot spawn,
// motion, collisions, retirement, in that order. Loot spawned on a tick is
// kept out of that tick's collision pass, so it cannot be picked up before
// the next one.
func (s *Session) UpdateState(dt float64) {
	for _, p := range s.players {
		p.AddPlayTime(dt)

		speed := p.Dog().Speed()
		if math.Abs(speed.Vx) < idleEpsilon && math.Abs(speed.Vy) < idleEpsilon {
			p.AddIdleTime(dt)
		} else {
			p.ResetIdleTime()
		}
	}

	settled := len(s.loots)
	s.spawnLoot(dt)
	fresh := append([]Loot(nil), s.loots[settled:]...)
	s.loots = s.loots[:settled]

	for _, p := range s.players {
		dog := p.Dog()
		dog.SetPreviousPosition(dog.Position())
	}

	for _, p := range s.players {
		dog := p.Dog()
		if !dog.IsMoving() {
			continue
		}
		moved := s.gameMap.MoveDog(dog.Position(), dog.Speed(), dt)
		dog.SetPosition(moved.Position)
		if moved.HitBoundary {
			dog.Stop()
		}
	}

	s.handleCollisions()
	s.loots = append(s.loots, fresh...)
	s.retireInactivePlayers()
}

func (s *Session) spawnLoot(dt float64) {
	if s.lootGen == nil || len(s.gameMap.LootTypes()) == 0 {
		return
	}

	count := s.lootGen.Generate(
		time.Duration(dt*float64(time.Second)),
		len(s.loots),
		len(s.players),
	)
	for i := 0; i < count; i++ {
		typeIndex := worldRand.IntN(len(s.gameMap.LootTypes()))
		loot := Loot{
			ID:       s.nextLootID,
			Type:     typeIndex,
			Position: s.gameMap.RandomPosition(),
			Value:    s.gameMap.LootTypes()[typeIndex].Value,
		}
		s.nextLootID++
		s.loots = append(s.loots, loot)
	}
}

// gameEvent merges loot and office collision events into one timeline.
type gameEvent struct {
	time       float64
	isOffice   bool
	gathererID int
	itemID     int
}

// lootProvider exposes ground loot as zero-width items and players as
// segment gatherers.
type lootProvider struct {
	loots   []Loot
	players []*Player
}

func (p lootProvider) ItemsCount() int { return len(p.loots) }
func (p lootProvider) Item(idx int) collision.Item {
	return collision.Item{Position: p.loots[idx].Position}
}
func (p lootProvider) GatherersCount() int { return len(p.players) }
func (p lootProvider) Gatherer(idx int) collision.Gatherer {
	dog := p.players[idx].Dog()
	return collision.Gatherer{
		StartPos: dog.PreviousPosition(),
		EndPos:   dog.Position(),
		Width:    dogGatherWidth,
	}
}

// officeProvider exposes offices as items. The detector compares against
// the gatherer width only, so the office width is informational; it is
// kept to match the drop-off contract.
type officeProvider struct {
	offices []Office
	players []*Player
}

func (p officeProvider) ItemsCount() int { return len(p.offices) }
func (p officeProvider) Item(idx int) collision.Item {
	return collision.Item{Position: p.offices[idx].Position, Width: officeWidth}
}
func (p officeProvider) GatherersCount() int { return len(p.players) }
func (p officeProvider) Gatherer(idx int) collision.Gatherer {
	dog := p.players[idx].Dog()
	return collision.Gatherer{
		StartPos: dog.PreviousPosition(),
		EndPos:   dog.Position(),
		Width:    dogGatherWidth,
	}
}

// handleCollisions processes pickups and deliveries in global time order,
// so a dog that passes a loot and then an office in one tick banks it.
// Gatherer ids index s.players directly; retirement runs after this, never
// during, which keeps the indices valid.
func (s *Session) handleCollisions() {
	lootEvents := collision.FindGatherEvents(lootProvider{loots: s.loots, players: s.players})
	officeEvents := collision.FindGatherEvents(officeProvider{offices: s.gameMap.Offices(), players: s.players})

	events := make([]gameEvent, 0, len(lootEvents)+len(officeEvents))
	for _, e := range lootEvents {
		events = append(events, gameEvent{time: e.Time, gathererID: e.GathererID, itemID: e.ItemID})
	}
	for _, e := range officeEvents {
		events = append(events, gameEvent{time: e.Time, isOffice: true, gathererID: e.GathererID, itemID: e.ItemID})
	}
	sortEventsByTime(events)

	collected := make(map[int]bool)

	for _, event := range events {
		if event.gathererID >= len(s.players) {
			continue
		}
		player := s.players[event.gathererID]

		if event.isOffice {
			total := 0
			for _, loot := range player.Bag() {
				total += loot.Value
			}
			player.AddScore(total)
			player.ClearBag()
			continue
		}

		if event.itemID >= len(s.loots) {
			continue
		}
		loot := s.loots[event.itemID]
		if collected[loot.ID] {
			continue
		}
		if player.AddToBag(loot) {
			collected[loot.ID] = true
		}
	}

	if len(collected) > 0 {
		remaining := s.loots[:0]
		for _, loot := range s.loots {
			if !collected[loot.ID] {
				remaining = append(remaining, loot)
			}
		}
		s.loots = remaining
	}
}

func sortEventsByTime(events []gameEvent) {
	// Insertion sort keeps the merge stable; event lists are tiny.
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].time < events[j-1].time; j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func (s *Session) retireInactivePlayers() {
	if s.game == nil {
		return
	}
	retireAfter := s.game.DogRetirementTime()

	active := s.players[:0]
	for _, p := range s.players {
		if p.IdleTime() >= retireAfter {
			s.game.onPlayerRetired(p)
			continue
		}
		active = append(active, p)
	}
	// Clear trailing slots so retired players are not kept alive.
	for i := len(active); i < len(s.players); i++ {
		s.players[i] = nil
	}
	s.players = active
}
