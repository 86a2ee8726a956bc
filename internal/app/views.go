package app

import (
	"github.com/skoryh/dogtown/internal/geom"
	"github.com/skoryh/dogtown/internal/model"
)

// View types are consistent copies taken under the strand, so the API
// layer can encode them without holding the lock.

// MapInfo is the short form used by the map list endpoint.
type MapInfo struct {
	ID   string
	Name string
}

// BagItemView is one carried loot item.
type BagItemView struct {
	ID   int
	Type int
}

// PlayerStateView is one player's dynamic state, coordinates rounded for
// the wire.
type PlayerStateView struct {
	Pos   [2]float64
	Speed [2]float64
	Dir   string
	Bag   []BagItemView
	Score int
}

// LootView is one lost object on the ground.
type LootView struct {
	Type int
	Pos  [2]float64
}

// StateView is the full session state visible to a player.
type StateView struct {
	Players map[int]PlayerStateView
	Loots   map[int]LootView
}

// MapsList returns id/name pairs in registration order.
func (a *Application) MapsList() []MapInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	infos := make([]MapInfo, 0, len(a.game.Maps()))
	for _, m := range a.game.Maps() {
		infos = append(infos, MapInfo{ID: m.ID(), Name: m.Name()})
	}
	return infos
}

// MapByID returns the map or nil. Maps are immutable after load, so the
// caller may encode the result outside the lock.
func (a *Application) MapByID(id string) *model.Map {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.game.FindMap(id)
}

// PlayersFor lists id->name for every player in the caller's session.
func (a *Application) PlayersFor(tok string) (map[int]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.players[tok]
	if !ok {
		return nil, ErrUnknownToken
	}

	names := make(map[int]string)
	for _, p := range entry.session.Players() {
		names[p.ID()] = p.Dog().Name()
	}
	return names, nil
}

// StateFor snapshots the caller's session state.
func (a *Application) StateFor(tok string) (StateView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.players[tok]
	if !ok {
		return StateView{}, ErrUnknownToken
	}

	view := StateView{
		Players: make(map[int]PlayerStateView),
		Loots:   make(map[int]LootView),
	}

	for _, p := range entry.session.Players() {
		dog := p.Dog()
		bag := make([]BagItemView, 0, len(p.Bag()))
		for _, loot := range p.Bag() {
			bag = append(bag, BagItemView{ID: loot.ID, Type: loot.Type})
		}
		view.Players[p.ID()] = PlayerStateView{
			Pos:   [2]float64{geom.Round6(dog.Position().X), geom.Round6(dog.Position().Y)},
			Speed: [2]float64{geom.Round6(dog.Speed().Vx), geom.Round6(dog.Speed().Vy)},
			Dir:   dog.Direction().Wire(),
			Bag:   bag,
			Score: p.Score(),
		}
	}

	for _, loot := range entry.session.Loots() {
		view.Loots[loot.ID] = LootView{
			Type: loot.Type,
			Pos:  [2]float64{geom.Round6(loot.Position.X), geom.Round6(loot.Position.Y)},
		}
	}

	return view, nil
}
