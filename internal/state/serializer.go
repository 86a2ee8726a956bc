// Package state snapshots the live game to a JSON file and restores it on
// startup, so the world survives restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/skoryh/dogtown/internal/geom"
	"github.com/skoryh/dogtown/internal/model"
)

type positionState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type speedState struct {
	Vx float64 `json:"vx"`
	Vy float64 `json:"vy"`
}

type lootState struct {
	ID       int           `json:"id"`
	Type     int           `json:"type"`
	Value    int           `json:"value"`
	Position positionState `json:"position"`
}

type dogState struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	MapID     string        `json:"map_id"`
	Position  positionState `json:"position"`
	Speed     speedState    `json:"speed"`
	Direction string        `json:"direction"`
}

type playerState struct {
	ID          int         `json:"id"`
	Token       string      `json:"token"`
	Score       int         `json:"score"`
	BagCapacity int         `json:"bag_capacity"`
	Dog         dogState    `json:"dog"`
	Bag         []lootState `json:"bag"`
}

type sessionState struct {
	ID         string        `json:"id"`
	MapID      string        `json:"map_id"`
	NextLootID int           `json:"next_loot_id"`
	Players    []playerState `json:"players"`
	Loots      []lootState   `json:"loots"`
}

type gameState struct {
	Sessions []sessionState `json:"sessions"`
}

// Serialize renders the game as the state-file JSON document. Coordinates
// and speeds are rounded to six decimals.
func Serialize(game *model.Game) ([]byte, error) {
	doc := gameState{Sessions: []sessionState{}}

	for _, session := range game.Sessions() {
		ss := sessionState{
			ID:         session.ID(),
			MapID:      session.Map().ID(),
			NextLootID: session.NextLootID(),
			Players:    []playerState{},
			Loots:      []lootState{},
		}
		for _, player := range session.Players() {
			ss.Players = append(ss.Players, serializePlayer(player))
		}
		for _, loot := range session.Loots() {
			ss.Loots = append(ss.Loots, serializeLoot(loot))
		}
		doc.Sessions = append(doc.Sessions, ss)
	}

	return json.Marshal(doc)
}

func serializePlayer(p *model.Player) playerState {
	bag := []lootState{}
	for _, loot := range p.Bag() {
		bag = append(bag, serializeLoot(loot))
	}
	return playerState{
		ID:          p.ID(),
		Token:       p.Token(),
		Score:       p.Score(),
		BagCapacity: p.BagCapacity(),
		Dog:         serializeDog(p.Dog()),
		Bag:         bag,
	}
}

func serializeDog(d *model.Dog) dogState {
	return dogState{
		ID:    d.ID(),
		Name:  d.Name(),
		MapID: d.MapID(),
		Position: positionState{
			X: geom.Round6(d.Position().X),
			Y: geom.Round6(d.Position().Y),
		},
		Speed: speedState{
			Vx: geom.Round6(d.Speed().Vx),
			Vy: geom.Round6(d.Speed().Vy),
		},
		Direction: d.Direction().String(),
	}
}

func serializeLoot(l model.Loot) lootState {
	return lootState{
		ID:    l.ID,
		Type:  l.Type,
		Value: l.Value,
		Position: positionState{
			X: geom.Round6(l.Position.X),
			Y: geom.Round6(l.Position.Y),
		},
	}
}

// Restore applies a state document to the game. Sessions referencing
// unknown maps are skipped with a warning, as are individual players with
// an unusable token; loading never fails on partial data, only on a
// malformed document.
func Restore(game *model.Game, data []byte, log *zap.Logger) error {
	var doc gameState
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}

	for _, ss := range doc.Sessions {
		session, err := game.GetOrCreateSession(ss.MapID)
		if err != nil {
			log.Warn("skipping session for unknown map",
				zap.String("map_id", ss.MapID))
			continue
		}

		session.SetNextLootID(ss.NextLootID)

		for _, ps := range ss.Players {
			player, err := restorePlayer(ps)
			if err != nil {
				log.Warn("skipping player in state file",
					zap.String("map_id", ss.MapID), zap.Error(err))
				continue
			}
			session.AddPlayer(player)
		}

		for _, ls := range ss.Loots {
			session.AddLoot(restoreLoot(ls))
		}
	}

	return nil
}

func restorePlayer(ps playerState) (*model.Player, error) {
	if ps.Token == "" {
		return nil, errors.New("player record has no token")
	}
	if ps.Dog.ID == "" || ps.Dog.Name == "" {
		return nil, errors.New("player record has no dog")
	}

	dog := model.NewDog(ps.Dog.ID, ps.Dog.Name, ps.Dog.MapID)
	dog.SetPosition(geom.Position{X: ps.Dog.Position.X, Y: ps.Dog.Position.Y})
	dog.SetSpeed(geom.Speed{Vx: ps.Dog.Speed.Vx, Vy: ps.Dog.Speed.Vy})
	if dir, ok := model.DirectionFromString(ps.Dog.Direction); ok {
		dog.SetDirection(dir)
	}

	player := model.NewPlayer(ps.ID, dog, ps.Token, ps.BagCapacity)
	player.AddScore(ps.Score)
	for _, ls := range ps.Bag {
		player.AddToBag(restoreLoot(ls))
	}
	return player, nil
}

func restoreLoot(ls lootState) model.Loot {
	return model.Loot{
		ID:       ls.ID,
		Type:     ls.Type,
		Value:    ls.Value,
		Position: geom.Position{X: ls.Position.X, Y: ls.Position.Y},
	}
}

// SaveFile writes the snapshot atomically: serialize to <path>.tmp, then
// rename over path.
func SaveFile(path string, game *model.Game) error {
	data, err := Serialize(game)
	if err != nil {
		return fmt.Errorf("serialize state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

// LoadFile restores the game from path. An absent file is a normal fresh
// start; an empty or unparsable file starts fresh with a warning. The
// process never refuses to boot over a bad snapshot.
func LoadFile(path string, game *model.Game, log *zap.Logger) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("no state file, starting fresh", zap.String("path", path))
		return
	}
	if err != nil {
		log.Warn("cannot read state file, starting fresh",
			zap.String("path", path), zap.Error(err))
		return
	}
	if len(data) == 0 {
		log.Warn("state file is empty, starting fresh", zap.String("path", path))
		return
	}

	if err := Restore(game, data, log); err != nil {
		log.Warn("state file is malformed, starting fresh",
			zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("game state restored", zap.String("path", path))
}
