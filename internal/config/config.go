// Package config loads the JSON world description and builds the game
// model from it.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/skoryh/dogtown/internal/geom"
	"github.com/skoryh/dogtown/internal/model"
)

type roadJSON struct {
	X0 float64  `json:"x0"`
	Y0 float64  `json:"y0"`
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
}

type buildingJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type officeJSON struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type mapJSON struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DogSpeed    *float64          `json:"dogSpeed"`
	BagCapacity *int              `json:"bagCapacity"`
	Roads       []roadJSON        `json:"roads"`
	Buildings   []buildingJSON    `json:"buildings"`
	Offices     []officeJSON      `json:"offices"`
	LootTypes   []json.RawMessage `json:"lootTypes"`
}

type lootGenJSON struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type fileJSON struct {
	DefaultDogSpeed     *float64     `json:"defaultDogSpeed"`
	DefaultBagCapacity  *int         `json:"defaultBagCapacity"`
	DogRetirementTime   *float64     `json:"dogRetirementTime"`
	LootGeneratorConfig *lootGenJSON `json:"lootGeneratorConfig"`
	Maps                []mapJSON    `json:"maps"`
}

// LoadGame reads the config file at path and builds the map set.
func LoadGame(path string) (*model.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseGame(data)
}

// ParseGame builds a game from raw config JSON.
func ParseGame(data []byte) (*model.Game, error) {
	var cfg fileJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Maps) == 0 {
		return nil, fmt.Errorf("config has no maps")
	}

	defaultDogSpeed := 1.0
	if cfg.DefaultDogSpeed != nil {
		defaultDogSpeed = *cfg.DefaultDogSpeed
	}
	defaultBagCapacity := 3
	if cfg.DefaultBagCapacity != nil {
		defaultBagCapacity = *cfg.DefaultBagCapacity
	}

	game := model.NewGame()
	if cfg.DogRetirementTime != nil {
		game.SetDogRetirementTime(*cfg.DogRetirementTime)
	}
	if cfg.LootGeneratorConfig != nil {
		game.SetLootGeneratorConfig(cfg.LootGeneratorConfig.Period, cfg.LootGeneratorConfig.Probability)
	}

	for _, mj := range cfg.Maps {
		m, err := parseMap(mj, defaultDogSpeed, defaultBagCapacity)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", mj.ID, err)
		}
		if err := game.AddMap(m); err != nil {
			return nil, err
		}
	}

	return game, nil
}

func parseMap(mj mapJSON, defaultDogSpeed float64, defaultBagCapacity int) (*model.Map, error) {
	if mj.ID == "" {
		return nil, fmt.Errorf("missing id")
	}

	m := model.NewMap(mj.ID, mj.Name)

	m.SetDogSpeed(defaultDogSpeed)
	if mj.DogSpeed != nil {
		m.SetDogSpeed(*mj.DogSpeed)
	}
	m.SetBagCapacity(defaultBagCapacity)
	if mj.BagCapacity != nil {
		m.SetBagCapacity(*mj.BagCapacity)
	}

	for _, rj := range mj.Roads {
		road, err := parseRoad(rj)
		if err != nil {
			return nil, err
		}
		if err := m.AddRoad(road); err != nil {
			return nil, err
		}
	}

	for _, bj := range mj.Buildings {
		m.AddBuilding(model.Building{Bounds: geom.Rectangle{
			Position: geom.Position{X: bj.X, Y: bj.Y},
			Size:     geom.Size{Width: bj.W, Height: bj.H},
		}})
	}

	for _, oj := range mj.Offices {
		office := model.Office{
			ID:       oj.ID,
			Position: geom.Position{X: oj.X, Y: oj.Y},
			Offset:   geom.Offset{Dx: oj.OffsetX, Dy: oj.OffsetY},
		}
		if err := m.AddOffice(office); err != nil {
			return nil, err
		}
	}

	lootTypes, err := parseLootTypes(mj.LootTypes)
	if err != nil {
		return nil, err
	}
	m.SetLootTypes(lootTypes)

	return m, nil
}

func parseRoad(rj roadJSON) (model.Road, error) {
	switch {
	case rj.X1 != nil:
		return model.NewHorizontalRoad(rj.X0, rj.Y0, *rj.X1), nil
	case rj.Y1 != nil:
		return model.NewVerticalRoad(rj.X0, rj.Y0, *rj.Y1), nil
	}
	return model.Road{}, fmt.Errorf("road at (%v, %v) has neither x1 nor y1", rj.X0, rj.Y0)
}

// parseLootTypes keeps each loot type's config object verbatim for the map
// endpoint and extracts the scalar value used for scoring.
func parseLootTypes(raw []json.RawMessage) ([]model.LootType, error) {
	types := make([]model.LootType, 0, len(raw))
	for i, entry := range raw {
		var fields struct {
			Value int `json:"value"`
		}
		if err := json.Unmarshal(entry, &fields); err != nil {
			return nil, fmt.Errorf("loot type %d: %w", i, err)
		}
		types = append(types, model.LootType{Value: fields.Value, Raw: entry})
	}
	return types, nil
}
