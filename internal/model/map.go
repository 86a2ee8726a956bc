package model

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/skoryh/dogtown/internal/geom"
)

// Building occupies part of the map for rendering purposes only; it plays
// no role in movement or collisions.
type Building struct {
	Bounds geom.Rectangle
}

// Office is a drop-off point. Delivering a bag there banks its value.
type Office struct {
	ID       string
	Position geom.Position
	Offset   geom.Offset
}

// LootType describes one entry of a map's loot table. Raw carries the
// config object verbatim for the map endpoint; Value is the score banked
// per item of this type.
type LootType struct {
	Value int
	Raw   json.RawMessage
}

// MoveResult is the outcome of one movement integration step.
type MoveResult struct {
	Position    geom.Position
	HitBoundary bool
}

// Map is the immutable topology of one game world. All mutation happens
// during config load; afterwards sessions only read it.
type Map struct {
	id          string
	name        string
	roads       []Road
	buildings   []Building
	offices     []Office
	officeIndex map[string]int
	dogSpeed    float64
	bagCapacity int
	lootTypes   []LootType
}

// NewMap creates an empty map with the default dog speed and bag capacity.
func NewMap(id, name string) *Map {
	return &Map{
		id:          id,
		name:        name,
		officeIndex: make(map[string]int),
		dogSpeed:    1.0,
		bagCapacity: 3,
	}
}

func (m *Map) ID() string { return m.id }
func (m *Map) Name() string { return m.name }
func (m *Map) Roads() []Road { return m.roads }
func (m *Map) Buildings() []Building { return m.buildings }
func (m *Map) Offices() []Office { return m.offices }
func (m *Map) DogSpeed() float64 { return m.dogSpeed }
func (m *Map) BagCapacity() int { return m.bagCapacity }
func (m *Map) LootTypes() []LootType { return m.lootTypes }

func (m *Map) SetDogSpeed(speed float64) { m.dogSpeed = speed }
func (m *Map) SetBagCapacity(capacity int) { m.bagCapacity = capacity }
func (m *Map) SetLootTypes(types []LootType) { m.lootTypes = types }

func (m *Map) AddRoad(road Road) error {
	if !road.IsHorizontal() && !road.IsVertical() {
		return fmt.Errorf("road %v-%v is neither horizontal nor vertical", road.start, road.end)
	}
	m.roads = append(m.roads, road)
	return nil
}

func (m *Map) AddBuilding(building Building) {
	m.buildings = append(m.buildings, building)
}

func (m *Map) AddOffice(office Office) error {
	if _, ok := m.officeIndex[office.ID]; ok {
		return fmt.Errorf("duplicate office %q on map %q", office.ID, m.id)
	}
	m.officeIndex[office.ID] = len(m.offices)
	m.offices = append(m.offices, office)
	return nil
}

// ExactMovementBounds returns the axis-aligned bounding box of the road
// union, half-width included.
func (m *Map) ExactMovementBounds() (min, max geom.Position) {
	if len(m.roads) == 0 {
		return geom.Position{}, geom.Position{}
	}

	min = geom.Position{X: math.Inf(1), Y: math.Inf(1)}
	max = geom.Position{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, road := range m.roads {
		min.X = math.Min(min.X, road.MinX()-RoadWidth)
		max.X = math.Max(max.X, road.MaxX()+RoadWidth)
		min.Y = math.Min(min.Y, road.MinY()-RoadWidth)
		max.Y = math.Max(max.Y, road.MaxY()+RoadWidth)
	}
	return min, max
}

// StartPosition is where dogs spawn when random spawn points are off: the
// start endpoint of the first road.
func (m *Map) StartPosition() geom.Position {
	if len(m.roads) == 0 {
		return geom.Position{}
	}
	return m.roads[0].Start()
}

// RandomPosition picks a uniform road, then a uniform point on its
// centerline pulled in from the endpoints by the road half-width. Roads
// too short for the inset fall back to their raw endpoints.
func (m *Map) RandomPosition() geom.Position {
	if len(m.roads) == 0 {
		return geom.Position{}
	}

	road := m.roads[worldRand.IntN(len(m.roads))]
	const inset = RoadWidth

	if road.IsHorizontal() {
		minX := road.MinX() + inset
		maxX := road.MaxX() - inset
		if minX >= maxX {
			minX = road.Start().X
			maxX = road.End().X
		}
		return geom.Position{X: minX + worldRand.Float64()*(maxX-minX), Y: road.Start().Y}
	}

	minY := road.MinY() + inset
	maxY := road.MaxY() - inset
	if minY >= maxY {
		minY = road.Start().Y
		maxY = road.End().Y
	}
	return geom.Position{X: road.Start().X, Y: minY + worldRand.Float64()*(maxY-minY)}
}

// ClosestValidPosition clamps pos into the movement bounds and, if the
// result is off every road, projects it onto the nearest road centerline.
func (m *Map) ClosestValidPosition(pos geom.Position) geom.Position {
	if len(m.roads) == 0 {
		return pos
	}

	min, max := m.ExactMovementBounds()
	pos.X = clamp(pos.X, min.X, max.X)
	pos.Y = clamp(pos.Y, min.Y, max.Y)

	var closest *Road
	minDistance := math.Inf(1)
	for i := range m.roads {
		road := m.roads[i]
		if road.Contains(pos) {
			return pos
		}
		if d := road.distanceTo(pos); d < minDistance {
			minDistance = d
			closest = &m.roads[i]
		}
	}
	return closest.projectToCenterline(pos)
}

// MoveDog integrates one movement step and keeps the dog on the road
// union. The returned HitBoundary means the dog could not fully follow its
// velocity, either at the map edge or a road edge; callers stop the dog.
//
// A dog standing on several roads at once (an intersection) may leave its
// current road by way of any of them; among the candidate projections the
// one closest to the unconstrained target wins.
func (m *Map) MoveDog(start geom.Position, speed geom.Speed, dt float64) MoveResult {
	result := MoveResult{Position: start}
	if len(m.roads) == 0 {
		return result
	}

	target := start.Add(speed, dt)

	min, max := m.ExactMovementBounds()
	final := target
	if target.X < min.X {
		final.X = min.X
		result.HitBoundary = true
	} else if target.X > max.X {
		final.X = max.X
		result.HitBoundary = true
	}
	if target.Y < min.Y {
		final.Y = min.Y
		result.HitBoundary = true
	} else if target.Y > max.Y {
		final.Y = max.Y
		result.HitBoundary = true
	}

	var currentRoads []Road
	for _, road := range m.roads {
		if road.Contains(final) {
			result.Position = final
			return result
		}
		if road.Contains(start) {
			currentRoads = append(currentRoads, road)
		}
	}

	best := start
	minDistanceSq := math.Inf(1)
	consider := func(projected geom.Position, road Road) {
		if !road.Contains(projected) {
			return
		}
		if d := final.SqDistanceTo(projected); d < minDistanceSq {
			minDistanceSq = d
			best = projected
		}
	}

	for _, road := range currentRoads {
		switch {
		case road.IsHorizontal() && speed.Vy != 0:
			roadY := road.Start().Y - RoadWidth
			if speed.Vy > 0 {
				roadY = road.Start().Y + RoadWidth
			}
			consider(geom.Position{
				X: clamp(final.X, road.MinX()-RoadWidth, road.MaxX()+RoadWidth),
				Y: roadY,
			}, road)

		case road.IsHorizontal() && speed.Vx != 0:
			consider(geom.Position{
				X: clamp(final.X, road.MinX()-RoadWidth, road.MaxX()+RoadWidth),
				Y: road.Start().Y + RoadWidth,
			}, road)

		case road.IsVertical() && speed.Vx != 0:
			roadX := road.Start().X - RoadWidth
			if speed.Vx > 0 {
				roadX = road.Start().X + RoadWidth
			}
			consider(geom.Position{
				X: roadX,
				Y: clamp(final.Y, road.MinY()-RoadWidth, road.MaxY()+RoadWidth),
			}, road)

		case road.IsVertical() && speed.Vy != 0:
			consider(geom.Position{
				X: final.X,
				Y: clamp(final.Y, road.MinY()-RoadWidth, road.MaxY()+RoadWidth),
			}, road)
		}
	}

	if best != final {
		result.HitBoundary = true
	}
	result.Position = best
	return result
}
