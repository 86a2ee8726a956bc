package model

import "github.com/skoryh/dogtown/internal/geom"

// Loot is a lost object lying on the map or carried in a bag. IDs are
// session-scoped and strictly increasing.
type Loot struct {
	ID       int
	Type     int
	Position geom.Position
	Value    int
}

// Player couples a dog with its session bookkeeping: bag, score and the
// clocks that drive retirement.
type Player struct {
	id          int
	dog         *Dog
	token       string
	bag         []Loot
	bagCapacity int
	score       int
	playTime    float64
	idleTime    float64
}

// NewPlayer creates a player with an empty bag.
func NewPlayer(id int, dog *Dog, token string, bagCapacity int) *Player {
	return &Player{id: id, dog: dog, token: token, bagCapacity: bagCapacity}
}

func (p *Player) ID() int { return p.id }
func (p *Player) Dog() *Dog { return p.dog }
func (p *Player) Token() string { return p.token }
func (p *Player) Bag() []Loot { return p.bag }
func (p *Player) BagCapacity() int { return p.bagCapacity }
func (p *Player) Score() int { return p.score }

// AddToBag appends loot if the bag has room and reports whether it did.
func (p *Player) AddToBag(loot Loot) bool {
	if len(p.bag) >= p.bagCapacity {
		return false
	}
	p.bag = append(p.bag, loot)
	return true
}

func (p *Player) ClearBag() { p.bag = nil }
func (p *Player) IsBagFull() bool { return len(p.bag) >= p.bagCapacity }

func (p *Player) AddScore(delta int) { p.score += delta }

// PlayTime is the player's total time in the game, seconds.
func (p *Player) PlayTime() float64 { return p.playTime }
func (p *Player) AddPlayTime(dt float64) { p.playTime += dt }

// IdleTime is how long the player's dog has been standing still, seconds.
// It resets whenever the dog moves.
func (p *Player) IdleTime() float64 { return p.idleTime }
func (p *Player) AddIdleTime(dt float64) { p.idleTime += dt }
func (p *Player) ResetIdleTime() { p.idleTime = 0 }
