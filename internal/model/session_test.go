package model

import (
	"math"
	"testing"

	"github.com/skoryh/dogtown/internal/geom"
)

// testWorld builds a game with a single straight road, one office at
// (8, 0) and two loot types.
func testWorld(t *testing.T) (*Game, *Session) {
	t.Helper()

	m := NewMap("town", "Town")
	if err := m.AddRoad(NewHorizontalRoad(0, 0, 10)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddOffice(Office{ID: "o1", Position: geom.Position{X: 8, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	m.SetDogSpeed(2.0)
	m.SetBagCapacity(3)
	m.SetLootTypes([]LootType{{Value: 10}, {Value: 30}})

	game := NewGame()
	if err := game.AddMap(m); err != nil {
		t.Fatal(err)
	}

	session, err := game.GetOrCreateSession("town")
	if err != nil {
		t.Fatal(err)
	}
	return game, session
}

func addTestPlayer(s *Session, id int, tok string, pos geom.Position) *Player {
	dog := NewDog("dog-"+tok, "dog-"+tok, s.Map().ID())
	dog.SetPosition(pos)
	player := NewPlayer(id, dog, tok, s.Map().BagCapacity())
	s.AddPlayer(player)
	return player
}

func TestGetOrCreateSession(t *testing.T) {
	game, session := testWorld(t)

	again, err := game.GetOrCreateSession("town")
	if err != nil {
		t.Fatal(err)
	}
	if again != session {
		t.Error("expected the same session for the same map")
	}

	if _, err := game.GetOrCreateSession("nowhere"); err == nil {
		t.Error("expected an error for an unknown map")
	}
}

func TestPlayTimeAndIdleAccounting(t *testing.T) {
	_, session := testWorld(t)
	player := addTestPlayer(session, 0, "t0", geom.Position{})

	session.UpdateState(2.0)
	if player.PlayTime() != 2.0 {
		t.Errorf("expected play time 2.0, got %v", player.PlayTime())
	}
	if player.IdleTime() != 2.0 {
		t.Errorf("stationary dog must accrue idle time, got %v", player.IdleTime())
	}

	player.Dog().SetSpeed(geom.Speed{Vx: 2})
	session.UpdateState(1.0)
	if player.IdleTime() != 0 {
		t.Errorf("moving dog must reset idle time, got %v", player.IdleTime())
	}
	if player.PlayTime() != 3.0 {
		t.Errorf("expected play time 3.0, got %v", player.PlayTime())
	}
}

func TestMotionStopsAtBoundary(t *testing.T) {
	_, session := testWorld(t)
	player := addTestPlayer(session, 0, "t0", geom.Position{X: 9, Y: 0})
	player.Dog().SetSpeed(geom.Speed{Vx: 2})

	session.UpdateState(2.0)

	if !player.Dog().Speed().IsZero() {
		t.Error("dog must stop after hitting the boundary")
	}
	pos := player.Dog().Position()
	if math.Abs(pos.X-10.4) > 1e-9 || pos.Y != 0 {
		t.Errorf("expected dog clamped to (10.4, 0), got %v", pos)
	}
}

func TestPickup(t *testing.T) {
	_, session := testWorld(t)
	session.AddLoot(Loot{ID: 0, Type: 1, Position: geom.Position{X: 2, Y: 0}, Value: 30})

	player := addTestPlayer(session, 0, "t0", geom.Position{})
	player.Dog().SetSpeed(geom.Speed{Vx: 2})

	session.UpdateState(2.0) // moves 0 -> 4, passing the loot

	if len(player.Bag()) != 1 || player.Bag()[0].ID != 0 {
		t.Fatalf("expected the loot in the bag, got %v", player.Bag())
	}
	if len(session.Loots()) != 0 {
		t.Errorf("collected loot must leave the ground, got %v", session.Loots())
	}
	if player.Score() != 0 {
		t.Errorf("pickup must not award score, got %d", player.Score())
	}
}

func TestPickupRespectsBagCapacity(t *testing.T) {
	_, session := testWorld(t)
	session.Map().SetBagCapacity(1)
	session.AddLoot(Loot{ID: 0, Position: geom.Position{X: 1, Y: 0}, Value: 10})
	session.AddLoot(Loot{ID: 1, Position: geom.Position{X: 2, Y: 0}, Value: 10})

	dog := NewDog("d", "d", "town")
	player := NewPlayer(0, dog, "t0", 1)
	session.AddPlayer(player)
	dog.SetSpeed(geom.Speed{Vx: 2})

	session.UpdateState(2.0)

	if len(player.Bag()) != 1 || player.Bag()[0].ID != 0 {
		t.Fatalf("expected only the first loot in the bag, got %v", player.Bag())
	}
	if len(session.Loots()) != 1 || session.Loots()[0].ID != 1 {
		t.Errorf("the uncollected loot must stay on the ground, got %v", session.Loots())
	}
}

func TestPickupThenDeliverInOneTick(t *testing.T) {
	_, session := testWorld(t)
	session.AddLoot(Loot{ID: 0, Type: 0, Position: geom.Position{X: 2, Y: 0}, Value: 10})

	player := addTestPlayer(session, 0, "t0", geom.Position{})
	player.Dog().SetSpeed(geom.Speed{Vx: 2})

	// One tick carries the dog from 0 to 10: past the loot at 2 and
	// the office at 8, in that order.
	session.UpdateState(5.0)

	if len(player.Bag()) != 0 {
		t.Errorf("bag must be empty after the delivery, got %v", player.Bag())
	}
	if player.Score() != 10 {
		t.Errorf("expected score 10, got %d", player.Score())
	}
	if len(session.Loots()) != 0 {
		t.Errorf("delivered loot must be gone from the ground, got %v", session.Loots())
	}
}

func TestDeliveryBanksWholeBag(t *testing.T) {
	_, session := testWorld(t)
	session.AddLoot(Loot{ID: 0, Position: geom.Position{X: 1, Y: 0}, Value: 10})
	session.AddLoot(Loot{ID: 1, Position: geom.Position{X: 2, Y: 0}, Value: 30})

	player := addTestPlayer(session, 0, "t0", geom.Position{})
	player.Dog().SetSpeed(geom.Speed{Vx: 2})

	session.UpdateState(5.0)

	if player.Score() != 40 {
		t.Errorf("expected the summed bag value 40, got %d", player.Score())
	}
	if len(player.Bag()) != 0 {
		t.Errorf("bag must be cleared, got %v", player.Bag())
	}
}

func TestLootSpawnIDsMonotonic(t *testing.T) {
	SeedWorldRand(3)
	game, _ := testWorld(t)
	game.SetLootGeneratorConfig(1.0, 1.0)
	game.SetLootRandomSource(func() float64 { return 1.0 })

	// A fresh session picks up the generator config.
	m := NewMap("town2", "Town 2")
	if err := m.AddRoad(NewHorizontalRoad(0, 0, 10)); err != nil {
		t.Fatal(err)
	}
	m.SetLootTypes([]LootType{{Value: 10}})
	if err := game.AddMap(m); err != nil {
		t.Fatal(err)
	}
	session, err := game.GetOrCreateSession("town2")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		addTestPlayer(session, i, "t"+string(rune('0'+i)), geom.Position{})
	}

	for i := 0; i < 5; i++ {
		session.UpdateState(1.0)
	}

	loots := session.Loots()
	if len(loots) == 0 {
		t.Fatal("expected loot to spawn")
	}
	if len(loots) > len(session.Players()) {
		t.Errorf("loot count %d exceeds looter count %d", len(loots), len(session.Players()))
	}
	seen := make(map[int]bool)
	for i, loot := range loots {
		if seen[loot.ID] {
			t.Errorf("duplicate loot id %d", loot.ID)
		}
		seen[loot.ID] = true
		if i > 0 && loots[i].ID <= loots[i-1].ID {
			t.Errorf("loot ids not strictly increasing: %d after %d", loots[i].ID, loots[i-1].ID)
		}
	}
}

func TestStationaryDogCollectsNothing(t *testing.T) {
	_, session := testWorld(t)
	player := addTestPlayer(session, 0, "t0", geom.Position{X: 2, Y: 0})
	session.AddLoot(Loot{ID: 0, Position: geom.Position{X: 2, Y: 0}, Value: 10})

	session.UpdateState(1.0)

	if len(player.Bag()) != 0 {
		t.Errorf("a stationary dog has no gather segment, got bag %v", player.Bag())
	}
}

func TestRetirement(t *testing.T) {
	game, session := testWorld(t)
	game.SetDogRetirementTime(1.0)

	var retired []*Player
	game.SetRetiredPlayerCallback(func(p *Player) { retired = append(retired, p) })

	player := addTestPlayer(session, 0, "t0", geom.Position{})
	player.AddScore(42)

	session.UpdateState(0.5)
	if len(retired) != 0 {
		t.Fatal("retired too early")
	}

	session.UpdateState(0.5)
	if len(retired) != 1 {
		t.Fatalf("expected 1 retirement, got %d", len(retired))
	}
	if retired[0].Score() != 42 {
		t.Errorf("expected final score 42, got %d", retired[0].Score())
	}
	if retired[0].PlayTime() != 1.0 {
		t.Errorf("expected play time 1.0, got %v", retired[0].PlayTime())
	}
	if len(session.Players()) != 0 {
		t.Errorf("retired player must leave the session, got %d players", len(session.Players()))
	}
}

func TestRetirementObservesFinalScore(t *testing.T) {
	game, session := testWorld(t)
	game.SetDogRetirementTime(2.0)

	var retired []*Player
	game.SetRetiredPlayerCallback(func(p *Player) { retired = append(retired, p) })

	session.AddLoot(Loot{ID: 0, Position: geom.Position{X: 2, Y: 0}, Value: 25})
	player := addTestPlayer(session, 0, "t0", geom.Position{})
	player.Dog().SetSpeed(geom.Speed{Vx: 2})

	// Deliver, then idle into retirement.
	session.UpdateState(5.0)
	if player.Score() != 25 {
		t.Fatalf("expected the delivery to land first, score %d", player.Score())
	}
	player.Dog().Stop()
	session.UpdateState(1.0)
	session.UpdateState(1.0)

	if len(retired) != 1 {
		t.Fatalf("expected 1 retirement, got %d", len(retired))
	}
	if retired[0].Score() != 25 {
		t.Errorf("retirement must carry the banked score, got %d", retired[0].Score())
	}
}

func TestMovingDogNeverRetires(t *testing.T) {
	game, session := testWorld(t)
	game.SetDogRetirementTime(1.0)

	var retired int
	game.SetRetiredPlayerCallback(func(*Player) { retired++ })

	player := addTestPlayer(session, 0, "t0", geom.Position{})

	for i := 0; i < 10; i++ {
		// Turn around on either side of x=5 so the dog keeps moving.
		if player.Dog().Position().X < 5 {
			player.Dog().SetSpeed(geom.Speed{Vx: 2})
		} else {
			player.Dog().SetSpeed(geom.Speed{Vx: -2})
		}
		session.UpdateState(0.9)
	}

	if retired != 0 {
		t.Errorf("a moving dog must not retire, got %d retirements", retired)
	}
}
