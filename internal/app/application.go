// Package app is the gateway between the HTTP surface and the simulation.
// A single mutex (the strand) serializes every access to the game, so the
// simulation is effectively single-threaded from its own point of view.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/skoryh/dogtown/internal/geom"
	"github.com/skoryh/dogtown/internal/model"
	"github.com/skoryh/dogtown/internal/state"
	"github.com/skoryh/dogtown/internal/store"
	"github.com/skoryh/dogtown/internal/token"
)

var (
	ErrMapNotFound        = errors.New("map not found")
	ErrUnknownToken       = errors.New("unknown token")
	ErrInvalidMove        = errors.New("invalid move")
	ErrManualTickDisabled = errors.New("manual ticks are disabled")
)

// Options configure the gateway.
type Options struct {
	// RandomizeSpawnPoints places joining dogs at random road positions
	// instead of the first road's start.
	RandomizeSpawnPoints bool
	// ManualTick accepts /game/tick requests instead of running a loop.
	ManualTick bool
	// StateFile enables snapshots when non-empty.
	StateFile string
	// SaveStatePeriod is the auto-save interval; zero disables periodic
	// saves (a final save still runs on shutdown).
	SaveStatePeriod time.Duration
}

type playerEntry struct {
	player  *model.Player
	session *model.Session
}

// Application owns the strand, the token index and the tick loop.
type Application struct {
	mu           sync.Mutex
	game         *model.Game
	tokens       *token.Generator
	players      map[string]playerEntry
	nextPlayerID int

	records store.RecordStore
	log     *zap.Logger
	opts    Options

	sinceLastSave time.Duration
}

// New wires the gateway to the game and installs the retirement hook.
func New(game *model.Game, records store.RecordStore, log *zap.Logger, opts Options) *Application {
	a := &Application{
		game:    game,
		tokens:  token.NewGenerator(),
		players: make(map[string]playerEntry),
		records: records,
		log:     log,
		opts:    opts,
	}
	game.SetRetiredPlayerCallback(a.handleRetired)
	return a
}

// JoinResult is what a successful join returns to the client.
type JoinResult struct {
	AuthToken string
	PlayerID  int
}

// Join creates a player on the given map, lazily creating its session.
func (a *Application) Join(userName, mapID string) (JoinResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.game.FindMap(mapID)
	if m == nil {
		return JoinResult{}, ErrMapNotFound
	}

	session, err := a.game.GetOrCreateSession(mapID)
	if err != nil {
		return JoinResult{}, ErrMapNotFound
	}

	dog := model.NewDog(uuid.New().String(), userName, mapID)
	if a.opts.RandomizeSpawnPoints {
		dog.SetPosition(m.RandomPosition())
	} else {
		dog.SetPosition(m.StartPosition())
	}

	tok := a.tokens.Generate()
	playerID := a.nextPlayerID
	a.nextPlayerID++

	player := model.NewPlayer(playerID, dog, tok, m.BagCapacity())
	session.AddPlayer(player)
	a.players[tok] = playerEntry{player: player, session: session}

	a.log.Info("player joined",
		zap.String("map_id", mapID),
		zap.Int("player_id", playerID),
		zap.String("user_name", userName))

	return JoinResult{AuthToken: tok, PlayerID: playerID}, nil
}

// ApplyMove sets the dog's direction and speed from a move command:
// L/R/U/D, or the empty string to stop.
func (a *Application) ApplyMove(tok, move string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.players[tok]
	if !ok {
		return ErrUnknownToken
	}

	dog := entry.player.Dog()
	speed := entry.session.Map().DogSpeed()

	switch move {
	case "L":
		dog.SetDirection(model.West)
		dog.SetSpeed(geom.Speed{Vx: -speed})
	case "R":
		dog.SetDirection(model.East)
		dog.SetSpeed(geom.Speed{Vx: speed})
	case "U":
		dog.SetDirection(model.North)
		dog.SetSpeed(geom.Speed{Vy: -speed})
	case "D":
		dog.SetDirection(model.South)
		dog.SetSpeed(geom.Speed{Vy: speed})
	case "":
		dog.Stop()
	default:
		return ErrInvalidMove
	}
	return nil
}

// Tick advances the world by an externally supplied delta. Only legal
// when the server runs without its own loop.
func (a *Application) Tick(delta time.Duration) error {
	if !a.opts.ManualTick {
		return ErrManualTickDisabled
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.update(delta)
	return nil
}

// update advances the simulation and the auto-save clock. Callers hold mu.
func (a *Application) update(delta time.Duration) {
	a.game.UpdateState(delta.Seconds())

	if a.opts.StateFile == "" || a.opts.SaveStatePeriod <= 0 {
		return
	}
	a.sinceLastSave += delta
	if a.sinceLastSave >= a.opts.SaveStatePeriod {
		a.sinceLastSave = 0
		if err := state.SaveFile(a.opts.StateFile, a.game); err != nil {
			a.log.Error("auto-save failed", zap.Error(err))
		}
	}
}

// RunLoop drives the simulation with a real-time ticker until ctx is
// canceled. Each wake measures actual elapsed time, so slow ticks don't
// slow the world down.
func (a *Application) RunLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now

			a.mu.Lock()
			a.update(delta)
			a.mu.Unlock()
		}
	}
}

// handleRetired runs inside Game.UpdateState with the strand held: it
// drops the token index entry and hands the record off to a detached
// writer so the strand never waits on the database.
func (a *Application) handleRetired(p *model.Player) {
	delete(a.players, p.Token())

	name := p.Dog().Name()
	score := p.Score()
	playTime := p.PlayTime()

	a.log.Info("player retired",
		zap.Int("player_id", p.ID()),
		zap.String("name", name),
		zap.Int("score", score),
		zap.Float64("play_time", playTime))

	go a.writeRecord(name, score, playTime)
}

// writeRecord persists one retirement with capped backoff. Failures are
// logged and swallowed; the player is gone from the session either way.
func (a *Application) writeRecord(name string, score int, playTime float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(a.records.AddRecord(ctx, name, score, playTime))
	})
	if err != nil {
		a.log.Error("failed to save retirement record",
			zap.String("name", name), zap.Error(err))
	}
}

// SaveState writes a snapshot now. Used on shutdown.
func (a *Application) SaveState() error {
	if a.opts.StateFile == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return state.SaveFile(a.opts.StateFile, a.game)
}

// LoadState restores the snapshot, then rebuilds the token index and the
// player-id counter from what came back.
func (a *Application) LoadState() {
	if a.opts.StateFile == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state.LoadFile(a.opts.StateFile, a.game, a.log)

	for _, session := range a.game.Sessions() {
		for _, player := range session.Players() {
			a.players[player.Token()] = playerEntry{player: player, session: session}
			if player.ID() >= a.nextPlayerID {
				a.nextPlayerID = player.ID() + 1
			}
		}
	}
}

// Records reads a leaderboard page. Like every other read, it runs on
// the strand. Retirement records are written by detached goroutines
// outside the strand, so a record whose write is still in flight may not
// appear yet.
func (a *Application) Records(ctx context.Context, start, maxItems int) ([]store.PlayerRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.records.GetRecords(ctx, start, maxItems)
}
