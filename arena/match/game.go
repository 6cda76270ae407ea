// Package match plays whole games between copies of the decision engine.
package match

import (
	"fmt"
	"math/rand"

	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/rules"
	"github.com/google/uuid"
)

// Config describes the games an arena plays.
type Config struct {
	Width  int32
	Height int32
	// Snakes per game. Standard boards have eight spawn points.
	Snakes      int
	StartLength int
	// MaxTurns stops a game that is still running; 0 means no limit.
	MaxTurns int
	Food     rules.FoodSettings
	Source   string
}

func DefaultConfig() Config {
	return Config{
		Width:       11,
		Height:      11,
		Snakes:      2,
		StartLength: 3,
		MaxTurns:    1000,
		Food:        rules.DefaultFoodSettings,
		Source:      "arena",
	}
}

func (c Config) validate() error {
	if c.Width < 3 || c.Height < 3 {
		return fmt.Errorf("board %dx%d is too small", c.Width, c.Height)
	}
	if c.Snakes < 1 || c.Snakes > len(spawnPoints(c.Width, c.Height)) {
		return fmt.Errorf("cannot place %d snakes on a %dx%d board", c.Snakes, c.Width, c.Height)
	}
	if c.StartLength < 1 {
		return fmt.Errorf("start length %d must be positive", c.StartLength)
	}
	return nil
}

// Game is a fresh game before turn 0 has been played.
type Game struct {
	ID    string
	State *game.GameState
}

// NewGame places cfg.Snakes snakes on distinct spawn points with every body
// segment stacked on the spawn cell, then tops up food to the minimum.
// The game id is drawn from rng so seeded runs are reproducible.
func NewGame(rng *rand.Rand, cfg Config) (Game, error) {
	if err := cfg.validate(); err != nil {
		return Game{}, err
	}
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return Game{}, fmt.Errorf("game id: %w", err)
	}

	spawns := spawnPoints(cfg.Width, cfg.Height)
	rng.Shuffle(len(spawns), func(i, j int) { spawns[i], spawns[j] = spawns[j], spawns[i] })

	state := &game.GameState{
		Width:  cfg.Width,
		Height: cfg.Height,
		Snakes: make([]game.Snake, cfg.Snakes),
	}
	for i := range state.Snakes {
		body := make([]game.Point, cfg.StartLength)
		for j := range body {
			body[j] = spawns[i]
		}
		state.Snakes[i] = game.Snake{
			Id:     fmt.Sprintf("snake%d", i+1),
			Health: rules.MaxHealth,
			Body:   body,
		}
	}
	state.YouId = state.Snakes[0].Id

	// Only enforce the minimum at game start.
	rules.ApplyFoodSettings(state, rng, rules.FoodSettings{MinimumFood: cfg.Food.MinimumFood})
	return Game{ID: id.String(), State: state}, nil
}

// spawnPoints are the standard corner and edge-centre spawns, one cell in
// from the wall.
func spawnPoints(w, h int32) []game.Point {
	lo, midX, midY, hiX, hiY := int32(1), (w-1)/2, (h-1)/2, w-2, h-2
	candidates := []game.Point{
		{X: lo, Y: lo}, {X: lo, Y: hiY}, {X: hiX, Y: lo}, {X: hiX, Y: hiY},
		{X: lo, Y: midY}, {X: midX, Y: lo}, {X: midX, Y: hiY}, {X: hiX, Y: midY},
	}
	seen := make(map[game.Point]bool, len(candidates))
	out := candidates[:0]
	for _, p := range candidates {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
