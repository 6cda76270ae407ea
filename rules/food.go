package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/brensch/greedysnek/game"
)

// FoodSettings matches the Battlesnake server knobs:
//   - MinimumFood: ensure at least this many food items exist after each turn
//   - FoodSpawnChance: percentage chance (0-100) to spawn one extra food each turn
type FoodSettings struct {
	MinimumFood     int
	FoodSpawnChance int
}

// DefaultFoodSettings are the standard ruleset values.
var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

func (s FoodSettings) clamped() FoodSettings {
	if s.MinimumFood < 0 {
		s.MinimumFood = 0
	}
	if s.FoodSpawnChance < 0 {
		s.FoodSpawnChance = 0
	}
	if s.FoodSpawnChance > 100 {
		s.FoodSpawnChance = 100
	}
	return s
}

// ApplyFoodSettings spawns food on an existing state, e.g. to satisfy
// MinimumFood before turn 0.
func ApplyFoodSettings(state *game.GameState, rng *rand.Rand, settings FoodSettings) {
	applyFoodRules(state, rng, settings, 0x464F4F445F494E49) // "FOOD_INI"
}

func applyFoodRules(state *game.GameState, rng *rand.Rand, settings FoodSettings, salt uint64) {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return
	}
	settings = settings.clamped()

	// With no rng, derive one from the state so replays of the same
	// position spawn the same food.
	if rng == nil {
		seed := int64(stateHash(state, salt))
		if seed == 0 {
			seed = 1
		}
		rng = rand.New(rand.NewSource(seed))
	}

	toSpawn := settings.MinimumFood - len(state.Food)
	if toSpawn < 0 {
		toSpawn = 0
	}
	if settings.FoodSpawnChance > 0 && rng.Intn(100) < settings.FoodSpawnChance {
		toSpawn++
	}
	if toSpawn == 0 {
		return
	}

	occupied := make(map[game.Point]bool, len(state.Food)+4*len(state.Snakes))
	for _, s := range state.Snakes {
		for _, p := range s.Body {
			occupied[p] = true
		}
	}
	for _, f := range state.Food {
		occupied[f] = true
	}

	free := make([]game.Point, 0, max(int(state.Width*state.Height)-len(occupied), 0))
	for y := int32(0); y < state.Height; y++ {
		for x := int32(0); x < state.Width; x++ {
			p := game.Point{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}

	for ; toSpawn > 0 && len(free) > 0; toSpawn-- {
		i := rng.Intn(len(free))
		state.Food = append(state.Food, free[i])
		free[i] = free[len(free)-1]
		free = free[:len(free)-1]
	}
}

// stateHash mixes board size, turn, salt, food count and head positions.
func stateHash(state *game.GameState, salt uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	write(uint64(uint32(state.Width)) | uint64(uint32(state.Height))<<32)
	write(uint64(uint32(state.Turn)))
	write(salt)
	write(uint64(len(state.Food)))
	for _, s := range state.Snakes {
		if len(s.Body) == 0 {
			continue
		}
		_, _ = h.Write([]byte(s.Id))
		head := s.Body[0]
		write(uint64(uint32(head.X))<<32 | uint64(uint32(head.Y)))
	}
	return h.Sum64()
}
