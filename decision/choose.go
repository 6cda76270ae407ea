package decision

import "github.com/brensch/greedysnek/game"

// Rand is the randomness the selector needs. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Reason records which candidate pool a move was drawn from.
type Reason int

const (
	// ReasonFood: drawn from the safe moves that land on food.
	ReasonFood Reason = iota
	// ReasonSafe: no safe move reaches food, drawn from the safe moves.
	ReasonSafe
	// ReasonTrapped: nothing is safe, drawn from all four moves.
	ReasonTrapped
)

func (r Reason) String() string {
	switch r {
	case ReasonFood:
		return "food"
	case ReasonSafe:
		return "safe"
	case ReasonTrapped:
		return "trapped"
	}
	return "unknown"
}

// Decision is a chosen move together with the sets that produced it.
type Decision struct {
	Move      game.Direction
	Reason    Reason
	Safe      DirectionSet
	Food      DirectionSet
	Preferred DirectionSet
	Anomalies Anomaly
}

// Decide runs the filters over s and draws one move with rng.
// It always returns one of the four directions.
func Decide(s Snapshot, rng Rand) Decision {
	d := Decision{
		Safe:      SafeDirections(s),
		Food:      FoodDirections(s),
		Anomalies: Anomalies(s),
	}
	d.Preferred = Intersect(d.Safe, d.Food)

	switch {
	case !d.Preferred.Empty():
		d.Reason = ReasonFood
		d.Move = pick(d.Preferred, rng)
	case !d.Safe.Empty():
		d.Reason = ReasonSafe
		d.Move = pick(d.Safe, rng)
	default:
		d.Reason = ReasonTrapped
		d.Move = pick(AllDirections(), rng)
	}
	return d
}

// ChooseMove is Decide without the bookkeeping.
func ChooseMove(s Snapshot, rng Rand) game.Direction {
	return Decide(s, rng).Move
}

func pick(set DirectionSet, rng Rand) game.Direction {
	candidates := set.Slice()
	if len(candidates) == 1 {
		return candidates[0]
	}
	i := rng.Intn(len(candidates))
	if i < 0 || i >= len(candidates) {
		i = 0
	}
	return candidates[i]
}
