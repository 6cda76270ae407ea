package decision

import "github.com/brensch/greedysnek/game"

// FoodDirections returns the moves whose destination cell holds food.
// Off-board destinations are not filtered; they simply never match.
func FoodDirections(s Snapshot) DirectionSet {
	var out DirectionSet
	head, ok := s.You.Head()
	if !ok {
		return out
	}
	for _, d := range game.Directions {
		next := head.Step(d)
		for _, f := range s.Food {
			if f == next {
				out.Add(d)
				break
			}
		}
	}
	return out
}
