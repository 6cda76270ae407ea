package decision

import "github.com/brensch/greedysnek/game"

// SafeDirections returns the moves that survive the reversal, boundary,
// self-collision and opponent-collision rules. The result may be empty.
func SafeDirections(s Snapshot) DirectionSet {
	safe := AllDirections()
	body := s.You.Body
	if len(body) == 0 {
		return safe
	}
	head := body[0]

	// Reversal. Only one direction goes, even for a detached neck.
	if len(body) > 1 {
		neck := body[1]
		switch {
		case neck.X < head.X:
			safe.Remove(game.Left)
		case neck.X > head.X:
			safe.Remove(game.Right)
		case neck.Y < head.Y:
			safe.Remove(game.Down)
		case neck.Y > head.Y:
			safe.Remove(game.Up)
		}
	}

	// Walls.
	if head.X == 0 {
		safe.Remove(game.Left)
	}
	if head.X == s.Width-1 {
		safe.Remove(game.Right)
	}
	if head.Y == 0 {
		safe.Remove(game.Down)
	}
	if head.Y == s.Height-1 {
		safe.Remove(game.Up)
	}

	// Tails stay blocked even though they usually move away next turn.
	removeOccupied(&safe, head, body)
	for _, other := range s.Others {
		removeOccupied(&safe, head, other.Body)
	}

	return safe
}

func removeOccupied(safe *DirectionSet, head game.Point, segments []game.Point) {
	for _, seg := range segments {
		for _, d := range game.Directions {
			if head.Step(d) == seg {
				safe.Remove(d)
			}
		}
	}
}
