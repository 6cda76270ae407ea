package game

import "fmt"

// Direction is one of the four cardinal moves. The numbering matches the
// policy columns written to Parquet: 0=Up, 1=Down, 2=Left, 3=Right.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// NumDirections is the size of the move space.
const NumDirections = 4

// Directions lists every move in ascending order.
var Directions = [NumDirections]Direction{Up, Down, Left, Right}

var directionNames = [NumDirections]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < 0 || int(d) >= NumDirections {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Valid reports whether d is one of the four moves.
func (d Direction) Valid() bool {
	return d >= 0 && int(d) < NumDirections
}

// Opposite returns the move that undoes d.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// ParseDirection maps the Battlesnake API move names back to a Direction.
func ParseDirection(name string) (Direction, error) {
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", name)
}

// DirectionBetween returns the move that takes a head from `from` to `to`.
// The second result is false unless the two points are axis-aligned neighbours.
func DirectionBetween(from, to Point) (Direction, bool) {
	dx, dy := to.X-from.X, to.Y-from.Y
	switch {
	case dx == 0 && dy == 1:
		return Up, true
	case dx == 0 && dy == -1:
		return Down, true
	case dx == -1 && dy == 0:
		return Left, true
	case dx == 1 && dy == 0:
		return Right, true
	}
	return 0, false
}
