// Package game defines the board snapshot types shared by the decision
// engine, the rules simulator and the tooling around them.
//
// A snapshot is built fresh for every turn and treated as read-only by the
// decision engine. Clone exists for the simulator, which advances copies.
package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int32
	Y int32
}

// Step returns the cell reached by moving one square in direction d.
func (p Point) Step(d Direction) Point {
	switch d {
	case Up:
		return Point{X: p.X, Y: p.Y + 1}
	case Down:
		return Point{X: p.X, Y: p.Y - 1}
	case Left:
		return Point{X: p.X - 1, Y: p.Y}
	case Right:
		return Point{X: p.X + 1, Y: p.Y}
	}
	return p
}

type Snake struct {
	Id     string
	Health int32
	Body   []Point
}

// Head returns the first body segment and false when the body is empty.
func (s *Snake) Head() (Point, bool) {
	if len(s.Body) == 0 {
		return Point{}, false
	}
	return s.Body[0], true
}

// GameState is one turn of a game.
// YouId selects the snake whose perspective the state is viewed from.
type GameState struct {
	Width  int32
	Height int32
	Snakes []Snake
	Food   []Point
	YouId  string
	Turn   int32
}

// InBounds reports whether p lies on the board.
func (s *GameState) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Find returns the snake with the given id, or nil.
func (s *GameState) Find(id string) *Snake {
	for i := range s.Snakes {
		if s.Snakes[i].Id == id {
			return &s.Snakes[i]
		}
	}
	return nil
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:  s.Width,
		Height: s.Height,
		YouId:  s.YouId,
		Turn:   s.Turn,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = Snake{Id: s.Snakes[i].Id, Health: s.Snakes[i].Health}
			if len(s.Snakes[i].Body) > 0 {
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body))
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}
