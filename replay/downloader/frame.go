package downloader

import "github.com/brensch/greedysnek/game"

// FrameData from "frame" events
type FrameData struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []Coord     `json:"food"`
	Hazards []Coord     `json:"hazards"`
	Board   BoardData   `json:"board,omitempty"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Author string  `json:"author,omitempty"`
	Death  *Death  `json:"death,omitempty"`
}

// Alive reports whether the snake is still on the board in this frame.
func (s *SnakeData) Alive() bool {
	return s.Death == nil && s.Health > 0 && len(s.Body) > 0
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) Point() game.Point {
	return game.Point{X: int32(c.X), Y: int32(c.Y)}
}

type BoardData struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Death struct {
	Cause        string `json:"cause"`
	Turn         int    `json:"turn"`
	EliminatedBy string `json:"eliminatedBy,omitempty"`
}

// Snake returns the snake with id, dead or alive.
func (f *FrameData) Snake(id string) *SnakeData {
	for i := range f.Snakes {
		if f.Snakes[i].ID == id {
			return &f.Snakes[i]
		}
	}
	return nil
}

// State converts the frame to the position egoID decides from. Snakes that
// are already dead are left off the board.
func (f *FrameData) State(egoID string) *game.GameState {
	state := &game.GameState{
		Width:  int32(f.Board.Width),
		Height: int32(f.Board.Height),
		YouId:  egoID,
		Turn:   int32(f.Turn),
		Food:   make([]game.Point, len(f.Food)),
		Snakes: make([]game.Snake, 0, len(f.Snakes)),
	}
	for i, c := range f.Food {
		state.Food[i] = c.Point()
	}
	for i := range f.Snakes {
		s := &f.Snakes[i]
		if !s.Alive() {
			continue
		}
		body := make([]game.Point, len(s.Body))
		for j, c := range s.Body {
			body[j] = c.Point()
		}
		state.Snakes = append(state.Snakes, game.Snake{Id: s.ID, Health: int32(s.Health), Body: body})
	}
	return state
}
