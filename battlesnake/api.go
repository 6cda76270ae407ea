package main

import "github.com/brensch/greedysnek/game"

// Battlesnake API request/response types

type InfoResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author"`
	Color      string `json:"color"`
	Head       string `json:"head"`
	Tail       string `json:"tail"`
	Version    string `json:"version"`
}

type GameRequest struct {
	Game  Game        `json:"game"`
	Turn  int         `json:"turn"`
	Board Board       `json:"board"`
	You   Battlesnake `json:"you"`
}

type Game struct {
	ID      string  `json:"id"`
	Ruleset Ruleset `json:"ruleset"`
	Map     string  `json:"map"`
	Timeout int     `json:"timeout"`
	Source  string  `json:"source"`
}

type Ruleset struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings RulesetSettings `json:"settings"`
}

type RulesetSettings struct {
	FoodSpawnChance     int `json:"foodSpawnChance"`
	MinimumFood         int `json:"minimumFood"`
	HazardDamagePerTurn int `json:"hazardDamagePerTurn"`
}

type Board struct {
	Height  int           `json:"height"`
	Width   int           `json:"width"`
	Food    []Coord       `json:"food"`
	Hazards []Coord       `json:"hazards"`
	Snakes  []Battlesnake `json:"snakes"`
}

type Battlesnake struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Health  int     `json:"health"`
	Body    []Coord `json:"body"`
	Latency string  `json:"latency"`
	Head    Coord   `json:"head"`
	Length  int     `json:"length"`
	Shout   string  `json:"shout"`
	Squad   string  `json:"squad"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type MoveResponse struct {
	Move  string `json:"move"`
	Shout string `json:"shout,omitempty"`
}

func toPoint(c Coord) game.Point {
	return game.Point{X: int32(c.X), Y: int32(c.Y)}
}

func toPoints(cs []Coord) []game.Point {
	out := make([]game.Point, len(cs))
	for i, c := range cs {
		out[i] = toPoint(c)
	}
	return out
}

// toSnake converts an API snake. A body-less snake falls back to its head so
// the engine still has a position to move from.
func toSnake(b Battlesnake) game.Snake {
	body := toPoints(b.Body)
	if len(body) == 0 && (b.Head != Coord{} || b.Length > 0) {
		body = []game.Point{toPoint(b.Head)}
	}
	return game.Snake{Id: b.ID, Health: int32(b.Health), Body: body}
}
