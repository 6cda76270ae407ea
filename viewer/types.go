package main

// DecisionSummary aggregates the live server's decision log.
type DecisionSummary struct {
	GameID       string           `json:"game_id,omitempty"`
	Total        int64            `json:"total"`
	Games        int64            `json:"games"`
	ByReason     map[string]int64 `json:"by_reason"`
	ByMove       map[string]int64 `json:"by_move"`
	WithAnomaly  int64            `json:"with_anomaly"`
	AvgLatencyNs float64          `json:"avg_latency_ns"`
	MaxLatencyNs int64            `json:"max_latency_ns"`
}

// GameSummary represents a summarized arena game for the games list.
type GameSummary struct {
	GameID     string   `json:"game_id"`
	TurnCount  int32    `json:"turn_count"`
	Width      int32    `json:"width"`
	Height     int32    `json:"height"`
	Source     string   `json:"source"`
	SourceFile string   `json:"file"`
	Snakes     int32    `json:"snakes"`
	Winner     string   `json:"winner"`
	Causes     []string `json:"causes,omitempty"`
}

// GamesResponse is the paginated response for the /api/games endpoint.
type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

// Point represents a 2D coordinate on the board.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Snake represents a snake in a turn.
type Snake struct {
	ID     string  `json:"id"`
	Alive  bool    `json:"alive"`
	Health int32   `json:"health"`
	Body   []Point `json:"body"`
	Policy int32   `json:"policy"`
	Reason string  `json:"reason,omitempty"`
	Value  float32 `json:"value"`
	Cause  string  `json:"cause,omitempty"`
}

// Turn represents a single turn in a game.
type Turn struct {
	GameID string  `json:"game_id"`
	Turn   int32   `json:"turn"`
	Width  int32   `json:"width"`
	Height int32   `json:"height"`
	Food   []Point `json:"food"`
	Snakes []Snake `json:"snakes"`
	Source string  `json:"source"`
}

// AgreementRow is how often the engine would have made the move one
// recorded snake actually made.
type AgreementRow struct {
	SnakeName     string  `json:"snake_name"`
	Games         int64   `json:"games"`
	Turns         int64   `json:"turns"`
	Agree         int64   `json:"agree"`
	AgreementRate float64 `json:"agreement_rate"`
	// UnsafeRate is the share of actual moves the engine's filter would
	// have ruled out.
	UnsafeRate float64 `json:"unsafe_rate"`
	FoodRate   float64 `json:"food_rate"`
}

type AgreementResponse struct {
	Overall AgreementRow   `json:"overall"`
	Snakes  []AgreementRow `json:"snakes"`
}
