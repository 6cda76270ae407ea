// Package store owns the Parquet files the agent and its tools produce: the
// live server's decision log, arena game archives and replay evaluations.
package store

// Schema names written to each file's key/value metadata.
const (
	SchemaDecision = "decision_row_v1"
	SchemaArchive  = "archive_turn_v1"
	SchemaReplay   = "replay_row_v1"
)

// DecisionRow is one move the server answered.
//
// Safe, Food and Preferred are the candidate sets by API name, so a reader
// can see what the snake could have done without re-running the rules.
type DecisionRow struct {
	GameID    string   `parquet:"game_id,dict"`
	Turn      int32    `parquet:"turn"`
	SnakeID   string   `parquet:"snake_id,dict"`
	Width     int32    `parquet:"width"`
	Height    int32    `parquet:"height"`
	HeadX     int32    `parquet:"head_x"`
	HeadY     int32    `parquet:"head_y"`
	Length    int32    `parquet:"length"`
	Health    int32    `parquet:"health"`
	Opponents int32    `parquet:"opponents"`
	Move      string   `parquet:"move,dict"`
	Reason    string   `parquet:"reason,dict"`
	Safe      []string `parquet:"safe"`
	Food      []string `parquet:"food"`
	Preferred []string `parquet:"preferred"`
	Anomalies []string `parquet:"anomalies"`
	Source    string   `parquet:"source,dict"`
	DecidedNs int64    `parquet:"decided_ns"`
	LatencyNs int64    `parquet:"latency_ns"`
}

// ArchiveTurnRow is a single (game, turn) snapshot of an arena game.
//
// Policy on each snake is the move it played from this position
// (0=Up, 1=Down, 2=Left, 3=Right), or -1 on the terminal row.
type ArchiveTurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	FoodX []int32 `parquet:"food_x"`
	FoodY []int32 `parquet:"food_y"`

	Snakes []ArchiveSnake `parquet:"snakes"`

	Source string `parquet:"source,dict"`
}

type ArchiveSnake struct {
	ID     string `parquet:"id,dict"`
	Alive  bool   `parquet:"alive"`
	Health int32  `parquet:"health"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`

	Policy int32  `parquet:"policy"`
	Reason string `parquet:"reason,dict"`

	// Value is the final outcome from this snake's perspective:
	// 1 win, -1 loss, 0 draw.
	Value float32 `parquet:"value"`

	// Cause is the elimination cause on the turn the snake left the board.
	Cause string `parquet:"cause,dict,optional"`
}

// ReplayRow compares a recorded move against what the engine would have
// played from the same position.
type ReplayRow struct {
	GameID       string   `parquet:"game_id,dict"`
	Turn         int32    `parquet:"turn"`
	SnakeID      string   `parquet:"snake_id,dict"`
	SnakeName    string   `parquet:"snake_name,dict"`
	Actual       string   `parquet:"actual,dict"`
	Engine       string   `parquet:"engine,dict"`
	Reason       string   `parquet:"reason,dict"`
	Safe         []string `parquet:"safe"`
	ActualSafe   bool     `parquet:"actual_safe"`
	ActualOnFood bool     `parquet:"actual_on_food"`
	Agree        bool     `parquet:"agree"`
	Survived     bool     `parquet:"survived"`
}
