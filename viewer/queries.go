package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"strings"
)

func queryDecisionSummary(ctx context.Context, db *sql.DB, gameID string) (DecisionSummary, error) {
	out := DecisionSummary{
		GameID:   gameID,
		ByReason: map[string]int64{},
		ByMove:   map[string]int64{},
	}

	where, args := "", []any{}
	if gameID != "" {
		where, args = " WHERE game_id = ?", append(args, gameID)
	}

	var avg sql.NullFloat64
	var maxLatency sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(DISTINCT game_id),
			COUNT(*) FILTER (WHERE len(anomalies) > 0),
			AVG(latency_ns)::DOUBLE,
			MAX(latency_ns)::BIGINT
		FROM decisions`+where, args...).Scan(&out.Total, &out.Games, &out.WithAnomaly, &avg, &maxLatency)
	if err != nil {
		return out, err
	}
	out.AvgLatencyNs = avg.Float64
	out.MaxLatencyNs = maxLatency.Int64

	rows, err := db.QueryContext(ctx, `SELECT reason, move, COUNT(*)
		FROM decisions`+where+`
		GROUP BY reason, move`, args...)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var reason, move sql.NullString
		var n int64
		if err := rows.Scan(&reason, &move, &n); err != nil {
			return out, err
		}
		out.ByReason[reason.String] += n
		out.ByMove[move.String] += n
	}
	return out, rows.Err()
}

// queryAllGames loads one summary per arena game (used to build the cache).
func queryAllGames(ctx context.Context, db *sql.DB, root string) ([]GameSummary, error) {
	query := `WITH game_stats AS (
		SELECT
			game_id,
			MAX(turn)::INTEGER AS max_turn,
			MIN(width)::INTEGER AS width,
			MIN(height)::INTEGER AS height,
			MIN(source)::VARCHAR AS source,
			MIN(filename)::VARCHAR AS file
		FROM turns
		GROUP BY game_id
	),
	last_turn AS (
		SELECT t.game_id, t.snakes
		FROM turns t
		JOIN game_stats g ON g.game_id = t.game_id AND t.turn = g.max_turn
	)
	SELECT g.game_id, g.max_turn, g.width, g.height, g.source, g.file, lt.snakes
	FROM game_stats g
	LEFT JOIN last_turn lt ON g.game_id = lt.game_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameSummary, 0, 1024)
	for rows.Next() {
		var g GameSummary
		var source, file sql.NullString
		var snakesAny any
		if err := rows.Scan(&g.GameID, &g.TurnCount, &g.Width, &g.Height, &source, &file, &snakesAny); err != nil {
			return nil, err
		}
		g.Source = source.String
		g.SourceFile = relativeTo(file.String, root)
		summarizeSnakes(&g, asSnakes(snakesAny))
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

// summarizeSnakes reads the winner and causes off the terminal row, where
// the winner is the only snake with a positive value.
func summarizeSnakes(g *GameSummary, snakes []Snake) {
	g.Snakes = int32(len(snakes))
	for _, s := range snakes {
		if s.Value > 0 {
			g.Winner = s.ID
		}
		if s.Cause != "" {
			g.Causes = append(g.Causes, s.ID+":"+s.Cause)
		}
	}
}

func relativeTo(filename, root string) string {
	fn := strings.TrimSpace(filename)
	if fn == "" || root == "" {
		return fn
	}
	rel, err := filepath.Rel(root, fn)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fn
	}
	return filepath.ToSlash(rel)
}

func queryTurns(ctx context.Context, db *sql.DB, gameID string) ([]Turn, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT game_id, turn::INTEGER, width::INTEGER, height::INTEGER, food_x, food_y, snakes, source
		 FROM turns
		 WHERE game_id = ?
		 ORDER BY turn ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]Turn, 0, 256)
	for rows.Next() {
		var t Turn
		var foodXAny, foodYAny, snakesAny any
		var source sql.NullString
		if err := rows.Scan(&t.GameID, &t.Turn, &t.Width, &t.Height, &foodXAny, &foodYAny, &snakesAny, &source); err != nil {
			return nil, err
		}
		t.Food = zipPoints(asInt32Slice(foodXAny), asInt32Slice(foodYAny))
		t.Snakes = asSnakes(snakesAny)
		t.Source = source.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, sql.ErrNoRows
	}
	return turns, nil
}

// queryAgreement groups replay rows by snake name, keeping snakes seen on at
// least minTurns turns, busiest first.
func queryAgreement(ctx context.Context, db *sql.DB, minTurns, limit int) (AgreementResponse, error) {
	var resp AgreementResponse
	const cols = `COUNT(DISTINCT game_id),
			COUNT(*),
			COUNT(*) FILTER (WHERE agree),
			COUNT(*) FILTER (WHERE NOT actual_safe),
			COUNT(*) FILTER (WHERE actual_on_food)`

	var unsafe, food int64
	o := &resp.Overall
	o.SnakeName = "*"
	if err := db.QueryRowContext(ctx, `SELECT `+cols+` FROM replays`).Scan(&o.Games, &o.Turns, &o.Agree, &unsafe, &food); err != nil {
		return resp, err
	}
	fillRates(o, unsafe, food)

	rows, err := db.QueryContext(ctx, `SELECT snake_name, `+cols+`
		FROM replays
		GROUP BY snake_name
		HAVING COUNT(*) >= ?
		ORDER BY COUNT(*) DESC, snake_name ASC
		LIMIT ?`, minTurns, limit)
	if err != nil {
		return resp, err
	}
	defer rows.Close()

	resp.Snakes = make([]AgreementRow, 0, limit)
	for rows.Next() {
		var a AgreementRow
		var name sql.NullString
		if err := rows.Scan(&name, &a.Games, &a.Turns, &a.Agree, &unsafe, &food); err != nil {
			return resp, err
		}
		a.SnakeName = name.String
		fillRates(&a, unsafe, food)
		resp.Snakes = append(resp.Snakes, a)
	}
	return resp, rows.Err()
}

func fillRates(a *AgreementRow, unsafe, food int64) {
	a.AgreementRate = ratio(a.Agree, a.Turns)
	a.UnsafeRate = ratio(unsafe, a.Turns)
	a.FoodRate = ratio(food, a.Turns)
}
