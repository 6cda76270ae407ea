package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// getOnly applies CORS and rejects anything but GET. It reports whether the
// handler should continue.
func getOnly(w http.ResponseWriter, r *http.Request) bool {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func normalizeSort(sortKey string, sortDir string) (string, string) {
	sk := strings.ToLower(strings.TrimSpace(sortKey))
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	switch sk {
	case "id", "game", "game_id":
		sk = "game_id"
	case "turns", "turn_count":
		sk = "turn_count"
	case "snakes":
		sk = "snakes"
	case "winner":
		sk = "winner"
	case "file", "filename":
		sk = "file"
	default:
		sk = "file"
		sd = "desc"
	}
	return sk, sd
}

// paginateGames sorts a copy of games and returns one page of it.
func paginateGames(games []GameSummary, limit, offset int, sortKey, sortDir string) []GameSummary {
	sk, sd := normalizeSort(sortKey, sortDir)

	sorted := make([]GameSummary, len(games))
	copy(sorted, games)

	key := func(g GameSummary) string {
		switch sk {
		case "winner":
			return g.Winner
		case "file":
			return g.SourceFile
		}
		return g.GameID
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if sd == "desc" {
			a, b = b, a
		}
		switch sk {
		case "turn_count":
			if a.TurnCount != b.TurnCount {
				return a.TurnCount < b.TurnCount
			}
		case "snakes":
			if a.Snakes != b.Snakes {
				return a.Snakes < b.Snakes
			}
		default:
			if key(a) != key(b) {
				return key(a) < key(b)
			}
		}
		return a.GameID < b.GameID
	})

	if offset >= len(sorted) {
		return []GameSummary{}
	}
	end := len(sorted)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return sorted[offset:end]
}

func zipPoints(xs, ys []int32) []Point {
	n := min(len(xs), len(ys))
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Point{X: xs[i], Y: ys[i]})
	}
	return out
}

// The DuckDB driver hands back LIST and STRUCT columns as []any and
// map[string]any; the helpers below coerce them.

func asInt32Slice(v any) []int32 {
	switch vv := v.(type) {
	case []int32:
		return vv
	case []any:
		out := make([]int32, 0, len(vv))
		for _, x := range vv {
			out = append(out, int32(asInt64(x)))
		}
		return out
	}
	return nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}

func asFloat32(v any) float32 {
	switch t := v.(type) {
	case float32:
		return t
	case float64:
		return float32(t)
	}
	return 0
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return ""
}

func asSnakes(v any) []Snake {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	snakes := make([]Snake, 0, len(list))
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		alive, _ := m["alive"].(bool)
		snakes = append(snakes, Snake{
			ID:     asString(m["id"]),
			Alive:  alive,
			Health: int32(asInt64(m["health"])),
			Body:   zipPoints(asInt32Slice(m["body_x"]), asInt32Slice(m["body_y"])),
			Policy: int32(asInt64(m["policy"])),
			Reason: asString(m["reason"]),
			Value:  asFloat32(m["value"]),
			Cause:  asString(m["cause"]),
		})
	}
	return snakes
}
