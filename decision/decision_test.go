package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/brensch/greedysnek/game"
)

// firstRand always picks the first candidate.
type firstRand struct{}

func (firstRand) Intn(int) int { return 0 }

// lastRand always picks the last candidate.
type lastRand struct{}

func (lastRand) Intn(n int) int { return n - 1 }

func dumpSnapshot(s Snapshot) string {
	w, h := int(s.Width), int(s.Height)
	if w <= 0 || h <= 0 || w > 40 || h > 40 {
		return "<board too large to draw>\n"
	}
	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = bytes.Repeat([]byte{'.'}, w)
	}
	put := func(p game.Point, c byte) {
		if p.X >= 0 && int(p.X) < w && p.Y >= 0 && int(p.Y) < h {
			grid[p.Y][p.X] = c
		}
	}
	for _, f := range s.Food {
		put(f, 'F')
	}
	for _, o := range s.Others {
		for i, p := range o.Body {
			if i == 0 {
				put(p, 'S')
			} else {
				put(p, 's')
			}
		}
	}
	for i := len(s.You.Body) - 1; i >= 0; i-- {
		if i == 0 {
			put(s.You.Body[i], 'H')
		} else {
			put(s.You.Body[i], 'o')
		}
	}
	var b strings.Builder
	for y := h - 1; y >= 0; y-- {
		b.Write(grid[y])
		b.WriteByte('\n')
	}
	return b.String()
}

func logSnapshot(t *testing.T, name string, s Snapshot, d Decision) {
	t.Helper()
	t.Logf("=== %s ===\n%ssafe=%s food=%s preferred=%s reason=%s move=%s",
		name, dumpSnapshot(s), d.Safe, d.Food, d.Preferred, d.Reason, d.Move)
}

func pts(xy ...int32) []game.Point {
	out := make([]game.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, game.Point{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestWorkedExample_FoodAboveOpponentRight(t *testing.T) {
	s := Snapshot{
		Width:  11,
		Height: 11,
		Food:   pts(3, 4),
		You:    game.Snake{Id: "me", Health: 90, Body: pts(3, 3, 3, 2, 3, 1)},
		Others: []game.Snake{{Id: "them", Health: 90, Body: pts(4, 3)}},
	}

	d := Decide(s, lastRand{})
	logSnapshot(t, "worked example", s, d)

	if d.Safe != SetOf(game.Up, game.Left) {
		t.Fatalf("safe=%s want={up,left}", d.Safe)
	}
	if d.Food != SetOf(game.Up) {
		t.Fatalf("food=%s want={up}", d.Food)
	}
	if d.Preferred != SetOf(game.Up) {
		t.Fatalf("preferred=%s want={up}", d.Preferred)
	}
	for seed := int64(0); seed < 20; seed++ {
		if got := ChooseMove(s, rand.New(rand.NewSource(seed))); got != game.Up {
			t.Fatalf("seed %d: move=%s want=up", seed, got)
		}
	}
	if d.Reason != ReasonFood {
		t.Fatalf("reason=%s want=food", d.Reason)
	}
}

func TestSafeDirections_ReversalRule(t *testing.T) {
	cases := []struct {
		name string
		body []game.Point
		gone game.Direction
	}{
		{"neck below", pts(3, 3, 3, 2), game.Down},
		{"neck above", pts(3, 3, 3, 4), game.Up},
		{"neck left", pts(3, 3, 2, 3), game.Left},
		{"neck right", pts(3, 3, 4, 3), game.Right},
		// A neck two cells away still only blocks the one direction toward it.
		{"detached neck below", pts(3, 3, 3, 0), game.Down},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := Snapshot{Width: 7, Height: 7, You: game.Snake{Id: "me", Body: c.body}}
			safe := SafeDirections(s)
			if safe.Has(c.gone) {
				t.Fatalf("safe=%s still has %s", safe, c.gone)
			}
			if safe.Len() != 3 {
				t.Fatalf("safe=%s want exactly one removal", safe)
			}
		})
	}
}

func TestSafeDirections_StackedAndMissingNeck(t *testing.T) {
	stacked := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: pts(5, 5, 5, 5, 5, 5)}}
	if got := SafeDirections(stacked); got != AllDirections() {
		t.Fatalf("stacked spawn safe=%s want all", got)
	}
	if a := Anomalies(stacked); !a.Has(AnomalyStackedNeck) {
		t.Fatalf("anomalies=%v want stacked_neck", a.Names())
	}

	headOnly := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: pts(5, 5)}}
	if got := SafeDirections(headOnly); got != AllDirections() {
		t.Fatalf("head only safe=%s want all", got)
	}
	if a := Anomalies(headOnly); !a.Has(AnomalyNoNeck) {
		t.Fatalf("anomalies=%v want no_neck", a.Names())
	}

	// A head alone in a corner still respects the walls.
	corner := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: pts(0, 0)}}
	if got := SafeDirections(corner); got != SetOf(game.Up, game.Right) {
		t.Fatalf("corner safe=%s want={up,right}", got)
	}

	empty := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me"}}
	d := Decide(empty, firstRand{})
	if !d.Move.Valid() {
		t.Fatalf("empty body produced invalid move %d", d.Move)
	}

	detached := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: pts(5, 5, 7, 5)}}
	if a := Anomalies(detached); !a.Has(AnomalyDetachedNeck) {
		t.Fatalf("anomalies=%v want detached_neck", a.Names())
	}
	normal := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: pts(5, 5, 5, 4)}}
	if a := Anomalies(normal); a != 0 {
		t.Fatalf("anomalies=%v want none", a.Names())
	}
}

func TestSafeDirections_Boundaries(t *testing.T) {
	cases := []struct {
		head game.Point
		neck game.Point
		gone []game.Direction
	}{
		{game.Point{X: 0, Y: 5}, game.Point{X: 1, Y: 5}, []game.Direction{game.Left, game.Right}},
		{game.Point{X: 10, Y: 5}, game.Point{X: 9, Y: 5}, []game.Direction{game.Right, game.Left}},
		{game.Point{X: 5, Y: 0}, game.Point{X: 5, Y: 1}, []game.Direction{game.Down, game.Up}},
		{game.Point{X: 5, Y: 10}, game.Point{X: 5, Y: 9}, []game.Direction{game.Up, game.Down}},
		{game.Point{X: 0, Y: 0}, game.Point{X: 0, Y: 1}, []game.Direction{game.Left, game.Down, game.Up}},
	}
	for _, c := range cases {
		s := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: []game.Point{c.head, c.neck}}}
		safe := SafeDirections(s)
		for _, d := range c.gone {
			if safe.Has(d) {
				t.Fatalf("head=%v safe=%s should not have %s", c.head, safe, d)
			}
		}
		if safe.Len() != game.NumDirections-len(c.gone) {
			t.Fatalf("head=%v safe=%s removed too much", c.head, safe)
		}
	}
}

func TestSafeDirections_TailIsBlocked(t *testing.T) {
	// Coiled body whose tail sits directly right of the head.
	s := Snapshot{
		Width:  11,
		Height: 11,
		You:    game.Snake{Id: "me", Body: pts(5, 5, 5, 4, 6, 4, 6, 5)},
	}
	safe := SafeDirections(s)
	if safe.Has(game.Right) {
		t.Fatalf("safe=%s should block the tail cell", safe)
	}
	if safe != SetOf(game.Up, game.Left) {
		t.Fatalf("safe=%s want={up,left}", safe)
	}
}

func TestDecide_Trapped(t *testing.T) {
	s := Snapshot{
		Width:  3,
		Height: 3,
		You:    game.Snake{Id: "me", Body: pts(0, 0, 0, 1)},
		Others: []game.Snake{{Id: "them", Body: pts(1, 0, 1, 1)}},
	}
	d := Decide(s, firstRand{})
	logSnapshot(t, "trapped", s, d)
	if !d.Safe.Empty() {
		t.Fatalf("safe=%s want empty", d.Safe)
	}
	if d.Reason != ReasonTrapped {
		t.Fatalf("reason=%s want=trapped", d.Reason)
	}
	if d.Move != game.Up {
		t.Fatalf("move=%s want=up from firstRand", d.Move)
	}
	if got := Decide(s, lastRand{}).Move; got != game.Right {
		t.Fatalf("move=%s want=right from lastRand", got)
	}
}

func TestDecide_NoFoodFallsBackToSafe(t *testing.T) {
	s := Snapshot{
		Width:  11,
		Height: 11,
		Food:   pts(3, 2), // behind the head, on the neck
		You:    game.Snake{Id: "me", Body: pts(3, 3, 3, 2)},
	}
	d := Decide(s, firstRand{})
	if d.Food != SetOf(game.Down) {
		t.Fatalf("food=%s want={down}", d.Food)
	}
	if !d.Preferred.Empty() {
		t.Fatalf("preferred=%s want empty", d.Preferred)
	}
	if d.Reason != ReasonSafe || d.Move != game.Up {
		t.Fatalf("reason=%s move=%s want safe/up", d.Reason, d.Move)
	}
}

func TestDecide_TieBreakIsRandom(t *testing.T) {
	s := Snapshot{
		Width:  11,
		Height: 11,
		You:    game.Snake{Id: "me", Body: pts(5, 5, 5, 4)},
	}
	seen := map[game.Direction]int{}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		seen[ChooseMove(s, rng)]++
	}
	if seen[game.Down] != 0 {
		t.Fatalf("reversal chosen %d times", seen[game.Down])
	}
	for _, d := range []game.Direction{game.Up, game.Left, game.Right} {
		if seen[d] < 50 {
			t.Fatalf("direction %s chosen %d/300 times: %v", d, seen[d], seen)
		}
	}
}

func TestFoodDirections_OffBoardNeverMatches(t *testing.T) {
	s := Snapshot{
		Width:  5,
		Height: 5,
		Food:   pts(1, 0, 0, 1),
		You:    game.Snake{Id: "me", Body: pts(0, 0, 0, 0)},
	}
	if got := FoodDirections(s); got != SetOf(game.Up, game.Right) {
		t.Fatalf("food=%s want={up,right}", got)
	}
}

func TestIntersect(t *testing.T) {
	a := SetOf(game.Up, game.Left, game.Right)
	b := SetOf(game.Left, game.Down)
	empty := DirectionSet{}

	if got := Intersect(); !got.Empty() {
		t.Fatalf("Intersect()=%s want empty", got)
	}
	if got := Intersect(a); got != a {
		t.Fatalf("Intersect(a)=%s want %s", got, a)
	}
	if got := Intersect(a, empty); !got.Empty() {
		t.Fatalf("Intersect(a,empty)=%s want empty", got)
	}
	if got := Intersect(empty, a); !got.Empty() {
		t.Fatalf("Intersect(empty,a)=%s want empty", got)
	}
	if ab, ba := Intersect(a, b), Intersect(b, a); ab != ba || ab != SetOf(game.Left) {
		t.Fatalf("Intersect(a,b)=%s Intersect(b,a)=%s want {left}", ab, ba)
	}
	if got := Intersect(a, b, SetOf(game.Up)); !got.Empty() {
		t.Fatalf("three way=%s want empty", got)
	}
}

func TestNewSnapshot(t *testing.T) {
	state := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "b",
		Snakes: []game.Snake{
			{Id: "a", Body: pts(1, 1, 1, 2)},
			{Id: "b", Body: pts(5, 5, 5, 4)},
			{Id: "c", Body: pts(9, 9, 9, 8)},
		},
		Food: pts(2, 2),
	}
	s, err := NewSnapshot(state)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	if s.You.Id != "b" {
		t.Fatalf("you=%s want=b", s.You.Id)
	}
	if len(s.Others) != 2 || s.Others[0].Id != "a" || s.Others[1].Id != "c" {
		t.Fatalf("others=%v", s.Others)
	}

	state.YouId = "zzz"
	if _, err := NewSnapshot(state); err != ErrSnakeNotFound {
		t.Fatalf("err=%v want ErrSnakeNotFound", err)
	}
}

func TestEngine_LogsAnomalies(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewEngine(logger)

	s := Snapshot{Width: 11, Height: 11, You: game.Snake{Id: "me", Body: pts(1, 1, 1, 1, 1, 1)}}
	d := e.Move(context.Background(), s, firstRand{}, "game_id", "g1")
	if d.Move != game.Up {
		t.Fatalf("move=%s want=up", d.Move)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines=%d want=2:\n%s", len(lines), buf.String())
	}
	var warn map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &warn); err != nil {
		t.Fatalf("decode warn: %v", err)
	}
	if warn["level"] != "WARN" || warn["game_id"] != "g1" {
		t.Fatalf("warn line=%v", warn)
	}
	var debug map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &debug); err != nil {
		t.Fatalf("decode debug: %v", err)
	}
	if debug["move"] != "up" || debug["head_x"] != float64(1) {
		t.Fatalf("debug line=%v", debug)
	}
}
