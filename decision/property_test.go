package decision

import (
	"math/rand"
	"testing"

	"github.com/brensch/greedysnek/game"
)

// randomWalk builds a contiguous body of length n starting at head, allowing
// the walk to fold back over itself like a real coiled snake.
func randomWalk(rng *rand.Rand, w, h int32, head game.Point, n int) []game.Point {
	body := []game.Point{head}
	cur := head
	for len(body) < n {
		d := game.Directions[rng.Intn(game.NumDirections)]
		next := cur.Step(d)
		if next.X < 0 || next.X >= w || next.Y < 0 || next.Y >= h {
			continue
		}
		body = append(body, next)
		cur = next
	}
	return body
}

func randomSnapshot(rng *rand.Rand) Snapshot {
	w := int32(3 + rng.Intn(9))
	h := int32(3 + rng.Intn(9))
	randPoint := func() game.Point {
		return game.Point{X: int32(rng.Intn(int(w))), Y: int32(rng.Intn(int(h)))}
	}

	s := Snapshot{
		Width:  w,
		Height: h,
		You:    game.Snake{Id: "me", Health: 100, Body: randomWalk(rng, w, h, randPoint(), 2+rng.Intn(6))},
	}
	for i, n := 0, rng.Intn(4); i < n; i++ {
		s.Others = append(s.Others, game.Snake{
			Id:     string(rune('a' + i)),
			Health: 100,
			Body:   randomWalk(rng, w, h, randPoint(), 1+rng.Intn(6)),
		})
	}
	for i, n := 0, rng.Intn(5); i < n; i++ {
		s.Food = append(s.Food, randPoint())
	}
	return s
}

func occupies(body []game.Point, p game.Point) bool {
	for _, seg := range body {
		if seg == p {
			return true
		}
	}
	return false
}

func TestProperties_RandomBoards(t *testing.T) {
	gen := rand.New(rand.NewSource(42))
	for iter := 0; iter < 2000; iter++ {
		s := randomSnapshot(gen)
		head, neck := s.You.Body[0], s.You.Body[1]
		safe := SafeDirections(s)
		food := FoodDirections(s)

		// Reversal.
		if d, ok := game.DirectionBetween(head, neck); ok && safe.Has(d) {
			t.Fatalf("iter %d: safe=%s contains reversal %s\n%s", iter, safe, d, dumpSnapshot(s))
		}

		// Boundary.
		for _, d := range safe.Slice() {
			next := head.Step(d)
			if next.X < 0 || next.X >= s.Width || next.Y < 0 || next.Y >= s.Height {
				t.Fatalf("iter %d: safe move %s leaves board\n%s", iter, d, dumpSnapshot(s))
			}
			if occupies(s.You.Body, next) {
				t.Fatalf("iter %d: safe move %s hits own body\n%s", iter, d, dumpSnapshot(s))
			}
			for _, o := range s.Others {
				if occupies(o.Body, next) {
					t.Fatalf("iter %d: safe move %s hits %s\n%s", iter, d, o.Id, dumpSnapshot(s))
				}
			}
		}

		// Anything not eliminated by a rule must survive.
		for _, d := range game.Directions {
			next := head.Step(d)
			blocked := next.X < 0 || next.X >= s.Width || next.Y < 0 || next.Y >= s.Height ||
				occupies(s.You.Body, next)
			for _, o := range s.Others {
				blocked = blocked || occupies(o.Body, next)
			}
			if r, ok := reversalOf(head, neck); ok && r == d {
				blocked = true
			}
			if blocked == safe.Has(d) {
				t.Fatalf("iter %d: direction %s blocked=%v but safe=%s\n%s", iter, d, blocked, safe, dumpSnapshot(s))
			}
		}

		// Food correctness.
		for _, d := range game.Directions {
			if food.Has(d) != occupies(s.Food, head.Step(d)) {
				t.Fatalf("iter %d: food=%s wrong for %s\n%s", iter, food, d, dumpSnapshot(s))
			}
		}

		// Totality and pool membership.
		dec := Decide(s, gen)
		if !dec.Move.Valid() {
			t.Fatalf("iter %d: invalid move %d", iter, dec.Move)
		}
		switch dec.Reason {
		case ReasonFood:
			if !dec.Preferred.Has(dec.Move) {
				t.Fatalf("iter %d: food move %s not in %s", iter, dec.Move, dec.Preferred)
			}
		case ReasonSafe:
			if !dec.Preferred.Empty() || !dec.Safe.Has(dec.Move) {
				t.Fatalf("iter %d: safe move %s preferred=%s safe=%s", iter, dec.Move, dec.Preferred, dec.Safe)
			}
		case ReasonTrapped:
			if !dec.Safe.Empty() {
				t.Fatalf("iter %d: trapped with safe=%s", iter, dec.Safe)
			}
		}
	}
}

// reversalOf mirrors the neck comparison order used by the reversal rule.
func reversalOf(head, neck game.Point) (game.Direction, bool) {
	switch {
	case neck.X < head.X:
		return game.Left, true
	case neck.X > head.X:
		return game.Right, true
	case neck.Y < head.Y:
		return game.Down, true
	case neck.Y > head.Y:
		return game.Up, true
	}
	return 0, false
}

func TestProperties_SnapshotNotMutated(t *testing.T) {
	gen := rand.New(rand.NewSource(3))
	for iter := 0; iter < 200; iter++ {
		s := randomSnapshot(gen)
		youBefore := append([]game.Point(nil), s.You.Body...)
		foodBefore := append([]game.Point(nil), s.Food...)

		_ = Decide(s, gen)

		for i := range youBefore {
			if s.You.Body[i] != youBefore[i] {
				t.Fatalf("iter %d: body mutated at %d", iter, i)
			}
		}
		for i := range foodBefore {
			if s.Food[i] != foodBefore[i] {
				t.Fatalf("iter %d: food mutated at %d", iter, i)
			}
		}
	}
}
