package match

import (
	"fmt"
	"strings"

	"github.com/brensch/greedysnek/game"
)

// Render draws state as ASCII with y=0 at the bottom. Heads are capital
// letters A, B, C... in snake order, bodies lowercase, food F.
func Render(state *game.GameState) string {
	grid := make([][]byte, state.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(state.Width)))
	}
	put := func(p game.Point, c byte) {
		if state.InBounds(p) {
			grid[p.Y][p.X] = c
		}
	}

	for _, f := range state.Food {
		put(f, 'F')
	}
	for i, s := range state.Snakes {
		letter := byte('a' + i%26)
		for j := len(s.Body) - 1; j >= 0; j-- {
			if j == 0 {
				put(s.Body[j], letter-'a'+'A')
			} else {
				put(s.Body[j], letter)
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", state.Turn)
	for y := state.Height - 1; y >= 0; y-- {
		sb.Write(grid[y])
		sb.WriteByte('\n')
	}
	for i, s := range state.Snakes {
		fmt.Fprintf(&sb, "%c=%s hp=%d len=%d\n", 'A'+i%26, s.Id, s.Health, len(s.Body))
	}
	return sb.String()
}
