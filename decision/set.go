package decision

import (
	"strings"

	"github.com/brensch/greedysnek/game"
)

// DirectionSet marks which of the four moves are still considered viable.
// The zero value is the empty set.
type DirectionSet [game.NumDirections]bool

// AllDirections returns the set containing every move.
func AllDirections() DirectionSet {
	return DirectionSet{true, true, true, true}
}

// SetOf builds a set from the given moves.
func SetOf(dirs ...game.Direction) DirectionSet {
	var s DirectionSet
	for _, d := range dirs {
		s.Add(d)
	}
	return s
}

func (s *DirectionSet) Add(d game.Direction) {
	if d.Valid() {
		s[d] = true
	}
}

func (s *DirectionSet) Remove(d game.Direction) {
	if d.Valid() {
		s[d] = false
	}
}

func (s DirectionSet) Has(d game.Direction) bool {
	return d.Valid() && s[d]
}

func (s DirectionSet) Len() int {
	n := 0
	for _, ok := range s {
		if ok {
			n++
		}
	}
	return n
}

func (s DirectionSet) Empty() bool {
	return s.Len() == 0
}

// Slice returns the members in ascending Direction order.
func (s DirectionSet) Slice() []game.Direction {
	out := make([]game.Direction, 0, game.NumDirections)
	for _, d := range game.Directions {
		if s[d] {
			out = append(out, d)
		}
	}
	return out
}

// Names returns the API names of the members, for logs and Parquet rows.
func (s DirectionSet) Names() []string {
	out := make([]string, 0, game.NumDirections)
	for _, d := range s.Slice() {
		out = append(out, d.String())
	}
	return out
}

func (s DirectionSet) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}

// Intersect returns the moves present in every set. An empty argument list
// yields the empty set, and the scan stops as soon as the running result
// becomes empty.
func Intersect(sets ...DirectionSet) DirectionSet {
	if len(sets) == 0 {
		return DirectionSet{}
	}
	out := sets[0]
	for _, s := range sets[1:] {
		if out.Empty() {
			break
		}
		for i := range out {
			out[i] = out[i] && s[i]
		}
	}
	return out
}
