// Package dice provides the randomness abstraction used by world generation:
// a Source of uniform integers, "NdS+M" expressions, and roll results.
package dice

import (
	"fmt"
	"strings"
)

// Source is the randomness provider for every random choice the generator makes.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult records one evaluated expression.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "1d3+2 = [2] +2 = 4".
func (r RollResult) String() string {
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s = [%s] %+d = %d", r.Expression, strings.Join(parts, " "), r.Modifier, r.Total())
}

// Pick returns a uniformly chosen element of items.
//
// Precondition: len(items) > 0.
func Pick[T any](src Source, items []T) T {
	return items[src.Intn(len(items))]
}
