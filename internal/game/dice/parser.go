package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var expressionPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Expression is a parsed "NdS+M" dice expression.
//
// Invariant: Count >= 1 and Sides >= 1 for any Expression returned by Parse.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

// Parse parses "d6", "2d6", "1d3+2" or "4d8-1". Whitespace and case are ignored.
//
// Postcondition: Returns a valid Expression or an error naming the bad part.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	m := expressionPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", expr, err)
		}
		count = n
	}
	if count < 1 {
		return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", expr)
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", expr, err)
	}
	if sides < 1 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 1", expr)
	}

	modifier := 0
	if m[3] != "" {
		if modifier, err = strconv.Atoi(m[3]); err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}

	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error. Used for package-level defaults.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Min returns the smallest total the expression can roll.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max returns the largest total the expression can roll.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }

// String returns the expression as it was written.
func (e Expression) String() string { return e.Raw }
