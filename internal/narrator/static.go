package narrator

import (
	"context"
	"strings"
	"sync"
)

// StaticRule answers any prompt containing Contains with the next of Replies,
// cycling through them.
type StaticRule struct {
	Contains string
	Replies  []string
}

// Static is an offline narrator that answers from fixed rules. It is used for
// local play without a model and in tests.
type Static struct {
	mu       sync.Mutex
	rules    []StaticRule
	fallback string
	next     map[int]int
}

// DefaultStaticRules recognise the suggestion and region prompts of the
// exploration engine; everything else gets a generic description.
var DefaultStaticRules = []StaticRule{
	{
		Contains: "comma-separated",
		Replies: []string{
			"1. A narrow alley\n2. An old warehouse",
			"tavern, courtyard",
			"- A crumbling watchtower\n- A quiet cellar (beneath the floor)",
			"market square, stable",
		},
	},
	{
		Contains: "type of region",
		Replies:  []string{"coastal area"},
	},
}

// DefaultStaticFallback is the reply to prompts no rule matches.
const DefaultStaticFallback = "Weathered stone and worn timber frame the place. Nothing here demands attention yet, but the air carries the promise of stories still untold."

// NewStatic creates a Static narrator with DefaultStaticRules.
func NewStatic() *Static {
	return NewStaticWithRules(DefaultStaticFallback, DefaultStaticRules...)
}

// NewStaticWithRules creates a Static narrator that checks rules in order.
func NewStaticWithRules(fallback string, rules ...StaticRule) *Static {
	return &Static{rules: rules, fallback: fallback, next: make(map[int]int)}
}

// Request returns the next reply of the first matching rule, or the fallback.
func (s *Static) Request(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rule := range s.rules {
		if len(rule.Replies) == 0 || !strings.Contains(prompt, rule.Contains) {
			continue
		}
		reply := rule.Replies[s.next[i]%len(rule.Replies)]
		s.next[i]++
		return nonEmpty("static", reply)
	}
	return nonEmpty("static", s.fallback)
}
