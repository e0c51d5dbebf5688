package explore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/hinterland/internal/narrator"
)

func TestDescribePrompt_DependsOnlyOnType(t *testing.T) {
	p := DescribePrompt("tavern")
	assert.Contains(t, p, "'tavern'")
	assert.Equal(t, p, DescribePrompt("tavern"))
	assert.NotEqual(t, p, DescribePrompt("cellar"))
}

func TestNearbyPrompt_ListsKnownNeighbors(t *testing.T) {
	w := newTestWorld(t)
	capital, _ := w.Locations.Get(1)
	p := NearbyPrompt(capital, w.Locations.Neighbors(1))

	assert.Contains(t, p, "Description: The capital city of Kingdom of human 1.")
	assert.Contains(t, p, " - A alley\n")
	assert.Contains(t, p, "comma-separated")
}

func TestCleanRegionType(t *testing.T) {
	cases := map[string]string{
		"Forest":                      "forest",
		"  A Mountain   Range.":       "mountain range",
		"the coastal area (maritime)": "coastal area",
		"An Oasis":                    "oasis",
		"":                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanRegionType(in), "input %q", in)
	}
}

func TestInferRegionType(t *testing.T) {
	var prompt string
	n := narrator.Func(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "A bustling city.", nil
	})

	typ, err := InferRegionType(context.Background(), n, "Many streets and a market.")
	require.NoError(t, err)
	assert.Equal(t, "bustling city", typ)
	assert.Contains(t, prompt, "Description: Many streets and a market.")
}

func TestInferRegionType_Failures(t *testing.T) {
	failing := narrator.Func(func(context.Context, string) (string, error) {
		return "", errors.New("offline")
	})
	_, err := InferRegionType(context.Background(), failing, "x")
	assert.EqualError(t, err, "inferring region type: offline")

	blank := narrator.Func(func(context.Context, string) (string, error) { return " (none). ", nil })
	_, err = InferRegionType(context.Background(), blank, "x")
	assert.ErrorIs(t, err, narrator.ErrEmptyResponse)
}
