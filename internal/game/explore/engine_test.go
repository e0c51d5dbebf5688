package explore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/hinterland/internal/game/world"
	"github.com/cory-johannsen/hinterland/internal/narrator"
)

var describedType = regexp.MustCompile(`described as: '(.*)'\.`)

// fakeNarrator answers description prompts with "Description of <type>." and
// suggestion prompts with suggestions, counting calls.
type fakeNarrator struct {
	mu          sync.Mutex
	suggestions string
	describeErr error
	expandErr   error
	describes   map[string]int
	expands     int
}

func newFakeNarrator(suggestions string) *fakeNarrator {
	return &fakeNarrator{suggestions: suggestions, describes: make(map[string]int)}
}

func (f *fakeNarrator) Request(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.Contains(prompt, "comma-separated") {
		f.expands++
		if f.expandErr != nil {
			return "", f.expandErr
		}
		return f.suggestions, nil
	}
	m := describedType.FindStringSubmatch(prompt)
	if m == nil {
		return "", errors.New("unexpected prompt")
	}
	f.describes[m[1]]++
	if f.describeErr != nil {
		return "", f.describeErr
	}
	return "Description of " + m[1] + ".", nil
}

func (f *fakeNarrator) setDescribeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeErr = err
}

func (f *fakeNarrator) setExpandErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expandErr = err
}

// recordingObserver counts engine events.
type recordingObserver struct {
	mu         sync.Mutex
	requests   map[string]int
	failures   int
	created    int
	discovered int
	expanded   int
	expandErrs int
}

func (r *recordingObserver) NarratorRequest(purpose string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.requests == nil {
		r.requests = map[string]int{}
	}
	r.requests[purpose]++
	if err != nil {
		r.failures++
	}
}

func (r *recordingObserver) LocationsCreated(_ string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created += n
}

func (r *recordingObserver) Discovered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered++
}

func (r *recordingObserver) Expanded(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.expandErrs++
		return
	}
	r.expanded++
}

// newTestWorld builds a capital (1) connected to an alley (2) inside one territory.
func newTestWorld(t testing.TB) *world.World {
	t.Helper()
	w := world.New()
	continent, err := w.AddRegion("continent", "Continent", world.NoRegion)
	require.NoError(t, err)
	territory, err := w.AddRegion("territory", "Kingdom of human 1", continent.ID())
	require.NoError(t, err)
	capital, err := w.AddLocation("capital", "The capital city of Kingdom of human 1.", territory.ID())
	require.NoError(t, err)
	alley, err := w.AddLocation("alley", PlaceholderDescription, territory.ID())
	require.NoError(t, err)
	_, err = w.Connect(capital.ID(), alley.ID())
	require.NoError(t, err)
	w.Start = capital.ID()
	return w
}

func newTestEngine(t *testing.T, n narrator.Narrator, opts ...Option) (*Engine, *world.World) {
	t.Helper()
	w := newTestWorld(t)
	return NewEngine(w, n, zaptest.NewLogger(t), opts...), w
}

func TestEngine_SpawnAndLeave(t *testing.T) {
	e, w := newTestEngine(t, newFakeNarrator(""))
	cur, err := e.Spawn(7)
	require.NoError(t, err)
	assert.Equal(t, world.LocationID(1), cur.Location)
	capital, _ := w.Locations.Get(1)
	assert.Equal(t, []int64{7}, capital.Occupants())

	require.NoError(t, e.Leave(cur))
	assert.Empty(t, capital.Occupants())

	empty := NewEngine(world.New(), newFakeNarrator(""), zap.NewNop())
	_, err = empty.Spawn(1)
	assert.ErrorIs(t, err, world.ErrLocationNotFound)
}

func TestEngine_DescribeCurrent(t *testing.T) {
	e, _ := newTestEngine(t, newFakeNarrator(""))
	want := "=== A capital ===\n" +
		"The capital city of Kingdom of human 1.\n" +
		"Exits:\n" +
		" - A alley"
	assert.Equal(t, want, e.DescribeCurrent(Cursor{Location: 1}))
	assert.Equal(t, "Unknown location.", e.DescribeCurrent(Cursor{Location: 99}))
	assert.Equal(t, []string{"A capital"}, e.Exits(Cursor{Location: 2}))
}

func TestEngine_AttemptMove_DiscoversDestination(t *testing.T) {
	n := newFakeNarrator("")
	obs := &recordingObserver{}
	e, w := newTestEngine(t, n, WithObserver(obs))
	cur, err := e.Spawn(3)
	require.NoError(t, err)

	moved, err := e.AttemptMove(context.Background(), &cur, "the alley")
	require.NoError(t, err)
	assert.False(t, moved, "only the type or \"A <type>\" match")

	moved, err = e.AttemptMove(context.Background(), &cur, "A Alley")
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, world.LocationID(2), cur.Location)

	alley, _ := w.Locations.Get(2)
	assert.True(t, alley.Discovered())
	assert.Equal(t, "Description of alley.", alley.Description())
	assert.Equal(t, []int64{3}, alley.Occupants())
	capital, _ := w.Locations.Get(1)
	assert.Empty(t, capital.Occupants())
	assert.Equal(t, 1, obs.discovered)

	typ, ok := e.LocationType(cur)
	require.True(t, ok)
	assert.Equal(t, "alley", typ)
}

func TestEngine_AttemptMove_DiscoversOnlyOnce(t *testing.T) {
	n := newFakeNarrator("")
	e, _ := newTestEngine(t, n)
	cur, err := e.Spawn(1)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		moved, err := e.AttemptMove(ctx, &cur, "alley")
		require.NoError(t, err)
		require.True(t, moved)
		moved, err = e.AttemptMove(ctx, &cur, "capital")
		require.NoError(t, err)
		require.True(t, moved)
	}
	assert.Equal(t, 1, n.describes["alley"])
	assert.Equal(t, 1, n.describes["capital"])
}

func TestEngine_AttemptMove_DiscoveryFailureIsRetried(t *testing.T) {
	n := newFakeNarrator("")
	n.setDescribeErr(errors.New("model offline"))
	e, w := newTestEngine(t, n)
	cur, err := e.Spawn(1)
	require.NoError(t, err)
	ctx := context.Background()

	moved, err := e.AttemptMove(ctx, &cur, "alley")
	require.NoError(t, err)
	require.True(t, moved, "a failed description does not block the move")
	alley, _ := w.Locations.Get(2)
	assert.False(t, alley.Discovered())
	assert.Equal(t, PlaceholderDescription, alley.Description())

	n.setDescribeErr(nil)
	_, err = e.AttemptMove(ctx, &cur, "capital")
	require.NoError(t, err)
	_, err = e.AttemptMove(ctx, &cur, "alley")
	require.NoError(t, err)
	assert.True(t, alley.Discovered())
	assert.Equal(t, "Description of alley.", alley.Description())
}

func TestEngine_AttemptMove_UnknownCursor(t *testing.T) {
	e, _ := newTestEngine(t, newFakeNarrator(""))
	cur := Cursor{Location: 99, CharacterID: 1}
	moved, err := e.AttemptMove(context.Background(), &cur, "alley")
	assert.False(t, moved)
	assert.ErrorIs(t, err, world.ErrLocationNotFound)
}

func TestEngine_Discover_EmptyResponse(t *testing.T) {
	blank := narrator.Func(func(context.Context, string) (string, error) { return "  \n", nil })
	e, w := newTestEngine(t, blank)

	err := e.Discover(context.Background(), 2)
	assert.ErrorIs(t, err, narrator.ErrEmptyResponse)
	alley, _ := w.Locations.Get(2)
	assert.False(t, alley.Discovered())

	assert.ErrorIs(t, e.Discover(context.Background(), 99), world.ErrLocationNotFound)
}

func TestEngine_LookAround_ExpandsOnce(t *testing.T) {
	n := newFakeNarrator("1. A hidden door\n2. \"The warehouse\"\n- An alley")
	obs := &recordingObserver{}
	e, w := newTestEngine(t, n, WithObserver(obs))
	cur := Cursor{Location: 1}
	ctx := context.Background()

	text, err := e.LookAround(ctx, cur)
	require.NoError(t, err)
	assert.Equal(t,
		"You notice a new place: \"hidden door\" (undiscovered)\n"+
			"You notice a new place: \"warehouse\" (undiscovered)",
		text)

	capital, _ := w.Locations.Get(1)
	assert.True(t, capital.NeighborsGenerated())
	require.Len(t, capital.Neighbors(), 3)
	for _, nb := range w.Locations.Neighbors(1)[1:] {
		assert.Equal(t, capital.RegionID(), nb.RegionID())
		assert.Equal(t, PlaceholderDescription, nb.Description())
		assert.False(t, nb.Discovered())
		reg, _ := w.Regions.Get(nb.RegionID())
		assert.True(t, reg.HasLocation(nb.ID()))
	}
	require.NoError(t, w.Validate())
	assert.Equal(t, 2, obs.created)
	assert.Equal(t, 1, obs.expanded)

	text, err = e.LookAround(ctx, cur)
	require.NoError(t, err)
	assert.Equal(t,
		"You look around and see the following places:\n"+
			" - A alley (undiscovered)\n"+
			" - A hidden door (undiscovered)\n"+
			" - A warehouse (undiscovered)",
		text)
	assert.Equal(t, 1, n.expands)
	assert.Len(t, capital.Neighbors(), 3)
}

func TestEngine_LookAround_ListsDiscoveredDescriptions(t *testing.T) {
	n := newFakeNarrator("")
	e, w := newTestEngine(t, n)
	require.NoError(t, e.Discover(context.Background(), 2))
	capital, _ := w.Locations.Get(1)
	capital.MarkNeighborsGenerated()

	text, err := e.LookAround(context.Background(), Cursor{Location: 1})
	require.NoError(t, err)
	assert.Equal(t,
		"You look around and see the following places:\n - A alley: Description of alley.",
		text)
}

func TestEngine_LookAround_NoSuggestions(t *testing.T) {
	n := newFakeNarrator("1.\n-")
	e, w := newTestEngine(t, n)

	text, err := e.LookAround(context.Background(), Cursor{Location: 2})
	require.NoError(t, err)
	assert.Equal(t, "You notice nothing new.", text)
	alley, _ := w.Locations.Get(2)
	assert.True(t, alley.NeighborsGenerated(), "an empty suggestion list still completes expansion")
}

func TestEngine_LookAround_FailureIsRetried(t *testing.T) {
	n := newFakeNarrator("cellar")
	n.setExpandErr(errors.New("timeout"))
	obs := &recordingObserver{}
	e, w := newTestEngine(t, n, WithObserver(obs))
	ctx := context.Background()

	_, err := e.LookAround(ctx, Cursor{Location: 1})
	require.Error(t, err)
	capital, _ := w.Locations.Get(1)
	assert.False(t, capital.NeighborsGenerated())
	assert.Len(t, capital.Neighbors(), 1)
	assert.Equal(t, 1, obs.expandErrs)
	assert.Equal(t, 1, obs.failures)

	n.setExpandErr(nil)
	text, err := e.LookAround(ctx, Cursor{Location: 1})
	require.NoError(t, err)
	assert.Contains(t, text, `"cellar"`)
	assert.True(t, capital.NeighborsGenerated())
}

func TestEngine_Expand_SkipsExistingNeighbors(t *testing.T) {
	n := newFakeNarrator("capital, cellar, Cellar, A capital")
	e, w := newTestEngine(t, n)

	created, err := e.Expand(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "cellar", created[0].Type())

	alley, _ := w.Locations.Get(2)
	assert.Len(t, alley.Neighbors(), 2)

	_, err = e.Expand(context.Background(), 99)
	assert.ErrorIs(t, err, world.ErrLocationNotFound)
}

func TestEngine_Expand_SkipsOwnType(t *testing.T) {
	n := newFakeNarrator("alley, Alley, cellar")
	e, w := newTestEngine(t, n)

	created, err := e.Expand(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "cellar", created[0].Type())
	assert.Equal(t, 3, w.Locations.Len())

	alley, _ := w.Locations.Get(2)
	assert.Len(t, alley.Neighbors(), 2)
}

func TestEngine_Occupants(t *testing.T) {
	e, _ := newTestEngine(t, newFakeNarrator(""))
	a, err := e.Spawn(1)
	require.NoError(t, err)
	_, err = e.Spawn(2)
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, e.Occupants(a))
	assert.Nil(t, e.Occupants(Cursor{Location: 99}))
}

func TestEngine_ConcurrentLooksExpandOnce(t *testing.T) {
	n := newFakeNarrator("cellar, courtyard")
	e, w := newTestEngine(t, n)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.LookAround(context.Background(), Cursor{Location: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, n.expands)
	capital, _ := w.Locations.Get(1)
	assert.Len(t, capital.Neighbors(), 3)
}

func TestEngine_WithWorld(t *testing.T) {
	e, w := newTestEngine(t, newFakeNarrator(""))
	var seen *world.World
	require.NoError(t, e.WithWorld(func(got *world.World) error {
		seen = got
		return nil
	}))
	assert.Same(t, w, seen)
	assert.EqualError(t, e.WithWorld(func(*world.World) error { return errors.New("x") }), "x")
}

func TestPropertyExpansionIsIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom([]string{"alley", "cellar", "tavern", "well", "Alley", "market square"}), 1, 6).Draw(rt, "suggestions")
		n := newFakeNarrator(strings.Join(words, ", "))
		w := newTestWorld(t)
		e := NewEngine(w, n, zap.NewNop())
		ctx := context.Background()

		if _, err := e.LookAround(ctx, Cursor{Location: 1}); err != nil {
			rt.Fatalf("first look: %v", err)
		}
		capital, _ := w.Locations.Get(1)
		before := capital.Neighbors()
		if _, err := e.LookAround(ctx, Cursor{Location: 1}); err != nil {
			rt.Fatalf("second look: %v", err)
		}
		if !capital.NeighborsGenerated() {
			rt.Fatal("neighborsGenerated reset")
		}
		if got := capital.Neighbors(); len(got) != len(before) {
			rt.Fatalf("second look changed neighbors: %v -> %v", before, got)
		}
		seen := map[string]bool{}
		for _, nb := range w.Locations.Neighbors(1) {
			key := strings.ToLower(nb.Type())
			if seen[key] {
				rt.Fatalf("duplicate neighbor type %q", key)
			}
			seen[key] = true
		}
		if n.expands != 1 {
			rt.Fatalf("narrator asked %d times", n.expands)
		}
	})
}

func TestPropertyDiscoveryHappensAtMostOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := newFakeNarrator("cellar, courtyard, stable")
		w := newTestWorld(t)
		e := NewEngine(w, n, zap.NewNop())
		ctx := context.Background()
		if _, err := e.Expand(ctx, 1); err != nil {
			rt.Fatalf("expand: %v", err)
		}
		cur, err := e.Spawn(1)
		if err != nil {
			rt.Fatalf("spawn: %v", err)
		}

		wasDiscovered := map[world.LocationID]bool{}
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "narrator_fails") {
				n.setDescribeErr(errors.New("flaky"))
			} else {
				n.setDescribeErr(nil)
			}
			exits := e.Exits(cur)
			if len(exits) == 0 {
				break
			}
			target := rapid.SampledFrom(exits).Draw(rt, "target")
			if _, err := e.AttemptMove(ctx, &cur, target); err != nil {
				rt.Fatalf("move: %v", err)
			}
			for _, loc := range w.Locations.All() {
				if wasDiscovered[loc.ID()] && !loc.Discovered() {
					rt.Fatalf("location %d lost its discovered flag", loc.ID())
				}
				wasDiscovered[loc.ID()] = loc.Discovered()
			}
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		for typ, calls := range n.describes {
			if n.describeErr == nil && calls > steps {
				rt.Fatalf("%s described %d times in %d steps", typ, calls, steps)
			}
		}
		for _, loc := range w.Locations.All() {
			if loc.Discovered() && loc.Description() != "Description of "+loc.Type()+"." {
				rt.Fatalf("location %d description %q", loc.ID(), loc.Description())
			}
		}
	})
}
