package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLocationRegistry_CreateAssignsSequentialIDs(t *testing.T) {
	reg := NewLocationRegistry()
	a := reg.Create("tavern", "", 1)
	b := reg.Create("alley", "", 1)
	c := reg.Create("market", "A busy market.", 2)

	assert.Equal(t, LocationID(1), a.ID())
	assert.Equal(t, LocationID(2), b.ID())
	assert.Equal(t, LocationID(3), c.ID())
	assert.Equal(t, 3, reg.Len())
	assert.False(t, c.Discovered())
	assert.False(t, c.NeighborsGenerated())
	assert.Equal(t, RegionID(2), c.RegionID())
	assert.Equal(t, "A busy market.", c.Description())
}

func TestLocationRegistry_Get_NotFound(t *testing.T) {
	reg := NewLocationRegistry()
	reg.Create("tavern", "", 1)

	_, ok := reg.Get(42)
	assert.False(t, ok)
	_, ok = reg.Get(0)
	assert.False(t, ok)
}

func TestLocationRegistry_Connect_Symmetric(t *testing.T) {
	reg := NewLocationRegistry()
	a := reg.Create("tavern", "", 1)
	b := reg.Create("alley", "", 1)

	created, err := reg.Connect(a.ID(), b.ID())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []LocationID{b.ID()}, a.Neighbors())
	assert.Equal(t, []LocationID{a.ID()}, b.Neighbors())
}

func TestLocationRegistry_Connect_Idempotent(t *testing.T) {
	reg := NewLocationRegistry()
	a := reg.Create("tavern", "", 1)
	b := reg.Create("alley", "", 1)

	_, err := reg.Connect(a.ID(), b.ID())
	require.NoError(t, err)
	created, err := reg.Connect(b.ID(), a.ID())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, a.Neighbors(), 1)
	assert.Len(t, b.Neighbors(), 1)
}

func TestLocationRegistry_Connect_SelfIsNoop(t *testing.T) {
	reg := NewLocationRegistry()
	a := reg.Create("tavern", "", 1)

	created, err := reg.Connect(a.ID(), a.ID())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, a.Neighbors())
}

func TestLocationRegistry_Connect_UnknownLocation(t *testing.T) {
	reg := NewLocationRegistry()
	a := reg.Create("tavern", "", 1)

	_, err := reg.Connect(a.ID(), 99)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.Empty(t, a.Neighbors())
}

func TestLocationRegistry_FindConnectionTo(t *testing.T) {
	reg := NewLocationRegistry()
	home := reg.Create("tavern", "", 1)
	alley := reg.Create("alley", "", 1)
	market := reg.Create("Market Square", "", 1)
	_, _ = reg.Connect(home.ID(), alley.ID())
	_, _ = reg.Connect(home.ID(), market.ID())

	got, ok := reg.FindConnectionTo(home.ID(), "alley")
	require.True(t, ok)
	assert.Equal(t, alley.ID(), got.ID())

	got, ok = reg.FindConnectionTo(home.ID(), "A ALLEY")
	require.True(t, ok)
	assert.Equal(t, alley.ID(), got.ID())

	got, ok = reg.FindConnectionTo(home.ID(), "market square")
	require.True(t, ok)
	assert.Equal(t, market.ID(), got.ID())

	_, ok = reg.FindConnectionTo(home.ID(), "the alley")
	assert.False(t, ok, "matching is exact apart from case")
	_, ok = reg.FindConnectionTo(home.ID(), "tavern")
	assert.False(t, ok, "a location is not its own connection")
	_, ok = reg.FindConnectionTo(99, "alley")
	assert.False(t, ok)
}

func TestLocationRegistry_FindConnectionTo_FirstMatchInEdgeOrder(t *testing.T) {
	reg := NewLocationRegistry()
	home := reg.Create("square", "", 1)
	first := reg.Create("well", "", 1)
	second := reg.Create("well", "", 1)
	_, _ = reg.Connect(home.ID(), second.ID())
	_, _ = reg.Connect(home.ID(), first.ID())

	got, ok := reg.FindConnectionTo(home.ID(), "well")
	require.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())
}

func TestLocation_FallbackLabel(t *testing.T) {
	reg := NewLocationRegistry()
	assert.Equal(t, "A tavern", reg.Create("tavern", "", 1).FallbackLabel())
	assert.Equal(t, UnknownPlaceLabel, reg.Create("", "", 1).FallbackLabel())
}

func TestLocationRegistry_Occupants(t *testing.T) {
	reg := NewLocationRegistry()
	loc := reg.Create("tavern", "", 1)

	require.NoError(t, reg.AddOccupant(loc.ID(), 7))
	require.NoError(t, reg.AddOccupant(loc.ID(), 3))
	require.NoError(t, reg.AddOccupant(loc.ID(), 7))
	assert.Equal(t, []int64{7, 3}, loc.Occupants())

	require.NoError(t, reg.RemoveOccupant(loc.ID(), 7))
	assert.Equal(t, []int64{3}, loc.Occupants())

	require.NoError(t, reg.SetOccupants(loc.ID(), []int64{5, 5, 1}))
	assert.Equal(t, []int64{5, 1}, loc.Occupants())

	assert.ErrorIs(t, reg.AddOccupant(99, 1), ErrLocationNotFound)
	assert.ErrorIs(t, reg.RemoveOccupant(99, 1), ErrLocationNotFound)
}

func TestRegionRegistry_FirstRegionIsTopLevel(t *testing.T) {
	reg := NewRegionRegistry()
	_, ok := reg.TopLevel()
	assert.False(t, ok)

	continent := reg.Create("continent", "Continent")
	reg.Create("territory", "")

	top, ok := reg.TopLevel()
	require.True(t, ok)
	assert.Equal(t, continent.ID(), top.ID())

	name, ok := continent.Name()
	assert.True(t, ok)
	assert.Equal(t, "Continent", name)
}

func TestRegionRegistry_AddSubregion_Reparents(t *testing.T) {
	reg := NewRegionRegistry()
	root := reg.Create("continent", "")
	a := reg.Create("territory", "A")
	b := reg.Create("territory", "B")
	town := reg.Create("town", "")

	require.NoError(t, reg.AddSubregion(root.ID(), a.ID()))
	require.NoError(t, reg.AddSubregion(root.ID(), b.ID()))
	require.NoError(t, reg.AddSubregion(a.ID(), town.ID()))
	require.NoError(t, reg.AddSubregion(b.ID(), town.ID()))

	parent, ok := town.Parent()
	require.True(t, ok)
	assert.Equal(t, b.ID(), parent)
	assert.False(t, a.HasSubregion(town.ID()))
	assert.True(t, b.HasSubregion(town.ID()))
	assert.Equal(t, []RegionID{a.ID(), b.ID()}, root.SubregionIDs())
}

func TestRegionRegistry_AddSubregion_RejectsCycle(t *testing.T) {
	reg := NewRegionRegistry()
	root := reg.Create("continent", "")
	mid := reg.Create("territory", "")
	leaf := reg.Create("town", "")
	require.NoError(t, reg.AddSubregion(root.ID(), mid.ID()))
	require.NoError(t, reg.AddSubregion(mid.ID(), leaf.ID()))

	assert.ErrorIs(t, reg.AddSubregion(leaf.ID(), root.ID()), ErrRegionCycle)
	assert.ErrorIs(t, reg.AddSubregion(mid.ID(), mid.ID()), ErrRegionCycle)
	assert.ErrorIs(t, reg.AddSubregion(root.ID(), 99), ErrRegionNotFound)

	_, hasParent := root.Parent()
	assert.False(t, hasParent, "a rejected reparent changes nothing")
	assert.True(t, reg.IsAncestor(root.ID(), leaf.ID()))
	assert.False(t, reg.IsAncestor(leaf.ID(), root.ID()))
	assert.False(t, reg.IsAncestor(root.ID(), root.ID()))
}

func TestRegionRegistry_TopLevelFollowsReparent(t *testing.T) {
	reg := NewRegionRegistry()
	first := reg.Create("territory", "")
	outer := reg.Create("continent", "")

	require.NoError(t, reg.AddSubregion(outer.ID(), first.ID()))
	top, ok := reg.TopLevel()
	require.True(t, ok)
	assert.Equal(t, outer.ID(), top.ID())
}

func TestRegionRegistry_Remove(t *testing.T) {
	reg := NewRegionRegistry()
	root := reg.Create("continent", "")
	a := reg.Create("territory", "")
	town := reg.Create("town", "")
	require.NoError(t, reg.AddSubregion(root.ID(), a.ID()))
	require.NoError(t, reg.AddSubregion(a.ID(), town.ID()))

	require.NoError(t, reg.Remove(a.ID()))
	_, ok := reg.Get(a.ID())
	assert.False(t, ok)
	assert.Empty(t, root.SubregionIDs())
	_, hasParent := town.Parent()
	assert.False(t, hasParent)

	require.NoError(t, reg.Remove(root.ID()))
	top, ok := reg.TopLevel()
	require.True(t, ok)
	assert.Equal(t, town.ID(), top.ID())
	assert.Equal(t, 1, reg.Len())

	assert.ErrorIs(t, reg.Remove(root.ID()), ErrRegionNotFound)
}

func TestRegionRegistry_RemoveSubregion(t *testing.T) {
	reg := NewRegionRegistry()
	root := reg.Create("continent", "")
	a := reg.Create("territory", "")
	require.NoError(t, reg.AddSubregion(root.ID(), a.ID()))

	assert.True(t, reg.RemoveSubregion(root.ID(), a.ID()))
	assert.False(t, reg.RemoveSubregion(root.ID(), a.ID()))
	_, hasParent := a.Parent()
	assert.False(t, hasParent)
	assert.Len(t, reg.Roots(), 2)
}

func TestRegionRegistry_FindRegionContaining_DirectOnly(t *testing.T) {
	reg := NewRegionRegistry()
	root := reg.Create("continent", "")
	a := reg.Create("territory", "")
	require.NoError(t, reg.AddSubregion(root.ID(), a.ID()))
	a.AddLocation(5)

	got, ok := reg.FindRegionContaining(5)
	require.True(t, ok)
	assert.Equal(t, a.ID(), got.ID())

	_, ok = reg.FindRegionContaining(6)
	assert.False(t, ok)

	assert.True(t, reg.ContainsLocationRecursive(root.ID(), 5))
	assert.False(t, root.HasLocation(5))
	assert.False(t, reg.ContainsLocationRecursive(root.ID(), 6))
}

func TestRegionRegistry_AllLocationIDs(t *testing.T) {
	reg := NewRegionRegistry()
	root := reg.Create("continent", "")
	a := reg.Create("territory", "")
	town := reg.Create("town", "")
	require.NoError(t, reg.AddSubregion(root.ID(), a.ID()))
	require.NoError(t, reg.AddSubregion(a.ID(), town.ID()))
	root.AddLocation(9)
	a.AddLocation(2)
	town.AddLocation(4)

	assert.Equal(t, []LocationID{2, 4, 9}, reg.AllLocationIDs(root.ID()))
	assert.Equal(t, []LocationID{2, 4}, reg.AllLocationIDs(a.ID()))
	assert.True(t, reg.RemoveLocation(a.ID(), 2))
	assert.False(t, reg.RemoveLocation(a.ID(), 2))
	assert.Nil(t, reg.AllLocationIDs(99))
}

func TestPropertyEdgeSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := NewLocationRegistry()
		n := rapid.IntRange(1, 12).Draw(t, "locations")
		for i := 0; i < n; i++ {
			reg.Create("place", "", 1)
		}
		ops := rapid.IntRange(0, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			a := LocationID(rapid.IntRange(1, n).Draw(t, "a"))
			b := LocationID(rapid.IntRange(1, n).Draw(t, "b"))
			if _, err := reg.Connect(a, b); err != nil {
				t.Fatalf("connect %d-%d: %v", a, b, err)
			}
		}

		for _, la := range reg.All() {
			seen := make(map[LocationID]bool)
			for _, nb := range la.Neighbors() {
				if nb == la.ID() {
					t.Fatalf("location %d lists itself", la.ID())
				}
				if seen[nb] {
					t.Fatalf("location %d lists %d twice", la.ID(), nb)
				}
				seen[nb] = true
			}
			for _, lb := range reg.All() {
				if la.HasNeighbor(lb.ID()) != lb.HasNeighbor(la.ID()) {
					t.Fatalf("edge %d-%d is not symmetric", la.ID(), lb.ID())
				}
			}
		}
	})
}

func TestPropertyRegionHierarchyStaysAForest(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := New()
		n := rapid.IntRange(1, 8).Draw(t, "regions")
		for i := 0; i < n; i++ {
			w.Regions.Create("region", "")
		}
		ops := rapid.IntRange(0, 30).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			p := RegionID(rapid.IntRange(1, n).Draw(t, "parent"))
			c := RegionID(rapid.IntRange(1, n).Draw(t, "child"))
			if rapid.IntRange(0, 4).Draw(t, "op") == 0 {
				w.Regions.RemoveSubregion(p, c)
				continue
			}
			_ = w.Regions.AddSubregion(p, c)
		}

		if err := w.Validate(); err != nil {
			t.Fatalf("hierarchy invalid: %v", err)
		}
		for _, reg := range w.Regions.All() {
			if w.Regions.IsAncestor(reg.ID(), reg.ID()) {
				t.Fatalf("region %d is its own ancestor", reg.ID())
			}
		}
		if _, ok := w.Regions.TopLevel(); !ok {
			t.Fatal("a non-empty forest must have a top-level region")
		}
	})
}
