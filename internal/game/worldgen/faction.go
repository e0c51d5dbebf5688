package worldgen

import (
	"fmt"

	"github.com/cory-johannsen/hinterland/internal/game/dice"
)

// StateTypes are the forms of government a generated faction can take.
var StateTypes = []string{
	"Kingdom", "Empire", "Republic", "Federation", "Duchy",
	"Principality", "Theocracy", "Confederation", "Alliance",
}

// DefaultStatesPerRace yields three to five factions per race.
var DefaultStatesPerRace = dice.MustParse("1d3+2")

// Faction is a political entity that owns one territory of the continent.
type Faction struct {
	Name string
	Race string
}

// GenerateFactions rolls perRace once for every race and names each resulting
// faction "<StateType> of <race> <i>", counting i from 1 within the race.
//
// Precondition: roller must be non-nil.
// Postcondition: Factions are grouped by race in the order races were given.
func GenerateFactions(races []string, roller *dice.Roller, perRace dice.Expression) []Faction {
	var out []Faction
	for _, race := range races {
		n := roller.Roll("states:"+race, perRace)
		for i := 1; i <= n; i++ {
			stateType := dice.Pick(roller.Source(), StateTypes)
			out = append(out, Faction{
				Name: fmt.Sprintf("%s of %s %d", stateType, race, i),
				Race: race,
			})
		}
	}
	return out
}
