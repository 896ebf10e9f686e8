package engine

import (
	"slices"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
)

// Pool is the selectable character set of a room, derived on every read.
type Pool struct {
	RequiredGood int
	RequiredEvil int
	// AvailableGood and AvailableEvil list every character a player may pick,
	// fillers included once and understood as unlimited.
	AvailableGood []character.Name
	AvailableEvil []character.Name
	// SlotsGood and SlotsEvil are the full team: leads, enabled optional
	// characters and as many fillers as needed to reach the required counts.
	SlotsGood []character.Name
	SlotsEvil []character.Name
	// TakenNonFiller maps non-filler characters held by someone other than
	// the viewer to the holder's id.
	TakenNonFiller map[character.Name]string
	Selected       []character.Name
}

// ComputeAvailable derives the pool for s. viewerID may be empty, in which
// case every non-filler selection counts as taken.
//
// The selectable set depends only on the enabled characters, so a room that
// drops below five players mid-selection can keep picking. Outside the
// supported player counts the required counts are zero and no fillers are
// padded in; startGame still rejects the room.
func ComputeAvailable(s State, viewerID string) Pool {
	good, evil, _ := ComputeRequiredCounts(len(s.Players))

	p := Pool{
		RequiredGood:   good,
		RequiredEvil:   evil,
		TakenNonFiller: make(map[character.Name]string),
		Selected:       []character.Name{},
	}

	for _, def := range character.All() {
		if def.Optional && !s.OptionalEnabled(def.Name) {
			continue
		}
		switch def.Allegiance {
		case character.Good:
			p.AvailableGood = append(p.AvailableGood, def.Name)
		case character.Evil:
			p.AvailableEvil = append(p.AvailableEvil, def.Name)
		}
	}

	p.SlotsGood = fillSlots(p.AvailableGood, good, character.FillerOf(character.Good))
	p.SlotsEvil = fillSlots(p.AvailableEvil, evil, character.FillerOf(character.Evil))

	for _, pl := range s.Players {
		if pl.Character == "" {
			continue
		}
		p.Selected = append(p.Selected, pl.Character)
		if pl.ID != viewerID && !character.IsFiller(pl.Character) {
			p.TakenNonFiller[pl.Character] = pl.ID
		}
	}

	return p
}

func fillSlots(available []character.Name, required int, filler character.Name) []character.Name {
	slots := make([]character.Name, 0, required)
	for _, name := range available {
		if name != filler {
			slots = append(slots, name)
		}
	}
	for len(slots) < required {
		slots = append(slots, filler)
	}
	return slots
}

func (p Pool) IsSelectable(name character.Name) bool {
	return slices.Contains(p.AvailableGood, name) || slices.Contains(p.AvailableEvil, name)
}

func (p Pool) IsTaken(name character.Name) bool {
	_, ok := p.TakenNonFiller[name]
	return ok
}

// Open lists the characters the viewer could pick right now.
func (p Pool) Open() []character.Name {
	var out []character.Name
	for _, name := range slices.Concat(p.AvailableGood, p.AvailableEvil) {
		if !p.IsTaken(name) {
			out = append(out, name)
		}
	}
	return out
}
