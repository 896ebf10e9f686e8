package engine

import (
	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
)

func selectCharacter(s *State, playerID string, name character.Name) ([]Event, error) {
	i := s.indexOf(playerID)
	if i < 0 {
		return nil, ErrPlayerNotFound
	}
	if s.Status != StatusCharacterSelection {
		return nil, ErrInvalidStatus
	}

	pool := ComputeAvailable(*s, playerID)
	if !pool.IsSelectable(name) {
		return nil, detail(ErrUnknownCharacter, "%q", name)
	}
	if pool.IsTaken(name) {
		return nil, detail(ErrCharacterTaken, "%q", name)
	}

	if s.Players[i].Character == name {
		return nil, nil
	}
	s.Players[i].Character = name
	return []Event{{Type: EvtCharacterSelected, PlayerID: playerID, Character: name}}, nil
}

// AllReady reports whether every player in the room holds a character.
func AllReady(s State) bool {
	for _, p := range s.Players {
		if p.Character == "" {
			return false
		}
	}
	return true
}

func startGame(s *State, requesterID string) ([]Event, error) {
	if !s.IsHost(requesterID) {
		return nil, ErrNotHost
	}
	if s.Status != StatusCharacterSelection {
		return nil, ErrInvalidStatus
	}
	if !AllReady(*s) {
		return nil, ErrNotReady
	}
	if err := ValidateComposition(*s); err != nil {
		return nil, err
	}

	s.Status = StatusStarted
	s.Round++
	s.Reveals = ComputeReveals(s.Players)

	return []Event{{Type: EvtGameStarted}}, nil
}

// ValidateComposition checks the selected characters against the rulebook
// team sizes for the current player count.
func ValidateComposition(s State) error {
	if _, _, err := ComputeRequiredCounts(len(s.Players)); err != nil {
		return err
	}
	pool := ComputeAvailable(s, "")

	var good, evil int
	seen := make(map[character.Name]bool)
	for _, p := range s.Players {
		if !pool.IsSelectable(p.Character) {
			return detail(ErrInvalidComposition, "%q is not enabled for this game", p.Character)
		}
		if !character.IsFiller(p.Character) {
			if seen[p.Character] {
				return detail(ErrInvalidComposition, "%q selected more than once", p.Character)
			}
			seen[p.Character] = true
		}
		switch character.AllegianceOf(p.Character) {
		case character.Good:
			good++
		case character.Evil:
			evil++
		}
	}

	if good != pool.RequiredGood || evil != pool.RequiredEvil {
		return detail(ErrInvalidComposition, "need %d Good and %d Evil, have %d and %d",
			pool.RequiredGood, pool.RequiredEvil, good, evil)
	}
	for _, lead := range []character.Name{character.Lead(character.Good), character.Lead(character.Evil)} {
		if !seen[lead] {
			return detail(ErrInvalidComposition, "%s is required in every game", lead)
		}
	}
	return nil
}
