package engine

import (
	"slices"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
)

// waiting -> character_selection -> started -> character_selection (reset) -> ...
// back-to-lobby returns either of the later states to waiting.

func configure(s *State, requesterID string, optional []character.Name) ([]Event, error) {
	if !s.IsHost(requesterID) {
		return nil, ErrNotHost
	}
	good, evil, err := ComputeRequiredCounts(len(s.Players))
	if err != nil {
		return nil, err
	}
	if s.Status != StatusWaiting {
		return nil, ErrInvalidStatus
	}

	enabled, err := canonicalOptional(optional)
	if err != nil {
		return nil, err
	}

	specialGood, specialEvil := 1, 1
	for _, name := range enabled {
		if character.AllegianceOf(name) == character.Good {
			specialGood++
		} else {
			specialEvil++
		}
	}
	if specialGood > good || specialEvil > evil {
		return nil, detail(ErrTooManyOptional, "%d players allow %d Good and %d Evil", len(s.Players), good, evil)
	}

	s.OptionalCharacters = enabled
	s.Status = StatusCharacterSelection

	return []Event{{Type: EvtRoomConfigured}}, nil
}

// canonicalOptional drops duplicates and orders names as the catalog does.
func canonicalOptional(names []character.Name) ([]character.Name, error) {
	for _, name := range names {
		if !character.IsOptional(name) {
			return nil, detail(ErrUnknownCharacter, "%q is not an optional character", name)
		}
	}
	out := []character.Name{}
	for _, name := range character.OptionalNames() {
		if slices.Contains(names, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func reset(s *State, requesterID string) ([]Event, error) {
	if !s.IsHost(requesterID) {
		return nil, ErrNotHost
	}
	if s.Status != StatusStarted {
		return nil, ErrInvalidStatus
	}

	s.clearSelections()
	s.Status = StatusCharacterSelection

	return []Event{{Type: EvtGameReset}}, nil
}

func backToLobby(s *State, requesterID string) ([]Event, error) {
	if !s.IsHost(requesterID) {
		return nil, ErrNotHost
	}
	if s.Status == StatusWaiting {
		return nil, ErrInvalidStatus
	}

	s.clearSelections()
	s.Status = StatusWaiting

	return []Event{{Type: EvtReturnedToLobby}}, nil
}

func (s *State) clearSelections() {
	for i := range s.Players {
		s.Players[i].Character = ""
	}
	s.Reveals = nil
}
