package engine

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims and NFC-normalizes a display name so that visually
// identical names compare equal.
func NormalizeName(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func join(s *State, cmd Command) ([]Event, error) {
	name, err := NormalizeName(cmd.Name)
	if err != nil {
		return nil, err
	}
	if cmd.PlayerID == "" {
		return nil, detail(ErrUnsupportedCommand, "join without player id")
	}

	if s.Status != StatusWaiting {
		return nil, ErrRoomClosed
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return nil, detail(ErrDuplicateName, "%q", name)
		}
	}

	s.Players = append(s.Players, Player{
		ID:       cmd.PlayerID,
		Name:     name,
		JoinedAt: cmd.At,
	})

	return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}, nil
}

func kick(s *State, requesterID, targetID string) ([]Event, error) {
	if !s.IsHost(requesterID) {
		return nil, ErrNotHost
	}
	if targetID == requesterID {
		return nil, ErrCannotKickSelf
	}
	i := s.indexOf(targetID)
	if i < 0 {
		return nil, ErrPlayerNotFound
	}

	target := s.Players[i]
	s.removeAt(i)

	events := []Event{{Type: EvtPlayerKicked, PlayerID: targetID}}
	if target.Character != "" {
		events = append(events, Event{Type: EvtCharacterReleased, PlayerID: targetID, Character: target.Character})
	}
	return events, nil
}

// leave is idempotent. A departing host hands the room to the earliest-joined
// remaining player.
func leave(s *State, playerID string) ([]Event, error) {
	i := s.indexOf(playerID)
	if i < 0 {
		return nil, nil
	}

	departing := s.Players[i]
	s.removeAt(i)

	events := []Event{{Type: EvtPlayerLeft, PlayerID: playerID}}
	if departing.Character != "" {
		events = append(events, Event{Type: EvtCharacterReleased, PlayerID: playerID, Character: departing.Character})
	}
	if departing.IsHost && len(s.Players) > 0 {
		s.Players[0].IsHost = true
		events = append(events, Event{Type: EvtHostChanged, PlayerID: s.Players[0].ID})
	}
	return events, nil
}

func (s *State) removeAt(i int) {
	id := s.Players[i].ID
	s.Players = append(s.Players[:i], s.Players[i+1:]...)
	if s.Reveals != nil {
		delete(s.Reveals, id)
	}
}
