package engine

import (
	"maps"
	"slices"
	"time"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
)

func NewRoomState(code string, host Player, now time.Time) State {
	host.IsHost = true
	host.Character = ""
	if host.JoinedAt.IsZero() {
		host.JoinedAt = now
	}
	return State{
		Code:               code,
		Status:             StatusWaiting,
		OptionalCharacters: []character.Name{},
		Players:            []Player{host},
		CreatedAt:          now,
	}
}

// Clone returns a copy that shares nothing mutable with s. Reveal values are
// never modified after creation, so the map is copied shallowly.
func (s State) Clone() State {
	c := s
	c.OptionalCharacters = slices.Clone(s.OptionalCharacters)
	c.Players = slices.Clone(s.Players)
	if s.Reveals != nil {
		c.Reveals = maps.Clone(s.Reveals)
	}
	return c
}

func (s State) FindPlayer(id string) (Player, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Player{}, false
	}
	return s.Players[i], true
}

func (s State) Host() (Player, bool) {
	for _, p := range s.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

func (s State) IsHost(id string) bool {
	p, ok := s.FindPlayer(id)
	return ok && p.IsHost
}

func (s State) PlayerCount() int { return len(s.Players) }

func (s State) OptionalEnabled(name character.Name) bool {
	return slices.Contains(s.OptionalCharacters, name)
}

func (s State) indexOf(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// ValidRoomCode reports whether code is six ASCII digits.
func ValidRoomCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
