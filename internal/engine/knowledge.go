package engine

import (
	"slices"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
)

type Reveal struct {
	Character  character.Name
	Allegiance character.Allegiance
	Message    string
	// RevealedPlayers are player names in room order, except for an
	// ambiguous reveal, which is sorted so position says nothing.
	RevealedPlayers []string
	Ambiguous       bool
}

type visibility func(self Player, players []Player) []string

var knowledge = map[character.Rule]visibility{
	character.RuleSeesEvil: func(_ Player, players []Player) []string {
		return namesWhere(players, func(p Player) bool {
			def, _ := character.Lookup(p.Character)
			return def.Allegiance == character.Evil && !def.HiddenFromLead
		})
	},
	character.RuleSeesLeads: func(_ Player, players []Player) []string {
		lead := character.Lead(character.Good)
		names := namesWhere(players, func(p Player) bool {
			def, _ := character.Lookup(p.Character)
			return p.Character == lead || def.PosesAsLead
		})
		slices.Sort(names)
		return names
	},
	character.RuleIsolated: func(Player, []Player) []string {
		return []string{}
	},
	character.RuleSeesMinions: func(self Player, players []Player) []string {
		return namesWhere(players, func(p Player) bool {
			return p.ID != self.ID &&
				character.AllegianceOf(p.Character) == character.Evil &&
				character.RuleOf(p.Character) != character.RuleIsolated
		})
	},
	character.RuleNoKnowledge: func(Player, []Player) []string {
		return []string{}
	},
}

var messages = map[character.Name]string{
	character.Merlin:          "You are Merlin, loyal to Good. These are the agents of Evil, though Mordred may hide among the rest.",
	character.Percival:        "You are Percival, loyal to Good. One of these players is Merlin, but Morgana may wear the same face.",
	character.LoyalServant:    "You are a Loyal Servant of Arthur. You know nothing more, but you fight for Good.",
	character.Assassin:        "You are the Assassin, a minion of Mordred. These are your fellow minions. If Good wins, name Merlin to steal the victory.",
	character.Mordred:         "You are Mordred, leader of Evil. These are your fellow minions. Merlin cannot see you.",
	character.Oberon:          "You are Oberon, a minion of Mordred. You do not know the other minions, and they do not know you.",
	character.Morgana:         "You are Morgana, a minion of Mordred. These are your fellow minions. Percival may mistake you for Merlin.",
	character.MinionOfMordred: "You are Evil. These are your fellow minions.",
}

// ComputeReveals materializes the reveal of every player that holds a
// character, keyed by player id.
func ComputeReveals(players []Player) map[string]Reveal {
	out := make(map[string]Reveal, len(players))
	for _, p := range players {
		if p.Character == "" {
			continue
		}
		out[p.ID] = RevealFor(p, players)
	}
	return out
}

func RevealFor(self Player, players []Player) Reveal {
	def, _ := character.Lookup(self.Character)

	revealed := []string{}
	if see, ok := knowledge[def.Rule]; ok {
		revealed = see(self, players)
	}

	return Reveal{
		Character:       def.Name,
		Allegiance:      def.Allegiance,
		Message:         messages[def.Name],
		RevealedPlayers: revealed,
		Ambiguous:       def.Rule == character.RuleSeesLeads,
	}
}

// GetReveal returns the reveal captured for playerID when the current round
// started.
func GetReveal(s State, playerID string) (Reveal, error) {
	if _, ok := s.FindPlayer(playerID); !ok {
		return Reveal{}, ErrPlayerNotFound
	}
	if s.Status != StatusStarted || s.Reveals == nil {
		return Reveal{}, ErrNotStarted
	}
	r, ok := s.Reveals[playerID]
	if !ok {
		return Reveal{}, ErrNotStarted
	}
	return r, nil
}

func namesWhere(players []Player, keep func(Player) bool) []string {
	names := []string{}
	for _, p := range players {
		if keep(p) {
			names = append(names, p.Name)
		}
	}
	return names
}
