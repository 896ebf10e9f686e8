package character

import "slices"

type Name string

const (
	Merlin          Name = "Merlin"
	Percival        Name = "Percival"
	LoyalServant    Name = "Loyal Servant"
	Assassin        Name = "Assassin"
	Mordred         Name = "Mordred"
	Oberon          Name = "Oberon"
	Morgana         Name = "Morgana"
	MinionOfMordred Name = "Minion of Mordred"
)

type Allegiance string

const (
	Good Allegiance = "Good"
	Evil Allegiance = "Evil"
)

// Rule selects which row of the knowledge table applies to a character.
type Rule string

const (
	RuleSeesEvil    Rule = "sees_evil"    // Good lead
	RuleSeesLeads   Rule = "sees_leads"   // Percival
	RuleIsolated    Rule = "isolated"     // Oberon
	RuleSeesMinions Rule = "sees_minions" // every other Evil character
	RuleNoKnowledge Rule = "no_knowledge" // filler Good
)

type Definition struct {
	Name       Name
	Allegiance Allegiance
	Mandatory  bool
	Optional   bool
	Filler     bool
	Rule       Rule

	// HiddenFromLead keeps the character out of the Good lead's reveal.
	HiddenFromLead bool
	// PosesAsLead surfaces the character next to the Good lead in Percival's reveal.
	PosesAsLead bool
}

// Catalog order is also the display order of the selectable pool.
var catalog = []Definition{
	{Name: Merlin, Allegiance: Good, Mandatory: true, Rule: RuleSeesEvil},
	{Name: LoyalServant, Allegiance: Good, Filler: true, Rule: RuleNoKnowledge},
	{Name: Percival, Allegiance: Good, Optional: true, Rule: RuleSeesLeads},
	{Name: Assassin, Allegiance: Evil, Mandatory: true, Rule: RuleSeesMinions},
	{Name: MinionOfMordred, Allegiance: Evil, Filler: true, Rule: RuleSeesMinions},
	{Name: Mordred, Allegiance: Evil, Optional: true, Rule: RuleSeesMinions, HiddenFromLead: true},
	{Name: Oberon, Allegiance: Evil, Optional: true, Rule: RuleIsolated},
	{Name: Morgana, Allegiance: Evil, Optional: true, Rule: RuleSeesMinions, PosesAsLead: true},
}

var byName = func() map[Name]Definition {
	m := make(map[Name]Definition, len(catalog))
	for _, d := range catalog {
		m[d.Name] = d
	}
	return m
}()

func All() []Definition {
	return slices.Clone(catalog)
}

func Lookup(name Name) (Definition, bool) {
	d, ok := byName[name]
	return d, ok
}

func IsKnown(name Name) bool {
	_, ok := byName[name]
	return ok
}

func IsOptional(name Name) bool { return byName[name].Optional }

func IsFiller(name Name) bool { return byName[name].Filler }

func IsMandatory(name Name) bool { return byName[name].Mandatory }

// AllegianceOf returns "" for names outside the catalog.
func AllegianceOf(name Name) Allegiance { return byName[name].Allegiance }

func RuleOf(name Name) Rule { return byName[name].Rule }

// Lead returns the mandatory character anchoring an allegiance.
func Lead(a Allegiance) Name {
	for _, d := range catalog {
		if d.Mandatory && d.Allegiance == a {
			return d.Name
		}
	}
	return ""
}

// FillerOf returns the unlimited-supply character of an allegiance.
func FillerOf(a Allegiance) Name {
	for _, d := range catalog {
		if d.Filler && d.Allegiance == a {
			return d.Name
		}
	}
	return ""
}

func OptionalNames() []Name {
	var out []Name
	for _, d := range catalog {
		if d.Optional {
			out = append(out, d.Name)
		}
	}
	return out
}
