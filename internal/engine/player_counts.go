package engine

type TeamSize struct {
	Good int
	Evil int
}

// TeamSizes is the rulebook split of Good and Evil per player count.
var TeamSizes = map[int]TeamSize{
	5:  {Good: 3, Evil: 2},
	6:  {Good: 4, Evil: 2},
	7:  {Good: 4, Evil: 3},
	8:  {Good: 5, Evil: 3},
	9:  {Good: 6, Evil: 3},
	10: {Good: 6, Evil: 4},
}

func ComputeRequiredCounts(playerCount int) (good, evil int, err error) {
	size, ok := TeamSizes[playerCount]
	if !ok {
		return 0, 0, detail(ErrInvalidPlayerCount, "got %d", playerCount)
	}
	return size.Good, size.Evil, nil
}
