package battle

import (
	"github.com/greedisland/greedbot/gibot/database/models"
)

// Defense card ids. Only cards in the victim's free slots can block, exactly
// one per attack.
const (
	DefenseRankCounter  = 1020 // blocks attacks from a spell card of its own rank
	DefenseCloseGuard   = 1089 // blocks short-range attacks
	DefenseAcquaintance = 1090 // blocks anyone the victim has already met
)

// defenseRule decides whether a defense card may be offered against the
// incoming spell.
type defenseRule func(spellCard, defenseCard *models.Card, met bool) bool

var defenseRules = map[int64]defenseRule{
	DefenseRankCounter: func(spellCard, defenseCard *models.Card, _ bool) bool {
		return spellCard.Rank == defenseCard.Rank
	},
	DefenseCloseGuard: func(spellCard, _ *models.Card, _ bool) bool {
		return spellCard.Range == models.RangeShort
	},
	DefenseAcquaintance: func(_, _ *models.Card, met bool) bool {
		return met
	},
}

// DefenseCardIDs lists every card id that can be offered as a block.
func DefenseCardIDs() []int64 {
	ids := make([]int64, 0, len(defenseRules))
	for id := range defenseRules {
		ids = append(ids, id)
	}
	return ids
}

// IsDefenseCard reports whether the card id belongs to the defense set.
func IsDefenseCard(cardID int64) bool {
	_, ok := defenseRules[cardID]
	return ok
}
