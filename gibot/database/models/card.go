package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Card is a catalog definition, read-only content as far as gameplay is
// concerned. Card 0 is the completion trophy and is never sold or traded.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID        int64     `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Rank      string    `bun:"rank,notnull"`
	Type      string    `bun:"type,notnull"`
	Limit     int       `bun:"card_limit,notnull"`
	Available bool      `bun:"available,notnull,default:true"`
	Range     string    `bun:"spell_range"`
	Classes   []string  `bun:"classes,type:jsonb"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Card type constants
const (
	CardTypeNormal  = "normal"
	CardTypeSpell   = "spell"
	CardTypeMonster = "monster"
)

// Rank constants, highest to lowest pricing tier
const (
	RankSS = "SS"
	RankS  = "S"
	RankA  = "A"
	RankB  = "B"
	RankC  = "C"
	RankD  = "D"
	RankE  = "E"
	RankF  = "F"
	RankG  = "G"
	RankH  = "H"
)

// Spell range constants
const (
	RangeShort = "SR"
	RangeLong  = "LR"
)

// RankPrices maps a rank to its base jenny sale value.
var RankPrices = map[string]int64{
	RankSS: 500000,
	RankS:  150000,
	RankA:  60000,
	RankB:  30000,
	RankC:  15000,
	RankD:  8000,
	RankE:  4000,
	RankF:  2000,
	RankG:  1000,
	RankH:  500,
}

// Price returns the card's base jenny value by rank.
func (c *Card) Price() int64 {
	return RankPrices[c.Rank]
}

// IsSpell reports whether the card is a spell card.
func (c *Card) IsSpell() bool {
	return c.Type == CardTypeSpell
}
