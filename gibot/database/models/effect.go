package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserEffect is a user-scoped named value: a timed protection, a standing
// shield counter, a page ward, or cross-command state like "hunting since T".
type UserEffect struct {
	bun.BaseModel `bun:"table:user_effects,alias:ue"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID string `bun:"user_id,notnull"`
	Name   string `bun:"name,notnull"`

	// Counter for shield-style effects, Value for page index or similar.
	Counter int `bun:"counter,notnull,default:0"`
	Value   int `bun:"value,notnull,default:0"`

	// CardID links the effect to the card instance that sustains it.
	CardID int64 `bun:"card_id,notnull,default:0"`

	ExpiresAt *time.Time `bun:"expires_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull"`
}

// Effect name constants
const (
	EffectShield    = "shield"
	EffectPageWard  = "page_ward"
	EffectMet       = "met"
	EffectHunting   = "hunting"
	EffectLocked    = "trade_locked"
)
