package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BookSlot is one card instance inside a user's book document.
type BookSlot struct {
	CardID int64 `json:"card_id"`
	Fake   bool  `json:"fake"`
	Clone  bool  `json:"clone"`
}

// UserBook is the per-user inventory document: 99 restricted slots keyed by
// card id plus an ordered free-slot list. Mutated only through the inventory
// manager, which writes the whole document in one transaction together with
// the matching card_owners rows.
type UserBook struct {
	bun.BaseModel `bun:"table:user_books,alias:ub"`

	UserID     string             `bun:"user_id,pk"`
	Restricted map[int64]BookSlot `bun:"restricted,type:jsonb"`
	Free       []BookSlot         `bun:"free,type:jsonb"`
	Completed  bool               `bun:"completed,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
