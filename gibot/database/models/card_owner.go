package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CardOwner is one ledger entry: one non-fake instance of a card held by a
// user. List semantics, a user holding duplicates contributes one row each.
type CardOwner struct {
	bun.BaseModel `bun:"table:card_owners,alias:co"`

	ID        int64     `bun:"id,pk,autoincrement"`
	CardID    int64     `bun:"card_id,notnull"`
	UserID    string    `bun:"user_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
