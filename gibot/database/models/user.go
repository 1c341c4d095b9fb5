package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique"`
	Username  string `bun:"username,notnull"`
	Jenny     int64  `bun:"jenny,notnull,default:0"`

	// Book completion (all 99 restricted slots held genuine)
	Completed bool `bun:"completed,notnull,default:false"`

	// Boosters held outside any reveal session, keyed by booster id
	Boosters map[string]int `bun:"boosters,type:jsonb"`

	// Unopened loot boxes, keyed by box id
	LootBoxes map[string]int `bun:"lootboxes,type:jsonb"`

	LastDaily time.Time `bun:"last_daily"`
	LastMsg   string    `bun:"last_msg"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
