package migration

import (
	"time"
)

// Legacy document shapes, matching what the old bot stored in MongoDB.
// Field names follow the original collections, not our Postgres schema.

// MongoUser is a document from the legacy "users" collection.
type MongoUser struct {
	DiscordID string             `bson:"discord_id"`
	Username  string             `bson:"username"`
	Jenny     float64            `bson:"jenny"`
	Boosters  map[string]float64 `bson:"boosters"`
	LootBoxes map[string]float64 `bson:"lootboxes"`
	LastDaily time.Time          `bson:"lastdaily"`
	Joined    time.Time          `bson:"joined"`
}

// MongoUserCard is a document from the legacy "usercards" collection.
// One document per owned copy; the old bot stored the slot kind as a
// string ("restricted"/"free") and flags for fakes and clones.
type MongoUserCard struct {
	UserID string   `bson:"userid"`
	CardID *float64 `bson:"cardid"`
	Slot   string   `bson:"slot"`
	Fake   bool     `bson:"fake"`
	Clone  bool     `bson:"clone"`
}

// MongoUserEffect is a document from the legacy "usereffects" collection.
type MongoUserEffect struct {
	UserID  string     `bson:"userid"`
	Name    string     `bson:"name"`
	CardID  float64    `bson:"cardid"`
	Counter float64    `bson:"counter"`
	Expires *time.Time `bson:"expires"`
}

// TableStats tracks per-table outcomes for the final report.
type TableStats struct {
	Read     int
	Imported int
	Skipped  int
}

// MigrationStats aggregates the run for logging at the end.
type MigrationStats struct {
	Tables    map[string]*TableStats
	StartTime time.Time
	EndTime   time.Time
}
