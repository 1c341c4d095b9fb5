package database

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// seedCard is one row of the initial catalog content. The database stays the
// source of truth afterwards; this only upserts the shipped set.
type seedCard struct {
	ID      int64
	Name    string
	Rank    string
	Type    string
	Limit   int
	Range   string
	Classes []string
}

var seedCards = []seedCard{
	// Card 0 is the completion trophy. Never sold, never capped.
	{0, "Ruler's Blessing", models.RankSS, models.CardTypeNormal, 0, "", nil},

	// Restricted-slot cards, ids 1..99.
	{1, "Patch of Forest", models.RankSS, models.CardTypeNormal, 1, "", nil},
	{2, "Patch of Shore", models.RankSS, models.CardTypeNormal, 1, "", nil},
	{3, "Wild Growth", models.RankS, models.CardTypeNormal, 1, "", nil},
	{7, "Levitation Stone", models.RankS, models.CardTypeNormal, 2, "", nil},
	{13, "Blue Planet", models.RankA, models.CardTypeNormal, 2, "", nil},
	{21, "Night Watch", models.RankA, models.CardTypeNormal, 3, "", nil},
	{25, "Memory Helmet", models.RankA, models.CardTypeNormal, 3, "", nil},
	{30, "Sword of Truth", models.RankB, models.CardTypeNormal, 5, "", nil},
	{36, "Bandit's Knife", models.RankB, models.CardTypeNormal, 5, "", nil},
	{42, "Galgaida", models.RankB, models.CardTypeMonster, 5, "", []string{"beast"}},
	{49, "Staff of Judgment", models.RankC, models.CardTypeNormal, 8, "", nil},
	{57, "Wild Luck Alexandrite", models.RankC, models.CardTypeNormal, 8, "", nil},
	{64, "Hormone Bread", models.RankC, models.CardTypeNormal, 10, "", nil},
	{70, "Fairy Ore", models.RankD, models.CardTypeNormal, 12, "", nil},
	{75, "Fledgling Gourmet", models.RankD, models.CardTypeMonster, 12, "", []string{"humanoid"}},
	{83, "Chain of Temperance", models.RankD, models.CardTypeNormal, 15, "", nil},
	{88, "Cave Stream", models.RankE, models.CardTypeNormal, 15, "", nil},
	{93, "Dowsing Pendulum", models.RankE, models.CardTypeNormal, 18, "", nil},
	{99, "Archangel's Breath", models.RankSS, models.CardTypeNormal, 1, "", nil},

	// Free-slot cards.
	{500, "Witch's Love Potion", models.RankD, models.CardTypeNormal, 30, "", nil},
	{501, "Risky Dice", models.RankE, models.CardTypeNormal, 40, "", nil},
	{502, "Fortune Cookie", models.RankF, models.CardTypeNormal, 50, "", nil},
	{503, "Leap of Wind", models.RankF, models.CardTypeNormal, 50, "", nil},
	{504, "Paladin's Necklace", models.RankC, models.CardTypeNormal, 10, "", nil},
	{510, "Cannon Tortoise", models.RankE, models.CardTypeMonster, 40, "", []string{"beast"}},
	{511, "Spirit of the Bog", models.RankF, models.CardTypeMonster, 60, "", []string{"spirit"}},
	{512, "Gate Hound", models.RankG, models.CardTypeMonster, 80, "", []string{"beast"}},
	{520, "Stone Chips", models.RankH, models.CardTypeNormal, 100, "", nil},

	// Attack spell cards.
	{1003, "Pickpocket", models.RankC, models.CardTypeSpell, 20, models.RangeShort, nil},
	{1007, "Levy", models.RankB, models.CardTypeSpell, 10, models.RangeLong, nil},
	{1011, "Detonate", models.RankB, models.CardTypeSpell, 10, models.RangeLong, nil},
	{1014, "Mimic", models.RankC, models.CardTypeSpell, 15, models.RangeLong, nil},
	{1025, "Switcheroo", models.RankC, models.CardTypeSpell, 15, models.RangeShort, nil},
	{1038, "Inspect", models.RankD, models.CardTypeSpell, 25, models.RangeLong, nil},

	// Defense spell cards.
	{1020, "Rank Counter", models.RankC, models.CardTypeSpell, 20, "", nil},
	{1089, "Close Guard", models.RankA, models.CardTypeSpell, 15, "", nil},
	{1090, "Acquaintance", models.RankB, models.CardTypeSpell, 15, "", nil},
}

// InitializeCardData upserts the shipped catalog content.
func (db *DB) InitializeCardData(ctx context.Context) error {
	insertSQL := `
		INSERT INTO cards (id, name, rank, type, card_limit, available, spell_range, classes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			rank = EXCLUDED.rank,
			type = EXCLUDED.type,
			card_limit = EXCLUDED.card_limit,
			spell_range = EXCLUDED.spell_range,
			classes = EXCLUDED.classes,
			updated_at = CURRENT_TIMESTAMP;
	`

	for _, card := range seedCards {
		classes := card.Classes
		if classes == nil {
			classes = []string{}
		}
		if _, err := db.ExecWithLog(ctx, insertSQL,
			card.ID, card.Name, card.Rank, card.Type, card.Limit, card.Range, classes,
		); err != nil {
			return fmt.Errorf("failed to upsert card %d: %w", card.ID, err)
		}
	}

	slog.Info("Card catalog initialized", slog.Int("count", len(seedCards)))
	return nil
}
