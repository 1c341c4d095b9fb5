package lootbox

import (
	"fmt"
	"math/rand"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// Boxes is the static loot-box content table, keyed by box id. Read-only.
var Boxes = map[string]*BoxDef{
	"beginner": {
		ID:              "beginner",
		Name:            "Beginner's Chest",
		Price:           20000,
		DrawProbability: 0.50,
		Ranks:           []string{models.RankE, models.RankF, models.RankG, models.RankH},
		Types:           []string{models.CardTypeNormal, models.CardTypeMonster},
		JennyMin:        500,
		JennyMax:        5000,
		BoosterPool: []BoosterChance{
			{ID: BoosterTreasureMap, Probability: 0.70},
			{ID: BoosterBombDetector, Probability: 0.30},
		},
		CardsMin:     3,
		CardsMax:     6,
		BoostersMin:  0,
		BoostersMax:  2,
		RewardsTotal: 14,
	},
	"hunter": {
		ID:              "hunter",
		Name:            "Hunter's Chest",
		Price:           120000,
		DrawProbability: 0.35,
		Guaranteed: []Guaranteed{
			{CardID: 1089, Count: 1}, // one close guard to get defenses going
		},
		Ranks:    []string{models.RankB, models.RankC, models.RankD, models.RankE},
		Types:    []string{models.CardTypeNormal, models.CardTypeSpell, models.CardTypeMonster},
		JennyMin: 2000,
		JennyMax: 20000,
		BoosterPool: []BoosterChance{
			{ID: BoosterTreasureMap, Probability: 0.45},
			{ID: BoosterDoubler, Probability: 0.30},
			{ID: BoosterBombDetector, Probability: 0.25},
		},
		CardsMin:     4,
		CardsMax:     8,
		BoostersMin:  1,
		BoostersMax:  3,
		RewardsTotal: 18,
	},
	"azian": {
		ID:              "azian",
		Name:            "Azian Reliquary",
		Price:           600000,
		DrawProbability: 0.15,
		Ranks:           []string{models.RankSS, models.RankS, models.RankA, models.RankB},
		Types:           []string{models.CardTypeNormal, models.CardTypeSpell, models.CardTypeMonster},
		JennyMin:        10000,
		JennyMax:        80000,
		BoosterPool: []BoosterChance{
			{ID: BoosterTreasureMap, Probability: 0.30},
			{ID: BoosterDoubler, Probability: 0.40},
			{ID: BoosterBombDetector, Probability: 0.30},
		},
		CardsMin:     5,
		CardsMax:     10,
		BoostersMin:  2,
		BoostersMax:  4,
		RewardsTotal: 20,
	},
}

// Box returns a box definition by id.
func Box(id string) (*BoxDef, error) {
	def, ok := Boxes[id]
	if !ok {
		return nil, fmt.Errorf("unknown loot box %q", id)
	}
	return def, nil
}

// DrawRandomBox picks a box weighted by each definition's draw probability.
func DrawRandomBox(rng *rand.Rand) *BoxDef {
	var total float64
	for _, def := range Boxes {
		total += def.DrawProbability
	}

	roll := rng.Float64() * total
	var last *BoxDef
	for _, def := range Boxes {
		last = def
		roll -= def.DrawProbability
		if roll < 0 {
			return def
		}
	}
	return last
}
