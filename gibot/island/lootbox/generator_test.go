package lootbox

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/catalog"
)

type fakeSource struct {
	cards []*models.Card
}

func (f *fakeSource) GetByID(_ context.Context, id int64) (*models.Card, error) {
	for _, c := range f.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeSource) GetByName(context.Context, string) ([]*models.Card, error) {
	return nil, nil
}

func (f *fakeSource) GetAll(_ context.Context) ([]*models.Card, error) {
	return f.cards, nil
}

func testCatalog() *catalog.Service {
	return catalog.NewService(&fakeSource{cards: []*models.Card{
		{ID: 30, Name: "Sword of Truth", Rank: models.RankC, Type: models.CardTypeNormal, Available: true},
		{ID: 57, Name: "Wild Luck Alexandrite", Rank: models.RankB, Type: models.CardTypeNormal, Available: true},
		{ID: 75, Name: "Fledgling Gourmet", Rank: models.RankD, Type: models.CardTypeNormal, Available: true},
		{ID: 501, Name: "Risky Dice", Rank: models.RankE, Type: models.CardTypeMonster, Available: true},
		{ID: 502, Name: "Patch of Forest", Rank: models.RankS, Type: models.CardTypeNormal, Available: false},
		{ID: 1089, Name: "Close Guard", Rank: models.RankA, Type: models.CardTypeSpell, Available: true},
	}})
}

func testBox() *BoxDef {
	return &BoxDef{
		ID:       "test",
		Name:     "Test Chest",
		Price:    1000,
		Ranks:    []string{models.RankB, models.RankC, models.RankD, models.RankE},
		Types:    []string{models.CardTypeNormal, models.CardTypeMonster},
		JennyMin: 100,
		JennyMax: 1000,
		BoosterPool: []BoosterChance{
			{ID: BoosterTreasureMap, Probability: 0.6},
			{ID: BoosterDoubler, Probability: 0.4},
		},
		CardsMin:     2,
		CardsMax:     5,
		BoostersMin:  1,
		BoostersMax:  2,
		RewardsTotal: 12,
	}
}

func countKinds(rewards []Reward) (cards, boosters, jenny int) {
	for _, r := range rewards {
		switch r.Kind {
		case RewardCard:
			cards++
		case RewardBooster:
			boosters++
		case RewardJenny:
			jenny++
		}
	}
	return
}

func TestGenerateRewardsTotals(t *testing.T) {
	g := NewGenerator(testCatalog(), rand.New(rand.NewSource(3)))
	def := testBox()

	for i := 0; i < 50; i++ {
		rewards, err := g.GenerateRewards(context.Background(), def)
		require.NoError(t, err)
		require.Len(t, rewards, def.RewardsTotal)

		cards, boosters, jenny := countKinds(rewards)
		assert.GreaterOrEqual(t, cards, def.CardsMin)
		assert.LessOrEqual(t, cards, def.CardsMax)
		assert.GreaterOrEqual(t, boosters, def.BoostersMin)
		assert.LessOrEqual(t, boosters, def.BoostersMax)
		assert.Equal(t, def.RewardsTotal-cards-boosters, jenny)
	}
}

func TestGenerateRewardsHonorsFilters(t *testing.T) {
	g := NewGenerator(testCatalog(), rand.New(rand.NewSource(3)))
	def := testBox()

	rewards, err := g.GenerateRewards(context.Background(), def)
	require.NoError(t, err)

	for _, r := range rewards {
		switch r.Kind {
		case RewardCard:
			assert.Contains(t, def.Ranks, r.Card.Rank)
			assert.Contains(t, def.Types, r.Card.Type)
			assert.True(t, r.Card.Available)
		case RewardBooster:
			assert.Contains(t, []string{BoosterTreasureMap, BoosterDoubler}, r.BoosterID)
		case RewardJenny:
			assert.GreaterOrEqual(t, r.Jenny, def.JennyMin)
			assert.LessOrEqual(t, r.Jenny, def.JennyMax)
		}
	}
}

func TestGenerateRewardsGuaranteedFirst(t *testing.T) {
	g := NewGenerator(testCatalog(), rand.New(rand.NewSource(3)))
	def := testBox()
	def.Types = append(def.Types, models.CardTypeSpell)
	def.Guaranteed = []Guaranteed{{CardID: 1089, Count: 1}}

	rewards, err := g.GenerateRewards(context.Background(), def)
	require.NoError(t, err)
	require.Equal(t, RewardCard, rewards[0].Kind)
	assert.Equal(t, int64(1089), rewards[0].Card.ID)
}

func TestGenerateRewardsOverdrawnBox(t *testing.T) {
	g := NewGenerator(testCatalog(), rand.New(rand.NewSource(3)))
	def := testBox()
	def.CardsMin, def.CardsMax = 10, 10
	def.BoostersMin, def.BoostersMax = 4, 4
	def.RewardsTotal = 12

	_, err := g.GenerateRewards(context.Background(), def)
	assert.Error(t, err)
}

func TestGenerateRewardsEmptyBoosterPool(t *testing.T) {
	g := NewGenerator(testCatalog(), rand.New(rand.NewSource(3)))
	def := testBox()
	def.BoosterPool = nil
	def.BoostersMin, def.BoostersMax = 1, 1

	_, err := g.GenerateRewards(context.Background(), def)
	assert.Error(t, err)
}

func TestStaticBoxesAreDrawable(t *testing.T) {
	for id, def := range Boxes {
		assert.Equal(t, id, def.ID)
		assert.LessOrEqual(t, def.RewardsTotal, GridSize)
		assert.LessOrEqual(t, def.CardsMax+def.BoostersMax, def.RewardsTotal)
		assert.Positive(t, def.Price)
		if def.BoostersMax > 0 {
			assert.NotEmpty(t, def.BoosterPool)
		}
	}

	_, err := Box("beginner")
	assert.NoError(t, err)
	_, err = Box("bogus")
	assert.Error(t, err)

	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		assert.NotNil(t, DrawRandomBox(rng))
	}
}
