package lootbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

type memBooks struct {
	books map[string]*inventory.Inventory
}

func (s *memBooks) Load(_ context.Context, userID string) (*inventory.Inventory, error) {
	if inv, ok := s.books[userID]; ok {
		return inv, nil
	}
	inv := inventory.New(userID)
	s.books[userID] = inv
	return inv, nil
}

func (s *memBooks) Apply(_ context.Context, mut *inventory.Mutation) error {
	for _, inv := range mut.Books {
		s.books[inv.UserID] = inv
	}
	return nil
}

type bankerCards struct{}

func (bankerCards) GetByID(_ context.Context, id int64) (*models.Card, error) {
	return &models.Card{ID: id, Rank: models.RankD, Type: models.CardTypeNormal, Limit: 100}, nil
}

type openCaps struct{}

func (openCaps) CheckCap(context.Context, *models.Card, int) error { return nil }

type memUsers struct {
	jenny    map[string]int64
	boosters map[string]map[string]int
}

func newMemUsers() *memUsers {
	return &memUsers{jenny: make(map[string]int64), boosters: make(map[string]map[string]int)}
}

func (s *memUsers) AddJenny(_ context.Context, userID string, amount int64) error {
	s.jenny[userID] += amount
	return nil
}

func (s *memUsers) AddBooster(_ context.Context, userID, boosterID string, count int) error {
	if s.boosters[userID] == nil {
		s.boosters[userID] = make(map[string]int)
	}
	s.boosters[userID][boosterID] += count
	return nil
}

func TestBankSplitsRewards(t *testing.T) {
	books := &memBooks{books: make(map[string]*inventory.Inventory)}
	users := newMemUsers()
	inv := inventory.NewManager(books, bankerCards{}, openCaps{})
	banker := NewBanker(inv, users)

	rewards := []Reward{
		{Kind: RewardCard, Card: &models.Card{ID: 57}},
		{Kind: RewardCard, Card: &models.Card{ID: 501}},
		{Kind: RewardBooster, BoosterID: BoosterTreasureMap},
		{Kind: RewardBooster, BoosterID: BoosterTreasureMap},
		{Kind: RewardJenny, Jenny: 300},
		{Kind: RewardJenny, Jenny: 200},
	}

	receipt, err := banker.Bank(context.Background(), "u1", rewards)
	require.NoError(t, err)

	assert.Len(t, receipt.Cards, 2)
	assert.Zero(t, receipt.DroppedCards)
	assert.Equal(t, map[string]int{BoosterTreasureMap: 2}, receipt.Boosters)
	assert.Equal(t, int64(500), receipt.Jenny)

	book := books.books["u1"]
	assert.True(t, book.Has(57, true, false))
	assert.True(t, book.Has(501, true, false))
	assert.Equal(t, int64(500), users.jenny["u1"])
	assert.Equal(t, 2, users.boosters["u1"][BoosterTreasureMap])
}

func TestBankReportsOverflow(t *testing.T) {
	books := &memBooks{books: make(map[string]*inventory.Inventory)}
	users := newMemUsers()
	inv := inventory.NewManager(books, bankerCards{}, openCaps{})
	banker := NewBanker(inv, users)

	full := inventory.New("u1")
	for i := 0; i < inventory.FreeSlotCap; i++ {
		_, err := full.Add(inventory.Instance{CardID: 900})
		require.NoError(t, err)
	}
	books.books["u1"] = full

	receipt, err := banker.Bank(context.Background(), "u1", []Reward{
		{Kind: RewardCard, Card: &models.Card{ID: 57}},
		{Kind: RewardCard, Card: &models.Card{ID: 901}},
	})
	require.NoError(t, err)

	// 57 still fits its restricted slot, 901 overflows and is dropped.
	assert.Equal(t, 1, receipt.DroppedCards)
	assert.True(t, full.Has(57, true, false))
	assert.False(t, full.Has(901, true, false))
}
