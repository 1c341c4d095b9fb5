package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/island/inventory"
)

func TestConvertUser(t *testing.T) {
	joined := time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)
	mu := MongoUser{
		DiscordID: "123",
		Username:  "gon",
		Jenny:     1500.0,
		Boosters:  map[string]float64{"doubler": 2, "treasure_map": 0},
		LastDaily: joined,
		Joined:    joined,
	}

	u := convertUser(mu)
	assert.Equal(t, "123", u.DiscordID)
	assert.Equal(t, int64(1500), u.Jenny)
	assert.Equal(t, map[string]int{"doubler": 2}, u.Boosters)
	assert.Empty(t, u.LootBoxes)
	assert.Equal(t, joined, u.CreatedAt)
}

func TestPlaceCopyRestricted(t *testing.T) {
	book := newEmptyBook("123")

	require.True(t, placeCopy(book, 7, false, false))
	assert.Equal(t, int64(7), book.Restricted[7].CardID)

	// Second copy of a restricted id spills into the free pool.
	require.True(t, placeCopy(book, 7, false, true))
	require.Len(t, book.Free, 1)
	assert.True(t, book.Free[0].Clone)
}

func TestPlaceCopyFreePoolFull(t *testing.T) {
	book := newEmptyBook("123")
	for i := 0; i < inventory.FreeSlotCap; i++ {
		require.True(t, placeCopy(book, 500, false, false))
	}
	assert.False(t, placeCopy(book, 501, false, false))
	assert.Len(t, book.Free, inventory.FreeSlotCap)
}

func TestRestrictedComplete(t *testing.T) {
	book := newEmptyBook("123")
	for id := int64(1); id <= inventory.RestrictedMaxID; id++ {
		require.True(t, placeCopy(book, id, false, false))
	}
	assert.True(t, restrictedComplete(book))

	// A fake in any slot blocks the trophy.
	slot := book.Restricted[42]
	slot.Fake = true
	book.Restricted[42] = slot
	assert.False(t, restrictedComplete(book))
}

func TestConvertEffectDropsNothing(t *testing.T) {
	now := time.Now()
	exp := now.Add(time.Hour)
	e := convertEffect(MongoUserEffect{
		UserID:  "123",
		Name:    "shield",
		CardID:  1001,
		Counter: 2,
		Expires: &exp,
	}, now)
	assert.Equal(t, int64(1001), e.CardID)
	assert.Equal(t, 2, e.Counter)
	require.NotNil(t, e.ExpiresAt)
	assert.Equal(t, exp, *e.ExpiresAt)
}
