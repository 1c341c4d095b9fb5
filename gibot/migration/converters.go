package migration

import (
	"time"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

func convertUser(mu MongoUser) *models.User {
	now := time.Now()
	created := mu.Joined
	if created.IsZero() {
		created = now
	}
	return &models.User{
		DiscordID: mu.DiscordID,
		Username:  mu.Username,
		Jenny:     int64(mu.Jenny),
		Boosters:  convertCounts(mu.Boosters),
		LootBoxes: convertCounts(mu.LootBoxes),
		LastDaily: mu.LastDaily,
		CreatedAt: created,
		UpdatedAt: now,
	}
}

// convertCounts drops zero and negative entries; the old bot never pruned them.
func convertCounts(raw map[string]float64) map[string]int {
	out := map[string]int{}
	for k, v := range raw {
		if n := int(v); n > 0 {
			out[k] = n
		}
	}
	return out
}

func convertEffect(me MongoUserEffect, now time.Time) *models.UserEffect {
	return &models.UserEffect{
		UserID:    me.UserID,
		Name:      me.Name,
		CardID:    int64(me.CardID),
		Counter:   int(me.Counter),
		ExpiresAt: me.Expires,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newEmptyBook(userID string) *models.UserBook {
	now := time.Now()
	return &models.UserBook{
		UserID:     userID,
		Restricted: map[int64]models.BookSlot{},
		Free:       []models.BookSlot{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// placeCopy slots one legacy copy into the book under the current rules:
// restricted ids take their dedicated slot once, everything else lands in
// the free pool until it is full. Returns false when the copy is dropped.
func placeCopy(book *models.UserBook, cardID int64, fake, clone bool) bool {
	slot := models.BookSlot{CardID: cardID, Fake: fake, Clone: clone}
	if cardID >= 1 && cardID <= inventory.RestrictedMaxID {
		if _, taken := book.Restricted[cardID]; !taken {
			book.Restricted[cardID] = slot
			return true
		}
	}
	if len(book.Free) >= inventory.FreeSlotCap {
		return false
	}
	book.Free = append(book.Free, slot)
	return true
}

// restrictedComplete applies the trophy rule to an imported book: every
// restricted id holds a non-fake instance. Clones count.
func restrictedComplete(book *models.UserBook) bool {
	for id := int64(1); id <= inventory.RestrictedMaxID; id++ {
		slot, ok := book.Restricted[id]
		if !ok || slot.Fake {
			return false
		}
	}
	return true
}
