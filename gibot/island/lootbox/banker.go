package lootbox

import (
	"context"
	"log/slog"

	"github.com/greedisland/greedbot/gibot/island/inventory"
)

// UserStore is the slice of user persistence the banker needs.
type UserStore interface {
	AddJenny(ctx context.Context, userID string, amount int64) error
	AddBooster(ctx context.Context, userID, boosterID string, count int) error
}

// Receipt summarizes what a save actually banked.
type Receipt struct {
	Cards        []inventory.Instance
	DroppedCards int
	Boosters     map[string]int
	Jenny        int64
}

// Banker commits a saved pot: cards through the inventory manager (ledger
// included), boosters and jenny onto the user document.
type Banker struct {
	inv   *inventory.Manager
	users UserStore
}

func NewBanker(inv *inventory.Manager, users UserStore) *Banker {
	return &Banker{inv: inv, users: users}
}

// Bank applies every reward of a saved session to the user. Card overflow
// past the free-slot or ownership caps is dropped and reported on the
// receipt rather than failing the whole save.
func (b *Banker) Bank(ctx context.Context, userID string, rewards []Reward) (*Receipt, error) {
	receipt := &Receipt{Boosters: make(map[string]int)}

	var cards []inventory.Instance
	for _, reward := range rewards {
		switch reward.Kind {
		case RewardCard:
			cards = append(cards, inventory.Instance{CardID: reward.Card.ID})
		case RewardBooster:
			receipt.Boosters[reward.BoosterID]++
		case RewardJenny:
			receipt.Jenny += reward.Jenny
		}
	}

	if len(cards) > 0 {
		_, dropped, err := b.inv.AddMulti(ctx, userID, cards)
		if err != nil {
			return nil, err
		}
		receipt.Cards = cards
		receipt.DroppedCards = dropped
		if dropped > 0 {
			slog.Warn("Loot-box cards dropped on overflow",
				slog.String("user_id", userID),
				slog.Int("dropped", dropped))
		}
	}

	for boosterID, count := range receipt.Boosters {
		if err := b.users.AddBooster(ctx, userID, boosterID, count); err != nil {
			return nil, err
		}
	}

	if receipt.Jenny > 0 {
		if err := b.users.AddJenny(ctx, userID, receipt.Jenny); err != nil {
			return nil, err
		}
	}

	return receipt, nil
}
