package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// Multiplier scales each card's printed limit into the global cap on
// simultaneous non-fake owners.
const Multiplier = 3

// ErrCapReached is returned when a card already has limit×Multiplier owners.
var ErrCapReached = errors.New("global ownership cap reached")

// Store is the persistent owner list, list semantics per card id. Fakes are
// never recorded. AddOwner/RemoveOwner exist for standalone callers; the
// inventory manager batches owner deltas into its own transaction instead.
type Store interface {
	CountOwners(ctx context.Context, cardID int64) (int, error)
	Owners(ctx context.Context, cardID int64) ([]string, error)
	AddOwner(ctx context.Context, cardID int64, userID string) error
	RemoveOwner(ctx context.Context, cardID int64, userID string) error
}

// Ledger enforces the global per-card ownership cap.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Cap returns the maximum simultaneous non-fake owners for a card. A printed
// limit of zero or less means the card is uncapped (the completion trophy).
func Cap(card *models.Card) int {
	if card.Limit <= 0 {
		return 0
	}
	return card.Limit * Multiplier
}

// CheckCap verifies that `pending` more owner entries would still fit under
// the cap. Callers must run this before mutating any inventory.
func (l *Ledger) CheckCap(ctx context.Context, card *models.Card, pending int) error {
	cap := Cap(card)
	if cap == 0 {
		return nil
	}

	count, err := l.store.CountOwners(ctx, card.ID)
	if err != nil {
		return fmt.Errorf("counting owners of card %d: %w", card.ID, err)
	}
	if count+pending > cap {
		return fmt.Errorf("card %d has %d/%d owners: %w", card.ID, count, cap, ErrCapReached)
	}
	return nil
}

// Count returns the current number of non-fake instances of a card in play.
func (l *Ledger) Count(ctx context.Context, cardID int64) (int, error) {
	return l.store.CountOwners(ctx, cardID)
}

// Owners returns the user ids currently holding non-fake instances.
func (l *Ledger) Owners(ctx context.Context, cardID int64) ([]string, error) {
	return l.store.Owners(ctx, cardID)
}

// AddOwner appends an owner entry after re-checking the cap. Standalone use
// only; inventory mutations go through the transactional store.
func (l *Ledger) AddOwner(ctx context.Context, card *models.Card, userID string) error {
	if err := l.CheckCap(ctx, card, 1); err != nil {
		return err
	}
	return l.store.AddOwner(ctx, card.ID, userID)
}

// RemoveOwner removes one occurrence of the user from the card's owner list.
func (l *Ledger) RemoveOwner(ctx context.Context, cardID int64, userID string) error {
	return l.store.RemoveOwner(ctx, cardID, userID)
}
