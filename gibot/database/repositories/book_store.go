package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/inventory"
	"github.com/uptrace/bun"
)

// BookStore persists user books and the card_owners ledger. It backs both the
// inventory manager (transactional document + delta writes) and the ledger
// (owner counts with list semantics).
type BookStore interface {
	Load(ctx context.Context, userID string) (*inventory.Inventory, error)
	Apply(ctx context.Context, mut *inventory.Mutation) error

	CountOwners(ctx context.Context, cardID int64) (int, error)
	Owners(ctx context.Context, cardID int64) ([]string, error)
	AddOwner(ctx context.Context, cardID int64, userID string) error
	RemoveOwner(ctx context.Context, cardID int64, userID string) error

	CardIDs(ctx context.Context) ([]int64, error)
	CountHolders(ctx context.Context, cardID int64) (int, error)
}

type bookStore struct {
	db *bun.DB
}

func NewBookStore(db *bun.DB) BookStore {
	return &bookStore{db: db}
}

func (s *bookStore) Load(ctx context.Context, userID string) (*inventory.Inventory, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	book := new(models.UserBook)
	err := s.db.NewSelect().
		Model(book).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return inventory.New(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading book for %s: %w", userID, err)
	}

	return bookToInventory(book), nil
}

func (s *bookStore) Apply(ctx context.Context, mut *inventory.Mutation) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, inv := range mut.Books {
			book := inventoryToBook(inv)
			book.UpdatedAt = time.Now()

			_, err := tx.NewInsert().
				Model(book).
				On("CONFLICT (user_id) DO UPDATE").
				Set("restricted = EXCLUDED.restricted").
				Set("free = EXCLUDED.free").
				Set("completed = EXCLUDED.completed").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("writing book for %s: %w", inv.UserID, err)
			}
		}

		for _, delta := range mut.OwnerAdds {
			owner := &models.CardOwner{
				CardID:    delta.CardID,
				UserID:    delta.UserID,
				CreatedAt: time.Now(),
			}
			if _, err := tx.NewInsert().Model(owner).Exec(ctx); err != nil {
				return fmt.Errorf("adding owner row for card %d: %w", delta.CardID, err)
			}
		}

		for _, delta := range mut.OwnerRemoves {
			if err := deleteOneOwner(ctx, tx, delta.CardID, delta.UserID); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteOneOwner removes exactly one occurrence, keeping list semantics for
// users holding several copies of the same card.
func deleteOneOwner(ctx context.Context, db bun.IDB, cardID int64, userID string) error {
	_, err := db.NewDelete().
		Model((*models.CardOwner)(nil)).
		Where("id IN (SELECT id FROM card_owners WHERE card_id = ? AND user_id = ? LIMIT 1)", cardID, userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("removing owner row for card %d: %w", cardID, err)
	}
	return nil
}

func (s *bookStore) CountOwners(ctx context.Context, cardID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	return s.db.NewSelect().
		Model((*models.CardOwner)(nil)).
		Where("card_id = ?", cardID).
		Count(ctx)
}

func (s *bookStore) Owners(ctx context.Context, cardID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var owners []string
	err := s.db.NewSelect().
		Model((*models.CardOwner)(nil)).
		Column("user_id").
		Where("card_id = ?", cardID).
		Order("id ASC").
		Scan(ctx, &owners)

	return owners, err
}

func (s *bookStore) AddOwner(ctx context.Context, cardID int64, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	owner := &models.CardOwner{
		CardID:    cardID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	_, err := s.db.NewInsert().Model(owner).Exec(ctx)
	return err
}

func (s *bookStore) RemoveOwner(ctx context.Context, cardID int64, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	return deleteOneOwner(ctx, s.db, cardID, userID)
}

func (s *bookStore) CardIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var ids []int64
	err := s.db.NewSelect().
		Model((*models.Card)(nil)).
		Column("id").
		Order("id ASC").
		Scan(ctx, &ids)

	return ids, err
}

// CountHolders recounts genuine instances of a card inside the book documents
// themselves, for auditing the card_owners rows against.
func (s *bookStore) CountHolders(ctx context.Context, cardID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var count int
	err := s.db.NewRaw(`
		SELECT COALESCE(SUM(
			(SELECT COUNT(*) FROM jsonb_each(ub.restricted) AS r(slot_id, slot)
				WHERE (slot->>'card_id')::bigint = ? AND NOT (slot->>'fake')::boolean)
			+
			(SELECT COUNT(*) FROM jsonb_array_elements(ub.free) AS f(slot)
				WHERE (slot->>'card_id')::bigint = ? AND NOT (slot->>'fake')::boolean)
		), 0)
		FROM user_books AS ub
	`, cardID, cardID).Scan(ctx, &count)

	return count, err
}

func bookToInventory(book *models.UserBook) *inventory.Inventory {
	inv := inventory.New(book.UserID)
	inv.Completed = book.Completed
	for id, slot := range book.Restricted {
		inv.Restricted[id] = inventory.Instance{CardID: slot.CardID, Fake: slot.Fake, Clone: slot.Clone}
	}
	for _, slot := range book.Free {
		inv.Free = append(inv.Free, inventory.Instance{CardID: slot.CardID, Fake: slot.Fake, Clone: slot.Clone})
	}
	return inv
}

func inventoryToBook(inv *inventory.Inventory) *models.UserBook {
	book := &models.UserBook{
		UserID:     inv.UserID,
		Restricted: make(map[int64]models.BookSlot, len(inv.Restricted)),
		Free:       make([]models.BookSlot, 0, len(inv.Free)),
		Completed:  inv.Completed,
	}
	for id, inst := range inv.Restricted {
		book.Restricted[id] = models.BookSlot{CardID: inst.CardID, Fake: inst.Fake, Clone: inst.Clone}
	}
	for _, inst := range inv.Free {
		book.Free = append(book.Free, models.BookSlot{CardID: inst.CardID, Fake: inst.Fake, Clone: inst.Clone})
	}
	return book
}
