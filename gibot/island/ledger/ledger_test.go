package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
)

type memStore struct {
	mu     sync.Mutex
	owners map[int64][]string
}

func newMemStore() *memStore {
	return &memStore{owners: make(map[int64][]string)}
}

func (s *memStore) CountOwners(_ context.Context, cardID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners[cardID]), nil
}

func (s *memStore) Owners(_ context.Context, cardID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.owners[cardID]...), nil
}

func (s *memStore) AddOwner(_ context.Context, cardID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[cardID] = append(s.owners[cardID], userID)
	return nil
}

func (s *memStore) RemoveOwner(_ context.Context, cardID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.owners[cardID]
	for i, id := range list {
		if id == userID {
			s.owners[cardID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestCap(t *testing.T) {
	assert.Equal(t, 3, Cap(&models.Card{ID: 1, Limit: 1}))
	assert.Equal(t, 60, Cap(&models.Card{ID: 2, Limit: 20}))
	assert.Equal(t, 0, Cap(&models.Card{ID: 0, Limit: 0}), "trophy is uncapped")
	assert.Equal(t, 0, Cap(&models.Card{ID: 3, Limit: -1}))
}

func TestCheckCapAtLimit(t *testing.T) {
	store := newMemStore()
	l := New(store)
	card := &models.Card{ID: 42, Limit: 1}
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c"} {
		require.NoError(t, l.AddOwner(ctx, card, user))
	}

	err := l.CheckCap(ctx, card, 1)
	assert.ErrorIs(t, err, ErrCapReached)

	// Room opens up again once an owner drops the card.
	require.NoError(t, l.RemoveOwner(ctx, card.ID, "b"))
	assert.NoError(t, l.CheckCap(ctx, card, 1))
}

func TestCheckCapPendingBatch(t *testing.T) {
	store := newMemStore()
	l := New(store)
	card := &models.Card{ID: 42, Limit: 1}
	ctx := context.Background()

	require.NoError(t, l.AddOwner(ctx, card, "a"))

	assert.NoError(t, l.CheckCap(ctx, card, 2))
	assert.ErrorIs(t, l.CheckCap(ctx, card, 3), ErrCapReached)
}

func TestCheckCapUncapped(t *testing.T) {
	store := newMemStore()
	l := New(store)
	trophy := &models.Card{ID: 0, Limit: 0}
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, l.AddOwner(ctx, trophy, user))
	}
	assert.NoError(t, l.CheckCap(ctx, trophy, 100))
}

func TestRemoveOwnerSingleOccurrence(t *testing.T) {
	store := newMemStore()
	l := New(store)
	card := &models.Card{ID: 7, Limit: 2}
	ctx := context.Background()

	require.NoError(t, l.AddOwner(ctx, card, "a"))
	require.NoError(t, l.AddOwner(ctx, card, "a"))
	require.NoError(t, l.RemoveOwner(ctx, card.ID, "a"))

	count, err := l.Count(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "list semantics: one removal takes one occurrence")
}

type auditStore struct {
	*memStore
	holders map[int64]int
}

func (s *auditStore) CardIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.owners))
	for id := range s.owners {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *auditStore) CountHolders(_ context.Context, cardID int64) (int, error) {
	return s.holders[cardID], nil
}

func TestAuditorReportsDrift(t *testing.T) {
	store := &auditStore{memStore: newMemStore(), holders: map[int64]int{1: 1, 2: 2, 3: 0}}
	ctx := context.Background()
	store.owners[1] = []string{"a"}
	store.owners[2] = []string{"a"}
	store.owners[3] = []string{"a", "b"}

	drifts, err := NewAuditor(store).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Drift{
		{CardID: 2, Ledger: 1, Books: 2},
		{CardID: 3, Ledger: 2, Books: 0},
	}, drifts)
}
