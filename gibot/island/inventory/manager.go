package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// OwnerDelta is one ledger entry to create or delete.
type OwnerDelta struct {
	CardID int64
	UserID string
}

// Mutation is the unit of persistence: full book rewrites plus the matching
// ledger deltas, committed in a single transaction. The book write and the
// owner rows succeed or fail together.
type Mutation struct {
	Books        []*Inventory
	OwnerAdds    []OwnerDelta
	OwnerRemoves []OwnerDelta
}

// Store persists books and owner rows.
type Store interface {
	Load(ctx context.Context, userID string) (*Inventory, error)
	Apply(ctx context.Context, mut *Mutation) error
}

// CardResolver resolves card definitions, satisfied by catalog.Service.
type CardResolver interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
}

// CapChecker enforces the global ownership cap, satisfied by ledger.Ledger.
type CapChecker interface {
	CheckCap(ctx context.Context, card *models.Card, pending int) error
}

// Manager serializes all mutations of a user's book behind a per-user lock
// and runs the ledger capacity check before any state changes.
type Manager struct {
	store Store
	cards CardResolver
	caps  CapChecker
	locks sync.Map // userID -> *sync.Mutex
}

func NewManager(store Store, cards CardResolver, caps CapChecker) *Manager {
	return &Manager{
		store: store,
		cards: cards,
		caps:  caps,
	}
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	lock, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// lockUsers acquires the given user locks in sorted id order so that two
// concurrent attacks involving the same pair cannot deadlock. Repeated ids
// are locked once; the id list may name the same user twice.
func (m *Manager) lockUsers(userIDs ...string) func() {
	sorted := make([]string, len(userIDs))
	copy(sorted, userIDs)
	sort.Strings(sorted)

	locks := make([]*sync.Mutex, 0, len(sorted))
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		lock := m.userLock(id)
		lock.Lock()
		locks = append(locks, lock)
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// Get returns a snapshot of the user's book.
func (m *Manager) Get(ctx context.Context, userID string) (*Inventory, error) {
	unlock := m.lockUsers(userID)
	defer unlock()
	return m.store.Load(ctx, userID)
}

// Add places one instance into the user's book. For non-fakes the ledger cap
// is checked first; on failure nothing is mutated.
func (m *Manager) Add(ctx context.Context, userID string, cardID int64, fake, clone bool) (*Change, error) {
	unlock := m.lockUsers(userID)
	defer unlock()

	if !fake {
		card, err := m.cards.GetByID(ctx, cardID)
		if err != nil {
			return nil, err
		}
		if err := m.caps.CheckCap(ctx, card, 1); err != nil {
			return nil, err
		}
	}

	inv, err := m.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	change, err := inv.Add(Instance{CardID: cardID, Fake: fake, Clone: clone})
	if err != nil {
		return nil, err
	}

	if err := m.store.Apply(ctx, mutationFor(inv, change)); err != nil {
		return nil, fmt.Errorf("persisting add of card %d for %s: %w", cardID, userID, err)
	}
	return change, nil
}

// AddMulti places a batch. Instances that would exceed the free-slot cap or
// the ledger cap are dropped and counted, the rest commit in one transaction.
func (m *Manager) AddMulti(ctx context.Context, userID string, insts []Instance) (*Change, int, error) {
	unlock := m.lockUsers(userID)
	defer unlock()

	// Pre-filter instances over the ledger cap, counting pending adds per id.
	pending := make(map[int64]int)
	eligible := make([]Instance, 0, len(insts))
	dropped := 0
	for _, inst := range insts {
		if inst.Fake {
			eligible = append(eligible, inst)
			continue
		}
		card, err := m.cards.GetByID(ctx, inst.CardID)
		if err != nil {
			return nil, 0, err
		}
		if err := m.caps.CheckCap(ctx, card, pending[inst.CardID]+1); err != nil {
			dropped++
			continue
		}
		pending[inst.CardID]++
		eligible = append(eligible, inst)
	}

	inv, err := m.store.Load(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	change, overflow := inv.AddMulti(eligible)
	dropped += overflow

	if err := m.store.Apply(ctx, mutationFor(inv, change)); err != nil {
		return nil, 0, fmt.Errorf("persisting batch add for %s: %w", userID, err)
	}
	return change, dropped, nil
}

// Remove takes one matching instance out of the user's book.
func (m *Manager) Remove(ctx context.Context, userID string, cardID int64, opts RemoveOptions) (Instance, error) {
	unlock := m.lockUsers(userID)
	defer unlock()

	inv, err := m.store.Load(ctx, userID)
	if err != nil {
		return Instance{}, err
	}

	inst, change, err := inv.Remove(cardID, opts)
	if err != nil {
		return Instance{}, err
	}

	if err := m.store.Apply(ctx, mutationFor(inv, change)); err != nil {
		return Instance{}, fmt.Errorf("persisting removal of card %d for %s: %w", cardID, userID, err)
	}
	return inst, nil
}

// Swap exchanges a fake and a genuine instance of the same id between the
// two pools. Returns false without mutation when the precondition fails.
func (m *Manager) Swap(ctx context.Context, userID string, cardID int64) (bool, error) {
	unlock := m.lockUsers(userID)
	defer unlock()

	inv, err := m.store.Load(ctx, userID)
	if err != nil {
		return false, err
	}

	ok, change := inv.Swap(cardID)
	if !ok {
		return false, nil
	}

	if err := m.store.Apply(ctx, mutationFor(inv, change)); err != nil {
		return false, fmt.Errorf("persisting swap of card %d for %s: %w", cardID, userID, err)
	}
	return true, nil
}

// PairChange is the outcome of a two-book resolution.
type PairChange struct {
	First  *Change
	Second *Change
}

// ResolvePair locks both users for the duration of one resolution, loads both
// books, runs fn, and commits every resulting change in one transaction.
// fn receives the books in the order the ids were passed.
func (m *Manager) ResolvePair(ctx context.Context, firstID, secondID string, fn func(first, second *Inventory) (*PairChange, error)) error {
	unlock := m.lockUsers(firstID, secondID)
	defer unlock()

	first, err := m.store.Load(ctx, firstID)
	if err != nil {
		return err
	}
	second, err := m.store.Load(ctx, secondID)
	if err != nil {
		return err
	}

	change, err := fn(first, second)
	if err != nil {
		return err
	}
	if change == nil {
		return nil
	}

	mut := &Mutation{Books: []*Inventory{first, second}}
	if change.First != nil {
		appendDeltas(mut, first.UserID, change.First)
	}
	if change.Second != nil {
		appendDeltas(mut, second.UserID, change.Second)
	}

	if err := m.store.Apply(ctx, mut); err != nil {
		return fmt.Errorf("persisting pair resolution %s/%s: %w", firstID, secondID, err)
	}
	return nil
}

func mutationFor(inv *Inventory, change *Change) *Mutation {
	mut := &Mutation{Books: []*Inventory{inv}}
	appendDeltas(mut, inv.UserID, change)
	return mut
}

func appendDeltas(mut *Mutation, userID string, change *Change) {
	for _, id := range change.OwnerAdds {
		mut.OwnerAdds = append(mut.OwnerAdds, OwnerDelta{CardID: id, UserID: userID})
	}
	for _, id := range change.OwnerRemoves {
		mut.OwnerRemoves = append(mut.OwnerRemoves, OwnerDelta{CardID: id, UserID: userID})
	}
}
