package ledger

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const auditWorkers = 4

// AuditStore exposes the two counts the auditor compares: the ledger rows and
// the instances actually recorded inside user book documents.
type AuditStore interface {
	CardIDs(ctx context.Context) ([]int64, error)
	CountOwners(ctx context.Context, cardID int64) (int, error)
	CountHolders(ctx context.Context, cardID int64) (int, error)
}

// Drift is a card whose ledger count no longer matches the books.
type Drift struct {
	CardID int64
	Ledger int
	Books  int
}

// Auditor recounts the ledger against the book documents. Both are written in
// one transaction, so any drift means manual interference or a bug.
type Auditor struct {
	store AuditStore
}

func NewAuditor(store AuditStore) *Auditor {
	return &Auditor{store: store}
}

// Run compares every card's ledger count with its book count, a bounded
// number of cards at a time, and returns the cards that drifted.
func (a *Auditor) Run(ctx context.Context) ([]Drift, error) {
	start := time.Now()

	ids, err := a.store.CardIDs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		drifts []Drift
	)

	sem := semaphore.NewWeighted(auditWorkers)
	g, ctx := errgroup.WithContext(ctx)

	for _, id := range ids {
		id := id
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)

			ledgerCount, err := a.store.CountOwners(ctx, id)
			if err != nil {
				return err
			}
			bookCount, err := a.store.CountHolders(ctx, id)
			if err != nil {
				return err
			}
			if ledgerCount != bookCount {
				mu.Lock()
				drifts = append(drifts, Drift{CardID: id, Ledger: ledgerCount, Books: bookCount})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(drifts, func(i, j int) bool { return drifts[i].CardID < drifts[j].CardID })

	slog.Info("Ledger audit completed",
		slog.Int("cards", len(ids)),
		slog.Int("drifted", len(drifts)),
		slog.Duration("took", time.Since(start)))

	return drifts, nil
}
