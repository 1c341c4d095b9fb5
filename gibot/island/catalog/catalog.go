package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// ErrNotFound is returned when no card matches a lookup query.
var ErrNotFound = errors.New("card not found")

const cacheSize = 2048

// Source is the read-only backing catalog.
type Source interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByName(ctx context.Context, name string) ([]*models.Card, error)
	GetAll(ctx context.Context) ([]*models.Card, error)
}

// Filter narrows Find results. Empty slices match everything.
type Filter struct {
	Ranks         []string
	Types         []string
	OnlyAvailable bool
	ExcludeIDs    []int64
}

// Service looks up card definitions by id or name, with an in-process cache
// keyed by id. The cache must be invalidated explicitly when the backing
// catalog changes.
type Service struct {
	source Source
	cache  *lru.Cache

	mu    sync.RWMutex
	index []*models.Card // name index for fuzzy fallback
}

type cardNames []*models.Card

func (c cardNames) String(i int) string { return strings.ToLower(c[i].Name) }
func (c cardNames) Len() int            { return len(c) }

func NewService(source Source) *Service {
	cache, _ := lru.New(cacheSize)
	return &Service{
		source: source,
		cache:  cache,
	}
}

// GetByID fetches a card definition through the cache.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.(*models.Card), nil
	}

	card, err := s.source.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog lookup for card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("catalog lookup for card %d: %w", id, err)
	}

	s.cache.Add(id, card)
	return card, nil
}

// Lookup resolves a query to a single card. Numeric strings are treated as
// ids, names are matched case-insensitively with a fuzzy fallback.
func (s *Service) Lookup(ctx context.Context, query string) (*models.Card, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNotFound
	}

	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		return s.GetByID(ctx, id)
	}

	cards, err := s.source.GetByName(ctx, query)
	if err == nil && len(cards) > 0 {
		s.cache.Add(cards[0].ID, cards[0])
		return cards[0], nil
	}

	return s.fuzzyLookup(ctx, query)
}

func (s *Service) fuzzyLookup(ctx context.Context, query string) (*models.Card, error) {
	index, err := s.nameIndex(ctx)
	if err != nil {
		return nil, err
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), cardNames(index))
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	card := index[matches[0].Index]
	s.cache.Add(card.ID, card)
	return card, nil
}

func (s *Service) nameIndex(ctx context.Context) ([]*models.Card, error) {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()
	if index != nil {
		return index, nil
	}

	cards, err := s.source.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("building catalog name index: %w", err)
	}

	s.mu.Lock()
	s.index = cards
	s.mu.Unlock()
	return cards, nil
}

// Find returns all cards matching the filter, for reward generation.
func (s *Service) Find(ctx context.Context, filter Filter) ([]*models.Card, error) {
	cards, err := s.source.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	var out []*models.Card
	for _, card := range cards {
		if _, skip := excluded[card.ID]; skip {
			continue
		}
		if filter.OnlyAvailable && !card.Available {
			continue
		}
		if len(filter.Ranks) > 0 && !containsString(filter.Ranks, card.Rank) {
			continue
		}
		if len(filter.Types) > 0 && !containsString(filter.Types, card.Type) {
			continue
		}
		out = append(out, card)
	}
	return out, nil
}

// Invalidate drops a single card from the cache.
func (s *Service) Invalidate(id int64) {
	s.cache.Remove(id)
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

// InvalidateAll drops the whole cache and the name index.
func (s *Service) InvalidateAll() {
	s.cache.Purge()
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

func containsString(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}
