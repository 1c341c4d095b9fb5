package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/uptrace/bun"
)

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByName(ctx context.Context, name string) ([]*models.Card, error)
	GetAll(ctx context.Context) ([]*models.Card, error)
	GetByType(ctx context.Context, cardType string) ([]*models.Card, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error)
	Update(ctx context.Context, card *models.Card) error
	Delete(ctx context.Context, id int64) error
	GetCardCount(ctx context.Context) (int64, error)
}

type cardRepository struct {
	db    *bun.DB
	cache *sync.Map
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{
		db:    db,
		cache: &sync.Map{},
	}
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func (r *cardRepository) getFromCache(key string) (interface{}, bool) {
	raw, ok := r.cache.Load(key)
	if !ok {
		return nil, false
	}
	entry := raw.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		r.cache.Delete(key)
		return nil, false
	}
	return entry.value, true
}

func (r *cardRepository) setCache(key string, value interface{}, ttl time.Duration) {
	r.cache.Store(key, cacheEntry{value: value, expiresAt: time.Now().Add(ttl)})
}

func (r *cardRepository) invalidateCache() {
	r.cache.Range(func(key, _ interface{}) bool {
		r.cache.Delete(key)
		return true
	})
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	card.CreatedAt = time.Now()
	card.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(card).
		Returning("id").
		Exec(ctx)

	return err
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Where("id = ?", id).
		Scan(ctx)

	return card, err
}

func (r *cardRepository) GetByName(ctx context.Context, name string) ([]*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("name:%s", name)
	if cached, ok := r.getFromCache(cacheKey); ok {
		return cached.([]*models.Card), nil
	}

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("LOWER(name) = LOWER(?)", name).
		Scan(ctx)

	if err == nil {
		r.setCache(cacheKey, cards, config.CacheExpiration)
	}

	return cards, err
}

func (r *cardRepository) GetAll(ctx context.Context) ([]*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Order("id ASC").
		Scan(ctx)

	return cards, err
}

func (r *cardRepository) GetByType(ctx context.Context, cardType string) ([]*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	cacheKey := fmt.Sprintf("type:%s", cardType)
	if cached, ok := r.getFromCache(cacheKey); ok {
		return cached.([]*models.Card), nil
	}

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("type = ?", cardType).
		Order("id ASC").
		Scan(ctx)

	if err == nil {
		r.setCache(cacheKey, cards, config.CacheExpiration)
	}

	return cards, err
}

func (r *cardRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	if len(ids) == 0 {
		return nil, nil
	}

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)

	return cards, err
}

func (r *cardRepository) Update(ctx context.Context, card *models.Card) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	card.UpdatedAt = time.Now()

	_, err := r.db.NewUpdate().
		Model(card).
		WherePK().
		Exec(ctx)

	if err == nil {
		r.invalidateCache()
	}

	return err
}

func (r *cardRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*models.Card)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err == nil {
		r.invalidateCache()
	}

	return err
}

func (r *cardRepository) GetCardCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	count, err := r.db.NewSelect().
		Model((*models.Card)(nil)).
		Count(ctx)

	return int64(count), err
}
