package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/uptrace/bun"
)

type EffectRepository interface {
	Get(ctx context.Context, userID, name string) (*models.UserEffect, error)
	GetAllForUser(ctx context.Context, userID string) ([]*models.UserEffect, error)
	Save(ctx context.Context, effect *models.UserEffect) error
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type effectRepository struct {
	db *bun.DB
}

func NewEffectRepository(db *bun.DB) EffectRepository {
	return &effectRepository{db: db}
}

// Get returns (nil, nil) when the user has no effect of that name.
func (r *effectRepository) Get(ctx context.Context, userID, name string) (*models.UserEffect, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	effect := new(models.UserEffect)
	err := r.db.NewSelect().
		Model(effect).
		Where("user_id = ? AND name = ?", userID, name).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return effect, nil
}

func (r *effectRepository) GetAllForUser(ctx context.Context, userID string) ([]*models.UserEffect, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var effects []*models.UserEffect
	err := r.db.NewSelect().
		Model(&effects).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)

	return effects, err
}

func (r *effectRepository) Save(ctx context.Context, effect *models.UserEffect) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	effect.UpdatedAt = time.Now()

	if effect.ID == 0 {
		_, err := r.db.NewInsert().
			Model(effect).
			Returning("id").
			Exec(ctx)
		return err
	}

	_, err := r.db.NewUpdate().
		Model(effect).
		WherePK().
		Exec(ctx)
	return err
}

func (r *effectRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*models.UserEffect)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteExpired sweeps timed-out effects in bulk. The effects manager also
// reaps lazily on read; this keeps the table small between reads.
func (r *effectRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.UserEffect)(nil)).
		Where("expires_at IS NOT NULL AND expires_at < CURRENT_TIMESTAMP").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
