package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/uptrace/bun"
)

// ErrInsufficientJenny is returned when a spend would push a balance negative.
var ErrInsufficientJenny = errors.New("not enough jenny")

type UserRepository interface {
	GetOrCreate(ctx context.Context, discordID, username string) (*models.User, error)
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error

	AddJenny(ctx context.Context, discordID string, amount int64) error
	SpendJenny(ctx context.Context, discordID string, amount int64) error

	AddBooster(ctx context.Context, discordID, boosterID string, count int) error
	UseBooster(ctx context.Context, discordID, boosterID string) error

	AddLootBox(ctx context.Context, discordID, boxID string, count int) error
	UseLootBox(ctx context.Context, discordID, boxID string) error
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreate(ctx context.Context, discordID, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user, err := r.GetByDiscordID(ctx, discordID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	user = &models.User{
		DiscordID: discordID,
		Username:  username,
		Boosters:  map[string]int{},
		LootBoxes: map[string]int{},
		UpdatedAt: time.Now(),
	}
	_, err = r.db.NewInsert().
		Model(user).
		On("CONFLICT (discord_id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating user %s: %w", discordID, err)
	}
	return user, nil
}

func (r *userRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(ctx)

	return user, err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user.UpdatedAt = time.Now()

	_, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)

	return err
}

func (r *userRepository) AddJenny(ctx context.Context, discordID string, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("jenny = jenny + ?", amount).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("discord_id = ?", discordID).
		Exec(ctx)

	return err
}

func (r *userRepository) SpendJenny(ctx context.Context, discordID string, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("jenny = jenny - ?", amount).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("discord_id = ? AND jenny >= ?", discordID, amount).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientJenny
	}
	return nil
}

func (r *userRepository) AddBooster(ctx context.Context, discordID, boosterID string, count int) error {
	return r.bumpJSONBCounter(ctx, discordID, "boosters", boosterID, count)
}

func (r *userRepository) UseBooster(ctx context.Context, discordID, boosterID string) error {
	return r.decrementJSONBCounter(ctx, discordID, "boosters", boosterID)
}

func (r *userRepository) AddLootBox(ctx context.Context, discordID, boxID string, count int) error {
	return r.bumpJSONBCounter(ctx, discordID, "lootboxes", boxID, count)
}

func (r *userRepository) UseLootBox(ctx context.Context, discordID, boxID string) error {
	return r.decrementJSONBCounter(ctx, discordID, "lootboxes", boxID)
}

// bumpJSONBCounter increments one key of a jsonb counter column in place.
func (r *userRepository) bumpJSONBCounter(ctx context.Context, discordID, column, key string, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE users
		SET %s = jsonb_set(
			COALESCE(%s, '{}'::jsonb),
			ARRAY[?],
			(COALESCE((%s->>?)::int, 0) + ?)::text::jsonb
		),
		updated_at = CURRENT_TIMESTAMP
		WHERE discord_id = ?
	`, column, column, column)

	_, err := r.db.NewRaw(query, key, key, delta, discordID).Exec(ctx)
	return err
}

// decrementJSONBCounter takes one off a jsonb counter key, failing when the
// user has none left.
func (r *userRepository) decrementJSONBCounter(ctx context.Context, discordID, column, key string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE users
		SET %s = jsonb_set(%s, ARRAY[?], ((%s->>?)::int - 1)::text::jsonb),
		updated_at = CURRENT_TIMESTAMP
		WHERE discord_id = ? AND COALESCE((%s->>?)::int, 0) > 0
	`, column, column, column, column)

	res, err := r.db.NewRaw(query, key, key, discordID, key).Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s has no %q left", discordID, key)
	}
	return nil
}
