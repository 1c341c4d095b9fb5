package effects

import (
	"context"
	"fmt"
	"time"

	"github.com/greedisland/greedbot/gibot/database/models"
)

// pageFirstID and pageSize partition restricted ids 10..99 into five pages of
// 18 ids each for page-ward protection. Ids 1..9 are never warded.
const (
	pageFirstID = 10
	pageSize    = 18
)

// PageOf returns the ward page of a restricted card id, or -1 when the id is
// outside the warded range.
func PageOf(cardID int64) int {
	if cardID < pageFirstID || cardID > 99 {
		return -1
	}
	return int((cardID - pageFirstID) / pageSize)
}

// Repository persists user effects. Get returns (nil, nil) when absent.
type Repository interface {
	Get(ctx context.Context, userID, name string) (*models.UserEffect, error)
	Save(ctx context.Context, effect *models.UserEffect) error
	Delete(ctx context.Context, id int64) error
}

// Manager reads and writes user-scoped named effects: standing shields, page
// wards, met relationships and hunt timestamps.
type Manager struct {
	repo Repository
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) get(ctx context.Context, userID, name string) (*models.UserEffect, error) {
	effect, err := m.repo.Get(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if effect == nil {
		return nil, nil
	}
	if effect.ExpiresAt != nil && time.Now().After(*effect.ExpiresAt) {
		// Expired effects are lazily reaped on read.
		if err := m.repo.Delete(ctx, effect.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return effect, nil
}

// Shield returns the user's standing shield, if any charge remains.
func (m *Manager) Shield(ctx context.Context, userID string) (*models.UserEffect, error) {
	shield, err := m.get(ctx, userID, models.EffectShield)
	if err != nil || shield == nil {
		return shield, err
	}
	if shield.Counter <= 0 {
		return nil, nil
	}
	return shield, nil
}

// GrantShield installs a standing shield backed by a card instance.
func (m *Manager) GrantShield(ctx context.Context, userID string, cardID int64, charges int) error {
	return m.repo.Save(ctx, &models.UserEffect{
		UserID:  userID,
		Name:    models.EffectShield,
		Counter: charges,
		CardID:  cardID,
	})
}

// ConsumeShield decrements one charge. When the last charge is spent the
// effect is removed and the id of the backing card is returned so the caller
// can destroy it in the same resolution.
func (m *Manager) ConsumeShield(ctx context.Context, userID string) (broken bool, backingCard int64, err error) {
	shield, err := m.Shield(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if shield == nil {
		return false, 0, fmt.Errorf("no standing shield for %s", userID)
	}

	shield.Counter--
	if shield.Counter <= 0 {
		if err := m.repo.Delete(ctx, shield.ID); err != nil {
			return false, 0, err
		}
		return true, shield.CardID, nil
	}
	return false, 0, m.repo.Save(ctx, shield)
}

// WardedPage reports whether the user has a standing ward over the page that
// contains the given restricted id.
func (m *Manager) WardedPage(ctx context.Context, userID string, cardID int64) (bool, error) {
	page := PageOf(cardID)
	if page < 0 {
		return false, nil
	}
	ward, err := m.get(ctx, userID, models.EffectPageWard)
	if err != nil || ward == nil {
		return false, err
	}
	return ward.Value == page, nil
}

// GrantPageWard installs a ward over one page for the given duration.
func (m *Manager) GrantPageWard(ctx context.Context, userID string, page int, duration time.Duration) error {
	expires := time.Now().Add(duration)
	return m.repo.Save(ctx, &models.UserEffect{
		UserID:    userID,
		Name:      models.EffectPageWard,
		Value:     page,
		ExpiresAt: &expires,
	})
}

// MarkMet records that userID has met otherID.
func (m *Manager) MarkMet(ctx context.Context, userID, otherID string) error {
	return m.repo.Save(ctx, &models.UserEffect{
		UserID: userID,
		Name:   metName(otherID),
	})
}

// HasMet reports whether userID has previously met otherID.
func (m *Manager) HasMet(ctx context.Context, userID, otherID string) (bool, error) {
	effect, err := m.get(ctx, userID, metName(otherID))
	if err != nil {
		return false, err
	}
	return effect != nil, nil
}

// StartHunting records the "currently hunting since T" marker.
func (m *Manager) StartHunting(ctx context.Context, userID string) error {
	return m.repo.Save(ctx, &models.UserEffect{
		UserID: userID,
		Name:   models.EffectHunting,
	})
}

// HuntingSince returns the hunt start time, or the zero time when not hunting.
func (m *Manager) HuntingSince(ctx context.Context, userID string) (time.Time, error) {
	effect, err := m.get(ctx, userID, models.EffectHunting)
	if err != nil || effect == nil {
		return time.Time{}, err
	}
	return effect.CreatedAt, nil
}

// StopHunting clears the hunt marker if present.
func (m *Manager) StopHunting(ctx context.Context, userID string) error {
	effect, err := m.get(ctx, userID, models.EffectHunting)
	if err != nil || effect == nil {
		return err
	}
	return m.repo.Delete(ctx, effect.ID)
}

func metName(otherID string) string {
	return models.EffectMet + ":" + otherID
}
