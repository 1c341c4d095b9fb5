package effects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
)

type memRepo struct {
	nextID  int64
	effects map[int64]*models.UserEffect
}

func newMemRepo() *memRepo {
	return &memRepo{effects: make(map[int64]*models.UserEffect)}
}

func (r *memRepo) Get(_ context.Context, userID, name string) (*models.UserEffect, error) {
	for _, e := range r.effects {
		if e.UserID == userID && e.Name == name {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memRepo) Save(_ context.Context, effect *models.UserEffect) error {
	if effect.ID == 0 {
		r.nextID++
		effect.ID = r.nextID
		effect.CreatedAt = time.Now()
	}
	r.effects[effect.ID] = effect
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	delete(r.effects, id)
	return nil
}

func TestPageOf(t *testing.T) {
	assert.Equal(t, -1, PageOf(9), "ids below 10 are never warded")
	assert.Equal(t, 0, PageOf(10))
	assert.Equal(t, 0, PageOf(27))
	assert.Equal(t, 1, PageOf(28))
	assert.Equal(t, 4, PageOf(99))
	assert.Equal(t, -1, PageOf(100))
}

func TestShieldConsume(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()

	require.NoError(t, m.GrantShield(ctx, "u1", 1089, 2))

	broken, _, err := m.ConsumeShield(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, broken)

	shield, err := m.Shield(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, shield)
	assert.Equal(t, 1, shield.Counter)

	broken, backing, err := m.ConsumeShield(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, broken)
	assert.Equal(t, int64(1089), backing, "broken shield surrenders its backing card")

	shield, err = m.Shield(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, shield)
}

func TestConsumeShieldWithoutShield(t *testing.T) {
	m := NewManager(newMemRepo())
	_, _, err := m.ConsumeShield(context.Background(), "u1")
	assert.Error(t, err)
}

func TestPageWard(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()

	require.NoError(t, m.GrantPageWard(ctx, "u1", PageOf(42), time.Hour))

	warded, err := m.WardedPage(ctx, "u1", 42)
	require.NoError(t, err)
	assert.True(t, warded)

	// 80 sits on a different page of the book.
	warded, err = m.WardedPage(ctx, "u1", 80)
	require.NoError(t, err)
	assert.False(t, warded)

	warded, err = m.WardedPage(ctx, "u1", 5)
	require.NoError(t, err)
	assert.False(t, warded, "low ids have no page")
}

func TestExpiredEffectReaped(t *testing.T) {
	repo := newMemRepo()
	m := NewManager(repo)
	ctx := context.Background()

	require.NoError(t, m.GrantPageWard(ctx, "u1", 0, -time.Minute))

	warded, err := m.WardedPage(ctx, "u1", 12)
	require.NoError(t, err)
	assert.False(t, warded)
	assert.Empty(t, repo.effects, "expired effect rows are deleted on read")
}

func TestMet(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()

	met, err := m.HasMet(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, met)

	require.NoError(t, m.MarkMet(ctx, "u1", "u2"))

	met, err = m.HasMet(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, met)

	// Met is directional until the other side records it too.
	met, err = m.HasMet(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.False(t, met)
}

func TestHunting(t *testing.T) {
	m := NewManager(newMemRepo())
	ctx := context.Background()

	since, err := m.HuntingSince(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, since.IsZero())

	require.NoError(t, m.StartHunting(ctx, "u1"))
	since, err = m.HuntingSince(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, since.IsZero())

	require.NoError(t, m.StopHunting(ctx, "u1"))
	since, err = m.HuntingSince(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, since.IsZero())
}
