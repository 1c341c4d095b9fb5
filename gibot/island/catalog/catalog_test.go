package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
)

type fakeSource struct {
	cards   []*models.Card
	getByID int
	err     error
}

func (f *fakeSource) GetByID(_ context.Context, id int64) (*models.Card, error) {
	f.getByID++
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSource) GetByName(_ context.Context, name string) ([]*models.Card, error) {
	var out []*models.Card
	for _, c := range f.cards {
		if strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) GetAll(_ context.Context) ([]*models.Card, error) {
	return f.cards, nil
}

func testSource() *fakeSource {
	return &fakeSource{cards: []*models.Card{
		{ID: 1, Name: "Clone", Rank: models.RankS, Type: models.CardTypeSpell, Available: true},
		{ID: 57, Name: "Wild Luck Alexandrite", Rank: models.RankB, Type: models.CardTypeNormal, Available: true},
		{ID: 75, Name: "Fledgling Gourmet", Rank: models.RankC, Type: models.CardTypeNormal, Available: true},
		{ID: 1003, Name: "Pickpocket", Rank: models.RankD, Type: models.CardTypeSpell, Available: false},
	}}
}

func TestGetByIDCaches(t *testing.T) {
	src := testSource()
	svc := NewService(src)
	ctx := context.Background()

	card, err := svc.GetByID(ctx, 57)
	require.NoError(t, err)
	assert.Equal(t, "Wild Luck Alexandrite", card.Name)

	_, err = svc.GetByID(ctx, 57)
	require.NoError(t, err)
	assert.Equal(t, 1, src.getByID, "second fetch should hit the cache")
}

func TestGetByIDNotFound(t *testing.T) {
	svc := NewService(testSource())
	_, err := svc.GetByID(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIDStorageErrorIsNotNotFound(t *testing.T) {
	src := testSource()
	src.err = errors.New("connection reset")
	svc := NewService(src)

	_, err := svc.GetByID(context.Background(), 57)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, src.err)
}

func TestLookupNumeric(t *testing.T) {
	svc := NewService(testSource())
	card, err := svc.Lookup(context.Background(), " 75 ")
	require.NoError(t, err)
	assert.Equal(t, int64(75), card.ID)
}

func TestLookupExactName(t *testing.T) {
	svc := NewService(testSource())
	card, err := svc.Lookup(context.Background(), "fledgling gourmet")
	require.NoError(t, err)
	assert.Equal(t, int64(75), card.ID)
}

func TestLookupFuzzyFallback(t *testing.T) {
	svc := NewService(testSource())
	card, err := svc.Lookup(context.Background(), "alexandrit")
	require.NoError(t, err)
	assert.Equal(t, int64(57), card.ID)
}

func TestLookupEmpty(t *testing.T) {
	svc := NewService(testSource())
	_, err := svc.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindFilters(t *testing.T) {
	svc := NewService(testSource())
	ctx := context.Background()

	cards, err := svc.Find(ctx, Filter{Types: []string{models.CardTypeNormal}})
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	cards, err = svc.Find(ctx, Filter{OnlyAvailable: true, Types: []string{models.CardTypeSpell}})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, int64(1), cards[0].ID)

	cards, err = svc.Find(ctx, Filter{ExcludeIDs: []int64{57, 75}, Types: []string{models.CardTypeNormal}})
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestInvalidate(t *testing.T) {
	src := testSource()
	svc := NewService(src)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, 57)
	require.NoError(t, err)
	svc.Invalidate(57)

	_, err = svc.GetByID(ctx, 57)
	require.NoError(t, err)
	assert.Equal(t, 2, src.getByID)
}
