package lootbox

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
)

func jennyRewards(n int) []Reward {
	rewards := make([]Reward, n)
	for i := range rewards {
		rewards[i] = Reward{Kind: RewardJenny, Jenny: int64(100 * (i + 1))}
	}
	return rewards
}

func newTestSession(t *testing.T, rewards []Reward) *Session {
	t.Helper()
	s, err := NewSession("u1", "hunter", rewards, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	return s
}

func rewardCells(s *Session) []int {
	var out []int
	cells := s.Cells()
	for i := range cells {
		if cells[i].Reward != nil {
			out = append(out, i)
		}
	}
	return out
}

func bombCells(s *Session) []int {
	var out []int
	cells := s.Cells()
	for i := range cells {
		if cells[i].Reward == nil && !cells[i].Disabled {
			out = append(out, i)
		}
	}
	return out
}

func TestSessionBombCount(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))
	assert.Equal(t, GridSize-18, s.BombCount())
}

func TestSessionRejectsOversizedRewardSet(t *testing.T) {
	_, err := NewSession("u1", "hunter", jennyRewards(GridSize+1), rand.New(rand.NewSource(7)))
	assert.Error(t, err)
}

func TestRevealAndSave(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))

	targets := rewardCells(s)
	for _, i := range targets[:3] {
		result, err := s.Reveal(i)
		require.NoError(t, err)
		assert.False(t, result.Bomb)
	}
	assert.Len(t, s.Claimed(), 3)

	saved, err := s.Save()
	require.NoError(t, err)
	assert.Len(t, saved, 3)
	assert.True(t, s.Saved())

	_, err = s.Reveal(targets[3])
	assert.ErrorIs(t, err, ErrSessionOver)
}

func TestRevealBombClearsPot(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))

	_, err := s.Reveal(rewardCells(s)[0])
	require.NoError(t, err)
	require.Len(t, s.Claimed(), 1)

	result, err := s.Reveal(bombCells(s)[0])
	require.NoError(t, err, "a bomb is an outcome, not an error")
	assert.True(t, result.Bomb)
	assert.Empty(t, s.Claimed())
	assert.True(t, s.Ended())
	assert.False(t, s.Saved())

	_, err = s.Save()
	assert.ErrorIs(t, err, ErrSessionOver)
}

func TestSaveRequiresClaim(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))
	_, err := s.Save()
	assert.ErrorIs(t, err, ErrNothingClaimed)
}

func TestRevealSameCellTwice(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))
	cell := rewardCells(s)[0]

	_, err := s.Reveal(cell)
	require.NoError(t, err)
	_, err = s.Reveal(cell)
	assert.Error(t, err)
}

func TestAbandonDiscardsPot(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))
	_, err := s.Reveal(rewardCells(s)[0])
	require.NoError(t, err)

	s.Abandon()
	assert.True(t, s.Ended())
	assert.Empty(t, s.Claimed())
	assert.False(t, s.Saved())
}

func TestTreasureMapFindsBestHiddenReward(t *testing.T) {
	rewards := jennyRewards(4)
	rewards = append(rewards, Reward{Kind: RewardCard, Card: &models.Card{ID: 5, Rank: models.RankSS}})
	s := newTestSession(t, rewards)

	best, err := s.UseTreasureMap()
	require.NoError(t, err)
	cells := s.Cells()
	require.NotNil(t, cells[best].Reward)
	assert.Equal(t, models.RankPrices[models.RankSS], cells[best].Reward.Value())

	// Stackable: after claiming the best cell, the next use points elsewhere.
	_, err = s.Reveal(best)
	require.NoError(t, err)
	next, err := s.UseTreasureMap()
	require.NoError(t, err)
	assert.NotEqual(t, best, next)
}

func TestDoublerDoublesHiddenJennyOnce(t *testing.T) {
	s := newTestSession(t, jennyRewards(3))

	revealed := rewardCells(s)[0]
	result, err := s.Reveal(revealed)
	require.NoError(t, err)
	claimedBefore := result.Reward.Jenny

	require.NoError(t, s.UseDoubler())
	assert.ErrorIs(t, s.UseDoubler(), ErrBoosterSpent)

	var hiddenTotal int64
	cells := s.Cells()
	for i := range cells {
		if cells[i].Reward != nil && !cells[i].Revealed {
			hiddenTotal += cells[i].Reward.Jenny
		}
	}
	assert.Equal(t, 2*(100+200+300-claimedBefore), hiddenTotal)
	assert.Equal(t, claimedBefore, s.Claimed()[0].Jenny, "already claimed cells are untouched")
}

func TestBombDetectorDisablesHalf(t *testing.T) {
	s := newTestSession(t, jennyRewards(18))
	require.Equal(t, 6, s.BombCount())

	defused, err := s.UseBombDetector()
	require.NoError(t, err)
	assert.Len(t, defused, 3)

	for _, i := range defused {
		_, err := s.Reveal(i)
		assert.Error(t, err, "defused cells cannot be revealed")
	}

	_, err = s.UseBombDetector()
	assert.ErrorIs(t, err, ErrBoosterSpent)
}
