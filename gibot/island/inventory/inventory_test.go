package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullBook(t *testing.T) *Inventory {
	t.Helper()
	inv := New("holder")
	for id := int64(1); id <= RestrictedMaxID; id++ {
		inv.Restricted[id] = Instance{CardID: id}
	}
	return inv
}

func TestAddPrefersRestrictedSlot(t *testing.T) {
	inv := New("u1")

	change, err := inv.Add(Instance{CardID: 57})
	require.NoError(t, err)
	assert.Equal(t, SlotRestricted, change.PlacedSlot)
	assert.Equal(t, []int64{57}, change.OwnerAdds)

	// Second copy of the same id spills into the free list.
	change, err = inv.Add(Instance{CardID: 57})
	require.NoError(t, err)
	assert.Equal(t, SlotFree, change.PlacedSlot)
	assert.Len(t, inv.Free, 1)
	assert.Equal(t, 2, inv.Count(57, true))
}

func TestAddHighIDGoesFree(t *testing.T) {
	inv := New("u1")

	change, err := inv.Add(Instance{CardID: 1003})
	require.NoError(t, err)
	assert.Equal(t, SlotFree, change.PlacedSlot)
	assert.Empty(t, inv.Restricted)
}

func TestAddFakeSkipsLedger(t *testing.T) {
	inv := New("u1")

	change, err := inv.Add(Instance{CardID: 12, Fake: true})
	require.NoError(t, err)
	assert.Empty(t, change.OwnerAdds)
	assert.True(t, inv.Has(12, true, false))
	assert.False(t, inv.Has(12, false, false))
}

func TestAddFullFreeListFails(t *testing.T) {
	inv := New("u1")
	for i := 0; i < FreeSlotCap; i++ {
		_, err := inv.Add(Instance{CardID: 500})
		require.NoError(t, err)
	}

	_, err := inv.Add(Instance{CardID: 501})
	assert.ErrorIs(t, err, ErrCardLimit)
	assert.Len(t, inv.Free, FreeSlotCap)
	assert.False(t, inv.Has(501, true, false))
}

func TestAddMultiDropsOverflow(t *testing.T) {
	inv := New("u1")
	for i := 0; i < FreeSlotCap-2; i++ {
		_, err := inv.Add(Instance{CardID: 500})
		require.NoError(t, err)
	}

	batch := []Instance{
		{CardID: 600}, {CardID: 601}, {CardID: 602}, {CardID: 603}, {CardID: 604},
	}
	change, dropped := inv.AddMulti(batch)

	// Two fit, the rest of the batch is dropped wholesale.
	assert.Equal(t, 3, dropped)
	assert.Equal(t, []int64{600, 601}, change.OwnerAdds)
	assert.Len(t, inv.Free, FreeSlotCap)
}

func TestRemoveFreeFirst(t *testing.T) {
	inv := New("u1")
	_, err := inv.Add(Instance{CardID: 30})
	require.NoError(t, err)
	_, err = inv.Add(Instance{CardID: 30, Clone: true})
	require.NoError(t, err)

	inst, change, err := inv.Remove(30, RemoveOptions{})
	require.NoError(t, err)
	assert.True(t, inst.Clone, "free copy should go before the restricted slot")
	assert.Equal(t, SlotFree, change.PlacedSlot)
	assert.Equal(t, []int64{30}, change.OwnerRemoves)

	inst, change, err = inv.Remove(30, RemoveOptions{})
	require.NoError(t, err)
	assert.False(t, inst.Clone)
	assert.Equal(t, SlotRestricted, change.PlacedSlot)
}

func TestRemoveFilters(t *testing.T) {
	inv := New("u1")
	_, err := inv.Add(Instance{CardID: 30, Fake: true})
	require.NoError(t, err)

	_, _, err = inv.Remove(30, RemoveOptions{Fake: Bool(false)})
	assert.ErrorIs(t, err, ErrNoMatches)
	assert.True(t, inv.Has(30, true, false))

	inst, _, err := inv.Remove(30, RemoveOptions{Fake: Bool(true)})
	require.NoError(t, err)
	assert.True(t, inst.Fake)
}

func TestRemoveNotInPossession(t *testing.T) {
	inv := New("u1")
	_, _, err := inv.Remove(77, RemoveOptions{})
	assert.ErrorIs(t, err, ErrNotInPossession)
}

func TestCompletionGrantsTrophy(t *testing.T) {
	inv := New("u1")
	for id := int64(1); id < RestrictedMaxID; id++ {
		_, err := inv.Add(Instance{CardID: id})
		require.NoError(t, err)
	}
	require.False(t, inv.Completed)

	change, err := inv.Add(Instance{CardID: RestrictedMaxID})
	require.NoError(t, err)
	assert.True(t, change.TrophyGranted)
	assert.Contains(t, change.OwnerAdds, int64(TrophyCardID))
	assert.True(t, inv.Completed)
	assert.True(t, inv.Has(TrophyCardID, false, false))
}

func TestFakeBlocksCompletion(t *testing.T) {
	inv := New("u1")
	for id := int64(1); id < RestrictedMaxID; id++ {
		_, err := inv.Add(Instance{CardID: id})
		require.NoError(t, err)
	}

	change, err := inv.Add(Instance{CardID: RestrictedMaxID, Fake: true})
	require.NoError(t, err)
	assert.False(t, change.TrophyGranted)
	assert.False(t, inv.Completed)
}

func TestRestrictedRemovalRevokesTrophy(t *testing.T) {
	inv := fullBook(t)
	change := &Change{}
	inv.checkCompletion(change)
	require.True(t, inv.Completed)

	_, change, err := inv.Remove(42, RemoveOptions{})
	require.NoError(t, err)
	assert.True(t, change.TrophyRevoked)
	assert.Contains(t, change.OwnerRemoves, int64(TrophyCardID))
	assert.False(t, inv.Completed)
	assert.False(t, inv.Has(TrophyCardID, true, false))
}

func TestSwapFakeForGenuine(t *testing.T) {
	inv := New("u1")
	_, err := inv.Add(Instance{CardID: 15, Fake: true})
	require.NoError(t, err)
	_, err = inv.Add(Instance{CardID: 15})
	require.NoError(t, err)
	require.True(t, inv.Restricted[15].Fake)

	ok, _ := inv.Swap(15)
	require.True(t, ok)
	assert.False(t, inv.Restricted[15].Fake)
	require.Len(t, inv.Free, 1)
	assert.True(t, inv.Free[0].Fake)
}

func TestSwapGenuineOutRevokesTrophy(t *testing.T) {
	inv := fullBook(t)
	change := &Change{}
	inv.checkCompletion(change)
	require.True(t, inv.Completed)

	_, err := inv.Add(Instance{CardID: 42, Fake: true})
	require.NoError(t, err)

	ok, change := inv.Swap(42)
	require.True(t, ok)
	assert.True(t, change.TrophyRevoked)
	assert.False(t, inv.Completed)
}

func TestSwapNoCounterpart(t *testing.T) {
	inv := New("u1")
	_, err := inv.Add(Instance{CardID: 15})
	require.NoError(t, err)

	ok, _ := inv.Swap(15)
	assert.False(t, ok)
}
