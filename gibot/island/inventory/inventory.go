package inventory

import (
	"errors"
)

const (
	// FreeSlotCap bounds the free-slot list of every book.
	FreeSlotCap = 40
	// RestrictedMaxID is the highest card id with a dedicated restricted slot.
	RestrictedMaxID = 99
	// TrophyCardID is the synthetic completion trophy, auto-managed only.
	TrophyCardID = 0
)

var (
	// ErrCardLimit means the free-slot list is full. No mutation happened.
	ErrCardLimit = errors.New("free card slots are full")
	// ErrNoMatches means the user holds the card but no instance matched the
	// removal filters.
	ErrNoMatches = errors.New("no card instance matches the filters")
	// ErrNotInPossession means the user holds no instance of the card at all.
	ErrNotInPossession = errors.New("card not in possession")
)

// Slot selects a pool during removal. SlotAuto searches free first, then
// restricted.
type Slot string

const (
	SlotAuto       Slot = ""
	SlotRestricted Slot = "restricted"
	SlotFree       Slot = "free"
)

// Instance is one concrete card copy. A fake never counts toward the
// ownership ledger or completion; a clone is a genuine duplicate produced by
// a spell effect.
type Instance struct {
	CardID int64
	Fake   bool
	Clone  bool
}

// Change accumulates the ledger-relevant side effects of a mutation, applied
// by the manager in the same transaction as the book write.
type Change struct {
	OwnerAdds     []int64
	OwnerRemoves  []int64
	TrophyGranted bool
	TrophyRevoked bool
	PlacedSlot    Slot
}

// Merge folds another change's deltas into this one.
func (c *Change) Merge(other *Change) {
	c.OwnerAdds = append(c.OwnerAdds, other.OwnerAdds...)
	c.OwnerRemoves = append(c.OwnerRemoves, other.OwnerRemoves...)
	c.TrophyGranted = c.TrophyGranted || other.TrophyGranted
	c.TrophyRevoked = c.TrophyRevoked || other.TrophyRevoked
}

// RemoveOptions filter and direct a removal. Nil filters match any instance.
type RemoveOptions struct {
	Fake  *bool
	Clone *bool
	Slot  Slot
}

// Inventory is one user's book: restricted slots for card ids 1..99 (at most
// one instance per id) and a bounded, ordered free-slot list.
type Inventory struct {
	UserID     string
	Restricted map[int64]Instance
	Free       []Instance
	Completed  bool
}

func New(userID string) *Inventory {
	return &Inventory{
		UserID:     userID,
		Restricted: make(map[int64]Instance),
	}
}

// Add places an instance: the restricted slot if the id has one and it is
// vacant, the free list otherwise. A full free list fails with ErrCardLimit
// and leaves the book untouched.
func (inv *Inventory) Add(inst Instance) (*Change, error) {
	change := &Change{}

	if inst.CardID <= RestrictedMaxID {
		if _, occupied := inv.Restricted[inst.CardID]; !occupied {
			inv.Restricted[inst.CardID] = inst
			change.PlacedSlot = SlotRestricted
			if !inst.Fake {
				change.OwnerAdds = append(change.OwnerAdds, inst.CardID)
			}
			inv.checkCompletion(change)
			return change, nil
		}
	}

	if len(inv.Free) >= FreeSlotCap {
		return nil, ErrCardLimit
	}
	inv.Free = append(inv.Free, inst)
	change.PlacedSlot = SlotFree
	if !inst.Fake {
		change.OwnerAdds = append(change.OwnerAdds, inst.CardID)
	}
	return change, nil
}

// AddMulti places a batch with the same rule as Add, except that instances
// the free list cannot hold are silently dropped instead of failing the
// batch. Returns the number dropped. Lossy on purpose: legacy reward payouts
// relied on this, see the overflow test.
func (inv *Inventory) AddMulti(insts []Instance) (*Change, int) {
	change := &Change{}
	dropped := 0

	for _, inst := range insts {
		c, err := inv.Add(inst)
		if err != nil {
			dropped++
			continue
		}
		change.Merge(c)
	}
	return change, dropped
}

// Remove takes out the first instance of the card matching the filters.
// Without an explicit slot preference the free list is searched first, then
// the restricted slot.
func (inv *Inventory) Remove(cardID int64, opts RemoveOptions) (Instance, *Change, error) {
	if !inv.holdsAny(cardID) {
		return Instance{}, nil, ErrNotInPossession
	}

	var pools []Slot
	switch opts.Slot {
	case SlotRestricted, SlotFree:
		pools = []Slot{opts.Slot}
	default:
		pools = []Slot{SlotFree, SlotRestricted}
	}

	for _, pool := range pools {
		inst, ok := inv.removeFrom(pool, cardID, opts)
		if !ok {
			continue
		}

		change := &Change{PlacedSlot: pool}
		if !inst.Fake {
			change.OwnerRemoves = append(change.OwnerRemoves, inst.CardID)
		}
		if pool == SlotRestricted && cardID >= 1 && cardID <= RestrictedMaxID {
			inv.revokeTrophy(change)
		}
		return inst, change, nil
	}

	return Instance{}, nil, ErrNoMatches
}

func (inv *Inventory) removeFrom(pool Slot, cardID int64, opts RemoveOptions) (Instance, bool) {
	if pool == SlotRestricted {
		inst, ok := inv.Restricted[cardID]
		if !ok || !matches(inst, opts) {
			return Instance{}, false
		}
		delete(inv.Restricted, cardID)
		return inst, true
	}

	for i, inst := range inv.Free {
		if inst.CardID != cardID || !matches(inst, opts) {
			continue
		}
		inv.Free = append(inv.Free[:i], inv.Free[i+1:]...)
		return inst, true
	}
	return Instance{}, false
}

// Swap exchanges a fake instance in one pool with a genuine instance of the
// same id in the other pool, keeping each instance's clone flag. Returns
// false when the precondition does not hold.
func (inv *Inventory) Swap(cardID int64) (bool, *Change) {
	if cardID < 1 || cardID > RestrictedMaxID {
		return false, nil
	}
	slotted, ok := inv.Restricted[cardID]
	if !ok {
		return false, nil
	}

	for i, free := range inv.Free {
		if free.CardID != cardID || free.Fake == slotted.Fake {
			continue
		}

		inv.Restricted[cardID] = free
		inv.Free[i] = slotted

		change := &Change{}
		if slotted.Fake {
			// Genuine moved into the restricted slot, may complete the book.
			inv.checkCompletion(change)
		} else {
			inv.revokeTrophy(change)
		}
		return true, change
	}
	return false, nil
}

// Has reports whether the user holds the card anywhere in the book.
func (inv *Inventory) Has(cardID int64, fakeAllowed, onlyFakes bool) bool {
	check := func(inst Instance) bool {
		if onlyFakes {
			return inst.Fake
		}
		return fakeAllowed || !inst.Fake
	}

	if inst, ok := inv.Restricted[cardID]; ok && check(inst) {
		return true
	}
	for _, inst := range inv.Free {
		if inst.CardID == cardID && check(inst) {
			return true
		}
	}
	return false
}

// Count returns the number of instances of the card across both pools.
func (inv *Inventory) Count(cardID int64, includingFakes bool) int {
	count := 0
	if inst, ok := inv.Restricted[cardID]; ok && (includingFakes || !inst.Fake) {
		count++
	}
	for _, inst := range inv.Free {
		if inst.CardID == cardID && (includingFakes || !inst.Fake) {
			count++
		}
	}
	return count
}

// FreeInstances returns a copy of the free-slot list in order.
func (inv *Inventory) FreeInstances() []Instance {
	out := make([]Instance, len(inv.Free))
	copy(out, inv.Free)
	return out
}

func (inv *Inventory) holdsAny(cardID int64) bool {
	if _, ok := inv.Restricted[cardID]; ok {
		return true
	}
	for _, inst := range inv.Free {
		if inst.CardID == cardID {
			return true
		}
	}
	return false
}

func matches(inst Instance, opts RemoveOptions) bool {
	if opts.Fake != nil && inst.Fake != *opts.Fake {
		return false
	}
	if opts.Clone != nil && inst.Clone != *opts.Clone {
		return false
	}
	return true
}

// checkCompletion grants the trophy once every restricted id 1..99 holds a
// genuine instance.
func (inv *Inventory) checkCompletion(change *Change) {
	if inv.Completed {
		return
	}
	for id := int64(1); id <= RestrictedMaxID; id++ {
		inst, ok := inv.Restricted[id]
		if !ok || inst.Fake {
			return
		}
	}

	inv.Restricted[TrophyCardID] = Instance{CardID: TrophyCardID}
	inv.Completed = true
	change.TrophyGranted = true
	change.OwnerAdds = append(change.OwnerAdds, TrophyCardID)
}

// revokeTrophy removes the trophy when a previously complete book loses one
// of the 99 restricted ids (or has one replaced by a fake).
func (inv *Inventory) revokeTrophy(change *Change) {
	if !inv.Completed {
		return
	}
	delete(inv.Restricted, TrophyCardID)
	inv.Completed = false
	change.TrophyRevoked = true
	change.OwnerRemoves = append(change.OwnerRemoves, TrophyCardID)
}

// Bool is a pointer helper for RemoveOptions filters.
func Bool(v bool) *bool {
	return &v
}
