package battle

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

// Spell card ids with attack effects.
const (
	SpellPickpocket = 1003 // steal one free-slot card, short range only
	SpellLevy       = 1007 // steal one restricted-slot card
	SpellDetonate   = 1011 // destroy one restricted-slot card
	SpellMimic      = 1014 // clone one of the victim's free-slot cards
	SpellSwitcheroo = 1025 // trade a free-slot card against the victim's
	SpellInspect    = 1038 // reveal the victim's book
)

// Env is the execution environment handed to a spell handler. During Apply
// both books are loaded fresh under the pair lock, so handlers must
// re-validate their target against them.
type Env struct {
	Attacker  *inventory.Inventory
	Victim    *inventory.Inventory
	SpellCard *models.Card
	Target    Target
	Met       bool
	Rand      *rand.Rand

	// Only set during Apply.
	Caps       CapChecker
	Cards      CardResolver
	Resolution *Resolution
}

// SpellHandler implements one spell card's effect. Handlers are resolved by
// card id through the registry, never by type switching.
type SpellHandler interface {
	ID() int64
	TargetPool() inventory.Slot
	Eligible(ctx context.Context, env *Env) error
	Apply(ctx context.Context, env *Env) (*inventory.PairChange, error)
}

// Registry maps spell card ids to their handlers.
type Registry struct {
	handlers map[int64]SpellHandler
}

// NewRegistry returns a registry with every built-in spell registered.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[int64]SpellHandler)}
	for _, h := range []SpellHandler{
		&stealSpell{id: SpellPickpocket, pool: inventory.SlotFree, shortRange: true},
		&stealSpell{id: SpellLevy, pool: inventory.SlotRestricted},
		&destroySpell{},
		&cloneSpell{},
		&swapSpell{},
		&revealSpell{},
	} {
		r.handlers[h.ID()] = h
	}
	return r
}

// Handler returns the handler for a spell card id.
func (r *Registry) Handler(cardID int64) (SpellHandler, bool) {
	h, ok := r.handlers[cardID]
	return h, ok
}

// Verify asserts that every spell-type card in the catalog that is not a
// defense card has a registered handler. Run at startup.
func (r *Registry) Verify(cards []*models.Card) error {
	for _, card := range cards {
		if !card.IsSpell() {
			continue
		}
		if _, defense := defenseRules[card.ID]; defense {
			continue
		}
		if _, ok := r.handlers[card.ID]; !ok {
			return fmt.Errorf("spell card %d (%s) has no registered handler", card.ID, card.Name)
		}
	}
	return nil
}

// pickTarget resolves the target card id within a pool, drawing a random
// occupied slot when the request did not pin one.
func pickTarget(env *Env, pool inventory.Slot) (int64, error) {
	if env.Target.CardID != 0 {
		return env.Target.CardID, nil
	}

	var candidates []int64
	switch pool {
	case inventory.SlotRestricted:
		for id, inst := range env.Victim.Restricted {
			if id == inventory.TrophyCardID || inst.Fake {
				continue
			}
			candidates = append(candidates, id)
		}
	default:
		for _, inst := range env.Victim.FreeInstances() {
			if !inst.Fake {
				candidates = append(candidates, inst.CardID)
			}
		}
	}
	if len(candidates) == 0 {
		return 0, checkf("the target holds nothing to take")
	}
	return candidates[env.Rand.Intn(len(candidates))], nil
}

func requirePoolNotEmpty(env *Env, pool inventory.Slot) error {
	switch pool {
	case inventory.SlotRestricted:
		for id, inst := range env.Victim.Restricted {
			if id != inventory.TrophyCardID && !inst.Fake {
				return nil
			}
		}
	default:
		for _, inst := range env.Victim.FreeInstances() {
			if !inst.Fake {
				return nil
			}
		}
	}
	return checkf("the target holds no cards in the %s slots", poolName(pool))
}

func poolName(pool inventory.Slot) string {
	if pool == inventory.SlotRestricted {
		return "restricted"
	}
	return "free"
}

// stealSpell moves one of the victim's cards into the attacker's book.
type stealSpell struct {
	id         int64
	pool       inventory.Slot
	shortRange bool
}

func (s *stealSpell) ID() int64                  { return s.id }
func (s *stealSpell) TargetPool() inventory.Slot { return s.pool }

func (s *stealSpell) Eligible(_ context.Context, env *Env) error {
	if s.shortRange && env.SpellCard.Range != models.RangeShort {
		return checkf("%s only works at short range", env.SpellCard.Name)
	}
	return requirePoolNotEmpty(env, s.pool)
}

func (s *stealSpell) Apply(_ context.Context, env *Env) (*inventory.PairChange, error) {
	targetID, err := pickTarget(env, s.pool)
	if err != nil {
		return nil, err
	}

	inst, victimChange, err := env.Victim.Remove(targetID, inventory.RemoveOptions{
		Fake: inventory.Bool(false),
		Slot: s.pool,
	})
	if err != nil {
		return nil, checkf("the card slipped away before the spell landed")
	}

	attackerChange, err := env.Attacker.Add(inst)
	if err != nil {
		return nil, checkf("your free slots are full")
	}

	env.Resolution.Taken = append(env.Resolution.Taken, inst)
	return &inventory.PairChange{First: attackerChange, Second: victimChange}, nil
}

// destroySpell removes one restricted-slot card from play entirely.
type destroySpell struct{}

func (s *destroySpell) ID() int64                  { return SpellDetonate }
func (s *destroySpell) TargetPool() inventory.Slot { return inventory.SlotRestricted }

func (s *destroySpell) Eligible(_ context.Context, env *Env) error {
	return requirePoolNotEmpty(env, inventory.SlotRestricted)
}

func (s *destroySpell) Apply(_ context.Context, env *Env) (*inventory.PairChange, error) {
	targetID, err := pickTarget(env, inventory.SlotRestricted)
	if err != nil {
		return nil, err
	}

	inst, victimChange, err := env.Victim.Remove(targetID, inventory.RemoveOptions{
		Slot: inventory.SlotRestricted,
	})
	if err != nil {
		return nil, checkf("the card slipped away before the spell landed")
	}

	env.Resolution.Destroyed = append(env.Resolution.Destroyed, inst)
	return &inventory.PairChange{Second: victimChange}, nil
}

// cloneSpell mints a genuine duplicate of a victim's free-slot card for the
// attacker. The new instance counts against the ownership cap.
type cloneSpell struct{}

func (s *cloneSpell) ID() int64                  { return SpellMimic }
func (s *cloneSpell) TargetPool() inventory.Slot { return inventory.SlotFree }

func (s *cloneSpell) Eligible(_ context.Context, env *Env) error {
	return requirePoolNotEmpty(env, inventory.SlotFree)
}

func (s *cloneSpell) Apply(ctx context.Context, env *Env) (*inventory.PairChange, error) {
	targetID, err := pickTarget(env, inventory.SlotFree)
	if err != nil {
		return nil, err
	}
	if !env.Victim.Has(targetID, false, false) {
		return nil, checkf("the card slipped away before the spell landed")
	}

	card, err := env.Cards.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := env.Caps.CheckCap(ctx, card, 1); err != nil {
		return nil, checkf("%s is already at its ownership cap", card.Name)
	}

	inst := inventory.Instance{CardID: targetID, Clone: true}
	attackerChange, err := env.Attacker.Add(inst)
	if err != nil {
		return nil, checkf("your free slots are full")
	}

	env.Resolution.Taken = append(env.Resolution.Taken, inst)
	return &inventory.PairChange{First: attackerChange}, nil
}

// swapSpell trades the attacker's newest free-slot card for one of the
// victim's. Requires a prior met relationship.
type swapSpell struct{}

func (s *swapSpell) ID() int64                  { return SpellSwitcheroo }
func (s *swapSpell) TargetPool() inventory.Slot { return inventory.SlotFree }

func (s *swapSpell) Eligible(_ context.Context, env *Env) error {
	if !env.Met {
		return checkf("you have not met this hunter yet")
	}
	if len(env.Attacker.FreeInstances()) == 0 {
		return checkf("you hold no free-slot card to trade away")
	}
	return requirePoolNotEmpty(env, inventory.SlotFree)
}

func (s *swapSpell) Apply(_ context.Context, env *Env) (*inventory.PairChange, error) {
	targetID, err := pickTarget(env, inventory.SlotFree)
	if err != nil {
		return nil, err
	}

	free := env.Attacker.FreeInstances()
	if len(free) == 0 {
		return nil, checkf("you hold no free-slot card to trade away")
	}
	given := free[len(free)-1]

	taken, victimRemove, err := env.Victim.Remove(targetID, inventory.RemoveOptions{
		Fake: inventory.Bool(false),
		Slot: inventory.SlotFree,
	})
	if err != nil {
		return nil, checkf("the card slipped away before the spell landed")
	}

	// Remove the exact instance that is being traded away, not just any copy
	// of the id: the attacker may hold the same card with differing flags.
	_, attackerRemove, err := env.Attacker.Remove(given.CardID, inventory.RemoveOptions{
		Slot:  inventory.SlotFree,
		Fake:  inventory.Bool(given.Fake),
		Clone: inventory.Bool(given.Clone),
	})
	if err != nil {
		return nil, err
	}

	attackerAdd, err := env.Attacker.Add(taken)
	if err != nil {
		return nil, checkf("your free slots are full")
	}
	victimAdd, err := env.Victim.Add(given)
	if err != nil {
		return nil, checkf("the target's free slots are full")
	}

	attackerRemove.Merge(attackerAdd)
	victimRemove.Merge(victimAdd)
	env.Resolution.Taken = append(env.Resolution.Taken, taken)
	return &inventory.PairChange{First: attackerRemove, Second: victimRemove}, nil
}

// revealSpell exposes the victim's book without mutating anything.
type revealSpell struct{}

func (s *revealSpell) ID() int64                  { return SpellInspect }
func (s *revealSpell) TargetPool() inventory.Slot { return inventory.SlotAuto }

func (s *revealSpell) Eligible(_ context.Context, _ *Env) error { return nil }

func (s *revealSpell) Apply(_ context.Context, env *Env) (*inventory.PairChange, error) {
	snapshot := inventory.New(env.Victim.UserID)
	snapshot.Completed = env.Victim.Completed
	snapshot.Free = env.Victim.FreeInstances()
	for id, inst := range env.Victim.Restricted {
		snapshot.Restricted[id] = inst
	}
	env.Resolution.Revealed = snapshot
	return nil, nil
}
