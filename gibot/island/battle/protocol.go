package battle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/effects"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

// DefenseTimeout bounds the interactive defense choice. A timeout resolves
// exactly like an explicit decline: the attack proceeds.
const DefenseTimeout = 20 * time.Second

// State of one attack, Idle through Resolved.
type State int

const (
	StateIdle State = iota
	StateDeclared
	StateAutoResolved
	StateDefenseOffered
	StateResolved
)

// Outcome of a resolved attack. Blocked is an expected branch, not an error.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeBlocked
)

// CheckError is a precondition violation whose message is surfaced verbatim
// to the end user.
type CheckError struct {
	Message string
}

func (e *CheckError) Error() string { return e.Message }

func checkf(format string, args ...any) error {
	return &CheckError{Message: fmt.Sprintf(format, args...)}
}

// Target optionally pins the attack to one card id in one pool.
type Target struct {
	CardID int64
	Slot   inventory.Slot
}

// Request declares one attack.
type Request struct {
	AttackerID  string
	VictimID    string
	SpellCardID int64
	Target      Target
}

// Resolution is the outcome of one attack.
type Resolution struct {
	State     State
	Outcome   Outcome
	BlockedBy int64 // defense or shield card id when blocked by a card
	Taken     []inventory.Instance
	Destroyed []inventory.Instance
	Revealed  *inventory.Inventory
	Detail    string
}

// Prompter asks the victim to pick a defense card, bounded by the offer
// timeout. ok=false means decline; a context timeout also means decline.
type Prompter interface {
	ChooseDefense(ctx context.Context, offer DefenseOffer) (cardID int64, ok bool, err error)
}

// DefenseOffer is presented to the victim.
type DefenseOffer struct {
	AttackerID string
	VictimID   string
	SpellCard  *models.Card
	Options    []int64
	Timeout    time.Duration
}

// CardResolver resolves card definitions, satisfied by catalog.Service.
type CardResolver interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
}

// CapChecker re-checks the ownership cap for effects that mint new instances.
type CapChecker interface {
	CheckCap(ctx context.Context, card *models.Card, pending int) error
}

// Protocol drives one spell card's effect against another user's book.
type Protocol struct {
	cards    CardResolver
	caps     CapChecker
	inv      *inventory.Manager
	effects  *effects.Manager
	prompter Prompter
	registry *Registry
	rng      *rand.Rand
}

func NewProtocol(cards CardResolver, caps CapChecker, inv *inventory.Manager, fx *effects.Manager, prompter Prompter, registry *Registry, rng *rand.Rand) *Protocol {
	return &Protocol{
		cards:    cards,
		caps:     caps,
		inv:      inv,
		effects:  fx,
		prompter: prompter,
		registry: registry,
		rng:      rng,
	}
}

// Resolve runs the full attack state machine. The attacker's spell card is
// consumed before any defense is evaluated; a blocked attack does not refund
// it. Reachability is the caller's concern and must be checked beforehand.
func (p *Protocol) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	if req.AttackerID == req.VictimID {
		return nil, checkf("you cannot cast a spell on yourself")
	}

	res := &Resolution{State: StateDeclared}

	spellCard, err := p.cards.GetByID(ctx, req.SpellCardID)
	if err != nil {
		return nil, err
	}
	if !spellCard.IsSpell() {
		return nil, checkf("%s is not a spell card", spellCard.Name)
	}

	handler, ok := p.registry.Handler(req.SpellCardID)
	if !ok {
		return nil, checkf("%s has no usable effect", spellCard.Name)
	}

	met, err := p.effects.HasMet(ctx, req.AttackerID, req.VictimID)
	if err != nil {
		return nil, err
	}

	victim, err := p.inv.Get(ctx, req.VictimID)
	if err != nil {
		return nil, err
	}
	attacker, err := p.inv.Get(ctx, req.AttackerID)
	if err != nil {
		return nil, err
	}
	if !attacker.Has(req.SpellCardID, false, false) {
		return nil, checkf("you do not hold a genuine %s", spellCard.Name)
	}

	env := &Env{
		Attacker:  attacker,
		Victim:    victim,
		SpellCard: spellCard,
		Target:    req.Target,
		Met:       met,
		Rand:      p.rng,
	}
	if err := handler.Eligible(ctx, env); err != nil {
		return nil, err
	}

	// Cost is paid up front: the spell card is gone from here on, whether or
	// not the attack lands.
	if _, err := p.inv.Remove(ctx, req.AttackerID, req.SpellCardID, inventory.RemoveOptions{
		Fake: inventory.Bool(false),
	}); err != nil {
		return nil, err
	}

	blocked, err := p.autoDefenses(ctx, req, handler, res)
	if err != nil {
		return nil, err
	}
	if blocked {
		res.State = StateAutoResolved
		res.Outcome = OutcomeBlocked
		return res, nil
	}

	blockedBy, offered, err := p.interactiveDefense(ctx, req, spellCard, victim, met)
	if err != nil {
		return nil, err
	}
	if offered {
		res.State = StateDefenseOffered
	}
	if blockedBy != 0 {
		res.State = StateResolved
		res.Outcome = OutcomeBlocked
		res.BlockedBy = blockedBy
		return res, nil
	}

	if err := p.apply(ctx, req, handler, met, res); err != nil {
		return nil, err
	}
	res.State = StateResolved
	res.Outcome = OutcomeApplied
	return res, nil
}

// autoDefenses runs the standing shield and page-ward checks, both of which
// bypass the interactive flow entirely.
func (p *Protocol) autoDefenses(ctx context.Context, req Request, handler SpellHandler, res *Resolution) (bool, error) {
	shield, err := p.effects.Shield(ctx, req.VictimID)
	if err != nil {
		return false, err
	}
	if shield != nil {
		broken, backingCard, err := p.effects.ConsumeShield(ctx, req.VictimID)
		if err != nil {
			return false, err
		}
		res.BlockedBy = shield.CardID
		res.Detail = "standing shield"
		if broken {
			// Last charge spent: the backing card is destroyed with it.
			if _, err := p.inv.Remove(ctx, req.VictimID, backingCard, inventory.RemoveOptions{}); err != nil &&
				!errors.Is(err, inventory.ErrNotInPossession) {
				return false, err
			}
		}
		return true, nil
	}

	if req.Target.CardID != 0 && handler.TargetPool() == inventory.SlotRestricted {
		warded, err := p.effects.WardedPage(ctx, req.VictimID, req.Target.CardID)
		if err != nil {
			return false, err
		}
		if warded {
			victim, err := p.inv.Get(ctx, req.VictimID)
			if err != nil {
				return false, err
			}
			// The ward only covers the bound page copy; a duplicate in the
			// free slots leaves the card attackable.
			if !hasInFree(victim, req.Target.CardID) {
				res.Detail = "page ward"
				return true, nil
			}
		}
	}
	return false, nil
}

// interactiveDefense scans the victim's free slots for eligible defense
// cards and lets them spend exactly one to block. No eligible card means the
// attack auto-succeeds.
func (p *Protocol) interactiveDefense(ctx context.Context, req Request, spellCard *models.Card, victim *inventory.Inventory, met bool) (int64, bool, error) {
	options, err := p.defenseOptions(ctx, spellCard, victim, met)
	if err != nil {
		return 0, false, err
	}
	if len(options) == 0 {
		return 0, false, nil
	}

	promptCtx, cancel := context.WithTimeout(ctx, DefenseTimeout)
	defer cancel()

	chosen, ok, err := p.prompter.ChooseDefense(promptCtx, DefenseOffer{
		AttackerID: req.AttackerID,
		VictimID:   req.VictimID,
		SpellCard:  spellCard,
		Options:    options,
		Timeout:    DefenseTimeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, true, nil // timeout == decline
		}
		return 0, false, err
	}
	if !ok || !containsID(options, chosen) {
		return 0, true, nil
	}

	// The chosen card is consumed whether or not anything else happens.
	if _, err := p.inv.Remove(ctx, req.VictimID, chosen, inventory.RemoveOptions{
		Fake: inventory.Bool(false),
		Slot: inventory.SlotFree,
	}); err != nil {
		return 0, true, err
	}
	return chosen, true, nil
}

func (p *Protocol) apply(ctx context.Context, req Request, handler SpellHandler, met bool, res *Resolution) error {
	return p.inv.ResolvePair(ctx, req.AttackerID, req.VictimID, func(attacker, victim *inventory.Inventory) (*inventory.PairChange, error) {
		env := &Env{
			Attacker:   attacker,
			Victim:     victim,
			Target:     req.Target,
			Met:        met,
			Rand:       p.rng,
			Caps:       p.caps,
			Cards:      p.cards,
			Resolution: res,
		}
		return handler.Apply(ctx, env)
	})
}

func (p *Protocol) defenseOptions(ctx context.Context, spellCard *models.Card, victim *inventory.Inventory, met bool) ([]int64, error) {
	var options []int64
	seen := make(map[int64]struct{})
	for _, inst := range victim.FreeInstances() {
		if inst.Fake {
			continue
		}
		rule, ok := defenseRules[inst.CardID]
		if !ok {
			continue
		}
		if _, dup := seen[inst.CardID]; dup {
			continue
		}
		defCard, err := p.cards.GetByID(ctx, inst.CardID)
		if err != nil {
			return nil, err
		}
		if rule(spellCard, defCard, met) {
			options = append(options, inst.CardID)
			seen[inst.CardID] = struct{}{}
		}
	}
	return options, nil
}

func hasInFree(inv *inventory.Inventory, cardID int64) bool {
	for _, inst := range inv.FreeInstances() {
		if inst.CardID == cardID && !inst.Fake {
			return true
		}
	}
	return false
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
