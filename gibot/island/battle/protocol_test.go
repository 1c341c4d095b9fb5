package battle

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/effects"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

type memBooks struct {
	books map[string]*inventory.Inventory
}

func newMemBooks() *memBooks {
	return &memBooks{books: make(map[string]*inventory.Inventory)}
}

func (s *memBooks) Load(_ context.Context, userID string) (*inventory.Inventory, error) {
	if inv, ok := s.books[userID]; ok {
		return inv, nil
	}
	inv := inventory.New(userID)
	s.books[userID] = inv
	return inv, nil
}

func (s *memBooks) Apply(_ context.Context, mut *inventory.Mutation) error {
	for _, inv := range mut.Books {
		s.books[inv.UserID] = inv
	}
	return nil
}

type memCards struct {
	cards map[int64]*models.Card
}

func (c *memCards) GetByID(_ context.Context, id int64) (*models.Card, error) {
	card, ok := c.cards[id]
	if !ok {
		return nil, checkf("unknown card %d", id)
	}
	return card, nil
}

type openCaps struct{}

func (openCaps) CheckCap(context.Context, *models.Card, int) error { return nil }

type memEffects struct {
	nextID  int64
	effects map[int64]*models.UserEffect
}

func newMemEffects() *memEffects {
	return &memEffects{effects: make(map[int64]*models.UserEffect)}
}

func (r *memEffects) Get(_ context.Context, userID, name string) (*models.UserEffect, error) {
	for _, e := range r.effects {
		if e.UserID == userID && e.Name == name {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memEffects) Save(_ context.Context, effect *models.UserEffect) error {
	if effect.ID == 0 {
		r.nextID++
		effect.ID = r.nextID
		effect.CreatedAt = time.Now()
	}
	r.effects[effect.ID] = effect
	return nil
}

func (r *memEffects) Delete(_ context.Context, id int64) error {
	delete(r.effects, id)
	return nil
}

// promptFunc adapts a function to the Prompter interface.
type promptFunc func(ctx context.Context, offer DefenseOffer) (int64, bool, error)

func (f promptFunc) ChooseDefense(ctx context.Context, offer DefenseOffer) (int64, bool, error) {
	return f(ctx, offer)
}

func noPrompt(t *testing.T) Prompter {
	return promptFunc(func(context.Context, DefenseOffer) (int64, bool, error) {
		t.Fatal("no defense should have been offered")
		return 0, false, nil
	})
}

type fixture struct {
	books    *memBooks
	cards    *memCards
	fx       *effects.Manager
	fxRepo   *memEffects
	inv      *inventory.Manager
	protocol *Protocol
}

func newFixture(t *testing.T, prompter Prompter) *fixture {
	t.Helper()
	books := newMemBooks()
	cards := &memCards{cards: map[int64]*models.Card{
		30:   {ID: 30, Name: "Sword of Truth", Rank: models.RankC, Type: models.CardTypeNormal, Limit: 20},
		42:   {ID: 42, Name: "Galgaida", Rank: models.RankA, Type: models.CardTypeNormal, Limit: 3},
		500:  {ID: 500, Name: "Witch's Love Potion", Rank: models.RankD, Type: models.CardTypeNormal, Limit: 50},
		1003: {ID: 1003, Name: "Pickpocket", Rank: models.RankD, Type: models.CardTypeSpell, Range: models.RangeShort, Limit: 30},
		1007: {ID: 1007, Name: "Levy", Rank: models.RankC, Type: models.CardTypeSpell, Range: models.RangeLong, Limit: 20},
		1011: {ID: 1011, Name: "Detonate", Rank: models.RankB, Type: models.CardTypeSpell, Range: models.RangeLong, Limit: 20},
		1020: {ID: 1020, Name: "Rank Counter", Rank: models.RankC, Type: models.CardTypeSpell, Limit: 40},
		1089: {ID: 1089, Name: "Close Guard", Rank: models.RankA, Type: models.CardTypeSpell, Limit: 40},
	}}
	fxRepo := newMemEffects()
	fx := effects.NewManager(fxRepo)
	inv := inventory.NewManager(books, cards, openCaps{})
	rng := rand.New(rand.NewSource(1))

	return &fixture{
		books:    books,
		cards:    cards,
		fx:       fx,
		fxRepo:   fxRepo,
		inv:      inv,
		protocol: NewProtocol(cards, openCaps{}, inv, fx, prompter, NewRegistry(), rng),
	}
}

func (f *fixture) give(t *testing.T, userID string, cardID int64) {
	t.Helper()
	inv, err := f.books.Load(context.Background(), userID)
	require.NoError(t, err)
	_, err = inv.Add(inventory.Instance{CardID: cardID})
	require.NoError(t, err)
}

func (f *fixture) book(t *testing.T, userID string) *inventory.Inventory {
	t.Helper()
	inv, err := f.books.Load(context.Background(), userID)
	require.NoError(t, err)
	return inv
}

func TestResolveIneligibleDefenseAutoSucceeds(t *testing.T) {
	// Levy is a long-range spell, so a Close Guard in the victim's free slots
	// is never offered and the attack goes straight through.
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 1007)
	f.give(t, "victim", 42)
	f.give(t, "victim", 1089)

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1007,
		Target:      Target{CardID: 42, Slot: inventory.SlotRestricted},
	})
	require.NoError(t, err)

	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	require.Len(t, res.Taken, 1)
	assert.Equal(t, int64(42), res.Taken[0].CardID)

	assert.True(t, f.book(t, "attacker").Has(42, false, false))
	assert.False(t, f.book(t, "attacker").Has(1007, true, false), "spell card was consumed")
	assert.False(t, f.book(t, "victim").Has(42, true, false))
	assert.True(t, f.book(t, "victim").Has(1089, true, false), "unused defense stays put")
}

func TestResolveBlockedAttackStillCostsSpell(t *testing.T) {
	f := newFixture(t, promptFunc(func(_ context.Context, offer DefenseOffer) (int64, bool, error) {
		return DefenseCloseGuard, true, nil
	}))
	f.give(t, "attacker", 1003)
	f.give(t, "victim", 500)
	f.give(t, "victim", 1089)

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1003,
		Target:      Target{CardID: 500, Slot: inventory.SlotFree},
	})
	require.NoError(t, err)

	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, OutcomeBlocked, res.Outcome)
	assert.Equal(t, int64(DefenseCloseGuard), res.BlockedBy)

	assert.False(t, f.book(t, "attacker").Has(1003, true, false), "blocked attacks are not refunded")
	assert.True(t, f.book(t, "victim").Has(500, true, false))
	assert.False(t, f.book(t, "victim").Has(1089, true, false), "defense card is spent on use")
}

func TestResolveDeclineProceeds(t *testing.T) {
	f := newFixture(t, promptFunc(func(context.Context, DefenseOffer) (int64, bool, error) {
		return 0, false, nil
	}))
	f.give(t, "attacker", 1003)
	f.give(t, "victim", 500)
	f.give(t, "victim", 1089)

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1003,
		Target:      Target{CardID: 500, Slot: inventory.SlotFree},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, f.book(t, "victim").Has(1089, true, false), "declined defense is kept")
	assert.True(t, f.book(t, "attacker").Has(500, true, false))
}

func TestResolveTimeoutIsDecline(t *testing.T) {
	f := newFixture(t, promptFunc(func(ctx context.Context, _ DefenseOffer) (int64, bool, error) {
		return 0, false, context.DeadlineExceeded
	}))
	f.give(t, "attacker", 1003)
	f.give(t, "victim", 500)
	f.give(t, "victim", 1089)

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1003,
		Target:      Target{CardID: 500, Slot: inventory.SlotFree},
	})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.True(t, f.book(t, "attacker").Has(500, true, false))
}

func TestResolveShieldBlocksAndBreaks(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 1011)
	f.give(t, "victim", 42)
	f.give(t, "victim", 1089) // backs the shield
	require.NoError(t, f.fx.GrantShield(context.Background(), "victim", 1089, 1))

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1011,
		Target:      Target{CardID: 42, Slot: inventory.SlotRestricted},
	})
	require.NoError(t, err)

	assert.Equal(t, StateAutoResolved, res.State)
	assert.Equal(t, OutcomeBlocked, res.Outcome)
	assert.Equal(t, int64(1089), res.BlockedBy)

	assert.True(t, f.book(t, "victim").Has(42, true, false), "shield saved the target")
	assert.False(t, f.book(t, "victim").Has(1089, true, false), "broken shield destroys its backing card")

	shield, err := f.fx.Shield(context.Background(), "victim")
	require.NoError(t, err)
	assert.Nil(t, shield)
}

func TestResolvePageWardBlocks(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 1011)
	f.give(t, "victim", 42)
	require.NoError(t, f.fx.GrantPageWard(context.Background(), "victim", effects.PageOf(42), time.Hour))

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1011,
		Target:      Target{CardID: 42, Slot: inventory.SlotRestricted},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBlocked, res.Outcome)
	assert.Equal(t, "page ward", res.Detail)
	assert.True(t, f.book(t, "victim").Has(42, true, false))
}

func TestResolvePageWardBypassedByFreeDuplicate(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 1011)
	f.give(t, "victim", 42)
	f.give(t, "victim", 42) // duplicate lands in the free slots
	require.NoError(t, f.fx.GrantPageWard(context.Background(), "victim", effects.PageOf(42), time.Hour))

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1011,
		Target:      Target{CardID: 42, Slot: inventory.SlotRestricted},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, res.Outcome)
	require.Len(t, res.Destroyed, 1)
	assert.Equal(t, int64(42), res.Destroyed[0].CardID)
}

func TestResolveRejectsNonSpell(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 30)

	_, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 30,
	})
	var checkErr *CheckError
	assert.ErrorAs(t, err, &checkErr)
}

func TestResolveRequiresGenuineSpellInHand(t *testing.T) {
	f := newFixture(t, noPrompt(t))

	_, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1003,
	})
	var checkErr *CheckError
	assert.ErrorAs(t, err, &checkErr)
}

func TestResolveSwapRequiresMet(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 1025)
	f.cards.cards[1025] = &models.Card{ID: 1025, Name: "Switcheroo", Rank: models.RankC, Type: models.CardTypeSpell, Limit: 20}
	f.give(t, "victim", 500)

	_, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1025,
		Target:      Target{CardID: 500, Slot: inventory.SlotFree},
	})
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.True(t, f.book(t, "attacker").Has(1025, true, false), "failed precondition costs nothing")
}

func TestResolveRejectsSelfTarget(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.give(t, "attacker", 1003)

	_, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "attacker",
		SpellCardID: 1003,
		Target:      Target{CardID: 500, Slot: inventory.SlotFree},
	})
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.True(t, f.book(t, "attacker").Has(1003, true, false), "rejected attack costs nothing")
}

func TestResolveSwapTradesExactInstance(t *testing.T) {
	f := newFixture(t, noPrompt(t))
	f.cards.cards[1025] = &models.Card{ID: 1025, Name: "Switcheroo", Rank: models.RankC, Type: models.CardTypeSpell, Limit: 20}
	f.cards.cards[501] = &models.Card{ID: 501, Name: "Staff of Judgement", Rank: models.RankB, Type: models.CardTypeNormal, Limit: 20}
	require.NoError(t, f.fx.MarkMet(context.Background(), "attacker", "victim"))

	// An older fake copy of the same id sits in front of the genuine one
	// being traded away.
	f.give(t, "attacker", 1025)
	attacker := f.book(t, "attacker")
	_, err := attacker.Add(inventory.Instance{CardID: 500, Fake: true})
	require.NoError(t, err)
	_, err = attacker.Add(inventory.Instance{CardID: 500})
	require.NoError(t, err)
	f.give(t, "victim", 501)

	res, err := f.protocol.Resolve(context.Background(), Request{
		AttackerID:  "attacker",
		VictimID:    "victim",
		SpellCardID: 1025,
		Target:      Target{CardID: 501, Slot: inventory.SlotFree},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	// Exactly one genuine copy of 500 exists afterwards, and it moved.
	assert.Equal(t, 0, f.book(t, "attacker").Count(500, false), "genuine copy was traded away")
	assert.Equal(t, 1, f.book(t, "attacker").Count(500, true), "the fake stays behind")
	assert.Equal(t, 1, f.book(t, "victim").Count(500, false))
	assert.True(t, f.book(t, "attacker").Has(501, true, false))
	assert.False(t, f.book(t, "victim").Has(501, true, false))
}

func TestRegistryVerify(t *testing.T) {
	r := NewRegistry()

	cards := []*models.Card{
		{ID: SpellPickpocket, Name: "Pickpocket", Type: models.CardTypeSpell},
		{ID: DefenseCloseGuard, Name: "Close Guard", Type: models.CardTypeSpell},
		{ID: 30, Name: "Sword of Truth", Type: models.CardTypeNormal},
	}
	assert.NoError(t, r.Verify(cards))

	cards = append(cards, &models.Card{ID: 1999, Name: "Unwired", Type: models.CardTypeSpell})
	assert.Error(t, r.Verify(cards))
}
