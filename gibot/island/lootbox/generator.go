package lootbox

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/catalog"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

// Booster ids. Doubler and bomb detector are single-use per reveal session,
// the treasure map stacks.
const (
	BoosterTreasureMap  = "treasure_map"
	BoosterDoubler      = "doubler"
	BoosterBombDetector = "bomb_detector"
)

// boosterValues are the implied jenny values used when ranking hidden
// rewards for the treasure map.
var boosterValues = map[string]int64{
	BoosterTreasureMap:  5000,
	BoosterDoubler:      12000,
	BoosterBombDetector: 8000,
}

// RewardKind discriminates the Reward union.
type RewardKind int

const (
	RewardCard RewardKind = iota
	RewardBooster
	RewardJenny
)

// Reward is one loot-box pull: a card, a booster or a jenny amount.
type Reward struct {
	Kind      RewardKind
	Card      *models.Card
	BoosterID string
	Jenny     int64
}

// Value returns the jenny-equivalent worth of the reward.
func (r Reward) Value() int64 {
	switch r.Kind {
	case RewardCard:
		return r.Card.Price()
	case RewardBooster:
		return boosterValues[r.BoosterID]
	default:
		return r.Jenny
	}
}

// Guaranteed pins specific cards into a box's card slots.
type Guaranteed struct {
	CardID int64
	Count  int
}

// BoosterChance is one weighted entry of a box's booster pool.
type BoosterChance struct {
	ID          string
	Probability float64
}

// BoxDef is static content describing one purchasable loot box.
type BoxDef struct {
	ID              string
	Name            string
	Price           int64
	DrawProbability float64 // weight when a random box is drawn

	Guaranteed  []Guaranteed
	Ranks       []string
	Types       []string
	JennyMin    int64
	JennyMax    int64
	BoosterPool []BoosterChance

	CardsMin     int
	CardsMax     int
	BoostersMin  int
	BoostersMax  int
	RewardsTotal int
}

// Generator builds reward sets from the catalog. The reward count always
// equals RewardsTotal, split between cards, boosters and jenny.
type Generator struct {
	catalog *catalog.Service
	rng     *rand.Rand
}

func NewGenerator(cat *catalog.Service, rng *rand.Rand) *Generator {
	return &Generator{catalog: cat, rng: rng}
}

// GenerateRewards draws a full reward set for one box.
func (g *Generator) GenerateRewards(ctx context.Context, def *BoxDef) ([]Reward, error) {
	cardsN := g.randRange(def.CardsMin, def.CardsMax)
	boostersN := g.randRange(def.BoostersMin, def.BoostersMax)
	if cardsN+boostersN > def.RewardsTotal {
		return nil, fmt.Errorf("box %s draws %d+%d rewards over its total %d", def.ID, cardsN, boostersN, def.RewardsTotal)
	}
	if boostersN > 0 && len(def.BoosterPool) == 0 {
		return nil, fmt.Errorf("box %s draws boosters but has an empty booster pool", def.ID)
	}
	jennyN := def.RewardsTotal - cardsN - boostersN

	rewards := make([]Reward, 0, def.RewardsTotal)

	// Guaranteed entries consume card slots first.
	for _, guaranteed := range def.Guaranteed {
		for i := 0; i < guaranteed.Count && len(rewards) < cardsN; i++ {
			card, err := g.catalog.GetByID(ctx, guaranteed.CardID)
			if err != nil {
				return nil, err
			}
			rewards = append(rewards, Reward{Kind: RewardCard, Card: card})
		}
	}

	if len(rewards) < cardsN {
		pool, err := g.catalog.Find(ctx, catalog.Filter{
			Ranks:         def.Ranks,
			Types:         def.Types,
			OnlyAvailable: true,
			ExcludeIDs:    []int64{inventory.TrophyCardID},
		})
		if err != nil {
			return nil, err
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("box %s has an empty card pool", def.ID)
		}
		for len(rewards) < cardsN {
			rewards = append(rewards, Reward{Kind: RewardCard, Card: pool[g.rng.Intn(len(pool))]})
		}
	}

	for i := 0; i < boostersN; i++ {
		rewards = append(rewards, Reward{Kind: RewardBooster, BoosterID: g.drawBooster(def.BoosterPool)})
	}

	for i := 0; i < jennyN; i++ {
		rewards = append(rewards, Reward{Kind: RewardJenny, Jenny: g.randRange64(def.JennyMin, def.JennyMax)})
	}

	return rewards, nil
}

// drawBooster samples the pool weighted by probability.
func (g *Generator) drawBooster(pool []BoosterChance) string {
	var total float64
	for _, chance := range pool {
		total += chance.Probability
	}
	roll := g.rng.Float64() * total
	for _, chance := range pool {
		roll -= chance.Probability
		if roll < 0 {
			return chance.ID
		}
	}
	return pool[len(pool)-1].ID
}

func (g *Generator) randRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.rng.Intn(max-min+1)
}

func (g *Generator) randRange64(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + g.rng.Int63n(max-min+1)
}
