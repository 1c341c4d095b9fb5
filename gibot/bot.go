package gibot

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/greedisland/greedbot/gibot/database"
	"github.com/greedisland/greedbot/gibot/database/repositories"
	"github.com/greedisland/greedbot/gibot/island/battle"
	"github.com/greedisland/greedbot/gibot/island/catalog"
	"github.com/greedisland/greedbot/gibot/island/effects"
	"github.com/greedisland/greedbot/gibot/island/inventory"
	"github.com/greedisland/greedbot/gibot/island/ledger"
	"github.com/greedisland/greedbot/gibot/island/lootbox"
	"github.com/greedisland/greedbot/gibot/services"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB               *database.DB
	CardRepository   repositories.CardRepository
	UserRepository   repositories.UserRepository
	BookStore        repositories.BookStore
	EffectRepository repositories.EffectRepository

	Catalog       *catalog.Service
	Ledger        *ledger.Ledger
	Auditor       *ledger.Auditor
	Inventory     *inventory.Manager
	Effects       *effects.Manager
	SpellRegistry *battle.Registry
	Battle        *battle.Protocol
	Generator     *lootbox.Generator
	Banker        *lootbox.Banker

	SpacesService *services.SpacesService
}

// SetupServices wires the game services on top of the connected database.
// The battle protocol is wired separately because its defense prompter needs
// a live Discord client.
func (b *Bot) SetupServices() {
	b.CardRepository = repositories.NewCardRepository(b.DB.BunDB())
	b.UserRepository = repositories.NewUserRepository(b.DB.BunDB())
	b.BookStore = repositories.NewBookStore(b.DB.BunDB())
	b.EffectRepository = repositories.NewEffectRepository(b.DB.BunDB())

	b.Catalog = catalog.NewService(b.CardRepository)
	b.Ledger = ledger.New(b.BookStore)
	b.Auditor = ledger.NewAuditor(b.BookStore)
	b.Inventory = inventory.NewManager(b.BookStore, b.Catalog, b.Ledger)
	b.Effects = effects.NewManager(b.EffectRepository)
	b.SpellRegistry = battle.NewRegistry()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b.Generator = lootbox.NewGenerator(b.Catalog, rng)
	b.Banker = lootbox.NewBanker(b.Inventory, b.UserRepository)
}

// SetupBattle finishes protocol wiring once a defense prompter exists.
func (b *Bot) SetupBattle(prompter battle.Prompter) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b.Battle = battle.NewProtocol(b.Catalog, b.Ledger, b.Inventory, b.Effects, prompter, b.SpellRegistry, rng)
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentMessageContent)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("GreedBot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithPlayingActivity("Greed Island"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}

// StartEffectReaper sweeps expired timed effects in the background so page
// wards and hunting marks do not linger in the table after expiry.
func (b *Bot) StartEffectReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if n, err := b.EffectRepository.DeleteExpired(sweepCtx); err != nil {
					slog.Error("Failed to sweep expired effects", slog.Any("error", err))
				} else if n > 0 {
					slog.Debug("Swept expired effects", slog.Int64("count", n))
				}
				cancel()
			case <-ctx.Done():
				return
			}
		}
	}()
}
