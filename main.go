package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/commands"
	"github.com/greedisland/greedbot/gibot/database"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/handlers"
	"github.com/greedisland/greedbot/gibot/island/catalog"
	"github.com/greedisland/greedbot/gibot/logger"
	"github.com/greedisland/greedbot/gibot/migration"
	"github.com/greedisland/greedbot/gibot/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting GreedBot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	migrateURI := flag.String("migrate-from", "", "mongodb connection string; import the legacy database and exit")
	migrateDB := flag.String("migrate-db", "greedisland", "legacy mongodb database name")
	flag.Parse()

	cfg, err := gibot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	if *migrateURI != "" {
		if err := runMigration(ctx, db, *migrateURI, *migrateDB); err != nil {
			slog.Error("Migration failed", slog.Any("error", err))
			os.Exit(-1)
		}
		slog.Info("Migration completed, exiting")
		return
	}

	b := gibot.New(*cfg, version, commit)
	b.DB = db
	b.SetupServices()

	if cfg.Spaces.Bucket != "" {
		b.SpacesService = services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.CardRoot,
		)
	}

	prompter := commands.NewDefensePrompter(b.Catalog)
	b.SetupBattle(prompter)

	// Every spell card in the catalog must have a registered effect, or the
	// attack command would accept cards it cannot resolve.
	spellCards, err := b.Catalog.Find(ctx, catalog.Filter{Types: []string{models.CardTypeSpell}})
	if err != nil {
		slog.Error("Failed to load spell cards", slog.Any("error", err))
		os.Exit(-1)
	}
	if err := b.SpellRegistry.Verify(spellCards); err != nil {
		slog.Error("Spell registry incomplete", slog.Any("error", err))
		os.Exit(-1)
	}

	h := handler.New()

	h.Command("/inventory", handlers.WrapWithLogging("inventory", commands.InventoryHandler(b)))
	h.Command("/card", handlers.WrapWithLogging("card", commands.CardHandler(b)))
	h.Command("/swap", handlers.WrapWithLogging("swap", commands.SwapHandler(b)))
	h.Command("/jenny", handlers.WrapWithLogging("jenny", commands.JennyHandler(b)))
	h.Command("/audit", handlers.WrapWithLogging("audit", commands.AuditHandler(b)))

	// The attack flow blocks on the victim's defense window, longer than the
	// logging wrapper's deadline, so it is registered unwrapped.
	h.Command("/attack", commands.AttackHandler(b))
	h.Component("/defense/", prompter.HandleComponent)

	h.Command("/lootbox", handlers.WrapWithLogging("lootbox", commands.LootBoxHandler(b)))
	h.Component("/reveal/", handlers.WrapComponentWithLogging("reveal", commands.RevealComponentHandler(b)))
	h.Component("/lootaction/", handlers.WrapComponentWithLogging("lootaction", commands.LootActionComponentHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}
	prompter.SetClient(b.Client)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()
	b.StartEffectReaper(reaperCtx, time.Hour)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}

// runMigration imports the legacy Mongo database into Postgres.
func runMigration(ctx context.Context, db *database.DB, uri, dbName string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Warn("Failed to disconnect from mongodb", slog.Any("error", err))
		}
	}()

	m := migration.NewMigrator(db.BunDB(), client, dbName)
	m.UseCopy(db.GetPool())
	return m.MigrateAll(ctx)
}
