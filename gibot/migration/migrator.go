// Package migration imports the legacy MongoDB documents of the old bot
// into the Postgres schema. It is a one-shot tool: run it against an empty
// database, verify the report, then start the bot normally.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

type Migrator struct {
	pgDB    *bun.DB
	mongoDB *mongo.Database

	batchSize int
	stats     MigrationStats

	// Optional fast path for the card_owners bulk load.
	useCopy bool
	pool    *pgxpool.Pool
}

func NewMigrator(pgDB *bun.DB, client *mongo.Client, dbName string) *Migrator {
	return &Migrator{
		pgDB:      pgDB,
		mongoDB:   client.Database(dbName),
		batchSize: 1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
	}
}

// SetBatchSize overrides the default batch size for inserts.
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// UseCopy enables pgx CopyFrom for the card_owners load. Requires a pool.
func (m *Migrator) UseCopy(pool *pgxpool.Pool) {
	m.useCopy = pool != nil
	m.pool = pool
}

func (m *Migrator) table(name string) *TableStats {
	ts, ok := m.stats.Tables[name]
	if !ok {
		ts = &TableStats{}
		m.stats.Tables[name] = ts
	}
	return ts
}

// MigrateAll runs every step in dependency order: users first, then the
// per-copy card documents folded into book rows plus the ownership ledger,
// then effects.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting legacy Mongo migration")
	m.stats.StartTime = time.Now()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", m.MigrateUsers},
		{"books", m.MigrateUserCards},
		{"effects", m.MigrateUserEffects},
	}
	for _, s := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", s.name))
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", s.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", s.name))
	}

	m.stats.EndTime = time.Now()
	m.logFinalStats()
	return nil
}

// MigrateUsers copies the legacy users collection into the users table.
func (m *Migrator) MigrateUsers(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("users").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer cur.Close(ctx)

	ts := m.table("users")
	seen := make(map[string]bool)
	var batch []*models.User
	for cur.Next(ctx) {
		var mu MongoUser
		if err := cur.Decode(&mu); err != nil {
			ts.Skipped++
			continue
		}
		ts.Read++
		if mu.DiscordID == "" || seen[mu.DiscordID] {
			ts.Skipped++
			continue
		}
		seen[mu.DiscordID] = true
		batch = append(batch, convertUser(mu))
		if len(batch) >= m.batchSize {
			if err := m.batchInsertUsers(ctx, batch); err != nil {
				return err
			}
			ts.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := m.batchInsertUsers(ctx, batch); err != nil {
			return err
		}
		ts.Imported += len(batch)
	}
	return nil
}

// MigrateUserCards folds the per-copy usercards documents into one book row
// per user and loads the matching card_owners rows. Copies that no longer
// fit the book rules (second restricted copy, free pool overflow, unknown
// card id) are dropped and counted.
func (m *Migrator) MigrateUserCards(ctx context.Context) error {
	validIDs, err := m.loadCardIDs(ctx)
	if err != nil {
		return err
	}

	cur, err := m.mongoDB.Collection("usercards").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query usercards: %w", err)
	}
	defer cur.Close(ctx)

	ts := m.table("books")
	books := make(map[string]*models.UserBook)
	var owners []*models.CardOwner
	for cur.Next(ctx) {
		var mc MongoUserCard
		if err := cur.Decode(&mc); err != nil {
			ts.Skipped++
			continue
		}
		ts.Read++
		if mc.UserID == "" || mc.CardID == nil {
			ts.Skipped++
			continue
		}
		cardID := int64(*mc.CardID)
		if !validIDs[cardID] {
			ts.Skipped++
			slog.Warn("Skipping copy of unknown card", "user_id", mc.UserID, "card_id", cardID)
			continue
		}

		book, ok := books[mc.UserID]
		if !ok {
			book = newEmptyBook(mc.UserID)
			books[mc.UserID] = book
		}
		if !placeCopy(book, cardID, mc.Fake, mc.Clone) {
			ts.Skipped++
			continue
		}
		owners = append(owners, &models.CardOwner{
			CardID:    cardID,
			UserID:    mc.UserID,
			CreatedAt: time.Now(),
		})
	}
	if err := cur.Err(); err != nil {
		return err
	}

	// Deterministic insert order makes reruns comparable.
	ordered := make([]*models.UserBook, 0, len(books))
	for _, b := range books {
		if restrictedComplete(b) {
			// Completed books carry the synthetic trophy, same as a book
			// completed at runtime.
			b.Completed = true
			b.Restricted[inventory.TrophyCardID] = models.BookSlot{CardID: inventory.TrophyCardID}
			owners = append(owners, &models.CardOwner{
				CardID:    inventory.TrophyCardID,
				UserID:    b.UserID,
				CreatedAt: time.Now(),
			})
		}
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	for i := 0; i < len(ordered); i += m.batchSize {
		end := i + m.batchSize
		if end > len(ordered) {
			end = len(ordered)
		}
		if err := m.batchInsertBooks(ctx, ordered[i:end]); err != nil {
			return err
		}
	}
	ts.Imported = len(ordered)

	if err := m.insertOwners(ctx, owners); err != nil {
		return err
	}
	ot := m.table("card_owners")
	ot.Read = len(owners)
	ot.Imported = len(owners)
	return nil
}

// MigrateUserEffects copies active legacy effects. Expired rows are dropped
// here instead of importing work for the reaper.
func (m *Migrator) MigrateUserEffects(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("usereffects").Find(ctx, bson.D{})
	if err != nil {
		logProgress("usereffects collection not found; skipping")
		return nil
	}
	defer cur.Close(ctx)

	ts := m.table("effects")
	now := time.Now()
	var batch []*models.UserEffect
	for cur.Next(ctx) {
		var me MongoUserEffect
		if err := cur.Decode(&me); err != nil {
			ts.Skipped++
			continue
		}
		ts.Read++
		if me.UserID == "" || me.Name == "" {
			ts.Skipped++
			continue
		}
		if me.Expires != nil && me.Expires.Before(now) {
			ts.Skipped++
			continue
		}
		batch = append(batch, convertEffect(me, now))
		if len(batch) >= m.batchSize {
			if err := m.batchInsertEffects(ctx, batch); err != nil {
				return err
			}
			ts.Imported += len(batch)
			batch = batch[:0]
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := m.batchInsertEffects(ctx, batch); err != nil {
			return err
		}
		ts.Imported += len(batch)
	}
	return nil
}

func (m *Migrator) loadCardIDs(ctx context.Context) (map[int64]bool, error) {
	var ids []int64
	err := m.pgDB.NewSelect().
		Model((*models.Card)(nil)).
		Column("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load card ids: %w", err)
	}
	valid := make(map[int64]bool, len(ids))
	for _, id := range ids {
		valid[id] = true
	}
	logProgress(fmt.Sprintf("Loaded %d card ids from the catalog", len(valid)))
	return valid, nil
}

func (m *Migrator) batchInsertUsers(ctx context.Context, users []*models.User) error {
	_, err := m.pgDB.NewInsert().
		Model(&users).
		On("CONFLICT (discord_id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("jenny = EXCLUDED.jenny").
		Set("boosters = EXCLUDED.boosters").
		Set("lootboxes = EXCLUDED.lootboxes").
		Set("last_daily = EXCLUDED.last_daily").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert users batch: %w", err)
	}
	return nil
}

func (m *Migrator) batchInsertBooks(ctx context.Context, books []*models.UserBook) error {
	_, err := m.pgDB.NewInsert().
		Model(&books).
		On("CONFLICT (user_id) DO UPDATE").
		Set("restricted = EXCLUDED.restricted").
		Set("free = EXCLUDED.free").
		Set("completed = EXCLUDED.completed").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert books batch: %w", err)
	}
	return nil
}

func (m *Migrator) batchInsertEffects(ctx context.Context, effects []*models.UserEffect) error {
	_, err := m.pgDB.NewInsert().Model(&effects).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert effects batch: %w", err)
	}
	return nil
}

func (m *Migrator) insertOwners(ctx context.Context, owners []*models.CardOwner) error {
	if len(owners) == 0 {
		return nil
	}
	if m.useCopy && m.pool != nil {
		if err := m.copyInsertOwners(ctx, owners); err == nil {
			return nil
		} else {
			slog.Warn("COPY of card_owners failed; falling back to batch inserts", "error", err)
		}
	}
	for i := 0; i < len(owners); i += m.batchSize {
		end := i + m.batchSize
		if end > len(owners) {
			end = len(owners)
		}
		batch := owners[i:end]
		if _, err := m.pgDB.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert card_owners batch: %w", err)
		}
	}
	return nil
}

// copyInsertOwners streams the ledger rows with CopyFrom, the fast path for
// large imports.
func (m *Migrator) copyInsertOwners(ctx context.Context, owners []*models.CardOwner) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	rows := make([][]any, len(owners))
	for i, o := range owners {
		rows[i] = []any{o.CardID, o.UserID, o.CreatedAt}
	}
	n, err := conn.Conn().CopyFrom(ctx,
		pgx.Identifier{"card_owners"},
		[]string{"card_id", "user_id", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}
	logProgress(fmt.Sprintf("COPY loaded %d card_owners rows", n))
	return nil
}

func (m *Migrator) logFinalStats() {
	names := make([]string, 0, len(m.stats.Tables))
	for name := range m.stats.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ts := m.stats.Tables[name]
		slog.Info("Migration table summary",
			"table", name,
			"read", ts.Read,
			"imported", ts.Imported,
			"skipped", ts.Skipped)
	}
	slog.Info("Migration finished", "took", m.stats.EndTime.Sub(m.stats.StartTime))
}

func logProgress(message string) {
	slog.Info(message, "service", "migration")
}
