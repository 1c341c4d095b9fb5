package commands

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

var Inventory = discord.SlashCommandCreate{
	Name:        "inventory",
	Description: "📖 View a card book: restricted pages and free slots",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose book to open (defaults to yours)",
			Required:    false,
		},
	},
}

// bookEntry is one rendered line of the book listing.
type bookEntry struct {
	inst inventory.Instance
	card *models.Card
	slot inventory.Slot
}

func InventoryHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		target := e.User()
		if user, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = user
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		book, err := b.Inventory.Get(ctx, target.ID.String())
		if err != nil {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       "❌ Error",
					Description: "Failed to open the card book. Please try again later.",
					Color:       config.ErrorColor,
				}},
			})
		}

		entries, err := collectBookEntries(ctx, b, book)
		if err != nil {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       "❌ Error",
					Description: "Failed to resolve cards in the book.",
					Color:       config.ErrorColor,
				}},
			})
		}

		if len(entries) == 0 {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       fmt.Sprintf("📖 %s's Card Book", target.Username),
					Description: "The book is empty. Open a loot box with `/lootbox open` to get started.",
					Color:       config.EmbedDefaultColor,
				}},
			})
		}

		restrictedHeld := 0
		for id := int64(1); id <= inventory.RestrictedMaxID; id++ {
			if inst, ok := book.Restricted[id]; ok && !inst.Fake {
				restrictedHeld++
			}
		}

		totalPages := int(math.Ceil(float64(len(entries)) / float64(config.CardsPerPage)))
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * config.CardsPerPage
				end := min(start+config.CardsPerPage, len(entries))

				var description strings.Builder
				for _, entry := range entries[start:end] {
					description.WriteString(formatBookEntry(entry))
					description.WriteString("\n")
				}

				title := fmt.Sprintf("📖 %s's Card Book", target.Username)
				if book.Completed {
					title += " 🏆"
				}
				embed.SetTitle(title).
					SetDescription(description.String()).
					SetColor(config.EmbedDefaultColor).
					SetFooter(fmt.Sprintf("Page %d/%d • Restricted %d/%d • Free %d/%d",
						page+1, totalPages,
						restrictedHeld, inventory.RestrictedMaxID,
						len(book.Free), inventory.FreeSlotCap), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

// collectBookEntries resolves every instance against the catalog, restricted
// slots in id order first, free slots in list order after.
func collectBookEntries(ctx context.Context, b *gibot.Bot, book *inventory.Inventory) ([]bookEntry, error) {
	restrictedIDs := make([]int64, 0, len(book.Restricted))
	for id := range book.Restricted {
		restrictedIDs = append(restrictedIDs, id)
	}
	sort.Slice(restrictedIDs, func(i, j int) bool { return restrictedIDs[i] < restrictedIDs[j] })

	entries := make([]bookEntry, 0, len(restrictedIDs)+len(book.Free))
	for _, id := range restrictedIDs {
		card, err := b.Catalog.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, bookEntry{inst: book.Restricted[id], card: card, slot: inventory.SlotRestricted})
	}
	for _, inst := range book.Free {
		card, err := b.Catalog.GetByID(ctx, inst.CardID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, bookEntry{inst: inst, card: card, slot: inventory.SlotFree})
	}
	return entries, nil
}

func formatBookEntry(entry bookEntry) string {
	marker := "🃏"
	if entry.slot == inventory.SlotRestricted {
		marker = "🔒"
	}
	line := fmt.Sprintf("%s `#%03d` **%s** [%s]", marker, entry.card.ID, entry.card.Name, entry.card.Rank)
	if entry.inst.Fake {
		line += " *(fake)*"
	} else if entry.inst.Clone {
		line += " *(clone)*"
	}
	return line
}
