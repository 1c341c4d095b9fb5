package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/catalog"
	"github.com/greedisland/greedbot/gibot/island/inventory"
	"github.com/greedisland/greedbot/gibot/island/ledger"
)

var Card = discord.SlashCommandCreate{
	Name:        "card",
	Description: "🔍 Look up a card by number or name",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "query",
			Description: "Card number or (partial) name",
			Required:    true,
		},
	},
}

func CardHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		query := e.SlashCommandInteractionData().String("query")

		ctx, cancel := context.WithTimeout(context.Background(), config.SearchTimeout)
		defer cancel()

		card, err := b.Catalog.Lookup(ctx, query)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return e.CreateMessage(discord.MessageCreate{
					Embeds: []discord.Embed{{
						Title:       "❌ Card Not Found",
						Description: fmt.Sprintf("No card matches `%s`.", query),
						Color:       config.ErrorColor,
					}},
				})
			}
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       "❌ Error",
					Description: "Card lookup failed. Please try again later.",
					Color:       config.ErrorColor,
				}},
			})
		}

		count, err := b.Ledger.Count(ctx, card.ID)
		if err != nil {
			count = -1
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf("#%03d %s", card.ID, card.Name)).
			SetDescription(cardDetails(card, count)).
			SetColor(config.InfoColor)
		if b.SpacesService != nil {
			embed.SetImage(b.SpacesService.CardImageURL(card))
		}

		now := time.Now()
		embed.SetTimestamp(now)
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed.Build()},
		})
	}
}

func cardDetails(card *models.Card, owned int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Rank:** %s\n**Type:** %s\n", card.Rank, card.Type)
	if card.IsSpell() && card.Range != "" {
		fmt.Fprintf(&sb, "**Range:** %s\n", card.Range)
	}
	if card.ID >= 1 && card.ID <= inventory.RestrictedMaxID {
		fmt.Fprintf(&sb, "**Slot:** restricted (page bound)\n")
	} else if card.ID != inventory.TrophyCardID {
		fmt.Fprintf(&sb, "**Slot:** free\n")
	}
	if cap := ledger.Cap(card); cap > 0 {
		if owned >= 0 {
			fmt.Fprintf(&sb, "**In circulation:** %d/%d\n", owned, cap)
		} else {
			fmt.Fprintf(&sb, "**Circulation cap:** %d\n", cap)
		}
	}
	fmt.Fprintf(&sb, "**Value:** %d jenny", card.Price())
	return sb.String()
}
