package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/island/catalog"
	"github.com/greedisland/greedbot/gibot/island/inventory"
)

var Swap = discord.SlashCommandCreate{
	Name:        "swap",
	Description: "🔁 Swap a card between its restricted slot and your free slots",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "card",
			Description: "Card number or name (restricted card, ids 1-99)",
			Required:    true,
		},
	},
}

func SwapHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		query := e.SlashCommandInteractionData().String("card")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		card, err := b.Catalog.Lookup(ctx, query)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return swapError(e, fmt.Sprintf("No card matches `%s`.", query))
			}
			return swapError(e, "Card lookup failed. Please try again later.")
		}
		if card.ID < 1 || card.ID > inventory.RestrictedMaxID {
			return swapError(e, fmt.Sprintf("**%s** has no restricted slot; only cards 1-%d can be swapped.",
				card.Name, inventory.RestrictedMaxID))
		}

		swapped, err := b.Inventory.Swap(ctx, e.User().ID.String(), card.ID)
		if err != nil {
			return swapError(e, "The swap failed. Please try again later.")
		}
		if !swapped {
			return swapError(e, fmt.Sprintf("Nothing to swap: you need a copy of **%s** in both the restricted slot and a free slot.", card.Name))
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🔁 Swapped",
				Description: fmt.Sprintf("Exchanged your restricted-slot **%s** with the free-slot copy.", card.Name),
				Color:       config.SuccessColor,
			}},
		})
	}
}

func swapError(e *handler.CommandEvent, msg string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "❌ Swap Failed",
			Description: msg,
			Color:       config.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
