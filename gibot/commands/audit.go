package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/config"
)

var Audit = discord.SlashCommandCreate{
	Name:        "audit",
	Description: "🔎 Recount the ownership ledger against all card books (admin)",
}

func AuditHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		start := time.Now()
		drift, err := b.Auditor.Run(ctx)
		if err != nil {
			slog.Error("Ledger audit failed",
				slog.String("type", "db"),
				slog.Any("error", err),
			)
			_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
				Embeds: &[]discord.Embed{{
					Title:       "❌ Audit Failed",
					Description: "The ledger recount did not complete. Check the logs.",
					Color:       config.ErrorColor,
				}},
			})
			return err
		}

		if len(drift) == 0 {
			_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
				Embeds: &[]discord.Embed{{
					Title:       "✅ Ledger Clean",
					Description: fmt.Sprintf("Every card's ledger count matches its books. Took %s.", time.Since(start).Round(time.Millisecond)),
					Color:       config.SuccessColor,
				}},
			})
			return err
		}

		var sb strings.Builder
		for i, d := range drift {
			if i >= 20 {
				fmt.Fprintf(&sb, "… and %d more\n", len(drift)-i)
				break
			}
			fmt.Fprintf(&sb, "`#%03d` ledger %d, books %d\n", d.CardID, d.Ledger, d.Books)
		}
		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title:       fmt.Sprintf("⚠️ Ledger Drift: %d cards", len(drift)),
				Description: sb.String(),
				Color:       config.WarningColor,
			}},
		})
		return err
	}
}
