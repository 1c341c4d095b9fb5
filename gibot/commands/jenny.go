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

var Jenny = discord.SlashCommandCreate{
	Name:        "jenny",
	Description: "💰 Jenny wallet",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "balance",
			Description: "View your jenny, boosters and unopened boxes",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "daily",
			Description: "Claim your daily jenny reward",
		},
	},
}

func JennyHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		switch *e.SlashCommandInteractionData().SubCommandName {
		case "daily":
			return handleDaily(b, e)
		default:
			return handleBalance(b, e)
		}
	}
}

func handleBalance(b *gibot.Bot, e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String(), e.User().Username)
	if err != nil {
		slog.Error("Failed to get user",
			slog.String("type", "db"),
			slog.String("discord_id", e.User().ID.String()),
			slog.Any("error", err),
		)
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "❌ Error",
				Description: "Failed to fetch your wallet. Please try again later.",
				Color:       config.ErrorColor,
			}},
		})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Jenny:** %d\n", user.Jenny)
	if len(user.Boosters) > 0 {
		sb.WriteString("\n**Boosters**\n")
		for id, count := range user.Boosters {
			if count > 0 {
				fmt.Fprintf(&sb, "• %s ×%d\n", boosterLabel(id), count)
			}
		}
	}
	if len(user.LootBoxes) > 0 {
		sb.WriteString("\n**Unopened boxes**\n")
		for id, count := range user.LootBoxes {
			if count > 0 {
				fmt.Fprintf(&sb, "• %s ×%d\n", id, count)
			}
		}
	}

	now := time.Now()
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "💰 Wallet",
			Description: sb.String(),
			Color:       config.SuccessColor,
			Footer:      &discord.EmbedFooter{Text: fmt.Sprintf("Requested by %s", e.User().Username)},
			Timestamp:   &now,
		}},
	})
}

func handleDaily(b *gibot.Bot, e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String(), e.User().Username)
	if err != nil {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "❌ Error",
				Description: "Failed to claim your daily reward. Please try again later.",
				Color:       config.ErrorColor,
			}},
		})
	}

	if time.Since(user.LastDaily) < config.DailyPeriod {
		remaining := time.Until(user.LastDaily.Add(config.DailyPeriod)).Round(time.Second)
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "⏳ Not Yet",
				Description: fmt.Sprintf("You can claim your daily reward again in %s.", remaining),
				Color:       config.WarningColor,
			}},
		})
	}

	if err := b.UserRepository.AddJenny(ctx, user.DiscordID, config.DailyJennyReward); err != nil {
		slog.Error("Failed to pay daily reward",
			slog.String("type", "db"),
			slog.String("discord_id", user.DiscordID),
			slog.Any("error", err),
		)
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "❌ Error",
				Description: "Failed to claim your daily reward. Please try again later.",
				Color:       config.ErrorColor,
			}},
		})
	}
	user.LastDaily = time.Now()
	if err := b.UserRepository.Update(ctx, user); err != nil {
		slog.Error("Failed to update last daily",
			slog.String("type", "db"),
			slog.String("discord_id", user.DiscordID),
			slog.Any("error", err),
		)
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "🪙 Daily Reward Claimed",
			Description: fmt.Sprintf("You received **%d jenny**. Come back in 24 hours!", config.DailyJennyReward),
			Color:       config.SuccessColor,
		}},
	})
}

func boosterLabel(id string) string {
	switch id {
	case "treasure_map":
		return "🗺️ Treasure Map"
	case "doubler":
		return "✨ Doubler"
	case "bomb_detector":
		return "🕵️ Bomb Detector"
	default:
		return id
	}
}
