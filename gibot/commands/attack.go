package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/models"
	"github.com/greedisland/greedbot/gibot/island/battle"
	"github.com/greedisland/greedbot/gibot/island/catalog"
)

var Attack = discord.SlashCommandCreate{
	Name:        "attack",
	Description: "⚔️ Cast an attack spell card on another player's book",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "target",
			Description: "The player to attack",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "spell",
			Description: "The spell card to cast (number or name); it is consumed either way",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "card",
			Description: "A specific card in the target's book, for spells that take one",
			Required:    false,
		},
	},
}

func AttackHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		victim := data.User("target")
		attackerID := e.User().ID.String()
		victimID := victim.ID.String()

		if victimID == attackerID {
			return attackError(e, "You cannot attack your own book.")
		}
		if victim.Bot {
			return attackError(e, "Bots do not carry card books.")
		}

		// The interactive defense window alone can take 20s.
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), battle.DefenseTimeout+30*time.Second)
		defer cancel()

		spellCard, err := b.Catalog.Lookup(ctx, data.String("spell"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return attackFollowup(e, "❌ Unknown Spell", fmt.Sprintf("No card matches `%s`.", data.String("spell")), config.ErrorColor)
			}
			return attackFollowup(e, "❌ Error", "Spell lookup failed. Please try again later.", config.ErrorColor)
		}

		req := battle.Request{
			AttackerID:  attackerID,
			VictimID:    victimID,
			SpellCardID: spellCard.ID,
		}
		if query, ok := data.OptString("card"); ok {
			targetCard, err := b.Catalog.Lookup(ctx, query)
			if err != nil {
				return attackFollowup(e, "❌ Unknown Card", fmt.Sprintf("No card matches `%s`.", query), config.ErrorColor)
			}
			req.Target.CardID = targetCard.ID
		}

		bindAttackChannel(victimID, e.ChannelID())
		defer unbindAttackChannel(victimID)

		res, err := b.Battle.Resolve(ctx, req)
		if err != nil {
			var check *battle.CheckError
			if errors.As(err, &check) {
				return attackFollowup(e, "❌ Attack Not Possible", check.Message, config.ErrorColor)
			}
			slog.Error("Attack resolution failed",
				slog.String("type", "game"),
				slog.String("attacker", attackerID),
				slog.String("victim", victimID),
				slog.Int64("spell", spellCard.ID),
				slog.Any("error", err),
			)
			return attackFollowup(e, "❌ Error", "The attack could not be resolved. Please try again later.", config.ErrorColor)
		}

		// The two books touched each other; both sides now count as met.
		if err := b.Effects.MarkMet(ctx, attackerID, victimID); err != nil {
			slog.Debug("Failed to mark players as met", slog.Any("error", err))
		}
		if err := b.Effects.MarkMet(ctx, victimID, attackerID); err != nil {
			slog.Debug("Failed to mark players as met", slog.Any("error", err))
		}

		embed := renderResolution(ctx, b, spellCard, victim.Username, res)
		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{embed},
		})
		return err
	}
}

func renderResolution(ctx context.Context, b *gibot.Bot, spellCard *models.Card, victimName string, res *battle.Resolution) discord.Embed {
	if res.Outcome == battle.OutcomeBlocked {
		description := fmt.Sprintf("**%s** blocked your **%s**.", victimName, spellCard.Name)
		if res.BlockedBy != 0 {
			if blocker, err := b.Catalog.GetByID(ctx, res.BlockedBy); err == nil {
				description = fmt.Sprintf("**%s** blocked your **%s** with **%s**.", victimName, spellCard.Name, blocker.Name)
			}
		} else if res.Detail != "" {
			description = fmt.Sprintf("Your **%s** fizzled against %s's %s.", spellCard.Name, victimName, res.Detail)
		}
		description += "\nThe spell card is spent."
		return discord.Embed{
			Title:       "🛡️ Attack Blocked",
			Description: description,
			Color:       config.AttackBlockedColor,
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** landed on **%s**.\n", spellCard.Name, victimName)
	for _, inst := range res.Taken {
		if card, err := b.Catalog.GetByID(ctx, inst.CardID); err == nil {
			fmt.Fprintf(&sb, "• took `#%03d` **%s**\n", card.ID, card.Name)
		}
	}
	for _, inst := range res.Destroyed {
		if card, err := b.Catalog.GetByID(ctx, inst.CardID); err == nil {
			fmt.Fprintf(&sb, "• destroyed `#%03d` **%s**\n", card.ID, card.Name)
		}
	}
	if res.Revealed != nil {
		fmt.Fprintf(&sb, "• revealed the book: %d restricted, %d free slots filled\n",
			len(res.Revealed.Restricted), len(res.Revealed.Free))
	}
	if res.Detail != "" {
		fmt.Fprintf(&sb, "%s\n", res.Detail)
	}
	return discord.Embed{
		Title:       "💥 Attack Landed",
		Description: sb.String(),
		Color:       config.AttackLandedColor,
	}
}

func attackError(e *handler.CommandEvent, msg string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "❌ Attack Not Possible",
			Description: msg,
			Color:       config.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func attackFollowup(e *handler.CommandEvent, title, msg string, color int) error {
	_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds: &[]discord.Embed{{
			Title:       title,
			Description: msg,
			Color:       color,
		}},
	})
	return err
}
