package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/island/battle"
)

// DefensePrompter presents a defense offer as a button message in the channel
// the attack was declared in and waits for the victim's pick. Anything but a
// button press inside the timeout counts as a decline.
type DefensePrompter struct {
	client  bot.Client
	cards   battle.CardResolver
	nonce   atomic.Int64
	pending sync.Map // nonce string -> *pendingOffer
}

type pendingOffer struct {
	victimID  string
	channelID snowflake.ID
	choice    chan int64 // 0 means decline
}

func NewDefensePrompter(cards battle.CardResolver) *DefensePrompter {
	return &DefensePrompter{cards: cards}
}

// SetClient attaches the Discord client once the gateway is set up.
func (p *DefensePrompter) SetClient(client bot.Client) {
	p.client = client
}

// attackChannels maps victim user id to the channel their pending attack was
// declared in. Bound by the attack command right before Resolve.
var attackChannels sync.Map

func bindAttackChannel(victimID string, channelID snowflake.ID) {
	attackChannels.Store(victimID, channelID)
}

func unbindAttackChannel(victimID string) {
	attackChannels.Delete(victimID)
}

func (p *DefensePrompter) ChooseDefense(ctx context.Context, offer battle.DefenseOffer) (int64, bool, error) {
	if p.client == nil {
		return 0, false, nil
	}
	raw, ok := attackChannels.Load(offer.VictimID)
	if !ok {
		// Nowhere to reach the victim; treated as a decline.
		return 0, false, nil
	}
	channelID := raw.(snowflake.ID)

	nonce := strconv.FormatInt(p.nonce.Add(1), 10)
	pend := &pendingOffer{
		victimID:  offer.VictimID,
		channelID: channelID,
		choice:    make(chan int64, 1),
	}
	p.pending.Store(nonce, pend)
	defer p.pending.Delete(nonce)

	buttons, err := p.defenseButtons(ctx, nonce, offer.Options)
	if err != nil {
		return 0, false, err
	}

	victimSnowflake, _ := snowflake.Parse(offer.VictimID)
	msg, err := p.client.Rest().CreateMessage(channelID, discord.MessageCreate{
		Content: fmt.Sprintf("<@%d>", victimSnowflake),
		Embeds: []discord.Embed{{
			Title: "⚔️ Incoming Attack!",
			Description: fmt.Sprintf("**%s** was cast on you! Spend a defense card to block it, or take the hit.\nYou have **%s** to decide.",
				offer.SpellCard.Name, offer.Timeout),
			Color: config.AttackDeclaredColor,
		}},
		Components: []discord.ContainerComponent{discord.NewActionRow(buttons...)},
	})
	if err != nil {
		return 0, false, err
	}

	select {
	case chosen := <-pend.choice:
		return chosen, chosen != 0, nil
	case <-ctx.Done():
		p.disableOffer(channelID, msg.ID)
		return 0, false, ctx.Err()
	}
}

func (p *DefensePrompter) defenseButtons(ctx context.Context, nonce string, options []int64) ([]discord.InteractiveComponent, error) {
	buttons := make([]discord.InteractiveComponent, 0, len(options)+1)
	for _, cardID := range options {
		card, err := p.cards.GetByID(ctx, cardID)
		if err != nil {
			return nil, err
		}
		buttons = append(buttons, discord.NewPrimaryButton(
			fmt.Sprintf("🛡️ %s", card.Name),
			fmt.Sprintf("/defense/%s/%d", nonce, cardID),
		))
	}
	buttons = append(buttons, discord.NewSecondaryButton("Take the hit", fmt.Sprintf("/defense/%s/decline", nonce)))
	return buttons, nil
}

// HandleComponent consumes "/defense/<nonce>/<cardID|decline>" button presses.
func (p *DefensePrompter) HandleComponent(e *handler.ComponentEvent) error {
	parts := strings.Split(strings.TrimPrefix(e.Data.CustomID(), "/defense/"), "/")
	if len(parts) != 2 {
		return nil
	}
	nonce, value := parts[0], parts[1]

	raw, ok := p.pending.Load(nonce)
	if !ok {
		return e.CreateMessage(discord.MessageCreate{
			Content: "This attack has already been resolved.",
			Flags:   discord.MessageFlagEphemeral,
		})
	}
	pend := raw.(*pendingOffer)

	if e.User().ID.String() != pend.victimID {
		return e.CreateMessage(discord.MessageCreate{
			Content: "Only the attacked player can respond.",
			Flags:   discord.MessageFlagEphemeral,
		})
	}

	var chosen int64
	if value != "decline" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil
		}
		chosen = id
	}

	select {
	case pend.choice <- chosen:
	default:
		// Already answered; a second press is a no-op.
	}

	return e.UpdateMessage(discord.MessageUpdate{
		Components: &[]discord.ContainerComponent{},
	})
}

// disableOffer strips the buttons from an expired offer message.
func (p *DefensePrompter) disableOffer(channelID, messageID snowflake.ID) {
	_, err := p.client.Rest().UpdateMessage(channelID, messageID, discord.MessageUpdate{
		Components: &[]discord.ContainerComponent{},
	})
	if err != nil {
		slog.Debug("Failed to disable expired defense offer", slog.Any("error", err))
	}
}
