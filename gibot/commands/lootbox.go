package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/greedisland/greedbot/gibot"
	"github.com/greedisland/greedbot/gibot/config"
	"github.com/greedisland/greedbot/gibot/database/repositories"
	"github.com/greedisland/greedbot/gibot/island/lootbox"
)

var LootBox = discord.SlashCommandCreate{
	Name:        "lootbox",
	Description: "🎁 Buy and open loot boxes",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "open",
			Description: "Open a loot box and play the reveal grid",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "box",
					Description: "Which box to open",
					Required:    true,
					Choices:     boxChoices(),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "Show the available boxes and their prices",
		},
	},
}

func boxChoices() []discord.ApplicationCommandOptionChoiceString {
	ids := make([]string, 0, len(lootbox.Boxes))
	for id := range lootbox.Boxes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	choices := make([]discord.ApplicationCommandOptionChoiceString, 0, len(ids))
	for _, id := range ids {
		choices = append(choices, discord.ApplicationCommandOptionChoiceString{
			Name:  lootbox.Boxes[id].Name,
			Value: id,
		})
	}
	return choices
}

// revealSessions holds one live grid per user. A second open before save or
// abandon is rejected.
type revealRegistry struct {
	mu       sync.Mutex
	sessions map[string]*revealEntry
}

type revealEntry struct {
	session *lootbox.Session
	timer   *time.Timer
}

var sessions = &revealRegistry{sessions: make(map[string]*revealEntry)}

func (r *revealRegistry) start(userID string, s *lootbox.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[userID]; exists {
		return false
	}
	entry := &revealEntry{session: s}
	entry.timer = time.AfterFunc(config.RevealSessionTimeout, func() {
		r.expire(userID, entry)
	})
	r.sessions[userID] = entry
	return true
}

func (r *revealRegistry) get(userID string) (*lootbox.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[userID]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

func (r *revealRegistry) end(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[userID]; ok {
		entry.timer.Stop()
		delete(r.sessions, userID)
	}
}

// expire abandons a grid nobody finished. Unsaved claims are forfeit.
func (r *revealRegistry) expire(userID string, entry *revealEntry) {
	r.mu.Lock()
	if r.sessions[userID] != entry {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, userID)
	r.mu.Unlock()

	entry.session.Abandon()
	slog.Info("Reveal session expired",
		slog.String("type", "game"),
		slog.String("user_id", userID),
		slog.String("box", entry.session.BoxID))
}

func LootBoxHandler(b *gibot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if *e.SlashCommandInteractionData().SubCommandName == "list" {
			return handleBoxList(e)
		}
		return handleBoxOpen(b, e)
	}
}

func handleBoxList(e *handler.CommandEvent) error {
	ids := make([]string, 0, len(lootbox.Boxes))
	for id := range lootbox.Boxes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lootbox.Boxes[ids[i]].Price < lootbox.Boxes[ids[j]].Price })

	var sb strings.Builder
	for _, id := range ids {
		def := lootbox.Boxes[id]
		fmt.Fprintf(&sb, "**%s** — %d jenny\n%d rewards: %d-%d cards, %d-%d boosters, %d-%d jenny pulls\n\n",
			def.Name, def.Price, def.RewardsTotal,
			def.CardsMin, def.CardsMax, def.BoostersMin, def.BoostersMax, def.JennyMin, def.JennyMax)
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "🎁 Loot Boxes",
			Description: sb.String(),
			Color:       config.InfoColor,
		}},
	})
}

func handleBoxOpen(b *gibot.Bot, e *handler.CommandEvent) error {
	userID := e.User().ID.String()
	boxID := e.SlashCommandInteractionData().String("box")

	def, err := lootbox.Box(boxID)
	if err != nil {
		return lootboxError(e, "Unknown box.")
	}

	if _, live := sessions.get(userID); live {
		return lootboxError(e, "You already have a grid open. Save or quit it first.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().Username); err != nil {
		return lootboxError(e, "Failed to load your wallet. Please try again later.")
	}

	// A stored unopened box is consumed first; otherwise the price is paid.
	if err := b.UserRepository.UseLootBox(ctx, userID, boxID); err != nil {
		if err := b.UserRepository.SpendJenny(ctx, userID, def.Price); err != nil {
			if errors.Is(err, repositories.ErrInsufficientJenny) {
				return lootboxError(e, fmt.Sprintf("**%s** costs %d jenny and you cannot afford it.", def.Name, def.Price))
			}
			return lootboxError(e, "Payment failed. Please try again later.")
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rewards, err := b.Generator.GenerateRewards(ctx, def)
	if err != nil {
		slog.Error("Reward generation failed",
			slog.String("type", "game"),
			slog.String("box", boxID),
			slog.Any("error", err),
		)
		return lootboxError(e, "The box jammed. Please try again later.")
	}

	session, err := lootbox.NewSession(userID, boxID, rewards, rng)
	if err != nil {
		return lootboxError(e, "The box jammed. Please try again later.")
	}
	if !sessions.start(userID, session) {
		return lootboxError(e, "You already have a grid open. Save or quit it first.")
	}

	slog.Info("Loot box opened",
		slog.String("type", "game"),
		slog.String("user_id", userID),
		slog.String("box", boxID),
		slog.Int("rewards", len(rewards)),
		slog.Int("bombs", session.BombCount()))

	return e.CreateMessage(discord.MessageCreate{
		Embeds:     []discord.Embed{gridEmbed(def.Name, session, "Pick a cell. Rewards stack in your pot; a bomb takes it all.")},
		Components: gridComponents(userID, session),
	})
}

// gridEmbed renders the 24 cells as emoji rows plus the claimed pot.
func gridEmbed(boxName string, s *lootbox.Session, status string) discord.Embed {
	cells := s.Cells()
	var grid strings.Builder
	for i := 0; i < lootbox.GridSize; i++ {
		grid.WriteString(cellEmoji(cells[i]))
		if (i+1)%6 == 0 {
			grid.WriteString("\n")
		}
	}

	var pot strings.Builder
	claimed := s.Claimed()
	if len(claimed) == 0 {
		pot.WriteString("*empty*")
	} else {
		for _, reward := range claimed {
			pot.WriteString(rewardLine(reward))
			pot.WriteString("\n")
		}
	}

	return discord.Embed{
		Title:       fmt.Sprintf("🎁 %s — %d bombs hidden", boxName, s.BombCount()),
		Description: fmt.Sprintf("%s\n%s", grid.String(), status),
		Color:       config.EmbedDefaultColor,
		Fields: []discord.EmbedField{
			{Name: "Pot", Value: pot.String()},
		},
	}
}

func cellEmoji(c lootbox.Cell) string {
	switch {
	case c.Disabled:
		return "🚫"
	case !c.Revealed:
		return "⬜"
	case c.Reward == nil:
		return "💥"
	default:
		switch c.Reward.Kind {
		case lootbox.RewardCard:
			return "🃏"
		case lootbox.RewardBooster:
			return "🎒"
		default:
			return "💰"
		}
	}
}

func rewardLine(r lootbox.Reward) string {
	switch r.Kind {
	case lootbox.RewardCard:
		return fmt.Sprintf("🃏 `#%03d` %s", r.Card.ID, r.Card.Name)
	case lootbox.RewardBooster:
		return fmt.Sprintf("🎒 %s", boosterLabel(r.BoosterID))
	default:
		return fmt.Sprintf("💰 %d jenny", r.Jenny)
	}
}

// gridComponents builds the cell select menu and the action row. Ended
// sessions get no components.
func gridComponents(userID string, s *lootbox.Session) []discord.ContainerComponent {
	if s.Ended() {
		return nil
	}

	cells := s.Cells()
	options := make([]discord.StringSelectMenuOption, 0, lootbox.GridSize)
	for i := 0; i < lootbox.GridSize; i++ {
		if cells[i].Revealed || cells[i].Disabled {
			continue
		}
		options = append(options, discord.StringSelectMenuOption{
			Label: fmt.Sprintf("Cell %d", i+1),
			Value: strconv.Itoa(i),
		})
	}

	return []discord.ContainerComponent{
		discord.NewActionRow(
			discord.NewStringSelectMenu(fmt.Sprintf("/reveal/%s", userID), "Reveal a cell…", options...),
		),
		discord.NewActionRow(
			discord.NewSuccessButton("💾 Save pot", fmt.Sprintf("/lootaction/%s/save", userID)),
			discord.NewSecondaryButton("🗺️ Map", fmt.Sprintf("/lootaction/%s/map", userID)),
			discord.NewSecondaryButton("✨ Doubler", fmt.Sprintf("/lootaction/%s/doubler", userID)),
			discord.NewSecondaryButton("🕵️ Detector", fmt.Sprintf("/lootaction/%s/detector", userID)),
			discord.NewDangerButton("Quit", fmt.Sprintf("/lootaction/%s/quit", userID)),
		),
	}
}

// RevealComponentHandler consumes "/reveal/<userID>" select interactions.
func RevealComponentHandler(b *gibot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		userID := strings.TrimPrefix(e.Data.CustomID(), "/reveal/")
		if e.User().ID.String() != userID {
			return ephemeral(e, "This grid belongs to someone else.")
		}

		session, ok := sessions.get(userID)
		if !ok {
			return ephemeral(e, "This grid has expired.")
		}

		data, ok := e.Data.(discord.StringSelectMenuInteractionData)
		if !ok || len(data.Values) == 0 {
			return nil
		}
		index, err := strconv.Atoi(data.Values[0])
		if err != nil {
			return nil
		}

		def, _ := lootbox.Box(session.BoxID)
		result, err := session.Reveal(index)
		if err != nil {
			return ephemeral(e, err.Error())
		}

		if result.Bomb {
			sessions.end(userID)
			embed := gridEmbed(def.Name, session, "💥 **Bomb!** Your pot is gone. The box keeps what it kills.")
			embed.Color = config.ErrorColor
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{embed},
				Components: &[]discord.ContainerComponent{},
			})
		}

		status := fmt.Sprintf("Revealed: %s. Keep going or save the pot.", rewardLine(*result.Reward))
		components := gridComponents(userID, session)
		return e.UpdateMessage(discord.MessageUpdate{
			Embeds:     &[]discord.Embed{gridEmbed(def.Name, session, status)},
			Components: &components,
		})
	}
}

// LootActionComponentHandler consumes "/lootaction/<userID>/<action>" buttons.
func LootActionComponentHandler(b *gibot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		parts := strings.Split(strings.TrimPrefix(e.Data.CustomID(), "/lootaction/"), "/")
		if len(parts) != 2 {
			return nil
		}
		userID, action := parts[0], parts[1]
		if e.User().ID.String() != userID {
			return ephemeral(e, "This grid belongs to someone else.")
		}

		session, ok := sessions.get(userID)
		if !ok {
			return ephemeral(e, "This grid has expired.")
		}
		def, _ := lootbox.Box(session.BoxID)

		switch action {
		case "save":
			return handleSave(b, e, userID, session, def)
		case "quit":
			session.Abandon()
			sessions.end(userID)
			embed := gridEmbed(def.Name, session, "Grid abandoned. Unsaved rewards are forfeit.")
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{embed},
				Components: &[]discord.ContainerComponent{},
			})
		case "map", "doubler", "detector":
			return handleBooster(b, e, userID, session, def, action)
		default:
			return nil
		}
	}
}

func handleSave(b *gibot.Bot, e *handler.ComponentEvent, userID string, session *lootbox.Session, def *lootbox.BoxDef) error {
	rewards, err := session.Save()
	if err != nil {
		if errors.Is(err, lootbox.ErrNothingClaimed) {
			return ephemeral(e, "Your pot is empty; reveal something first.")
		}
		return ephemeral(e, err.Error())
	}
	sessions.end(userID)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	receipt, err := b.Banker.Bank(ctx, userID, rewards)
	if err != nil {
		slog.Error("Failed to bank loot-box rewards",
			slog.String("type", "game"),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return ephemeral(e, "Banking the pot failed. Contact an admin; your rewards were recorded in the logs.")
	}

	var sb strings.Builder
	for _, reward := range rewards {
		sb.WriteString(rewardLine(reward))
		sb.WriteString("\n")
	}
	if receipt.DroppedCards > 0 {
		fmt.Fprintf(&sb, "\n⚠️ %d card(s) did not fit your book and were lost.", receipt.DroppedCards)
	}

	embed := gridEmbed(def.Name, session, "")
	embed.Title = fmt.Sprintf("💾 Pot Saved — %s", def.Name)
	embed.Color = config.SuccessColor
	embed.Fields = []discord.EmbedField{{Name: "Banked", Value: sb.String()}}
	return e.UpdateMessage(discord.MessageUpdate{
		Embeds:     &[]discord.Embed{embed},
		Components: &[]discord.ContainerComponent{},
	})
}

func handleBooster(b *gibot.Bot, e *handler.ComponentEvent, userID string, session *lootbox.Session, def *lootbox.BoxDef, action string) error {
	boosterID := map[string]string{
		"map":      lootbox.BoosterTreasureMap,
		"doubler":  lootbox.BoosterDoubler,
		"detector": lootbox.BoosterBombDetector,
	}[action]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.UserRepository.UseBooster(ctx, userID, boosterID); err != nil {
		return ephemeral(e, fmt.Sprintf("You have no %s left.", boosterLabel(boosterID)))
	}

	var status string
	switch action {
	case "map":
		index, err := session.UseTreasureMap()
		if err != nil {
			refundBooster(b, userID, boosterID)
			return ephemeral(e, boosterFailureMessage(err))
		}
		status = fmt.Sprintf("🗺️ The map points at **cell %d**.", index+1)
	case "doubler":
		if err := session.UseDoubler(); err != nil {
			refundBooster(b, userID, boosterID)
			return ephemeral(e, boosterFailureMessage(err))
		}
		status = "✨ All hidden jenny rewards are doubled."
	case "detector":
		defused, err := session.UseBombDetector()
		if err != nil {
			refundBooster(b, userID, boosterID)
			return ephemeral(e, boosterFailureMessage(err))
		}
		status = fmt.Sprintf("🕵️ Defused %d bomb(s); those cells are sealed.", len(defused))
	}

	components := gridComponents(userID, session)
	return e.UpdateMessage(discord.MessageUpdate{
		Embeds:     &[]discord.Embed{gridEmbed(def.Name, session, status)},
		Components: &components,
	})
}

// refundBooster puts a booster back when the session rejected it.
func refundBooster(b *gibot.Bot, userID, boosterID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.UserRepository.AddBooster(ctx, userID, boosterID, 1); err != nil {
		slog.Error("Failed to refund booster",
			slog.String("user_id", userID),
			slog.String("booster", boosterID),
			slog.Any("error", err),
		)
	}
}

func boosterFailureMessage(err error) string {
	if errors.Is(err, lootbox.ErrBoosterSpent) {
		return "You already used that booster this grid."
	}
	return err.Error()
}

func ephemeral(e *handler.ComponentEvent, msg string) error {
	return e.CreateMessage(discord.MessageCreate{
		Content: msg,
		Flags:   discord.MessageFlagEphemeral,
	})
}

func lootboxError(e *handler.CommandEvent, msg string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "❌ Loot Box",
			Description: msg,
			Color:       config.ErrorColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
