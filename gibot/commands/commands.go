package commands

import (
	"github.com/disgoorg/disgo/discord"
)

// Commands is the full slash-command surface, synced on startup with
// -sync-commands.
var Commands = []discord.ApplicationCommandCreate{
	Inventory,
	Card,
	Attack,
	LootBox,
	Swap,
	Jenny,
	Audit,
}
