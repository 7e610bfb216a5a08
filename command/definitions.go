package command

import "github.com/bwmarrin/discordgo"

// SnipeCommand defines the structure for the /snipe command.
type SnipeCommand struct{}

// Definition returns the application command definition.
func (c *SnipeCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "snipe",
		Description: "Restore the most recently deleted message in this channel",
	}
}

// StatsCommand defines the structure for the /stats command.
type StatsCommand struct{}

// Definition returns the application command definition.
func (c *StatsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "stats",
		Description: "Show the per-player activity leaderboard for a game day",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "day",
				Description: "The game day to show (defaults to the current day)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    false,
			},
		},
	}
}

// CatchupCommand defines the structure for the /catchup command.
type CatchupCommand struct{}

// Definition returns the application command definition.
func (c *CatchupCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "catchup",
		Description: "Re-sync the message tracker from channel history",
	}
}

// PurgeCommand defines the structure for the /purge command.
type PurgeCommand struct{}

// Definition returns the application command definition.
func (c *PurgeCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "purge",
		Description: "Delete recent messages in this channel without deletion alerts",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "count",
				Description: "How many messages to delete (max 100)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
			},
		},
	}
}

// GameCommand defines the structure for the /game command.
type GameCommand struct{}

// Definition returns the application command definition.
func (c *GameCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "game",
		Description: "Manage the running game",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "start",
				Description: "Start a new game on day 1",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        "day",
				Description: "Advance to the next game day",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
			{
				Name:        "end",
				Description: "End the current game",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
