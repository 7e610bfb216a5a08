package handlers

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/bot"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	// Gateway events feeding the tracking ledger.
	b.Session.AddHandler(MessageCreateHandler(b))
	b.Session.AddHandler(MessageUpdateHandler(b))
	b.Session.AddHandler(MessageDeleteHandler(b))
	b.Session.AddHandler(ReactionAddHandler(b))
	b.Session.AddHandler(ReactionRemoveHandler(b))
	b.Session.AddHandler(ReactionRemoveAllHandler(b))

	// Slash command interactions.
	b.Session.AddHandler(InteractionCreate(b))

	// Log when the bot is connected.
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
}
