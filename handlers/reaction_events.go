package handlers

import (
	"github.com/bwmarrin/discordgo"

	"mafia-bot/bot"
	"mafia-bot/models"
)

// ReactionAddHandler buffers a reaction-add action.
func ReactionAddHandler(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if !shouldTrack(b, r.GuildID, r.ChannelID) {
			return
		}
		b.Ledger.EnqueueReaction(models.ReactionAction{
			Kind:      models.ReactionAdd,
			ChannelID: r.ChannelID,
			MessageID: r.MessageID,
			Emoji:     r.Emoji.APIName(),
			UserID:    r.UserID,
		})
	}
}

// ReactionRemoveHandler buffers a reaction-remove action.
func ReactionRemoveHandler(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		if !shouldTrack(b, r.GuildID, r.ChannelID) {
			return
		}
		b.Ledger.EnqueueReaction(models.ReactionAction{
			Kind:      models.ReactionRemove,
			ChannelID: r.ChannelID,
			MessageID: r.MessageID,
			Emoji:     r.Emoji.APIName(),
			UserID:    r.UserID,
		})
	}
}

// ReactionRemoveAllHandler buffers a clear of a message's whole reaction set.
func ReactionRemoveAllHandler(b *bot.Bot) func(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
		if !shouldTrack(b, r.GuildID, r.ChannelID) {
			return
		}
		b.Ledger.EnqueueReaction(models.ReactionAction{
			Kind:      models.ReactionRemoveAll,
			ChannelID: r.ChannelID,
			MessageID: r.MessageID,
		})
	}
}
