package handlers

import (
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/bot"
	"mafia-bot/models"
	"mafia-bot/utils"
)

// shouldTrack checks whether a message in guildID/channelID is inside the
// tracked guild and not in an excluded channel.
func shouldTrack(b *bot.Bot, guildID, channelID string) bool {
	if guildID == "" || guildID != b.Tracker.GuildID {
		return false
	}
	return !slices.Contains(b.Tracker.Exclude, channelID)
}

// MessageCreateHandler buffers a create action for every tracked message,
// plus a stat delta when a game is live.
func MessageCreateHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author != nil && m.Author.Bot {
			return
		}
		if !shouldTrack(b, m.GuildID, m.ChannelID) {
			return
		}

		b.Ledger.EnqueueMessage(models.MessageAction{
			Kind:      models.MessageCreate,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			Timestamp: m.Timestamp,
			Message:   models.FromDiscordMessage(m.Message),
		})

		if delta, ok := b.Game.StatFor(m.Message); ok {
			b.Ledger.EnqueueStat(delta)
		}
	}
}

// MessageUpdateHandler buffers an edit action carrying only the changed
// fields. The before-state comes from the ledger's own read-through view,
// so the edit log entry is exact even when the edit has not been flushed.
func MessageUpdateHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageUpdate) {
	return func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		if m.Author != nil && m.Author.Bot {
			return
		}
		if !shouldTrack(b, m.GuildID, m.ChannelID) {
			return
		}

		ref := models.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
		before, err := b.Ledger.FetchMessage(ref, nil)
		if err != nil {
			utils.Error("tracker", "edit", fmt.Sprintf("before-state lookup for %s failed: %v", m.ID, err))
			before = nil
		}

		now := time.Now().UTC()
		patch := &models.MessagePatch{Pinned: &m.Pinned}
		action := models.MessageAction{
			Kind:      models.MessageEdit,
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			Timestamp: now,
			Patch:     patch,
		}

		// Embed-unfurl updates arrive with empty content; only merge the
		// content fields when the event actually carries them.
		if m.Content != "" {
			clean := m.ContentWithMentionsReplaced()
			patch.Content = &m.Content
			patch.CleanContent = &clean
			if m.EditedTimestamp != nil {
				t := *m.EditedTimestamp
				patch.EditedAt = &t
			} else {
				patch.EditedAt = &now
			}
			patch.Attachments = modelAttachments(m.Attachments)
			patch.Embeds = m.Embeds

			if before != nil && before.Content != m.Content {
				action.Log = &models.EditLogEntry{
					Content:      before.Content,
					CleanContent: before.CleanContent,
					Timestamp:    now,
				}
			}
		}

		b.Ledger.EnqueueMessage(action)
	}
}

// MessageDeleteHandler records the deletion and, unless the deletion was
// operator-initiated through /purge, raises an admin notification.
func MessageDeleteHandler(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageDelete) {
	return func(s *discordgo.Session, m *discordgo.MessageDelete) {
		if !shouldTrack(b, m.GuildID, m.ChannelID) {
			return
		}

		ref := models.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
		purged := b.Ledger.DeleteMessage(ref, time.Now().UTC())
		if !purged {
			utils.Warn("tracker", "delete", fmt.Sprintf("message %s deleted in <#%s>", m.ID, m.ChannelID))
		}
	}
}

// modelAttachments converts gateway attachments into tracked snapshots,
// returning an empty (non-nil) slice when there are none so the patch
// records "attachments now cleared" rather than "unchanged".
func modelAttachments(attachments []*discordgo.MessageAttachment) []models.Attachment {
	out := make([]models.Attachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, models.Attachment{
			ID:          a.ID,
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return out
}
