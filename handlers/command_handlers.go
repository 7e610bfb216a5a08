package handlers

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/bot"
	"mafia-bot/models"
	"mafia-bot/utils"
)

// CommandDispatcher routes an application command to its handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "snipe":
		handleSnipe(b, s, i)
	case "stats":
		handleStats(b, s, i)
	case "catchup":
		handleCatchup(b, s, i)
	case "purge":
		handlePurge(b, s, i)
	case "game":
		handleGame(b, s, i)
	case "ping":
		respond(s, i, "Pong!", true)
	}
}

// requireAdmin answers whether the caller may run a privileged command,
// responding with a denial if not.
func requireAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	auth, err := utils.NewAuth()
	if err != nil {
		log.Printf("Error loading auth config: %v", err)
		respond(s, i, "Authorization configuration is broken; command refused.", true)
		return false
	}
	if !auth.CheckPermission(s, i, "admin") {
		respond(s, i, "You are not allowed to use this command.", true)
		return false
	}
	return true
}

// handleSnipe restores the most recently deleted message in the channel and
// links the deletion to the restoring message.
func handleSnipe(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	msg, err := b.Ledger.LastDeleted(i.ChannelID)
	if err != nil {
		respond(s, i, fmt.Sprintf("Snipe failed: %v", err), true)
		return
	}
	if msg == nil {
		respond(s, i, "Nothing to snipe in this channel.", true)
		return
	}

	embed := &discordgo.MessageEmbed{
		Description: msg.Content,
		Color:       utils.ColorWarn,
		Timestamp:   msg.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Author:      &discordgo.MessageEmbedAuthor{Name: fmt.Sprintf("Deleted message from <@%s>", msg.AuthorID)},
	}
	for _, a := range msg.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			embed.Image = &discordgo.MessageEmbedImage{URL: a.URL}
			break
		}
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		log.Printf("Error responding to snipe: %v", err)
		return
	}

	resp, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Printf("Error fetching snipe response: %v", err)
		return
	}
	b.Ledger.MarkSniped(msg.Ref(), resp.ID)
}

// handleStats shows the per-player leaderboard for a game day, including
// activity that has not been flushed yet.
func handleStats(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	gameID, day, active := b.Game.Snapshot()
	if gameID == "" {
		respond(s, i, "No game has been started.", true)
		return
	}
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "day" {
			day = int(opt.IntValue())
		}
	}

	stats, err := b.Ledger.FetchStats(b.Game.InstanceID(), gameID, day)
	if err != nil {
		respond(s, i, fmt.Sprintf("Stats lookup failed: %v", err), true)
		return
	}
	if len(stats) == 0 {
		respond(s, i, fmt.Sprintf("No recorded activity for day %d.", day), true)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Day %d activity**", day)
	if !active {
		sb.WriteString(" (game over)")
	}
	sb.WriteString("\n")
	for rank, rec := range stats {
		fmt.Fprintf(&sb, "%d. <@%s> — %d messages, %d words, %d images\n",
			rank+1, rec.UserID, rec.Messages, rec.Words, rec.Images)
	}
	respond(s, i, sb.String(), false)
}

// handleCatchup runs an explicit full re-sync of the tracker.
func handleCatchup(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireAdmin(s, i) {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Printf("Error deferring catchup response: %v", err)
		return
	}

	go func() {
		// Commit the buffered tail first; a no-op if tracking is not yet
		// enabled. Whatever is durable the paginator will not re-observe.
		if err := b.Ledger.Flush(); err != nil {
			utils.Error("ledger", "flush", err.Error())
		}
		seen, err := b.Ledger.Resync(s, b.Tracker.GameChannelID, func(seen int) {
			log.Printf("Catch-up progress: %d messages", seen)
		}, b.Game)
		var content string
		if err != nil {
			content = fmt.Sprintf("Catch-up failed after %d messages: %v", seen, err)
			utils.Error("ledger", "catchup", err.Error())
		} else {
			if flushErr := b.Ledger.Flush(); flushErr != nil {
				utils.Error("ledger", "flush", flushErr.Error())
			}
			content = fmt.Sprintf("Catch-up complete: %d messages recovered, tracking enabled.", seen)
			utils.Info("ledger", "catchup", content)
		}
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
			log.Printf("Error editing catchup response: %v", err)
		}
	}()
}

// handlePurge deletes recent channel messages, marking each so the delete
// events they trigger do not raise notifications.
func handlePurge(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireAdmin(s, i) {
		return
	}

	count := 0
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}
	if count < 1 {
		count = 1
	}
	if count > 100 {
		count = 100
	}

	messages, err := s.ChannelMessages(i.ChannelID, count, "", "", "")
	if err != nil {
		respond(s, i, fmt.Sprintf("Could not list messages: %v", err), true)
		return
	}

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		b.Ledger.PurgeMessage(models.MessageRef{ChannelID: i.ChannelID, MessageID: m.ID})
		ids = append(ids, m.ID)
	}
	if err := s.ChannelMessagesBulkDelete(i.ChannelID, ids); err != nil {
		respond(s, i, fmt.Sprintf("Bulk delete failed: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Deleted %d messages.", len(ids)), true)
}

// handleGame starts, advances or ends the running game.
func handleGame(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !requireAdmin(s, i) {
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}
	switch options[0].Name {
	case "start":
		gameID := b.Game.Start()
		utils.Info("game", "start", fmt.Sprintf("game %s started", gameID))
		respond(s, i, "Game started. It is day 1.", false)
	case "day":
		day := b.Game.AdvanceDay()
		if day == 0 {
			respond(s, i, "No game is active.", true)
			return
		}
		respond(s, i, fmt.Sprintf("It is now day %d.", day), false)
	case "end":
		b.Game.End()
		utils.Info("game", "end", "game ended")
		respond(s, i, "Game over.", false)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}
