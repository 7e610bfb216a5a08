package models

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// MessageRef identifies a message by its channel and message snowflakes.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// EditLogEntry captures the content of a message immediately before an edit.
type EditLogEntry struct {
	Content      string    `json:"content"`
	CleanContent string    `json:"clean_content"`
	Timestamp    time.Time `json:"timestamp"`
}

// Reaction is one emoji on a message together with the users who reacted
// with it. A user ID appears at most once per emoji.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

// Attachment is a snapshot of a message attachment at tracking time.
type Attachment struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// TrackedMessage is the durable projection of a Discord message. Logs only
// ever grows, and Deleted is terminal: once set it is never cleared by
// ordinary tracking flow.
type TrackedMessage struct {
	MessageID    string                    `json:"message_id"`
	ChannelID    string                    `json:"channel_id"`
	GuildID      string                    `json:"guild_id"`
	AuthorID     string                    `json:"author_id"`
	CreatedAt    time.Time                 `json:"created_at"`
	EditedAt     *time.Time                `json:"edited_at,omitempty"`
	Content      string                    `json:"content"`
	CleanContent string                    `json:"clean_content"`
	Type         int                       `json:"type"`
	Pinned       bool                      `json:"pinned"`
	PinTargetID  string                    `json:"pin_target_id,omitempty"`
	Mentions     []string                  `json:"mentions,omitempty"`
	ReferenceID  string                    `json:"reference_id,omitempty"`
	HasPoll      bool                      `json:"has_poll"`
	Attachments  []Attachment              `json:"attachments,omitempty"`
	Embeds       []*discordgo.MessageEmbed `json:"embeds,omitempty"`
	Reactions    []Reaction                `json:"reactions,omitempty"`
	Stars        int                       `json:"stars"`
	Logs         []EditLogEntry            `json:"logs,omitempty"`
	Deleted      bool                      `json:"deleted"`
	SnipedID     string                    `json:"sniped_id,omitempty"`
}

// Ref returns the message's channel/message reference.
func (m *TrackedMessage) Ref() MessageRef {
	return MessageRef{ChannelID: m.ChannelID, MessageID: m.MessageID}
}

// Clone returns a deep copy safe to mutate without aliasing the original's
// slices.
func (m *TrackedMessage) Clone() *TrackedMessage {
	if m == nil {
		return nil
	}
	out := *m
	if m.EditedAt != nil {
		t := *m.EditedAt
		out.EditedAt = &t
	}
	out.Mentions = append([]string(nil), m.Mentions...)
	out.Attachments = append([]Attachment(nil), m.Attachments...)
	out.Embeds = append([]*discordgo.MessageEmbed(nil), m.Embeds...)
	out.Logs = append([]EditLogEntry(nil), m.Logs...)
	if m.Reactions != nil {
		out.Reactions = make([]Reaction, len(m.Reactions))
		for i, r := range m.Reactions {
			out.Reactions[i] = Reaction{Emoji: r.Emoji, Users: append([]string(nil), r.Users...)}
		}
	}
	return &out
}

// FromDiscordMessage converts a fully fetched Discord message into its
// tracked projection.
func FromDiscordMessage(m *discordgo.Message) *TrackedMessage {
	tracked := &TrackedMessage{
		MessageID:    m.ID,
		ChannelID:    m.ChannelID,
		GuildID:      m.GuildID,
		CreatedAt:    m.Timestamp,
		Content:      m.Content,
		CleanContent: m.ContentWithMentionsReplaced(),
		Type:         int(m.Type),
		Pinned:       m.Pinned,
		HasPoll:      m.Poll != nil,
		Attachments:  attachmentSnapshots(m.Attachments),
		Embeds:       m.Embeds,
	}
	if m.Author != nil {
		tracked.AuthorID = m.Author.ID
	}
	if m.EditedTimestamp != nil {
		t := *m.EditedTimestamp
		tracked.EditedAt = &t
	}
	for _, u := range m.Mentions {
		tracked.Mentions = append(tracked.Mentions, u.ID)
	}
	if m.MessageReference != nil {
		tracked.ReferenceID = m.MessageReference.MessageID
	}
	return tracked
}

func attachmentSnapshots(attachments []*discordgo.MessageAttachment) []Attachment {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, Attachment{
			ID:          a.ID,
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return out
}
