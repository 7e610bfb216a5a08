package models

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// MessageActionKind discriminates buffered message actions.
type MessageActionKind int

const (
	MessageCreate MessageActionKind = iota
	MessageEdit
	MessageDelete
)

// MessagePatch carries the fields of an edit. Nil pointers and nil slices
// mean "unchanged"; only set fields are merged onto the durable record.
type MessagePatch struct {
	Content      *string
	CleanContent *string
	EditedAt     *time.Time
	Pinned       *bool
	HasPoll      *bool
	Mentions     []string
	Attachments  []Attachment
	Embeds       []*discordgo.MessageEmbed
	SnipedID     *string
}

// MessageAction is one buffered message event. It is consumed exactly once
// by a flush and never persisted itself; only its effect is.
type MessageAction struct {
	Kind      MessageActionKind
	ChannelID string
	MessageID string
	Timestamp time.Time

	// Message is the full payload of a Create.
	Message *TrackedMessage
	// Patch is the partial payload of an Edit.
	Patch *MessagePatch
	// Log is the before-state of an Edit, present only when the content
	// actually changed and the prior state was known.
	Log *EditLogEntry
}

// Ref returns the action's channel/message reference.
func (a MessageAction) Ref() MessageRef {
	return MessageRef{ChannelID: a.ChannelID, MessageID: a.MessageID}
}

// ReactionActionKind discriminates buffered reaction actions.
type ReactionActionKind int

const (
	// ReactionAdd inserts a user into an emoji's user set.
	ReactionAdd ReactionActionKind = iota
	// ReactionRemove deletes a user from an emoji's user set.
	ReactionRemove
	// ReactionRemoveEmoji deletes an entire emoji entry.
	ReactionRemoveEmoji
	// ReactionRemoveAll clears the whole reaction set.
	ReactionRemoveAll
)

// ReactionAction is one buffered reaction event.
type ReactionAction struct {
	Kind      ReactionActionKind
	ChannelID string
	MessageID string
	Emoji     string
	UserID    string
}

// Ref returns the action's channel/message reference.
func (a ReactionAction) Ref() MessageRef {
	return MessageRef{ChannelID: a.ChannelID, MessageID: a.MessageID}
}

// StatAction is an additive per-player counter delta, keyed by user, game
// instance, game and in-game day. The same shape serves as the aggregated
// per-day total once deltas have been reconciled.
type StatAction struct {
	UserID     string `json:"user_id"`
	InstanceID string `json:"instance_id"`
	GameID     string `json:"game_id"`
	Day        int    `json:"day"`
	Messages   int64  `json:"messages"`
	Words      int64  `json:"words"`
	Images     int64  `json:"images"`
}

// StatKey identifies the aggregation group of a StatAction.
type StatKey struct {
	UserID     string
	InstanceID string
	GameID     string
	Day        int
}

// Key returns the action's aggregation group.
func (a StatAction) Key() StatKey {
	return StatKey{UserID: a.UserID, InstanceID: a.InstanceID, GameID: a.GameID, Day: a.Day}
}
