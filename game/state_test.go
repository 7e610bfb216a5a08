package game

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gameMessage(channelID, userID, content string) *discordgo.Message {
	return &discordgo.Message{
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: userID},
	}
}

func TestLifecycle(t *testing.T) {
	s := NewState("guild-1", "chan-1")

	_, _, active := s.Snapshot()
	assert.False(t, active)
	assert.Equal(t, 0, s.AdvanceDay(), "cannot advance a day with no game running")

	gameID := s.Start()
	require.NotEmpty(t, gameID)
	id, day, active := s.Snapshot()
	assert.Equal(t, gameID, id)
	assert.Equal(t, 1, day)
	assert.True(t, active)

	assert.Equal(t, 2, s.AdvanceDay())
	assert.Equal(t, 3, s.AdvanceDay())

	s.End()
	_, day, active = s.Snapshot()
	assert.Equal(t, 3, day)
	assert.False(t, active)

	// A new game gets a fresh id and starts over at day 1.
	second := s.Start()
	assert.NotEqual(t, gameID, second)
	_, day, _ = s.Snapshot()
	assert.Equal(t, 1, day)
}

func TestStatForCountsGameChannelMessages(t *testing.T) {
	s := NewState("guild-1", "chan-1")
	gameID := s.Start()
	s.AdvanceDay()

	delta, ok := s.StatFor(gameMessage("chan-1", "u1", "three little words"))
	require.True(t, ok)
	assert.Equal(t, "u1", delta.UserID)
	assert.Equal(t, "guild-1", delta.InstanceID)
	assert.Equal(t, gameID, delta.GameID)
	assert.Equal(t, 2, delta.Day)
	assert.Equal(t, int64(1), delta.Messages)
	assert.Equal(t, int64(3), delta.Words)
	assert.Equal(t, int64(0), delta.Images)
}

func TestStatForCountsImages(t *testing.T) {
	s := NewState("guild-1", "chan-1")
	s.Start()

	m := gameMessage("chan-1", "u1", "")
	m.Attachments = []*discordgo.MessageAttachment{
		{Filename: "scum.png", ContentType: "image/png"},
		{Filename: "notes.txt", ContentType: "text/plain"},
	}
	delta, ok := s.StatFor(m)
	require.True(t, ok)
	assert.Equal(t, int64(1), delta.Images)
}

func TestStatForRejectsOutOfScopeMessages(t *testing.T) {
	s := NewState("guild-1", "chan-1")

	_, ok := s.StatFor(gameMessage("chan-1", "u1", "hi"))
	assert.False(t, ok, "no game running")

	s.Start()

	_, ok = s.StatFor(gameMessage("chan-2", "u1", "hi"))
	assert.False(t, ok, "wrong channel")

	bot := gameMessage("chan-1", "b1", "hi")
	bot.Author.Bot = true
	_, ok = s.StatFor(bot)
	assert.False(t, ok, "bot message")

	noAuthor := gameMessage("chan-1", "", "hi")
	noAuthor.Author = nil
	_, ok = s.StatFor(noAuthor)
	assert.False(t, ok, "no author")
}
