package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mafia-bot/models"
)

// historyOf builds a channel history of n messages, newest first, with ids
// counting down from n.
func historyOf(n int, channelID string) []*discordgo.Message {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*discordgo.Message, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, &discordgo.Message{
			ID:        fmt.Sprintf("%06d", i),
			ChannelID: channelID,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Author:    &discordgo.User{ID: "u1"},
		})
	}
	return out
}

func bufferedCreateIDs(l *Ledger) map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make(map[string]bool)
	for _, a := range l.messages {
		if a.Kind == models.MessageCreate {
			ids[a.MessageID] = true
		}
	}
	return ids
}

func TestCatchupStopsAtKnownMessage(t *testing.T) {
	store := newFakeStore()
	known := &models.TrackedMessage{
		ChannelID: "c1", MessageID: "000050",
		CreatedAt: time.Date(2026, 8, 1, 12, 50, 0, 0, time.UTC),
	}
	store.messages[known.Ref()] = known
	l := New(store, "")

	pager := &fakePager{history: historyOf(60, "c1")}
	seen, err := l.CatchupChannel(pager, "c1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, seen, "only messages newer than the known one are observed")
	assert.Equal(t, 1, pager.calls, "paging stops at the page containing the known message")

	ids := bufferedCreateIDs(l)
	assert.False(t, ids["000050"], "the known message must not be re-emitted")
	assert.False(t, ids["000049"])
	assert.True(t, ids["000051"])
	assert.True(t, ids["000060"])
}

func TestCatchupStopsOnShortPage(t *testing.T) {
	l := New(newFakeStore(), "")
	pager := &fakePager{history: historyOf(30, "c1")}

	seen, err := l.CatchupChannel(pager, "c1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, seen)
	assert.Equal(t, 1, pager.calls)
}

func TestCatchupPagesThroughFullHistory(t *testing.T) {
	l := New(newFakeStore(), "")
	pager := &fakePager{history: historyOf(250, "c1")}

	var progressCalls int
	seen, err := l.CatchupChannel(pager, "c1", func(seen int) { progressCalls++ }, nil)
	require.NoError(t, err)
	assert.Equal(t, 250, seen)
	assert.Equal(t, 3, pager.calls)
	assert.Equal(t, 3, progressCalls)
}

func TestCatchupStopsOnOlderTimestamp(t *testing.T) {
	store := newFakeStore()
	// The durably known message does not appear in the paged history (it
	// was deleted upstream), so termination rests on its timestamp.
	known := &models.TrackedMessage{
		ChannelID: "c1", MessageID: "ghost",
		CreatedAt: time.Date(2026, 8, 1, 12, 40, 30, 0, time.UTC),
	}
	store.messages[known.Ref()] = known
	l := New(store, "")

	pager := &fakePager{history: historyOf(60, "c1")}
	seen, err := l.CatchupChannel(pager, "c1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, seen, "messages at or before the known timestamp are skipped")
}

func TestCatchupEmitsPinEditForPinNotices(t *testing.T) {
	l := New(newFakeStore(), "")
	history := historyOf(2, "c1")
	history[0].Type = discordgo.MessageTypeChannelPinnedMessage
	history[0].MessageReference = &discordgo.MessageReference{ChannelID: "c1", MessageID: "000001"}

	_, err := l.CatchupChannel(&fakePager{history: history}, "c1", nil, nil)
	require.NoError(t, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	var pinEdits int
	for _, a := range l.messages {
		if a.Kind == models.MessageEdit && a.MessageID == "000001" {
			require.NotNil(t, a.Patch)
			require.NotNil(t, a.Patch.Pinned)
			assert.True(t, *a.Patch.Pinned)
			pinEdits++
		}
	}
	assert.Equal(t, 1, pinEdits)
}

func TestCatchupEmitsStatsWhenRequested(t *testing.T) {
	l := New(newFakeStore(), "")
	stats := &fakeStats{gameID: "game"}

	seen, err := l.CatchupChannel(&fakePager{history: historyOf(5, "c1")}, "c1", nil, stats)
	require.NoError(t, err)
	assert.Equal(t, 5, seen)
	assert.Equal(t, 5, stats.seen)

	_, _, pendingStats := l.Pending()
	assert.Equal(t, 5, pendingStats)
}

func TestCatchupDoesNotDoubleCountBufferedMessages(t *testing.T) {
	store := newFakeStore()
	l := New(store, "")
	l.SetInitialized()

	history := historyOf(10, "c1")
	live := history[0] // newest message, already delivered by the gateway

	l.EnqueueMessage(models.MessageAction{
		Kind: models.MessageCreate, ChannelID: "c1", MessageID: live.ID,
		Timestamp: live.Timestamp, Message: models.FromDiscordMessage(live),
	})
	stats := &fakeStats{gameID: "game"}
	delta, ok := stats.StatFor(live)
	require.True(t, ok)
	l.EnqueueStat(delta)

	seen, err := l.CatchupChannel(&fakePager{history: history}, "c1", nil, stats)
	require.NoError(t, err)
	assert.Equal(t, 9, seen, "the buffered message must not be re-observed")

	require.NoError(t, l.Flush())
	rec := store.stats[models.StatKey{UserID: "u1", InstanceID: "guild-1", GameID: "game", Day: 1}]
	assert.Equal(t, int64(10), rec.Messages, "one delta per message, none earned twice")
}

func TestStartupAbortsOnStaleHeartbeat(t *testing.T) {
	store := newFakeStore()
	store.lastFlush = time.Now().Add(-10 * time.Minute)
	l := New(store, "")

	err := l.Startup(&fakePager{history: historyOf(5, "c1")}, "c1", nil)
	assert.ErrorIs(t, err, ErrStaleLedger)
	assert.False(t, l.Initialized())
}

func TestStartupAbortsWhenNeverFlushed(t *testing.T) {
	l := New(newFakeStore(), "")
	err := l.Startup(&fakePager{history: historyOf(5, "c1")}, "c1", nil)
	assert.ErrorIs(t, err, ErrStaleLedger)
}

func TestStartupHealsWhenHeartbeatIsFresh(t *testing.T) {
	store := newFakeStore()
	store.lastFlush = time.Now().Add(-time.Minute)
	l := New(store, "")

	require.NoError(t, l.Startup(&fakePager{history: historyOf(5, "c1")}, "c1", nil))
	assert.True(t, l.Initialized())

	pendingMessages, _, _ := l.Pending()
	assert.Equal(t, 5, pendingMessages)
}

func TestResyncInitializesRegardlessOfHeartbeat(t *testing.T) {
	l := New(newFakeStore(), "")

	seen, err := l.Resync(&fakePager{history: historyOf(5, "c1")}, "c1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, seen)
	assert.True(t, l.Initialized())
}

func TestCatchupEmptyChannel(t *testing.T) {
	l := New(newFakeStore(), "")
	seen, err := l.CatchupChannel(&fakePager{}, "c1", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, seen)
}
