package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/models"
)

const (
	// catchupPageSize is the history page size requested from Discord.
	catchupPageSize = 100
	// staleHeartbeat is how old the flush heartbeat may be before the
	// startup self-heal refuses to trust incremental catch-up.
	staleHeartbeat = 5 * time.Minute
)

// ErrStaleLedger is returned by Startup when the last flush heartbeat is too
// old for an incremental self-heal; an explicit re-sync is required instead.
var ErrStaleLedger = errors.New("ledger: flush heartbeat too stale for incremental catch-up")

// HistoryPager lists channel messages backward from a cursor. It is
// satisfied by *discordgo.Session.
type HistoryPager interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// StatSource decides whether a message earns a stat delta, based on current
// game state. It is satisfied by *game.State.
type StatSource interface {
	StatFor(m *discordgo.Message) (models.StatAction, bool)
}

// CatchupChannel pages backward through a channel's history from the newest
// message and synthesizes a Create action for everything newer than the
// newest durably-known message. Paging stops at the first known message (by
// id, or by being older than the newest known creation timestamp) or at a
// short page. Messages whose create action is still sitting unflushed in
// the buffer are already accounted for and are skipped, so their stat
// deltas are not earned twice. Pinned-message system notices additionally
// synthesize an Edit marking their target as pinned. If stats is non-nil, a
// stat delta is emitted for every message it accepts.
//
// progress, if non-nil, is called after each page with the running count of
// newly observed messages. The count is also returned.
func (l *Ledger) CatchupChannel(pager HistoryPager, channelID string, progress func(seen int), stats StatSource) (int, error) {
	newest, err := l.store.NewestMessage(channelID)
	if err != nil {
		return 0, fmt.Errorf("catchup %s: newest known message: %w", channelID, err)
	}
	var knownID string
	var knownTime time.Time
	if newest != nil {
		knownID = newest.MessageID
		knownTime = newest.CreatedAt
	}

	seen := 0
	before := ""
	for {
		page, err := pager.ChannelMessages(channelID, catchupPageSize, before, "", "")
		if err != nil {
			return seen, fmt.Errorf("catchup %s: page before %q: %w", channelID, before, err)
		}
		if len(page) == 0 {
			break
		}

		reachedKnown := false
		for _, m := range page {
			if m.ID == knownID || (!knownTime.IsZero() && m.Timestamp.Before(knownTime)) {
				reachedKnown = true
				break
			}
			if l.hasBufferedCreate(models.MessageRef{ChannelID: channelID, MessageID: m.ID}) {
				continue
			}
			l.observeHistoric(channelID, m, stats)
			seen++
		}

		if progress != nil {
			progress(seen)
		}
		if reachedKnown || len(page) < catchupPageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	return seen, nil
}

// observeHistoric converts one historic message into buffered actions.
func (l *Ledger) observeHistoric(channelID string, m *discordgo.Message, stats StatSource) {
	l.EnqueueMessage(models.MessageAction{
		Kind:      models.MessageCreate,
		ChannelID: channelID,
		MessageID: m.ID,
		Timestamp: m.Timestamp,
		Message:   models.FromDiscordMessage(m),
	})

	if m.Type == discordgo.MessageTypeChannelPinnedMessage && m.MessageReference != nil && m.MessageReference.MessageID != "" {
		pinned := true
		targetChannel := m.MessageReference.ChannelID
		if targetChannel == "" {
			targetChannel = channelID
		}
		l.EnqueueMessage(models.MessageAction{
			Kind:      models.MessageEdit,
			ChannelID: targetChannel,
			MessageID: m.MessageReference.MessageID,
			Timestamp: m.Timestamp,
			Patch:     &models.MessagePatch{Pinned: &pinned},
		})
	}

	if stats != nil {
		if delta, ok := stats.StatFor(m); ok {
			l.EnqueueStat(delta)
		}
	}
}

// Startup is the process-start self-heal: it re-derives whatever the tracker
// missed while the process was down, then marks the ledger initialized. If
// the flush heartbeat is older than the staleness threshold, the ledger
// cannot be trusted for incremental catch-up and ErrStaleLedger is returned;
// the operator must trigger an explicit re-sync.
func (l *Ledger) Startup(pager HistoryPager, channelID string, stats StatSource) error {
	last, err := l.store.LastFlush()
	if err != nil {
		return fmt.Errorf("startup: read flush heartbeat: %w", err)
	}
	if last.IsZero() || time.Since(last) > staleHeartbeat {
		return ErrStaleLedger
	}

	if _, err := l.CatchupChannel(pager, channelID, nil, stats); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	l.SetInitialized()
	return nil
}

// Resync is the explicit full catch-up triggered by an operator command. It
// runs the paginator regardless of heartbeat age and marks the ledger
// initialized on success.
func (l *Ledger) Resync(pager HistoryPager, channelID string, progress func(seen int), stats StatSource) (int, error) {
	seen, err := l.CatchupChannel(pager, channelID, progress, stats)
	if err != nil {
		return seen, err
	}
	l.SetInitialized()
	return seen, nil
}
