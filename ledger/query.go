package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/models"
)

// FetchMessage returns the current state of a message: the last durable
// snapshot with every still-buffered action for the same ref overlaid in
// buffer order. The result therefore reflects every event accepted so far,
// flushed or not. Returns (nil, nil) when nothing is known about the ref.
//
// If fetched is a freshly retrieved full message whose content differs from
// the overlaid result, the difference is an edit the gateway has not
// reported yet; it is folded in as one more buffered edit before returning.
func (l *Ledger) FetchMessage(ref models.MessageRef, fetched *discordgo.Message) (*models.TrackedMessage, error) {
	var durable *models.TrackedMessage
	var pending []models.MessageAction
	for {
		gen := l.quiesce()

		var err error
		durable, err = l.store.Message(ref.ChannelID, ref.MessageID)
		if err != nil {
			return nil, fmt.Errorf("fetch message %s/%s: %w", ref.ChannelID, ref.MessageID, err)
		}
		pending = l.pendingMessageActions(ref)

		// A flush that started mid-read may have drained actions the
		// durable snapshot does not reflect yet. Re-read both sides.
		if !l.raced(gen) {
			break
		}
	}

	result := overlayMessage(durable, pending)

	if fetched != nil {
		result = l.foldFetched(ref, result, fetched)
	}
	return result, nil
}

// foldFetched reconciles a live-fetched message against the overlaid state.
func (l *Ledger) foldFetched(ref models.MessageRef, result *models.TrackedMessage, fetched *discordgo.Message) *models.TrackedMessage {
	observed := models.FromDiscordMessage(fetched)

	if result == nil {
		a := models.MessageAction{
			Kind:      models.MessageCreate,
			ChannelID: ref.ChannelID,
			MessageID: ref.MessageID,
			Timestamp: observed.CreatedAt,
			Message:   observed,
		}
		l.EnqueueMessage(a)
		return applyMessageAction(nil, a)
	}

	if observed.Content == result.Content {
		return result
	}

	// An edit happened that the gateway never delivered. Record the
	// before-state and merge the observed fields.
	now := time.Now().UTC()
	editedAt := now
	if observed.EditedAt != nil {
		editedAt = *observed.EditedAt
	}
	a := models.MessageAction{
		Kind:      models.MessageEdit,
		ChannelID: ref.ChannelID,
		MessageID: ref.MessageID,
		Timestamp: now,
		Patch: &models.MessagePatch{
			Content:      &observed.Content,
			CleanContent: &observed.CleanContent,
			EditedAt:     &editedAt,
			Attachments:  observed.Attachments,
			Embeds:       observed.Embeds,
		},
		Log: &models.EditLogEntry{
			Content:      result.Content,
			CleanContent: result.CleanContent,
			Timestamp:    now,
		},
	}
	l.EnqueueMessage(a)
	return applyMessageAction(result, a)
}

// FetchStats returns the per-user totals for one (instance, game, day):
// durable counters plus any reconciled-but-unflushed deltas, with entries
// synthesized for users that exist only in the buffer. Sorted by message
// count, descending.
func (l *Ledger) FetchStats(instanceID, gameID string, day int) ([]models.StatAction, error) {
	var durable, pending []models.StatAction
	for {
		gen := l.quiesce()

		var err error
		durable, err = l.store.Stats(instanceID, gameID, day)
		if err != nil {
			return nil, fmt.Errorf("fetch stats %s/%s day %d: %w", instanceID, gameID, day, err)
		}

		l.mu.Lock()
		pending = pending[:0]
		for _, a := range l.stats {
			if a.InstanceID == instanceID && a.GameID == gameID && a.Day == day {
				pending = append(pending, a)
			}
		}
		l.mu.Unlock()

		if !l.raced(gen) {
			break
		}
	}

	merged := make(map[string]models.StatAction, len(durable))
	for _, rec := range durable {
		merged[rec.UserID] = rec
	}
	for _, delta := range ReconcileStats(pending) {
		t, ok := merged[delta.UserID]
		if !ok {
			t = models.StatAction{UserID: delta.UserID, InstanceID: instanceID, GameID: gameID, Day: day}
		}
		t.Messages += delta.Messages
		t.Words += delta.Words
		t.Images += delta.Images
		merged[t.UserID] = t
	}

	out := make([]models.StatAction, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Messages != out[j].Messages {
			return out[i].Messages > out[j].Messages
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// LastDeleted returns the most recently deleted message in a channel that
// has not yet been linked to a snipe, preferring deletions still sitting in
// the buffer. Returns (nil, nil) if there is none.
func (l *Ledger) LastDeleted(channelID string) (*models.TrackedMessage, error) {
	for {
		gen := l.quiesce()

		l.mu.Lock()
		var buffered *models.MessageRef
		for i := len(l.messages) - 1; i >= 0; i-- {
			a := l.messages[i]
			if a.ChannelID != channelID {
				continue
			}
			if a.Kind == models.MessageDelete || (a.Kind == models.MessageCreate && a.Message != nil && a.Message.Deleted) {
				ref := a.Ref()
				buffered = &ref
				break
			}
		}
		l.mu.Unlock()

		if buffered != nil {
			return l.FetchMessage(*buffered, nil)
		}

		durable, err := l.store.LastDeleted(channelID)
		if err != nil {
			return nil, err
		}
		if !l.raced(gen) {
			return durable, nil
		}
	}
}

// MarkSniped links a deleted message to the message that restored it.
func (l *Ledger) MarkSniped(ref models.MessageRef, snipeMessageID string) {
	l.EnqueueMessage(models.MessageAction{
		Kind:      models.MessageEdit,
		ChannelID: ref.ChannelID,
		MessageID: ref.MessageID,
		Timestamp: time.Now().UTC(),
		Patch:     &models.MessagePatch{SnipedID: &snipeMessageID},
	})
}
