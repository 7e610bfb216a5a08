package ledger

import (
	"sort"

	"mafia-bot/models"
)

// Reconciliation: pure transforms that collapse a batch of raw actions into
// storage-ready records. Every function here is total: missing durable
// docs, empty batches and unknown refs all produce a best-effort merged
// result rather than an error.

// ReconcileStats groups stat deltas by (user, instance, game, day) and sums
// them into one record per group. The fold is commutative: input order does
// not affect the result. Output order is deterministic.
func ReconcileStats(actions []models.StatAction) []models.StatAction {
	if len(actions) == 0 {
		return nil
	}
	totals := make(map[models.StatKey]models.StatAction)
	for _, a := range actions {
		k := a.Key()
		t, ok := totals[k]
		if !ok {
			t = models.StatAction{UserID: k.UserID, InstanceID: k.InstanceID, GameID: k.GameID, Day: k.Day}
		}
		t.Messages += a.Messages
		t.Words += a.Words
		t.Images += a.Images
		totals[k] = t
	}
	out := make([]models.StatAction, 0, len(totals))
	for _, t := range totals {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.InstanceID != b.InstanceID {
			return a.InstanceID < b.InstanceID
		}
		if a.GameID != b.GameID {
			return a.GameID < b.GameID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.UserID < b.UserID
	})
	return out
}

// ApplyReactions replays reaction actions in arrival order on top of the
// existing reaction set and returns the post-image. Adds are idempotent;
// emoji entries whose user set drains empty are dropped.
func ApplyReactions(existing []models.Reaction, actions []models.ReactionAction) []models.Reaction {
	out := make([]models.Reaction, 0, len(existing))
	for _, r := range existing {
		out = append(out, models.Reaction{Emoji: r.Emoji, Users: append([]string(nil), r.Users...)})
	}

	for _, a := range actions {
		switch a.Kind {
		case models.ReactionAdd:
			idx := findEmoji(out, a.Emoji)
			if idx < 0 {
				out = append(out, models.Reaction{Emoji: a.Emoji, Users: []string{a.UserID}})
				break
			}
			if !containsUser(out[idx].Users, a.UserID) {
				out[idx].Users = append(out[idx].Users, a.UserID)
			}
		case models.ReactionRemove:
			idx := findEmoji(out, a.Emoji)
			if idx < 0 {
				break
			}
			out[idx].Users = removeUser(out[idx].Users, a.UserID)
			if len(out[idx].Users) == 0 {
				out = append(out[:idx], out[idx+1:]...)
			}
		case models.ReactionRemoveEmoji:
			idx := findEmoji(out, a.Emoji)
			if idx >= 0 {
				out = append(out[:idx], out[idx+1:]...)
			}
		case models.ReactionRemoveAll:
			out = out[:0]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// StarCount extracts the size of the star emoji's user set, used as a
// popularity score.
func StarCount(reactions []models.Reaction, starEmoji string) int {
	idx := findEmoji(reactions, starEmoji)
	if idx < 0 {
		return 0
	}
	return len(reactions[idx].Users)
}

// applyMessageAction folds one message action onto a working copy and
// returns the result. base may be nil (no durable or buffered record yet).
//
//   - Create replaces the working copy, preserving the deleted flag and
//     any accumulated edit history, reactions and star count the payload
//     does not carry.
//   - Edit merges set fields and appends the action's edit-log entry, if any.
//   - Delete sets the deleted flag in place; on an unknown message it leaves
//     a tombstone carrying only identifiers.
func applyMessageAction(base *models.TrackedMessage, a models.MessageAction) *models.TrackedMessage {
	switch a.Kind {
	case models.MessageCreate:
		if a.Message == nil {
			return base
		}
		next := a.Message.Clone()
		if base != nil {
			if base.Deleted {
				next.Deleted = true
			}
			if len(next.Logs) == 0 {
				next.Logs = append([]models.EditLogEntry(nil), base.Logs...)
			}
			if len(next.Reactions) == 0 {
				next.Reactions = base.Reactions
				next.Stars = base.Stars
			}
		}
		return next

	case models.MessageEdit:
		next := base.Clone()
		if next == nil {
			next = &models.TrackedMessage{ChannelID: a.ChannelID, MessageID: a.MessageID}
		}
		if p := a.Patch; p != nil {
			if p.Content != nil {
				next.Content = *p.Content
			}
			if p.CleanContent != nil {
				next.CleanContent = *p.CleanContent
			}
			if p.EditedAt != nil {
				t := *p.EditedAt
				next.EditedAt = &t
			}
			if p.Pinned != nil {
				next.Pinned = *p.Pinned
			}
			if p.HasPoll != nil {
				next.HasPoll = *p.HasPoll
			}
			if p.Mentions != nil {
				next.Mentions = append([]string(nil), p.Mentions...)
			}
			if p.Attachments != nil {
				next.Attachments = append([]models.Attachment(nil), p.Attachments...)
			}
			if p.Embeds != nil {
				next.Embeds = p.Embeds
			}
			if p.SnipedID != nil {
				next.SnipedID = *p.SnipedID
			}
		}
		if a.Log != nil {
			next.Logs = append(next.Logs, *a.Log)
		}
		return next

	case models.MessageDelete:
		next := base.Clone()
		if next == nil {
			next = &models.TrackedMessage{ChannelID: a.ChannelID, MessageID: a.MessageID}
		}
		next.Deleted = true
		return next
	}
	return base
}

// overlayMessage folds a sequence of buffered actions, in buffer order, onto
// a working copy.
func overlayMessage(base *models.TrackedMessage, actions []models.MessageAction) *models.TrackedMessage {
	out := base
	for _, a := range actions {
		out = applyMessageAction(out, a)
	}
	return out
}

func findEmoji(reactions []models.Reaction, emoji string) int {
	for i, r := range reactions {
		if r.Emoji == emoji {
			return i
		}
	}
	return -1
}

func containsUser(users []string, userID string) bool {
	for _, u := range users {
		if u == userID {
			return true
		}
	}
	return false
}

func removeUser(users []string, userID string) []string {
	for i, u := range users {
		if u == userID {
			return append(users[:i], users[i+1:]...)
		}
	}
	return users
}
