package ledger

import (
	"fmt"
	"time"

	"mafia-bot/models"
)

// Flush drains the buffers, reconciles the drained actions and commits them
// to the store in one transaction.
//
// Only one flush runs at a time; a call arriving while another flush is in
// flight returns immediately. The buffers are swapped out under the lock
// the moment a flush starts, so events arriving during the commit
// accumulate in fresh buffers. If the transaction fails, the drained batch
// is requeued in front of anything that arrived meanwhile and the error is
// returned to the caller, who may simply call Flush again.
//
// Before the ledger is marked initialized, Flush is a logged no-op: a
// partially backfilled tracker must not emit spurious writes.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	if l.flushing {
		l.mu.Unlock()
		return nil
	}
	if !l.initialized {
		l.mu.Unlock()
		logSkip("flush", "ledger not initialized")
		return nil
	}
	l.flushing = true
	l.flushGen++
	l.flushDone = make(chan struct{})
	messages, reactions, stats := l.messages, l.reactions, l.stats
	l.messages, l.reactions, l.stats = nil, nil, nil
	l.purges = make(map[models.MessageRef]struct{})
	l.mu.Unlock()

	err := l.commit(messages, reactions, stats)

	l.mu.Lock()
	if err != nil {
		l.messages = append(messages, l.messages...)
		l.reactions = append(reactions, l.reactions...)
		l.stats = append(stats, l.stats...)
	}
	l.flushing = false
	close(l.flushDone)
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("ledger flush: %w", err)
	}
	return nil
}

func (l *Ledger) commit(messages []models.MessageAction, reactions []models.ReactionAction, stats []models.StatAction) error {
	messageRefs := make([]models.MessageRef, 0, len(messages))
	messagesByRef := make(map[models.MessageRef][]models.MessageAction)
	for _, a := range messages {
		ref := a.Ref()
		if _, seen := messagesByRef[ref]; !seen {
			messageRefs = append(messageRefs, ref)
		}
		messagesByRef[ref] = append(messagesByRef[ref], a)
	}

	reactionRefs := make([]models.MessageRef, 0, len(reactions))
	reactionsByRef := make(map[models.MessageRef][]models.ReactionAction)
	for _, a := range reactions {
		ref := a.Ref()
		if _, seen := reactionsByRef[ref]; !seen {
			reactionRefs = append(reactionRefs, ref)
		}
		reactionsByRef[ref] = append(reactionsByRef[ref], a)
	}

	aggregated := ReconcileStats(stats)

	return l.store.RunFlush(func(tx FlushTx) error {
		// Message projections first so reaction writes land on existing rows.
		for _, ref := range messageRefs {
			existing, err := tx.Message(ref.ChannelID, ref.MessageID)
			if err != nil {
				return err
			}
			merged := overlayMessage(existing, messagesByRef[ref])
			if merged == nil {
				continue
			}
			if err := tx.PutMessage(merged); err != nil {
				return err
			}
		}

		for _, ref := range reactionRefs {
			current, err := tx.Reactions(ref.ChannelID, ref.MessageID)
			if err != nil {
				return err
			}
			next := ApplyReactions(current, reactionsByRef[ref])
			if err := tx.PutReactions(ref.ChannelID, ref.MessageID, next, StarCount(next, l.starEmoji)); err != nil {
				return err
			}
		}

		for _, rec := range aggregated {
			if err := tx.AddStat(rec); err != nil {
				return err
			}
		}

		return tx.SetLastFlush(time.Now().UTC())
	})
}
