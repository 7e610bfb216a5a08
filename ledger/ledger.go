// Package ledger tracks the live state of game-channel messages. Gateway
// handlers append actions to in-memory buffers; a periodic flush reconciles
// the buffered actions and commits them to the durable store in a single
// transaction. Queries overlay still-buffered actions onto the last durable
// snapshot, so callers always observe every accepted event without waiting
// for a flush.
//
// Ordering is guaranteed only within a single buffer. Reaction and edit
// events may arrive out of true chronological order across event types, and
// the ledger does not try to infer a global causal order.
package ledger

import (
	"log"
	"sync"
	"time"

	"mafia-bot/models"
)

// Store is the durable document store behind the ledger.
type Store interface {
	// Message returns the durable projection, or nil if none exists.
	Message(channelID, messageID string) (*models.TrackedMessage, error)
	// NewestMessage returns the most recent durably-known message in a
	// channel, or nil if the channel is untracked.
	NewestMessage(channelID string) (*models.TrackedMessage, error)
	// LastDeleted returns the most recent deleted, not-yet-sniped message
	// in a channel, or nil.
	LastDeleted(channelID string) (*models.TrackedMessage, error)
	// Stats returns the durable per-day totals for one (instance, game, day).
	Stats(instanceID, gameID string, day int) ([]models.StatAction, error)
	// LastFlush returns the flush heartbeat, or the zero time if the store
	// has never been flushed to.
	LastFlush() (time.Time, error)
	// RunFlush executes fn inside one atomic transaction.
	RunFlush(fn func(tx FlushTx) error) error
}

// FlushTx is the transactional surface a flush commits through.
type FlushTx interface {
	Message(channelID, messageID string) (*models.TrackedMessage, error)
	Reactions(channelID, messageID string) ([]models.Reaction, error)
	PutMessage(m *models.TrackedMessage) error
	PutReactions(channelID, messageID string, reactions []models.Reaction, stars int) error
	AddStat(rec models.StatAction) error
	SetLastFlush(t time.Time) error
}

// Ledger owns the four action buffers and the flush state. All methods are
// safe for concurrent use from gateway handler goroutines.
type Ledger struct {
	store     Store
	starEmoji string

	mu          sync.Mutex
	messages    []models.MessageAction
	reactions   []models.ReactionAction
	stats       []models.StatAction
	purges      map[models.MessageRef]struct{}
	flushing    bool
	flushGen    uint64
	flushDone   chan struct{}
	initialized bool
}

// New creates a ledger over the given store. The ledger starts
// uninitialized; flushes are no-ops until SetInitialized is called, which
// happens after a successful backfill.
func New(store Store, starEmoji string) *Ledger {
	if starEmoji == "" {
		starEmoji = "⭐"
	}
	return &Ledger{
		store:     store,
		starEmoji: starEmoji,
		purges:    make(map[models.MessageRef]struct{}),
	}
}

// SetInitialized marks the ledger safe to flush. Called once the backfill
// has confirmed the store reflects the channel's full history.
func (l *Ledger) SetInitialized() {
	l.mu.Lock()
	l.initialized = true
	l.mu.Unlock()
}

// Initialized reports whether flushes are enabled.
func (l *Ledger) Initialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialized
}

// EnqueueMessage appends a message action to the buffer.
func (l *Ledger) EnqueueMessage(a models.MessageAction) {
	l.mu.Lock()
	l.messages = append(l.messages, a)
	l.mu.Unlock()
}

// EnqueueReaction appends a reaction action to the buffer.
func (l *Ledger) EnqueueReaction(a models.ReactionAction) {
	l.mu.Lock()
	l.reactions = append(l.reactions, a)
	l.mu.Unlock()
}

// EnqueueStat appends a stat delta to the buffer.
func (l *Ledger) EnqueueStat(a models.StatAction) {
	l.mu.Lock()
	l.stats = append(l.stats, a)
	l.mu.Unlock()
}

// PurgeMessage records that the upcoming deletion of ref is
// operator-initiated, so the delete handler can suppress its notification.
// Recording the same ref twice is a no-op.
func (l *Ledger) PurgeMessage(ref models.MessageRef) {
	l.mu.Lock()
	l.purges[ref] = struct{}{}
	l.mu.Unlock()
}

// DeleteMessage records the deletion of ref. If the message's create action
// is still sitting in the buffer, its record is marked deleted in place
// rather than queuing a redundant delete action. The return value reports
// whether the deletion had a matching purge marker; callers use it to skip
// the "message deleted" notification for deletions they initiated
// themselves.
func (l *Ledger) DeleteMessage(ref models.MessageRef, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, purged := l.purges[ref]
	if purged {
		delete(l.purges, ref)
	}

	for i := len(l.messages) - 1; i >= 0; i-- {
		a := l.messages[i]
		if a.Kind == models.MessageCreate && a.Ref() == ref && a.Message != nil {
			a.Message.Deleted = true
			return purged
		}
	}

	l.messages = append(l.messages, models.MessageAction{
		Kind:      models.MessageDelete,
		ChannelID: ref.ChannelID,
		MessageID: ref.MessageID,
		Timestamp: at,
	})
	return purged
}

// Pending returns the current buffer depths, for diagnostics.
func (l *Ledger) Pending() (messages, reactions, stats int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages), len(l.reactions), len(l.stats)
}

// quiesce blocks until no flush is in flight and returns the flush
// generation it observed. A reader that sees the same generation from
// raced afterwards knows its durable read and its buffer copy came from
// one consistent cut; otherwise a flush drained the buffer mid-read and
// the reads must be repeated.
func (l *Ledger) quiesce() uint64 {
	for {
		l.mu.Lock()
		if !l.flushing {
			gen := l.flushGen
			l.mu.Unlock()
			return gen
		}
		done := l.flushDone
		l.mu.Unlock()
		<-done
	}
}

// raced reports whether a flush has started since gen was observed.
func (l *Ledger) raced(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushing || l.flushGen != gen
}

// hasBufferedCreate reports whether a create action for ref is already
// sitting in the buffer.
func (l *Ledger) hasBufferedCreate(ref models.MessageRef) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.messages {
		if a.Kind == models.MessageCreate && a.Ref() == ref {
			return true
		}
	}
	return false
}

// pendingMessageActions copies the buffered message actions addressed to ref.
func (l *Ledger) pendingMessageActions(ref models.MessageRef) []models.MessageAction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.MessageAction
	for _, a := range l.messages {
		if a.Ref() == ref {
			out = append(out, a)
		}
	}
	return out
}

func logSkip(op, reason string) {
	log.Printf("ledger: %s skipped: %s", op, reason)
}
