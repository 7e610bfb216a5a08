package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/models"
)

// fakeStore is an in-memory Store for ledger tests.
type fakeStore struct {
	mu        sync.Mutex
	messages  map[models.MessageRef]*models.TrackedMessage
	stats     map[models.StatKey]models.StatAction
	lastFlush time.Time
	failFlush bool
	flushes   int

	// Read hooks run after a snapshot is taken but before it is returned,
	// so tests can interleave a flush with an in-flight read.
	messageHook func()
	statsHook   func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: make(map[models.MessageRef]*models.TrackedMessage),
		stats:    make(map[models.StatKey]models.StatAction),
	}
}

func (f *fakeStore) Message(channelID, messageID string) (*models.TrackedMessage, error) {
	f.mu.Lock()
	m := f.messages[models.MessageRef{ChannelID: channelID, MessageID: messageID}].Clone()
	f.mu.Unlock()
	if f.messageHook != nil {
		f.messageHook()
	}
	return m, nil
}

func (f *fakeStore) NewestMessage(channelID string) (*models.TrackedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *models.TrackedMessage
	for _, m := range f.messages {
		if m.ChannelID != channelID {
			continue
		}
		if newest == nil || m.CreatedAt.After(newest.CreatedAt) {
			newest = m
		}
	}
	return newest.Clone(), nil
}

func (f *fakeStore) LastDeleted(channelID string) (*models.TrackedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.TrackedMessage
	for _, m := range f.messages {
		if m.ChannelID != channelID || !m.Deleted || m.SnipedID != "" {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) {
			last = m
		}
	}
	return last.Clone(), nil
}

func (f *fakeStore) Stats(instanceID, gameID string, day int) ([]models.StatAction, error) {
	f.mu.Lock()
	var out []models.StatAction
	for k, rec := range f.stats {
		if k.InstanceID == instanceID && k.GameID == gameID && k.Day == day {
			out = append(out, rec)
		}
	}
	f.mu.Unlock()
	if f.statsHook != nil {
		f.statsHook()
	}
	return out, nil
}

func (f *fakeStore) LastFlush() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFlush, nil
}

func (f *fakeStore) RunFlush(fn func(tx FlushTx) error) error {
	f.mu.Lock()
	if f.failFlush {
		f.mu.Unlock()
		return errors.New("store unavailable")
	}
	f.mu.Unlock()
	if err := fn(&fakeTx{store: f}); err != nil {
		return err
	}
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
	return nil
}

type fakeTx struct {
	store *fakeStore
}

// Tx reads bypass the read hooks: they model reads inside the flush
// transaction, not the query-path reads the hooks are meant to interleave
// with. Routing them through the hooked reads would re-enter a hook from
// inside the flush it started.
func (t *fakeTx) Message(channelID, messageID string) (*models.TrackedMessage, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.messages[models.MessageRef{ChannelID: channelID, MessageID: messageID}].Clone(), nil
}

func (t *fakeTx) Reactions(channelID, messageID string) ([]models.Reaction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	m := t.store.messages[models.MessageRef{ChannelID: channelID, MessageID: messageID}].Clone()
	if m == nil {
		return nil, nil
	}
	return m.Reactions, nil
}

func (t *fakeTx) PutMessage(m *models.TrackedMessage) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.messages[m.Ref()] = m.Clone()
	return nil
}

func (t *fakeTx) PutReactions(channelID, messageID string, reactions []models.Reaction, stars int) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	ref := models.MessageRef{ChannelID: channelID, MessageID: messageID}
	m := t.store.messages[ref]
	if m == nil {
		m = &models.TrackedMessage{ChannelID: channelID, MessageID: messageID}
		t.store.messages[ref] = m
	}
	m.Reactions = reactions
	m.Stars = stars
	return nil
}

func (t *fakeTx) AddStat(rec models.StatAction) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	k := rec.Key()
	existing := t.store.stats[k]
	existing.UserID = rec.UserID
	existing.InstanceID = rec.InstanceID
	existing.GameID = rec.GameID
	existing.Day = rec.Day
	existing.Messages += rec.Messages
	existing.Words += rec.Words
	existing.Images += rec.Images
	t.store.stats[k] = existing
	return nil
}

func (t *fakeTx) SetLastFlush(at time.Time) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.lastFlush = at
	return nil
}

// fakePager serves a channel's history, newest first, in fixed pages.
type fakePager struct {
	history []*discordgo.Message
	calls   int
}

func (p *fakePager) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	p.calls++
	start := 0
	if beforeID != "" {
		for i, m := range p.history {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(p.history) {
		end = len(p.history)
	}
	if start >= len(p.history) {
		return nil, nil
	}
	return p.history[start:end], nil
}

// fakeStats accepts every message with fixed deltas.
type fakeStats struct {
	gameID string
	seen   int
}

func (f *fakeStats) StatFor(m *discordgo.Message) (models.StatAction, bool) {
	if m.Author == nil {
		return models.StatAction{}, false
	}
	f.seen++
	return models.StatAction{
		UserID:     m.Author.ID,
		InstanceID: "guild-1",
		GameID:     f.gameID,
		Day:        1,
		Messages:   1,
	}, true
}
