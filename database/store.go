package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"mafia-bot/ledger"
	"mafia-bot/models"
)

const metaLastFlush = "last_flush"

// Store adapts a SQLite database to the ledger's durable-store contract.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized tracker database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ ledger.Store = (*Store)(nil)

const messageColumns = `channel_id, message_id, guild_id, author_id, created_at, edited_at,
	content, clean_content, type, pinned, pin_target_id, mentions, reference_id, has_poll,
	attachments, embeds, reactions, stars, logs, deleted, sniped_id`

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// Message returns the durable projection for one message, or nil.
func (s *Store) Message(channelID, messageID string) (*models.TrackedMessage, error) {
	return queryMessage(s.db, `SELECT `+messageColumns+` FROM messages WHERE channel_id = ? AND message_id = ?`, channelID, messageID)
}

// NewestMessage returns the most recent durably-known message in a channel.
func (s *Store) NewestMessage(channelID string) (*models.TrackedMessage, error) {
	return queryMessage(s.db, `SELECT `+messageColumns+` FROM messages
		WHERE channel_id = ?
		ORDER BY created_at DESC, message_id DESC LIMIT 1`, channelID)
}

// LastDeleted returns the most recently created message in a channel that
// is deleted and has not been linked to a snipe.
func (s *Store) LastDeleted(channelID string) (*models.TrackedMessage, error) {
	return queryMessage(s.db, `SELECT `+messageColumns+` FROM messages
		WHERE channel_id = ? AND deleted = 1 AND sniped_id = ''
		ORDER BY created_at DESC, message_id DESC LIMIT 1`, channelID)
}

// Stats returns the durable per-user totals for one (instance, game, day).
func (s *Store) Stats(instanceID, gameID string, day int) ([]models.StatAction, error) {
	rows, err := s.db.Query(`SELECT user_id, messages, words, images FROM stats
		WHERE instance_id = ? AND game_id = ? AND day = ?
		ORDER BY messages DESC, user_id ASC`, instanceID, gameID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var out []models.StatAction
	for rows.Next() {
		rec := models.StatAction{InstanceID: instanceID, GameID: gameID, Day: day}
		if err := rows.Scan(&rec.UserID, &rec.Messages, &rec.Words, &rec.Images); err != nil {
			return nil, fmt.Errorf("failed to scan stat row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastFlush returns the flush heartbeat, or the zero time if no flush has
// ever committed.
func (s *Store) LastFlush() (time.Time, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaLastFlush).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read flush heartbeat: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		log.Printf("Warning: unparseable flush heartbeat %q, treating as never flushed", value)
		return time.Time{}, nil
	}
	return t, nil
}

// RunFlush executes fn inside one transaction, committing only if it
// succeeds.
func (s *Store) RunFlush(fn func(tx ledger.FlushTx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin flush transaction: %w", err)
	}
	if err := fn(&flushTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flush transaction: %w", err)
	}
	return nil
}

// flushTx implements ledger.FlushTx over one *sql.Tx.
type flushTx struct {
	tx *sql.Tx
}

func (f *flushTx) Message(channelID, messageID string) (*models.TrackedMessage, error) {
	return queryMessage(f.tx, `SELECT `+messageColumns+` FROM messages WHERE channel_id = ? AND message_id = ?`, channelID, messageID)
}

func (f *flushTx) Reactions(channelID, messageID string) ([]models.Reaction, error) {
	var raw string
	err := f.tx.QueryRow(`SELECT reactions FROM messages WHERE channel_id = ? AND message_id = ?`,
		channelID, messageID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reactions for %s/%s: %w", channelID, messageID, err)
	}
	var reactions []models.Reaction
	if err := unmarshalColumn(raw, &reactions); err != nil {
		return nil, fmt.Errorf("failed to decode reactions for %s/%s: %w", channelID, messageID, err)
	}
	return reactions, nil
}

func (f *flushTx) PutMessage(m *models.TrackedMessage) error {
	var editedAt any
	if m.EditedAt != nil {
		editedAt = m.EditedAt.UnixMilli()
	}
	_, err := f.tx.Exec(`INSERT OR REPLACE INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ChannelID, m.MessageID, m.GuildID, m.AuthorID, m.CreatedAt.UnixMilli(), editedAt,
		m.Content, m.CleanContent, m.Type, boolInt(m.Pinned), m.PinTargetID,
		marshalColumn(m.Mentions), m.ReferenceID, boolInt(m.HasPoll),
		marshalColumn(m.Attachments), marshalColumn(m.Embeds), marshalColumn(m.Reactions),
		m.Stars, marshalColumn(m.Logs), boolInt(m.Deleted), m.SnipedID)
	if err != nil {
		return fmt.Errorf("failed to write message %s/%s: %w", m.ChannelID, m.MessageID, err)
	}
	return nil
}

func (f *flushTx) PutReactions(channelID, messageID string, reactions []models.Reaction, stars int) error {
	_, err := f.tx.Exec(`INSERT INTO messages (channel_id, message_id, reactions, stars)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id, message_id) DO UPDATE SET
			reactions = excluded.reactions,
			stars = excluded.stars`,
		channelID, messageID, marshalColumn(reactions), stars)
	if err != nil {
		return fmt.Errorf("failed to write reactions for %s/%s: %w", channelID, messageID, err)
	}
	return nil
}

func (f *flushTx) AddStat(rec models.StatAction) error {
	_, err := f.tx.Exec(`INSERT INTO stats (instance_id, game_id, day, user_id, messages, words, images)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance_id, game_id, day, user_id) DO UPDATE SET
			messages = messages + excluded.messages,
			words = words + excluded.words,
			images = images + excluded.images`,
		rec.InstanceID, rec.GameID, rec.Day, rec.UserID, rec.Messages, rec.Words, rec.Images)
	if err != nil {
		return fmt.Errorf("failed to increment stats for %s: %w", rec.UserID, err)
	}
	return nil
}

func (f *flushTx) SetLastFlush(t time.Time) error {
	_, err := f.tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastFlush, t.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to stamp flush heartbeat: %w", err)
	}
	return nil
}

func queryMessage(q rowQuerier, query string, args ...any) (*models.TrackedMessage, error) {
	var (
		m         models.TrackedMessage
		createdAt int64
		editedAt  sql.NullInt64
		pinned    int
		hasPoll   int
		deleted   int
		mentions  string
		attachs   string
		embeds    string
		reactions string
		editLogs  string
	)
	err := q.QueryRow(query, args...).Scan(
		&m.ChannelID, &m.MessageID, &m.GuildID, &m.AuthorID, &createdAt, &editedAt,
		&m.Content, &m.CleanContent, &m.Type, &pinned, &m.PinTargetID, &mentions,
		&m.ReferenceID, &hasPoll, &attachs, &embeds, &reactions, &m.Stars, &editLogs,
		&deleted, &m.SnipedID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}

	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	if editedAt.Valid {
		t := time.UnixMilli(editedAt.Int64).UTC()
		m.EditedAt = &t
	}
	m.Pinned = pinned != 0
	m.HasPoll = hasPoll != 0
	m.Deleted = deleted != 0

	if err := unmarshalColumn(mentions, &m.Mentions); err != nil {
		return nil, fmt.Errorf("failed to decode mentions: %w", err)
	}
	if err := unmarshalColumn(attachs, &m.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	var embedList []*discordgo.MessageEmbed
	if err := unmarshalColumn(embeds, &embedList); err != nil {
		return nil, fmt.Errorf("failed to decode embeds: %w", err)
	}
	m.Embeds = embedList
	if err := unmarshalColumn(reactions, &m.Reactions); err != nil {
		return nil, fmt.Errorf("failed to decode reactions: %w", err)
	}
	if err := unmarshalColumn(editLogs, &m.Logs); err != nil {
		return nil, fmt.Errorf("failed to decode edit logs: %w", err)
	}
	return &m, nil
}

// marshalColumn encodes a slice column as JSON, with the empty string
// standing in for "no value".
func marshalColumn(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshalling column value: %v", err)
		return ""
	}
	s := string(data)
	if s == "null" || s == "[]" {
		return ""
	}
	return s
}

func unmarshalColumn(raw string, out any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
