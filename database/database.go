// Package database implements the durable document store behind the
// tracking ledger on SQLite: merged message projections, additive per-day
// stat counters and the flush heartbeat, all written through one
// transaction per flush.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// InitDB opens (creating if necessary) the tracker database at dbPath and
// ensures the schema exists.
func InitDB(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("Successfully connected to the tracker database at", dbPath)
	return db, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			channel_id    TEXT NOT NULL,
			message_id    TEXT NOT NULL,
			guild_id      TEXT NOT NULL DEFAULT '',
			author_id     TEXT NOT NULL DEFAULT '',
			created_at    INTEGER NOT NULL DEFAULT 0,
			edited_at     INTEGER,
			content       TEXT NOT NULL DEFAULT '',
			clean_content TEXT NOT NULL DEFAULT '',
			type          INTEGER NOT NULL DEFAULT 0,
			pinned        INTEGER NOT NULL DEFAULT 0,
			pin_target_id TEXT NOT NULL DEFAULT '',
			mentions      TEXT NOT NULL DEFAULT '',
			reference_id  TEXT NOT NULL DEFAULT '',
			has_poll      INTEGER NOT NULL DEFAULT 0,
			attachments   TEXT NOT NULL DEFAULT '',
			embeds        TEXT NOT NULL DEFAULT '',
			reactions     TEXT NOT NULL DEFAULT '',
			stars         INTEGER NOT NULL DEFAULT 0,
			logs          TEXT NOT NULL DEFAULT '',
			deleted       INTEGER NOT NULL DEFAULT 0,
			sniped_id     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (channel_id, message_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_deleted ON messages(channel_id, deleted);`,
		`CREATE TABLE IF NOT EXISTS stats (
			instance_id TEXT NOT NULL,
			game_id     TEXT NOT NULL,
			day         INTEGER NOT NULL,
			user_id     TEXT NOT NULL,
			messages    INTEGER NOT NULL DEFAULT 0,
			words       INTEGER NOT NULL DEFAULT 0,
			images      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (instance_id, game_id, day, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
