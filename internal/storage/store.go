// Package storage is the durable side of the bot: user records and the
// shared configuration blob, backed by Postgres.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/episthema/vpnbot/internal/vpnid"
)

// DefaultConfigText seeds the configuration singleton on first startup.
const DefaultConfigText = "Default VPN configuration"

// UsernameSentinel is stored when a Telegram account has no username.
const UsernameSentinel = "NoUsername"

// ErrConfigMissing is returned when the configuration row is absent; callers
// treat it as a degraded-service condition, not as user error.
var ErrConfigMissing = errors.New("storage: configuration row missing")

// User is a registered bot user.
type User struct {
	ChatID       int64     `db:"chat_id"`
	Username     string    `db:"username"`
	InternalID   string    `db:"internal_id"`
	RegisteredAt time.Time `db:"registered_at"`
}

// Stats holds registration counts over trailing windows. Windows overlap;
// each smaller window is a subset of the next larger one.
type Stats struct {
	Total   int `db:"total"`
	Last24h int `db:"last_24h"`
	Last3d  int `db:"last_3d"`
	Last7d  int `db:"last_7d"`
	Last30d int `db:"last_30d"`
}

// Store executes all durable operations. Every method is a single atomic
// unit: one statement, or one transaction where multiple steps must not
// interleave (registration).
type Store struct {
	db  *sqlx.DB
	gen *vpnid.Generator
}

// New creates a Store using the provided identifier generator.
func New(db *sqlx.DB, gen *vpnid.Generator) *Store {
	return &Store{db: db, gen: gen}
}

// SeedDefaultConfig inserts the default configuration text if the singleton
// row does not exist yet. Idempotent.
func (s *Store) SeedDefaultConfig(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vpn_config (id, config_text) VALUES (1, $1)
		 ON CONFLICT (id) DO NOTHING`,
		DefaultConfigText,
	)
	return err
}
