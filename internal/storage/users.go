package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/episthema/vpnbot/internal/logger"
	"log/slog"
)

// registrationLockKey serializes the allocate-and-insert sequence across
// concurrent registrations via a transaction-scoped advisory lock. The
// UNIQUE constraint on internal_id remains as a backstop.
const registrationLockKey int64 = 0x76706e626f74 // "vpnbot"

// LookupInternalID returns the identifier assigned to a chat, or ok=false
// when the chat has never registered.
func (s *Store) LookupInternalID(ctx context.Context, chatID int64) (string, bool, error) {
	var id string
	err := s.db.GetContext(ctx, &id,
		`SELECT internal_id FROM users WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "lookup failed",
			slog.String("event", "users.lookup"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return "", false, fmt.Errorf("lookup internal id: %w", err)
	}
	return id, true, nil
}

// Register allocates a fresh identifier and inserts the user in one
// transaction, returning the identifier together with the current
// configuration text. Re-registering an existing chat short-circuits to the
// stored identifier; no duplicate row is ever created.
func (s *Store) Register(ctx context.Context, chatID int64, username string) (string, string, error) {
	start := time.Now()
	if username == "" {
		username = UsernameSentinel
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("register: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, registrationLockKey); err != nil {
		return "", "", fmt.Errorf("register: acquire lock: %w", err)
	}

	var existing string
	err = tx.GetContext(ctx, &existing,
		`SELECT internal_id FROM users WHERE chat_id = $1`, chatID)
	switch {
	case err == nil:
		var cfg string
		if cfgErr := tx.GetContext(ctx, &cfg,
			`SELECT config_text FROM vpn_config WHERE id = 1`); cfgErr != nil {
			if errors.Is(cfgErr, sql.ErrNoRows) {
				return "", "", ErrConfigMissing
			}
			return "", "", fmt.Errorf("register: read config: %w", cfgErr)
		}
		return existing, cfg, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", "", fmt.Errorf("register: lookup: %w", err)
	}

	internalID, err := s.gen.Next(func(candidate string) (bool, error) {
		var used bool
		if err := tx.GetContext(ctx, &used,
			`SELECT EXISTS (SELECT 1 FROM users WHERE internal_id = $1)`, candidate); err != nil {
			return false, err
		}
		return used, nil
	})
	if err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "id allocation failed",
			slog.String("event", "users.register"),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return "", "", fmt.Errorf("register: allocate id: %w", err)
	}

	var cfg string
	if err := tx.GetContext(ctx, &cfg,
		`SELECT config_text FROM vpn_config WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrConfigMissing
		}
		return "", "", fmt.Errorf("register: read config: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (chat_id, username, internal_id, registered_at)
		 VALUES ($1, $2, $3, now())`,
		chatID, username, internalID,
	); err != nil {
		return "", "", fmt.Errorf("register: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("register: commit: %w", err)
	}

	logger.SVCUsers.LogAttrs(ctx, slog.LevelInfo, "user registered",
		slog.String("event", "users.register"),
		slog.Int64("chat_id", chatID),
		slog.String("vpn_id", internalID),
		slog.String("username", logger.SanitizeLimit(username, 64)),
		slog.Duration("duration", logger.Took(start)),
	)
	return internalID, cfg, nil
}

// Stats counts registrations over the trailing windows from now.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			count(*)                                                             AS total,
			count(*) FILTER (WHERE registered_at >= now() - interval '24 hours') AS last_24h,
			count(*) FILTER (WHERE registered_at >= now() - interval '3 days')   AS last_3d,
			count(*) FILTER (WHERE registered_at >= now() - interval '7 days')   AS last_7d,
			count(*) FILTER (WHERE registered_at >= now() - interval '30 days')  AS last_30d
		FROM users`)
	if err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "stats failed",
			slog.String("event", "users.stats"),
			slog.String("err", err.Error()),
		)
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// AllChatIDs enumerates every registered chat identity.
func (s *Store) AllChatIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids,
		`SELECT chat_id FROM users ORDER BY registered_at`); err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "chat id enumeration failed",
			slog.String("event", "users.all_ids"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("all chat ids: %w", err)
	}
	return ids, nil
}

// AllUsers returns full user records ordered by registration time.
func (s *Store) AllUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.SelectContext(ctx, &users,
		`SELECT chat_id, username, internal_id, registered_at
		 FROM users ORDER BY registered_at`); err != nil {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelError, "user enumeration failed",
			slog.String("event", "users.all"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("all users: %w", err)
	}
	return users, nil
}
