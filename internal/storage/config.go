package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/episthema/vpnbot/internal/logger"
	"log/slog"
)

// Config reads the configuration singleton.
func (s *Store) Config(ctx context.Context) (string, error) {
	var text string
	err := s.db.GetContext(ctx, &text,
		`SELECT config_text FROM vpn_config WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrConfigMissing
	}
	if err != nil {
		logger.SVCConfig.LogAttrs(ctx, slog.LevelError, "config read failed",
			slog.String("event", "config.get"),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("get config: %w", err)
	}
	return text, nil
}

// SetConfig replaces the configuration text in full. There is no partial
// update; the previous text is discarded entirely.
func (s *Store) SetConfig(ctx context.Context, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vpn_config (id, config_text) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET config_text = EXCLUDED.config_text`,
		text,
	)
	if err != nil {
		logger.SVCConfig.LogAttrs(ctx, slog.LevelError, "config replace failed",
			slog.String("event", "config.set"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("set config: %w", err)
	}
	logger.SVCConfig.LogAttrs(ctx, slog.LevelInfo, "config replaced",
		slog.String("event", "config.set"),
		slog.Int("count", len(text)),
	)
	return nil
}
