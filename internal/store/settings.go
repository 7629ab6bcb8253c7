package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Reserved setting keys used by the command router.
const (
	SettingPassword   = "password"
	SettingAutomation = "automation"
)

// SetSetting stores a key/value pair, replacing any existing value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	const query = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the value for a key, or ErrNotFound if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM settings WHERE key = ?`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("getting setting %s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("getting setting %s: %w", key, err)
	}
	return value, nil
}
