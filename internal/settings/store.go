// Package settings reads per-network credentials from the shared settings table.
package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryIntegrations is the settings category holding network credentials.
const CategoryIntegrations = "integrations"

// ErrNotFound is returned when no setting exists for a key.
var ErrNotFound = errors.New("setting not found")

// Reader is the read-only view of the settings store.
type Reader interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

type Store struct {
	pool     *pgxpool.Pool
	category string
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, category: CategoryIntegrations}
}

var _ Reader = (*Store)(nil)

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM settings WHERE category = $1 AND key = $2
	`, s.category, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Map is an in-memory Reader keyed like the settings table.
type Map map[string]string

func (m Map) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
