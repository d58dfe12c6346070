// Package postgres is a ledger backend on PostgreSQL. Rows are never removed:
// a delete nulls the value and bumps the version, so a key's version is
// strictly increasing for its whole life.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propreg/internal/ledger"
	"propreg/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_state (
	key     TEXT PRIMARY KEY,
	value   BYTEA,
	version BIGINT NOT NULL
)`

// Store implements ledger.Backend.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the state table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger_state: %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, key string) (ledger.Versioned, error) {
	var (
		value   []byte
		version int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT value, version FROM ledger_state WHERE key = $1`, encodeKey(key),
	).Scan(&value, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Versioned{}, nil
	}
	if err != nil {
		return ledger.Versioned{}, fmt.Errorf("read ledger_state: %w", err)
	}
	return ledger.Versioned{Value: value, Version: uint64(version), Found: value != nil}, nil
}

func (s *Store) Apply(ctx context.Context, reads map[string]uint64, writes []ledger.Mutation) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Lock every touched row in one global order so concurrent commits
	// cannot deadlock each other.
	touched := make(map[string]struct{}, len(reads)+len(writes))
	for k := range reads {
		touched[k] = struct{}{}
	}
	for _, m := range writes {
		touched[m.Key] = struct{}{}
	}
	keys := make([]string, 0, len(touched))
	for k := range touched {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		// Absent rows cannot be locked; insert a placeholder at version 0 so
		// a racing insert of the same key blocks on the primary key instead.
		if _, err := tx.Exec(ctx,
			`INSERT INTO ledger_state (key, value, version) VALUES ($1, NULL, 0) ON CONFLICT (key) DO NOTHING`,
			encodeKey(k),
		); err != nil {
			return fmt.Errorf("reserve %q: %w", k, err)
		}
		var version int64
		if err := tx.QueryRow(ctx,
			`SELECT version FROM ledger_state WHERE key = $1 FOR UPDATE`, encodeKey(k),
		).Scan(&version); err != nil {
			return fmt.Errorf("lock %q: %w", k, err)
		}
		if want, ok := reads[k]; ok && uint64(version) != want {
			return sentinel.ErrConflict
		}
	}

	for _, m := range writes {
		var value []byte
		if m.Op == ledger.OpPut {
			value = m.Value
			if value == nil {
				value = []byte{}
			}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE ledger_state SET value = $2, version = version + 1 WHERE key = $1`,
			encodeKey(m.Key), value,
		); err != nil {
			return fmt.Errorf("write %q: %w", m.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// encodeKey maps U+0000, which TEXT columns reject, to U+0001. The registry
// rejects identifiers containing control characters, so the mapping is
// injective for every key it produces.
func encodeKey(key string) string {
	b := []byte(key)
	for i := range b {
		if b[i] == 0x00 {
			b[i] = 0x01
		}
	}
	return string(b)
}
