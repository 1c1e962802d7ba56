// Package sqlite stores character state in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/ethos/internal/adapters/repository"
	"github.com/okian/ethos/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/ethos/internal/domain/trait"
	"github.com/okian/ethos/pkg/metrics"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for character state.
type Store struct {
	sqlDB   *sql.DB
	metrics *metrics.Manager
}

var _ repository.Store = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithMetrics records store latency and failures on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path, creating it and applying migrations when
// needed.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{sqlDB: sqlDB}
	for _, opt := range opts {
		opt(s)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads the state of characterID.
func (s *Store) Get(ctx context.Context, characterID string) (st repository.CharacterState, err error) {
	defer s.observe("get", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return repository.CharacterState{}, err
	}

	var baselineJSON, currentJSON string
	var updatedAt int64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT baseline_json, current_json, updated_at FROM character_state WHERE character_id = ?`,
		characterID,
	)
	if err := row.Scan(&baselineJSON, &currentJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.CharacterState{}, repository.ErrNotFound
		}
		return repository.CharacterState{}, fmt.Errorf("get character state: %w", err)
	}

	st = repository.CharacterState{CharacterID: characterID, UpdatedAt: fromMillis(updatedAt)}
	if st.Baseline, err = decodeSnapshot(baselineJSON); err != nil {
		return repository.CharacterState{}, fmt.Errorf("decode baseline: %w", err)
	}
	if st.Current, err = decodeSnapshot(currentJSON); err != nil {
		return repository.CharacterState{}, fmt.Errorf("decode current: %w", err)
	}
	return st, nil
}

// Put upserts state.
func (s *Store) Put(ctx context.Context, state repository.CharacterState) (err error) { //nolint:gocritic // hugeParam: mirrors repository.Store
	defer s.observe("put", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(state.CharacterID) == "" {
		return repository.ErrEmptyCharacterID
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}

	baselineJSON, err := encodeSnapshot(state.Baseline)
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	currentJSON, err := encodeSnapshot(state.Current)
	if err != nil {
		return fmt.Errorf("encode current: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO character_state (character_id, baseline_json, current_json, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(character_id) DO UPDATE SET
    baseline_json = excluded.baseline_json,
    current_json = excluded.current_json,
    updated_at = excluded.updated_at`,
		state.CharacterID, baselineJSON, currentJSON, toMillis(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put character state: %w", err)
	}
	return nil
}

// Delete removes characterID.
func (s *Store) Delete(ctx context.Context, characterID string) (err error) {
	defer s.observe("delete", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM character_state WHERE character_id = ?`, characterID)
	if err != nil {
		return fmt.Errorf("delete character state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete character state: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Count returns the number of stored characters.
func (s *Store) Count(ctx context.Context) (n int, err error) {
	defer s.observe("count", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM character_state`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count character state: %w", err)
	}
	return n, nil
}

func (s *Store) observe(op string, start time.Time, err *error) {
	var e error
	if err != nil && *err != nil && !errors.Is(*err, repository.ErrNotFound) {
		e = *err
	}
	s.metrics.RecordStore(op, float64(time.Since(start).Microseconds())/1000, e)
}

func encodeSnapshot(s trait.Snapshot) (string, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeSnapshot(raw string) (trait.Snapshot, error) {
	out := trait.Snapshot{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
