package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/pkg/metrics"
)

const driverSQLite = "sqlite"

//go:embed schema.sql
var schema string

// SQLiteStore persists snapshots and leadership records in a SQLite file.
// Snapshots are stored as JSON payloads keyed by (player_tag, snapshot_date).
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := fmt.Sprintf("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = %d;", s.busyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, pragmas); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.db = db
	return s, nil
}

// observe records latency and failures of one store operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryLatency(driverSQLite, op, msSince(start))
	if err != nil {
		metrics.RecordRepositoryError(driverSQLite, op)
	}
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) (inserted bool, err error) {
	defer func(start time.Time) { observe("save_snapshot", start, err) }(time.Now())

	key, err := snapshotKey(snap)
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("encoding snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (player_tag, snapshot_date, player_name, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_tag, snapshot_date) DO NOTHING
	`, snap.PlayerTag, key, snap.PlayerName, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("inserting snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting snapshot: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Snapshots(ctx context.Context, tag string) (out []model.Snapshot, err error) {
	defer func(start time.Time) { observe("snapshots", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM snapshots WHERE player_tag = ? ORDER BY snapshot_date
	`, tag)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	out, err = scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", tag, ErrNotFound)
	}
	return out, nil
}

func (s *SQLiteStore) Latest(ctx context.Context) (out []model.Snapshot, err error) {
	defer func(start time.Time) { observe("latest", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.payload FROM snapshots s
		WHERE s.snapshot_date = (
			SELECT MAX(snapshot_date) FROM snapshots WHERE player_tag = s.player_tag
		)
		ORDER BY s.player_tag
	`)
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshots: %w", err)
	}
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]model.Snapshot, error) {
	defer rows.Close()
	var out []model.Snapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		var snap model.Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// addRecord stores one leadership record as JSON.
func (s *SQLiteStore) addRecord(ctx context.Context, kind, id, tag, at string, v any) (err error) {
	defer func(start time.Time) { observe("add_"+kind, start, err) }(time.Now())

	if id == "" || tag == "" {
		return fmt.Errorf("%s id and player tag: %w", kind, ErrInvalidRecord)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leadership_records (id, player_tag, kind, occurred_at, payload, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM leadership_records))
	`, id, tag, kind, at, string(payload))
	if err != nil {
		return fmt.Errorf("inserting %s: %w", kind, err)
	}
	return nil
}

func (s *SQLiteStore) AddNote(ctx context.Context, n model.Note) error {
	return s.addRecord(ctx, kindNote, n.ID, n.PlayerTag, n.CreatedAt, n)
}

func (s *SQLiteStore) AddWarning(ctx context.Context, w model.Warning) error {
	return s.addRecord(ctx, kindWarning, w.ID, w.PlayerTag, w.CreatedAt, w)
}

func (s *SQLiteStore) AddMovement(ctx context.Context, m model.Movement) error {
	return s.addRecord(ctx, kindMovement, m.ID, m.PlayerTag, m.OccurredAt, m)
}

func (s *SQLiteStore) AddTenureAction(ctx context.Context, a model.TenureAction) error {
	return s.addRecord(ctx, kindTenure, a.ID, a.PlayerTag, a.OccurredAt, a)
}

func (s *SQLiteStore) AddJoinerEvent(ctx context.Context, j model.JoinerEvent) error {
	return s.addRecord(ctx, kindJoiner, j.ID, j.PlayerTag, j.DetectedAt, j)
}

// records decodes every record of kind for tag in insertion order.
func records[T any](ctx context.Context, db *sql.DB, kind, tag string) ([]T, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM leadership_records WHERE player_tag = ? AND kind = ? ORDER BY seq
	`, tag, kind)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Leadership(ctx context.Context, tag string) (recs model.LeadershipRecords, err error) {
	defer func(start time.Time) { observe("leadership", start, err) }(time.Now())

	if recs.Movements, err = records[model.Movement](ctx, s.db, kindMovement, tag); err != nil {
		return model.LeadershipRecords{}, err
	}
	if recs.TenureActions, err = records[model.TenureAction](ctx, s.db, kindTenure, tag); err != nil {
		return model.LeadershipRecords{}, err
	}
	if recs.Warnings, err = records[model.Warning](ctx, s.db, kindWarning, tag); err != nil {
		return model.LeadershipRecords{}, err
	}
	if recs.Notes, err = records[model.Note](ctx, s.db, kindNote, tag); err != nil {
		return model.LeadershipRecords{}, err
	}
	if recs.JoinerEvents, err = records[model.JoinerEvent](ctx, s.db, kindJoiner, tag); err != nil {
		return model.LeadershipRecords{}, err
	}
	return recs, nil
}

func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (n int, err error) {
	defer func(start time.Time) { observe("prune", start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_date < ?`,
		cutoff.UTC().Format(model.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return int(affected), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT player_tag) FROM snapshots`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("counting players: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Driver() string { return driverSQLite }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
