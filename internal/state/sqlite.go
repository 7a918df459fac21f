package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bakkerme/hkex-watch/internal/engine"
)

const (
	metaTrackingInitialized = "tracking_initialized"
	metaLastCheck           = "last_check"
)

// SQLiteStore keeps the engine state in a local SQLite database. Useful when
// the monitor shares a volume with other tooling that wants to query the
// observation history with SQL.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS seen_listings (
			id INTEGER PRIMARY KEY,
			first_seen TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS listing_documents (
			listing_id INTEGER NOT NULL,
			url TEXT NOT NULL,
			PRIMARY KEY (listing_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS monitor_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, ddl := range statements {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*engine.State, error) {
	state := engine.NewState()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM seen_listings")
	if err != nil {
		return engine.NewState(), fmt.Errorf("load seen listings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return engine.NewState(), fmt.Errorf("scan seen listing: %w", err)
		}
		state.SeenIDs[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return engine.NewState(), fmt.Errorf("load seen listings: %w", err)
	}

	docRows, err := s.db.QueryContext(ctx, "SELECT listing_id, url FROM listing_documents")
	if err != nil {
		return engine.NewState(), fmt.Errorf("load listing documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var id int64
		var url string
		if err := docRows.Scan(&id, &url); err != nil {
			return engine.NewState(), fmt.Errorf("scan listing document: %w", err)
		}
		refs, ok := state.Documents[id]
		if !ok {
			refs = make(map[string]struct{})
			state.Documents[id] = refs
		}
		refs[url] = struct{}{}
	}
	if err := docRows.Err(); err != nil {
		return engine.NewState(), fmt.Errorf("load listing documents: %w", err)
	}

	if value, err := s.meta(ctx, metaTrackingInitialized); err != nil {
		return engine.NewState(), err
	} else if value == "1" {
		state.Initialized = true
	}
	if value, err := s.meta(ctx, metaLastCheck); err != nil {
		return engine.NewState(), err
	} else if value != "" {
		if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
			state.LastCheck = ts
		}
	}
	return state, nil
}

// Save replaces the stored document index wholesale and unions the seen IDs,
// mirroring the engine's own per-cycle semantics, inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, state *engine.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	seenStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO seen_listings (id, first_seen) VALUES (?, ?) ON CONFLICT(id) DO NOTHING")
	if err != nil {
		return err
	}
	defer seenStmt.Close()
	for id := range state.SeenIDs {
		if _, err := seenStmt.ExecContext(ctx, id, now); err != nil {
			return fmt.Errorf("save seen listing %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM listing_documents"); err != nil {
		return fmt.Errorf("clear listing documents: %w", err)
	}
	docStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO listing_documents (listing_id, url) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer docStmt.Close()
	for id, refs := range state.Documents {
		for url := range refs {
			if _, err := docStmt.ExecContext(ctx, id, url); err != nil {
				return fmt.Errorf("save document for listing %d: %w", id, err)
			}
		}
	}

	initialized := "0"
	if state.Initialized {
		initialized = "1"
	}
	if err := setMeta(ctx, tx, metaTrackingInitialized, initialized); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaLastCheck, state.LastCheck.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM monitor_meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("load meta %s: %w", key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO monitor_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("save meta %s: %w", key, err)
	}
	return nil
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") {
		dsn = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexRune(dsn, '?'); idx >= 0 {
			dsn = dsn[:idx]
		}
	}
	if dsn == "" || dsn == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
