package endpoint

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteSource is the optional persistent endpoint/sorcery backing store.
// Real deployments may configure endpoints from a database instead of
// (or in addition to) the in-memory Store; SQLiteSource loads rows into
// a Store snapshot at startup and on demand, over a single write
// connection.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLiteSource opens (creating if absent) the sqlite database at path
// and ensures the endpoints/inbound_auths schema exists.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening endpoint database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging endpoint database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS endpoints (
			id            TEXT PRIMARY KEY,
			requires_auth INTEGER NOT NULL DEFAULT 1,
			address       TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS inbound_auths (
			endpoint_id TEXT NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
			realm       TEXT NOT NULL,
			username    TEXT NOT NULL,
			password    TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating endpoint schema: %w", err)
	}

	return &SQLiteSource{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// LoadAll reads every configured endpoint and its inbound auths into st,
// replacing whatever that ID previously held.
func (s *SQLiteSource) LoadAll(ctx context.Context, st *Store) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, requires_auth, address FROM endpoints`)
	if err != nil {
		return fmt.Errorf("querying endpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	var requires []bool
	var addresses []string
	for rows.Next() {
		var id, address string
		var req bool
		if err := rows.Scan(&id, &req, &address); err != nil {
			return fmt.Errorf("scanning endpoint row: %w", err)
		}
		ids = append(ids, id)
		requires = append(requires, req)
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, id := range ids {
		auths, err := s.loadAuths(ctx, id)
		if err != nil {
			return err
		}
		ep := New(id, requires[i], auths)
		ep.Address = addresses[i]
		st.Put(ep)
	}
	return nil
}

func (s *SQLiteSource) loadAuths(ctx context.Context, endpointID string) ([]*AuthConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT realm, username, password FROM inbound_auths WHERE endpoint_id = ?`, endpointID)
	if err != nil {
		return nil, fmt.Errorf("querying inbound auths for %q: %w", endpointID, err)
	}
	defer rows.Close()

	var auths []*AuthConfig
	for rows.Next() {
		a := &AuthConfig{}
		if err := rows.Scan(&a.Realm, &a.Username, &a.Password); err != nil {
			return nil, fmt.Errorf("scanning inbound auth row: %w", err)
		}
		auths = append(auths, a)
	}
	return auths, rows.Err()
}

// Put persists (or replaces) one endpoint and its inbound auths.
func (s *SQLiteSource) Put(ctx context.Context, e *Endpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO endpoints (id, requires_auth, address) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET requires_auth = excluded.requires_auth, address = excluded.address`,
		e.ID, e.RequiresAuthentication(), e.Address); err != nil {
		return fmt.Errorf("upserting endpoint %q: %w", e.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inbound_auths WHERE endpoint_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clearing inbound auths for %q: %w", e.ID, err)
	}
	for _, a := range e.InboundAuths() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inbound_auths (endpoint_id, realm, username, password) VALUES (?, ?, ?, ?)`,
			e.ID, a.Realm, a.Username, a.Password); err != nil {
			return fmt.Errorf("inserting inbound auth for %q: %w", e.ID, err)
		}
	}

	return tx.Commit()
}
