package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cloudx-io/opennegotiation/receipt"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens dsn and creates the schema if needed. ":memory:" gives
// a private in-memory database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS receipts (
			session_id TEXT PRIMARY KEY,
			party_id TEXT NOT NULL,
			accepted INTEGER NOT NULL,
			receipt BLOB NOT NULL,
			attestation BLOB,
			public_key TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_created ON receipts(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReceipt stores rec, replacing any earlier receipt of the same session.
func (s *SQLiteStore) SaveReceipt(ctx context.Context, rec receipt.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO receipts (session_id, party_id, accepted, receipt, attestation, public_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.PartyID, rec.Accepted, []byte(rec.Receipt), nullBytes(rec.Attestation),
		rec.PublicKeyPEM, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", rec.SessionID, err)
	}
	return nil
}

// GetReceipt retrieves the receipt of a session.
func (s *SQLiteStore) GetReceipt(ctx context.Context, sessionID string) (receipt.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, party_id, accepted, receipt, attestation, public_key, created_at
		 FROM receipts WHERE session_id = ?`, sessionID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return receipt.Record{}, fmt.Errorf("%w: %s", ErrReceiptNotFound, sessionID)
	}
	if err != nil {
		return receipt.Record{}, fmt.Errorf("failed to load receipt %s: %w", sessionID, err)
	}
	return rec, nil
}

// ListReceipts returns up to limit receipts, newest first.
func (s *SQLiteStore) ListReceipts(ctx context.Context, limit int) ([]receipt.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, party_id, accepted, receipt, attestation, public_key, created_at
		 FROM receipts ORDER BY created_at DESC, session_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var records []receipt.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (receipt.Record, error) {
	var (
		rec         receipt.Record
		signed      []byte
		attestation []byte
		createdAt   int64
	)
	err := sc.Scan(&rec.SessionID, &rec.PartyID, &rec.Accepted, &signed, &attestation, &rec.PublicKeyPEM, &createdAt)
	if err != nil {
		return receipt.Record{}, err
	}
	rec.Receipt = receipt.COSE(signed)
	if len(attestation) > 0 {
		rec.Attestation = receipt.COSE(attestation)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return rec, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
