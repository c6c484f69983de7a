package txindex

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("transaction not found")

// Transaction statuses as stored in the index.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Record is one indexed transaction. Payload holds the canonical signing
// bytes so clients can re-verify what was executed.
type Record struct {
	Hash      string `json:"hash"`
	Height    uint64 `json:"height"` // 0 while pending
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Payload   []byte `json:"payload"`
	Result    string `json:"result"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS txs (
	hash       TEXT PRIMARY KEY,
	height     INTEGER NOT NULL DEFAULT 0,
	type       TEXT NOT NULL,
	sender     TEXT NOT NULL,
	payload    BLOB NOT NULL,
	result     TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS txs_height ON txs(height);
CREATE INDEX IF NOT EXISTS txs_sender ON txs(sender);
`

// Index is a sqlite-backed transaction index. A single write connection
// serializes mutations; sqlite handles concurrent readers.
type Index struct {
	db *sql.DB
}

// Open creates or opens the index database. Use ":memory:" for an
// ephemeral index.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open txindex at %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init txindex schema: %w", err)
	}
	return &Index{db: db}, nil
}

// InsertPending records an accepted-but-unconfirmed transaction.
func (i *Index) InsertPending(rec Record) error {
	_, err := i.db.Exec(
		`INSERT INTO txs (hash, height, type, sender, payload, result, status, created_at)
		 VALUES (?, 0, ?, ?, ?, ?, ?, ?)`,
		rec.Hash, rec.Type, rec.Sender, rec.Payload, rec.Result, StatusPending, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("index tx %s: %w", rec.Hash, err)
	}
	return nil
}

// ConfirmBlock marks the given hashes confirmed at height, atomically.
func (i *Index) ConfirmBlock(height uint64, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	dbtx, err := i.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := dbtx.Prepare(`UPDATE txs SET height = ?, status = ? WHERE hash = ?`)
	if err != nil {
		dbtx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, h := range hashes {
		if _, err := stmt.Exec(height, StatusConfirmed, h); err != nil {
			dbtx.Rollback()
			return fmt.Errorf("confirm tx %s: %w", h, err)
		}
	}
	return dbtx.Commit()
}

// Get looks up one transaction by hash.
func (i *Index) Get(hash string) (Record, error) {
	var rec Record
	err := i.db.QueryRow(
		`SELECT hash, height, type, sender, payload, result, status, created_at
		 FROM txs WHERE hash = ?`, hash,
	).Scan(&rec.Hash, &rec.Height, &rec.Type, &rec.Sender, &rec.Payload, &rec.Result, &rec.Status, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// BySender returns a sender's transactions, newest first.
func (i *Index) BySender(sender string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := i.db.Query(
		`SELECT hash, height, type, sender, payload, result, status, created_at
		 FROM txs WHERE sender = ? ORDER BY created_at DESC, hash LIMIT ?`, sender, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByHeight returns all transactions confirmed in one block.
func (i *Index) ByHeight(height uint64) ([]Record, error) {
	rows, err := i.db.Query(
		`SELECT hash, height, type, sender, payload, result, status, created_at
		 FROM txs WHERE height = ? AND status = ? ORDER BY created_at, hash`, height, StatusConfirmed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Hash, &rec.Height, &rec.Type, &rec.Sender, &rec.Payload, &rec.Result, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (i *Index) Close() error {
	return i.db.Close()
}
