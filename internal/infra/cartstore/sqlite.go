// Package cartstore はカートのスナップショットを端末内の SQLite に保存する。
package cartstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tableorder/internal/cart"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS cart_snapshots (
	device_id  TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

type DB struct {
	db *sqlx.DB
}

// SQLite ファイルを開く（なければ作る）。テストでは ":memory:"
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cart db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cart_snapshots: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// 端末1台分の cart.Store
func (d *DB) ForDevice(deviceID string) *Store {
	return &Store{db: d.db, deviceID: deviceID}
}

type Store struct {
	db       *sqlx.DB
	deviceID string
}

type snapshotRow struct {
	Payload   string `db:"payload"`
	UpdatedAt string `db:"updated_at"`
}

func (s *Store) Load(ctx context.Context) (cart.Cart, bool, error) {
	var row snapshotRow
	const q = `SELECT payload, updated_at FROM cart_snapshots WHERE device_id = ?`
	err := s.db.GetContext(ctx, &row, q, s.deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.Cart{}, false, nil
	}
	if err != nil {
		return cart.Cart{}, false, fmt.Errorf("failed to load cart for %s: %w", s.deviceID, err)
	}

	var c cart.Cart
	if err := json.Unmarshal([]byte(row.Payload), &c); err != nil {
		return cart.Cart{}, false, fmt.Errorf("corrupt cart snapshot for %s: %w", s.deviceID, err)
	}
	return c, true, nil
}

func (s *Store) Save(ctx context.Context, c cart.Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO cart_snapshots (device_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, q, s.deviceID, string(payload), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save cart for %s: %w", s.deviceID, err)
	}
	return nil
}
