package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
//
// yolo_results mirrors the upstream ingestion table; ts and date are
// denormalized from the payload so range queries can use an index.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS yolo_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image TEXT NOT NULL DEFAULT '',
		device TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		ts TEXT NOT NULL DEFAULT '',
		yolo_result TEXT NOT NULL,
		shedding_score REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS active_reports (
		"SN" TEXT NOT NULL,
		"DATE" TEXT NOT NULL,
		"TIME" TEXT NOT NULL,
		active REAL NOT NULL DEFAULT 0,
		PRIMARY KEY ("SN", "DATE", "TIME")
	);

	CREATE INDEX IF NOT EXISTS idx_yolo_results_device_ts ON yolo_results(device, ts);
	CREATE INDEX IF NOT EXISTS idx_yolo_results_device_date ON yolo_results(device, date);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	return db.addColumn("yolo_results", "shedding_score", "REAL")
}

// addColumn adds a column to databases created before it existed.
func (db *DB) addColumn(table, column, decl string) error {
	rows, err := db.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
