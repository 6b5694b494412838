package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Options configures the ledger store.
type Options struct {
	Path        string
	BusyTimeout time.Duration
	// MaxRetries bounds automatic retries of a write transaction that hit
	// SQLITE_BUSY or SQLITE_LOCKED. Zero means no retry.
	MaxRetries int
	Logger     *slog.Logger
}

const (
	defaultBusyTimeout = 5 * time.Second
	retryBackoff       = 50 * time.Millisecond
)

// Database is the ledger store. Writes go through a single-connection pool
// that starts every transaction with BEGIN IMMEDIATE, so the check-then-mutate
// sequence of a borrow, return or guarded delete holds the write lock from its
// first read to its commit. Reads use a separate query-only pool.
type Database struct {
	db     *sql.DB
	readDB *sql.DB
	logger *slog.Logger

	maxRetries int

	insertBookStmt *sql.Stmt
	insertUserStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database described by opts,
// applies schema migrations, and prepares common statements.
func NewDatabase(ctx context.Context, opts Options) (*Database, error) {
	if opts.Path == "" {
		return nil, validation("database path is required")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	busy := opts.BusyTimeout.Milliseconds()
	writeDSN := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate", opts.Path, busy)
	db, err := sql.Open("sqlite3", writeDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has one writer; keep the pool at one connection so writers queue
	// in-process instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	readDSN := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_query_only=1", opts.Path, busy)
	readDB, err := sql.Open("sqlite3", readDSN)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetConnMaxLifetime(time.Hour)

	database := &Database{
		db:         db,
		readDB:     readDB,
		logger:     opts.Logger,
		maxRetries: opts.MaxRetries,
	}
	if err := database.prepareStatements(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes both pools.
func (d *Database) Close() error {
	if d.insertBookStmt != nil {
		d.insertBookStmt.Close()
	}
	if d.insertUserStmt != nil {
		d.insertUserStmt.Close()
	}
	return errors.Join(d.readDB.Close(), d.db.Close())
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return fmt.Errorf("create meta: %w", err)
	}

	var current int
	_ = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS admins (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
            image_filename TEXT
        );`,
		// One open record per (user, book); rows are deleted on return.
		`CREATE TABLE IF NOT EXISTS borrow_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
            book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE RESTRICT,
            borrowed_at TEXT NOT NULL,
            UNIQUE(user_id, book_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_records_book ON borrow_records(book_id);`,
		`CREATE VIEW IF NOT EXISTS available_books_per_user_view AS
            SELECT u.id AS user_id, b.id AS book_id, b.title, b.quantity, b.image_filename
            FROM users u CROSS JOIN books b
            WHERE b.quantity > 0
              AND NOT EXISTS (
                SELECT 1 FROM borrow_records br WHERE br.user_id = u.id AND br.book_id = b.id
              );`,
		`CREATE VIEW IF NOT EXISTS user_borrowed_books_view AS
            SELECT br.user_id, b.id AS book_id, b.title, b.quantity, b.image_filename, br.borrowed_at
            FROM borrow_records br JOIN books b ON b.id = br.book_id;`,
		`CREATE VIEW IF NOT EXISTS borrow_record_view AS
            SELECT br.id, br.user_id, u.username, br.book_id, b.title, br.borrowed_at
            FROM borrow_records br
            JOIN users u ON u.id = br.user_id
            JOIN books b ON b.id = br.book_id;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements(ctx context.Context) error {
	var err error
	if d.insertBookStmt, err = d.db.PrepareContext(ctx, `INSERT INTO books(title,quantity,image_filename) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.insertUserStmt, err = d.db.PrepareContext(ctx, `INSERT INTO users(username,password_hash) VALUES(?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// withTx runs fn inside one write transaction. Any error rolls the whole
// transaction back. Lock contention from another process is retried up to
// maxRetries times before ErrTransientConflict is returned; unexpected driver
// errors become ErrStorageFailure. Ledger errors returned by fn pass through.
func (d *Database) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Warn("retrying transaction", "op", op, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return storageFailure(op, ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		err = d.runTx(ctx, fn)
		if err == nil || !isBusy(err) {
			break
		}
	}
	return classify(op, err)
}

func (d *Database) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// withSnapshot runs fn inside a read transaction on the reader pool. In WAL
// mode every statement in it sees the same database snapshot.
func (d *Database) withSnapshot(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := d.readDB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return classify(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(op, err)
	}
	return classify(op, tx.Commit())
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ledgerErr *Error
	if errors.As(err, &ledgerErr) {
		return err
	}
	if isBusy(err) {
		return &Error{Code: CodeTransientConflict, Message: op, cause: err}
	}
	return storageFailure(op, err)
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var (
		b     Book
		image sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Quantity, &image); err != nil {
		return nil, err
	}
	b.ImageFilename = image.String
	return &b, nil
}

func collectBooks(rows *sql.Rows) ([]*Book, error) {
	defer rows.Close()

	books := []*Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// bookExists and userExists are used inside transactions as preconditions.
func bookExists(ctx context.Context, tx *sql.Tx, bookID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id=?)`, bookID).Scan(&exists)
	return exists, err
}

func userExists(ctx context.Context, tx *sql.Tx, userID int64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, userID).Scan(&exists)
	return exists, err
}
