package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// LibraryManager is a thin façade over the Database that logs the outcome of
// every state change. Callers pass the acting identity explicitly; the
// manager performs no authorization of its own.
type LibraryManager struct {
	db     *Database
	logger *slog.Logger
}

// NewLibraryManager opens (or creates) the ledger at opts.Path.
func NewLibraryManager(ctx context.Context, opts Options) (*LibraryManager, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	db, err := NewDatabase(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{db: db, logger: opts.Logger}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// logOutcome records a mutation result. Business rejections are routine and
// logged at info; anything else is an error.
func (lm *LibraryManager) logOutcome(ctx context.Context, op string, err error, attrs ...any) {
	switch {
	case err == nil:
		lm.logger.InfoContext(ctx, op, attrs...)
	case IsRejection(err):
		lm.logger.InfoContext(ctx, op+" rejected", append(attrs, "code", string(CodeOf(err)), "reason", err.Error())...)
	default:
		lm.logger.ErrorContext(ctx, op+" failed", append(attrs, "error", err)...)
	}
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(ctx context.Context, userID, bookID int64) (*BorrowRecord, error) {
	rec, err := lm.db.Borrow(ctx, userID, bookID)
	lm.logOutcome(ctx, "borrow", err, "user_id", userID, "book_id", bookID)
	return rec, err
}

func (lm *LibraryManager) Return(ctx context.Context, userID, bookID int64) error {
	err := lm.db.Return(ctx, userID, bookID)
	lm.logOutcome(ctx, "return", err, "user_id", userID, "book_id", bookID)
	return err
}

func (lm *LibraryManager) AddBorrowRecord(ctx context.Context, userID, bookID int64) (*BorrowRecord, error) {
	rec, err := lm.db.AddBorrowRecord(ctx, userID, bookID)
	lm.logOutcome(ctx, "add borrow record", err, "user_id", userID, "book_id", bookID)
	return rec, err
}

func (lm *LibraryManager) DeleteBorrowRecord(ctx context.Context, recordID int64) error {
	err := lm.db.DeleteBorrowRecord(ctx, recordID)
	lm.logOutcome(ctx, "delete borrow record", err, "record_id", recordID)
	return err
}

func (lm *LibraryManager) ListBorrowRecords(ctx context.Context) ([]*BorrowRecordView, error) {
	return lm.db.ListBorrowRecords(ctx)
}

// ------------------ Availability ------------------

func (lm *LibraryManager) AvailableToUser(ctx context.Context, userID int64) ([]*Book, error) {
	return lm.db.AvailableToUser(ctx, userID)
}

func (lm *LibraryManager) HeldByUser(ctx context.Context, userID int64) ([]*Book, error) {
	return lm.db.HeldByUser(ctx, userID)
}

func (lm *LibraryManager) ShelfFor(ctx context.Context, userID int64) (*Shelf, error) {
	return lm.db.ShelfFor(ctx, userID)
}

func (lm *LibraryManager) StockOf(ctx context.Context, bookID int64) (*Stock, error) {
	return lm.db.StockOf(ctx, bookID)
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(ctx context.Context, title string, quantity int, image string) (int64, error) {
	id, err := lm.db.AddBook(ctx, title, quantity, image)
	lm.logOutcome(ctx, "add book", err, "book_id", id, "title", title, "quantity", quantity)
	return id, err
}

func (lm *LibraryManager) EditBook(ctx context.Context, bookID int64, title string, quantity *int, image string) (*Book, error) {
	b, err := lm.db.EditBook(ctx, bookID, title, quantity, image)
	attrs := []any{"book_id", bookID}
	if quantity != nil {
		attrs = append(attrs, "quantity", *quantity)
	}
	lm.logOutcome(ctx, "edit book", err, attrs...)
	return b, err
}

func (lm *LibraryManager) AdjustStock(ctx context.Context, bookID int64, delta int) (*Book, error) {
	b, err := lm.db.AdjustStock(ctx, bookID, delta)
	lm.logOutcome(ctx, "adjust stock", err, "book_id", bookID, "delta", delta)
	return b, err
}

func (lm *LibraryManager) DeleteBook(ctx context.Context, bookID int64) error {
	err := lm.db.DeleteBook(ctx, bookID)
	lm.logOutcome(ctx, "delete book", err, "book_id", bookID)
	return err
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LibraryManager) ListBooks(ctx context.Context) ([]*Book, error) {
	return lm.db.ListBooks(ctx)
}

func (lm *LibraryManager) FilterBooks(ctx context.Context, titleLike string, minQuantity int) ([]*Book, error) {
	return lm.db.FilterBooks(ctx, titleLike, minQuantity)
}

// ------------------ User helpers ------------------

func (lm *LibraryManager) LoginUser(ctx context.Context, username, password string) (*User, bool, error) {
	u, created, err := lm.db.LoginUser(ctx, username, password)
	if err == nil && created {
		lm.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "username", u.Username)
	}
	return u, created, err
}

func (lm *LibraryManager) AddUser(ctx context.Context, username, password string) (int64, error) {
	id, err := lm.db.AddUser(ctx, username, password)
	lm.logOutcome(ctx, "add user", err, "user_id", id, "username", username)
	return id, err
}

func (lm *LibraryManager) EditUser(ctx context.Context, userID int64, username, password string) error {
	err := lm.db.EditUser(ctx, userID, username, password)
	lm.logOutcome(ctx, "edit user", err, "user_id", userID, "password_reset", password != "")
	return err
}

func (lm *LibraryManager) DeleteUser(ctx context.Context, userID int64) error {
	err := lm.db.DeleteUser(ctx, userID)
	lm.logOutcome(ctx, "delete user", err, "user_id", userID)
	return err
}

func (lm *LibraryManager) GetUser(ctx context.Context, id int64) (*User, error) {
	return lm.db.GetUser(ctx, id)
}

func (lm *LibraryManager) ListUsers(ctx context.Context) ([]*User, error) {
	return lm.db.ListUsers(ctx)
}

// ------------------ Admin helpers ------------------

func (lm *LibraryManager) AddAdmin(ctx context.Context, username, password string) (int64, error) {
	id, err := lm.db.AddAdmin(ctx, username, password)
	lm.logOutcome(ctx, "add admin", err, "admin_id", id, "username", username)
	return id, err
}

func (lm *LibraryManager) LoginAdmin(ctx context.Context, username, password string) (*Admin, error) {
	return lm.db.LoginAdmin(ctx, username, password)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-5d %-40s %-8d %s", b.ID, truncate(b.Title, 40), b.Quantity, b.ImageFilename)
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
