package library

import (
	"context"
	"database/sql"
)

const (
	availableQuery = `SELECT book_id, title, quantity, image_filename
        FROM available_books_per_user_view WHERE user_id=? ORDER BY book_id`
	heldQuery = `SELECT book_id, title, quantity, image_filename
        FROM user_borrowed_books_view WHERE user_id=? ORDER BY borrowed_at, book_id`
)

// AvailableToUser lists the books userID could borrow right now: in stock and
// not already held by them.
func (d *Database) AvailableToUser(ctx context.Context, userID int64) ([]*Book, error) {
	shelf, err := d.ShelfFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return shelf.Available, nil
}

// HeldByUser lists the books userID currently has on loan.
func (d *Database) HeldByUser(ctx context.Context, userID int64) ([]*Book, error) {
	shelf, err := d.ShelfFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return shelf.Held, nil
}

// ShelfFor reads both projections for userID from a single snapshot, so a
// book never shows up as both available and held.
func (d *Database) ShelfFor(ctx context.Context, userID int64) (*Shelf, error) {
	shelf := &Shelf{UserID: userID}
	err := d.withSnapshot(ctx, "shelf", func(tx *sql.Tx) error {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user %d does not exist", userID)
		}

		if shelf.Available, err = queryBooks(ctx, tx, availableQuery, userID); err != nil {
			return err
		}
		shelf.Held, err = queryBooks(ctx, tx, heldQuery, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shelf, nil
}

// StockOf reports shelf and loan counts for a book from one snapshot.
func (d *Database) StockOf(ctx context.Context, bookID int64) (*Stock, error) {
	st := &Stock{BookID: bookID}
	err := d.withSnapshot(ctx, "stock", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM books WHERE id=?`, bookID).Scan(&st.Available)
		if err == sql.ErrNoRows {
			return notFound("book %d does not exist", bookID)
		}
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrow_records WHERE book_id=?`, bookID).Scan(&st.OnLoan)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func queryBooks(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]*Book, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}
