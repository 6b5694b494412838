package library

import (
	"context"
	"database/sql"
	"time"
)

// Borrow lends one copy of bookID to userID.
//
// The whole sequence runs in one write transaction:
//   - the book and the user must exist (ErrNotFound)
//   - the user must not already hold the book (ErrDuplicateBorrow)
//   - at least one copy must be on the shelf (ErrOutOfStock)
//   - the quantity is decremented and the record inserted together
//
// A rejection leaves the store exactly as it was.
func (d *Database) Borrow(ctx context.Context, userID, bookID int64) (*BorrowRecord, error) {
	var rec *BorrowRecord
	err := d.withTx(ctx, "borrow", func(tx *sql.Tx) error {
		var err error
		rec, err = borrowTx(ctx, tx, userID, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func borrowTx(ctx context.Context, tx *sql.Tx, userID, bookID int64) (*BorrowRecord, error) {
	var quantity int
	err := tx.QueryRowContext(ctx, `SELECT quantity FROM books WHERE id=?`, bookID).Scan(&quantity)
	if err == sql.ErrNoRows {
		return nil, notFound("book %d does not exist", bookID)
	}
	if err != nil {
		return nil, err
	}

	exists, err := userExists(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("user %d does not exist", userID)
	}

	var held bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM borrow_records WHERE user_id=? AND book_id=?)`, userID, bookID).Scan(&held); err != nil {
		return nil, err
	}
	if held {
		return nil, newError(CodeDuplicateBorrow, "user %d already borrowed book %d, cannot borrow twice", userID, bookID)
	}

	if quantity <= 0 {
		return nil, newError(CodeOutOfStock, "book %d is out of stock", bookID)
	}

	// The guard in the WHERE clause keeps quantity non-negative even if the
	// read above were ever taken outside the write lock.
	res, err := tx.ExecContext(ctx, `UPDATE books SET quantity = quantity - 1 WHERE id=? AND quantity > 0`, bookID)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newError(CodeOutOfStock, "book %d is out of stock", bookID)
	}

	now := time.Now().UTC()
	res, err = tx.ExecContext(ctx, `INSERT INTO borrow_records(user_id,book_id,borrowed_at) VALUES(?,?,?)`, userID, bookID, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(CodeDuplicateBorrow, "user %d already borrowed book %d, cannot borrow twice", userID, bookID)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &BorrowRecord{ID: id, UserID: userID, BookID: bookID, BorrowedAt: now}, nil
}

// AddBorrowRecord is the administrative way to open a record. It performs
// exactly the same checks and mutations as Borrow.
func (d *Database) AddBorrowRecord(ctx context.Context, userID, bookID int64) (*BorrowRecord, error) {
	return d.Borrow(ctx, userID, bookID)
}
