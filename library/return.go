package library

import (
	"context"
	"database/sql"
)

// Return closes the open record for (userID, bookID) and puts the copy back
// on the shelf, atomically. Returning something that is not held yields
// ErrNotFound and changes nothing, so a repeated return is harmless.
func (d *Database) Return(ctx context.Context, userID, bookID int64) error {
	return d.withTx(ctx, "return", func(tx *sql.Tx) error {
		return returnTx(ctx, tx, userID, bookID)
	})
}

func returnTx(ctx context.Context, tx *sql.Tx, userID, bookID int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM borrow_records WHERE user_id=? AND book_id=?`, userID, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("user %d has no open borrow of book %d", userID, bookID)
	}

	res, err = tx.ExecContext(ctx, `UPDATE books SET quantity = quantity + 1 WHERE id=?`, bookID)
	if err != nil {
		return err
	}
	if n, err = res.RowsAffected(); err != nil {
		return err
	}
	if n != 1 {
		// Unreachable while the foreign key holds; abort rather than lose a copy.
		return notFound("book %d does not exist", bookID)
	}
	return nil
}

// DeleteBorrowRecord is the administrative removal of a record. It behaves
// as a return by the record's holder: the copy goes back on the shelf.
func (d *Database) DeleteBorrowRecord(ctx context.Context, recordID int64) error {
	return d.withTx(ctx, "delete borrow record", func(tx *sql.Tx) error {
		var userID, bookID int64
		err := tx.QueryRowContext(ctx, `SELECT user_id, book_id FROM borrow_records WHERE id=?`, recordID).Scan(&userID, &bookID)
		if err == sql.ErrNoRows {
			return notFound("borrow record %d does not exist", recordID)
		}
		if err != nil {
			return err
		}
		return returnTx(ctx, tx, userID, bookID)
	})
}
