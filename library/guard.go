package library

import (
	"context"
	"database/sql"
)

// DeleteBook removes a book unless open borrow records reference it, in which
// case ErrReferentialConflict is returned and nothing changes. The check and
// the delete share one write transaction, so no borrow can slip in between.
func (d *Database) DeleteBook(ctx context.Context, bookID int64) error {
	return d.withTx(ctx, "delete book", func(tx *sql.Tx) error {
		exists, err := bookExists(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("book %d does not exist", bookID)
		}

		open, err := countOpen(ctx, tx, `SELECT COUNT(*) FROM borrow_records WHERE book_id=?`, bookID)
		if err != nil {
			return err
		}
		if open > 0 {
			return conflict(open, "book %d still has %d open borrow record(s)", bookID, open)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM books WHERE id=?`, bookID)
		return err
	})
}

// DeleteUser removes a user unless they still hold books.
func (d *Database) DeleteUser(ctx context.Context, userID int64) error {
	return d.withTx(ctx, "delete user", func(tx *sql.Tx) error {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user %d does not exist", userID)
		}

		open, err := countOpen(ctx, tx, `SELECT COUNT(*) FROM borrow_records WHERE user_id=?`, userID)
		if err != nil {
			return err
		}
		if open > 0 {
			return conflict(open, "user %d still holds %d book(s)", userID, open)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, userID)
		return err
	})
}

func countOpen(ctx context.Context, tx *sql.Tx, query string, id int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, query, id).Scan(&n)
	return n, err
}

func conflict(open int, format string, args ...any) *Error {
	e := newError(CodeReferentialConflict, format, args...)
	e.Details = map[string]int{"open_records": open}
	return e
}
