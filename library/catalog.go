package library

import (
	"context"
	"database/sql"
	"strings"
)

// AddBook inserts a title with quantity copies on the shelf.
func (d *Database) AddBook(ctx context.Context, title string, quantity int, image string) (int64, error) {
	title = normalizeName(title)
	if title == "" {
		return 0, validation("title cannot be empty")
	}
	if quantity < 0 {
		return 0, newError(CodeInvalidStock, "quantity %d cannot be negative", quantity)
	}

	var id int64
	err := d.withTx(ctx, "add book", func(tx *sql.Tx) error {
		res, err := tx.StmtContext(ctx, d.insertBookStmt).ExecContext(ctx, title, quantity, nullString(image))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// EditBook replaces a book's title and, when given, its shelf quantity and
// image. A nil quantity or empty image leaves the stored value alone, so a
// title edit never writes back a stale count. Setting the quantity is a stock
// adjustment: open borrow records are left alone.
func (d *Database) EditBook(ctx context.Context, bookID int64, title string, quantity *int, image string) (*Book, error) {
	title = normalizeName(title)
	if title == "" {
		return nil, validation("title cannot be empty")
	}
	var q sql.NullInt64
	if quantity != nil {
		if *quantity < 0 {
			return nil, newError(CodeInvalidStock, "quantity %d cannot be negative", *quantity)
		}
		q = sql.NullInt64{Int64: int64(*quantity), Valid: true}
	}

	var book *Book
	err := d.withTx(ctx, "edit book", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE books SET title=?, quantity=COALESCE(?, quantity), image_filename=COALESCE(?, image_filename) WHERE id=?`,
			title, q, nullString(image), bookID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return notFound("book %d does not exist", bookID)
		}
		book, err = scanBook(tx.QueryRowContext(ctx, `SELECT id,title,quantity,image_filename FROM books WHERE id=?`, bookID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// AdjustStock adds delta (which may be negative) to a book's shelf quantity.
// It never touches borrow records. A result below zero is rejected with
// ErrInvalidStock.
func (d *Database) AdjustStock(ctx context.Context, bookID int64, delta int) (*Book, error) {
	var book *Book
	err := d.withTx(ctx, "adjust stock", func(tx *sql.Tx) error {
		var quantity int
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM books WHERE id=?`, bookID).Scan(&quantity)
		if err == sql.ErrNoRows {
			return notFound("book %d does not exist", bookID)
		}
		if err != nil {
			return err
		}
		if quantity+delta < 0 {
			return newError(CodeInvalidStock, "book %d has %d on the shelf, cannot adjust by %d", bookID, quantity, delta)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE books SET quantity = quantity + ? WHERE id=?`, delta, bookID); err != nil {
			return err
		}
		book, err = scanBook(tx.QueryRowContext(ctx, `SELECT id,title,quantity,image_filename FROM books WHERE id=?`, bookID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetBook fetches a single book.
func (d *Database) GetBook(ctx context.Context, bookID int64) (*Book, error) {
	b, err := scanBook(d.readDB.QueryRowContext(ctx, `SELECT id,title,quantity,image_filename FROM books WHERE id=?`, bookID))
	if err == sql.ErrNoRows {
		return nil, notFound("book %d does not exist", bookID)
	}
	if err != nil {
		return nil, storageFailure("get book", err)
	}
	return b, nil
}

// ListBooks returns the whole catalogue ordered by id.
func (d *Database) ListBooks(ctx context.Context) ([]*Book, error) {
	rows, err := d.readDB.QueryContext(ctx, `SELECT id,title,quantity,image_filename FROM books ORDER BY id`)
	if err != nil {
		return nil, storageFailure("list books", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, storageFailure("list books", err)
	}
	return books, nil
}

// FilterBooks returns books whose title contains titleLike and whose shelf
// quantity is at least minQuantity.
func (d *Database) FilterBooks(ctx context.Context, titleLike string, minQuantity int) ([]*Book, error) {
	pattern := "%" + escapeLike(normalizeName(titleLike)) + "%"
	rows, err := d.readDB.QueryContext(ctx, `SELECT id,title,quantity,image_filename FROM books
        WHERE title LIKE ? ESCAPE '\' AND quantity >= ? ORDER BY id`, pattern, minQuantity)
	if err != nil {
		return nil, storageFailure("filter books", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, storageFailure("filter books", err)
	}
	return books, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListBorrowRecords returns every open record with the holder's username and
// the book title, oldest first.
func (d *Database) ListBorrowRecords(ctx context.Context) ([]*BorrowRecordView, error) {
	rows, err := d.readDB.QueryContext(ctx, `SELECT id,user_id,username,book_id,title,borrowed_at
        FROM borrow_record_view ORDER BY borrowed_at, id`)
	if err != nil {
		return nil, storageFailure("list borrow records", err)
	}
	defer rows.Close()

	records := []*BorrowRecordView{}
	for rows.Next() {
		var (
			r  BorrowRecordView
			at string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.BookID, &r.Title, &at); err != nil {
			return nil, storageFailure("list borrow records", err)
		}
		if r.BorrowedAt, err = parseTime(at); err != nil {
			return nil, storageFailure("list borrow records", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailure("list borrow records", err)
	}
	return records, nil
}
