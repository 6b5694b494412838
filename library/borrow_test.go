package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBorrowScenario walks the canonical single-copy sequence.
func TestBorrowScenario(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	book := addBook(t, db, "X", 1)
	require.Equal(t, int64(1), book)
	addUserWithID(t, db, 7, "u7")
	addUserWithID(t, db, 8, "u8")

	_, err := db.Borrow(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, quantityOf(t, db, 1))

	_, err = db.Borrow(ctx, 8, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = db.Borrow(ctx, 7, 1)
	assert.ErrorIs(t, err, ErrDuplicateBorrow)

	require.NoError(t, db.Return(ctx, 7, 1))
	assert.Equal(t, 1, quantityOf(t, db, 1))

	_, err = db.Borrow(ctx, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, quantityOf(t, db, 1))
}

func TestBorrow_CreatesRecord(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	bookID := addBook(t, db, "Dune", 3)
	userID := addUser(t, db, "alice")

	rec, err := db.Borrow(ctx, userID, bookID)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, userID, rec.UserID)
	assert.Equal(t, bookID, rec.BookID)
	assert.False(t, rec.BorrowedAt.IsZero())

	assert.Equal(t, 2, quantityOf(t, db, bookID))
	assert.Equal(t, 1, openRecords(t, db, userID, bookID))
}

func TestBorrow_Rejections(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	inStock := addBook(t, db, "In stock", 2)
	empty := addBook(t, db, "Empty", 0)
	alice := addUser(t, db, "alice")
	_, err := db.Borrow(ctx, alice, inStock)
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID int64
		bookID int64
		want   error
	}{
		{name: "unknown book", userID: alice, bookID: 999, want: ErrNotFound},
		{name: "unknown user", userID: 999, bookID: inStock, want: ErrNotFound},
		{name: "already held", userID: alice, bookID: inStock, want: ErrDuplicateBorrow},
		{name: "no copies", userID: alice, bookID: empty, want: ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := snapshotState(t, db)
			_, err := db.Borrow(ctx, tt.userID, tt.bookID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsRejection(err))
			assert.Equal(t, before, snapshotState(t, db), "rejected borrow must not change state")
		})
	}
}

// Duplicate is reported before stock: a holder of the last copy learns they
// already have it.
func TestBorrow_DuplicateCheckedBeforeStock(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	bookID := addBook(t, db, "Last copy", 1)
	userID := addUser(t, db, "alice")

	_, err := db.Borrow(ctx, userID, bookID)
	require.NoError(t, err)

	_, err = db.Borrow(ctx, userID, bookID)
	assert.ErrorIs(t, err, ErrDuplicateBorrow)
}

func TestAddBorrowRecord_SameRulesAsBorrow(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	bookID := addBook(t, db, "Admin loan", 1)
	alice := addUser(t, db, "alice")
	bob := addUser(t, db, "bob")

	_, err := db.AddBorrowRecord(ctx, alice, bookID)
	require.NoError(t, err)

	_, err = db.AddBorrowRecord(ctx, alice, bookID)
	assert.ErrorIs(t, err, ErrDuplicateBorrow)

	_, err = db.AddBorrowRecord(ctx, bob, bookID)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 0, quantityOf(t, db, bookID))
}

type ledgerState struct {
	Quantities map[int64]int
	Records    map[[2]int64]int
}

// snapshotState captures every book quantity and open record.
func snapshotState(t *testing.T, db *Database) ledgerState {
	t.Helper()
	st := ledgerState{Quantities: map[int64]int{}, Records: map[[2]int64]int{}}

	rows, err := db.db.Query(`SELECT id, quantity FROM books`)
	require.NoError(t, err)
	for rows.Next() {
		var id int64
		var q int
		require.NoError(t, rows.Scan(&id, &q))
		st.Quantities[id] = q
	}
	require.NoError(t, rows.Err())
	rows.Close()

	rows, err = db.db.Query(`SELECT user_id, book_id FROM borrow_records`)
	require.NoError(t, err)
	for rows.Next() {
		var u, b int64
		require.NoError(t, rows.Scan(&u, &b))
		st.Records[[2]int64{u, b}]++
	}
	require.NoError(t, rows.Err())
	rows.Close()
	return st
}
