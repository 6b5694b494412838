package library

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-ledger/logger"
)

func TestManagerLogsOutcomes(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	mgr, err := NewLibraryManager(ctx, Options{
		Path:   filepath.Join(t.TempDir(), "lib.db"),
		Logger: logger.New(logger.Config{Writer: &buf, Format: logger.FormatText}),
	})
	require.NoError(t, err)
	defer mgr.Close()

	bookID, err := mgr.AddBook(ctx, "Logged", 1, "")
	require.NoError(t, err)
	userID, err := mgr.AddUser(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = mgr.Borrow(ctx, userID, bookID)
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, userID, bookID)
	require.ErrorIs(t, err, ErrDuplicateBorrow)

	out := buf.String()
	assert.Contains(t, out, "msg=borrow ")
	assert.Contains(t, out, `msg="borrow rejected"`)
	assert.Contains(t, out, "code=DUPLICATE_BORROW")
}

func TestManagerLoginRegisters(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	u, created, err := mgr.LoginUser(ctx, "walk-in", "pw")
	require.NoError(t, err)
	assert.True(t, created)

	shelf, err := mgr.ShelfFor(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, shelf.Held)
}

func TestPrettyBook_MultiByteTitle(t *testing.T) {
	title := strings.Repeat("哈利波特与魔法石", 8)
	line := PrettyBook(&Book{ID: 1, Title: title, Quantity: 1})
	assert.True(t, utf8.ValidString(line))
	assert.Contains(t, line, "...")
	assert.Equal(t, 40, utf8.RuneCountInString(truncate(title, 40)))
}

func TestPrettyBook(t *testing.T) {
	line := PrettyBook(&Book{ID: 3, Title: "A very long title that will certainly be truncated here", Quantity: 2})
	assert.Contains(t, line, "...")
	assert.Contains(t, line, "3")
}
