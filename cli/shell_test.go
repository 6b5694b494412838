package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell_UserSession(t *testing.T) {
	db := newLedger(t)

	input := strings.Join([]string{
		"user", "dave", "pw-dave", // registers on first login
		"available",
		"borrow", "1",
		"borrow", "1",
		"borrowed",
		"return", "1",
		"exit",
	}, "\n") + "\n"

	out, err := runLedger(t, db, input, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome dave, your account has been created")
	assert.Contains(t, out, "Book 'The Art of War' borrowed.")
	assert.Contains(t, out, "Refused: ")
	assert.Contains(t, out, "Book 1 returned.")
	assert.Contains(t, out, "Goodbye!")

	// Second login with the wrong password is refused, then succeeds.
	input = "user\ndave\nwrong\nuser\ndave\npw-dave\nexit\n"
	out, err = runLedger(t, db, input, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Refused: ")
	assert.Contains(t, out, "Welcome back dave.")
}

func TestShell_AdminSession(t *testing.T) {
	db := newLedger(t)
	_, err := runLedger(t, db, "", "admin", "add", "root", "--password", "pw-root")
	require.NoError(t, err)

	input := strings.Join([]string{
		"admin", "root", "pw-root",
		"add book", "Animal Farm", "2", "",
		"add record", "1", "2",
		"list records",
		"delete book", "2",
		"delete record", "1",
		"delete book", "2",
		"borrow", // not an admin command
		"exit",
	}, "\n") + "\n"

	out, err := runLedger(t, db, input, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as administrator root.")
	assert.Contains(t, out, "Added book ID 2 'Animal Farm' with 2 copies.")
	assert.Contains(t, out, "Borrow record 1 added.")
	assert.Contains(t, out, "alice (1)")
	assert.Contains(t, out, "Refused: ")
	assert.Contains(t, out, "Book 2 deleted.")
	assert.Contains(t, out, "Unknown command.")
}

func TestShell_UnknownAdmin(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := runLedger(t, db, "admin\nnobody\npw\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Refused: ")
	assert.NotContains(t, out, "Logged in")
}

func TestShell_EndOfInput(t *testing.T) {
	db := newLedger(t)

	out, err := runLedger(t, db, "user\nalice\npw-alice\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back alice.")
}

func TestShell_EndOfInputAtPassword(t *testing.T) {
	db := newLedger(t)

	out, err := runLedger(t, db, "user\nalice\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Password: ")
	assert.NotContains(t, out, "Welcome back")
}

func TestShell_PipedPasswordIsTrimmed(t *testing.T) {
	db := newLedger(t)

	out, err := runLedger(t, db, "user\nalice\n  pw-alice \t\nexit\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back alice.")
}

// lineReader hands out one line per Read and runs before[i] just before
// line i is delivered.
type lineReader struct {
	lines  []string
	before map[int]func()
	next   int
}

func (r *lineReader) Read(p []byte) (int, error) {
	if r.next >= len(r.lines) {
		return 0, io.EOF
	}
	if hook := r.before[r.next]; hook != nil {
		hook()
	}
	n := copy(p, r.lines[r.next]+"\n")
	r.next++
	return n, nil
}

func TestShell_EditBookKeepsBorrowCommittedMidEdit(t *testing.T) {
	db := newLedger(t)
	_, err := runLedger(t, db, "", "admin", "add", "root", "--password", "pw-root")
	require.NoError(t, err)

	in := &lineReader{
		lines: []string{"admin", "root", "pw-root", "edit book", "1", "Art of War", "", "", "exit"},
	}
	in.before = map[int]func(){
		// Quantity answer: a borrow lands after the current count was shown.
		6: func() {
			_, err := runLedger(t, db, "", "borrow", "1", "1")
			require.NoError(t, err)
		},
	}

	out := &bytes.Buffer{}
	cmd := NewRootCommand(testConfig(db))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(in)
	cmd.SetArgs([]string{"shell"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Quantity [1]: ")
	assert.Contains(t, out.String(), "'Art of War' with 0 copies")

	resp, err := runJSON(t, db, "book", "stock", "1")
	require.NoError(t, err)
	data := resp["data"].(map[string]any)
	assert.EqualValues(t, 0, data["available"])
	assert.EqualValues(t, 1, data["on_loan"])
	assert.EqualValues(t, 1, data["total"])
}
