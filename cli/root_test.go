package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-ledger/config"
)

func testConfig(dbPath string) *config.Config {
	return &config.Config{
		DBPath:      dbPath,
		BusyTimeout: 5 * time.Second,
		MaxRetries:  3,
		Log:         config.LogConfig{Level: "error", Format: "text"},
	}
}

// runLedger executes one command line against dbPath and returns stdout.
func runLedger(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand(testConfig(dbPath))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// runJSON executes a command with --format json and decodes the envelope.
func runJSON(t *testing.T, dbPath string, args ...string) (map[string]any, error) {
	t.Helper()
	out, err := runLedger(t, dbPath, "", append([]string{"--format", "json"}, args...)...)
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(testConfig("x.db"))
	require.NotNil(t, cmd)
	assert.Equal(t, "ledger", cmd.Use)
	assert.Contains(t, cmd.Long, "borrow records")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(testConfig("x.db"))
	commands := [][]string{
		{"book", "add"}, {"book", "edit"}, {"book", "list"}, {"book", "delete"}, {"book", "stock"}, {"book", "adjust"}, {"book", "import"},
		{"user", "add"}, {"user", "edit"}, {"user", "list"}, {"user", "delete"},
		{"admin", "add"},
		{"borrow"}, {"return"},
		{"record", "list"}, {"record", "add"}, {"record", "delete"},
		{"shelf"}, {"shell"},
	}

	for _, path := range commands {
		name := strings.Join(path, " ")
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(testConfig("ledger-test.db"))

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "ledger-test.db", dbFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	levelFlag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, levelFlag)
	assert.Equal(t, "error", levelFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	_, err := runLedger(t, db, "", "--format", "yaml", "book", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidLogFlags(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := runLedger(t, db, "", "--log-format", "xml", "book", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid log format")

	_, err = runLedger(t, db, "", "--log-level", "loud", "book", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid log level")

	_, err = runLedger(t, db, "", "--log-level", "DEBUG", "--log-format", "json", "book", "list")
	require.NoError(t, err)
}

func TestInvalidID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	_, err := runLedger(t, db, "", "borrow", "seven", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid user ID")
}
