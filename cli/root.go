// Package cli implements the ledger command line.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/config"
	"library-ledger/library"
	"library-ledger/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath    string
	LogLevel  string
	LogFormat string
	Format    string // "json" | "text"

	cfg config.Config
}

// Allowed values for the format flags.
var (
	ValidFormats    = []string{"text", "json"}
	ValidLogFormats = []string{logger.FormatText, logger.FormatJSON}
	ValidLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
)

// NewRootCommand creates the root command. Flag defaults come from cfg, so
// flags override the environment.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{cfg: *cfg}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Library lending ledger",
		Long:  "Manage books, users and borrow records with consistent stock accounting.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isOneOf(opts.Format, ValidFormats) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			if !isOneOf(opts.LogFormat, ValidLogFormats) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats), nil)
			}
			if !isOneOf(strings.ToLower(opts.LogLevel), ValidLogLevels) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid log level %q: must be one of %v", opts.LogLevel, ValidLogLevels), nil)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", cfg.Log.Level, "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", cfg.Log.Format, "log format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewBookCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewBorrowCommand(opts))
	cmd.AddCommand(NewReturnCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewShelfCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))

	return cmd
}

func isOneOf(value string, allowed []string) bool {
	for _, f := range allowed {
		if f == value {
			return true
		}
	}
	return false
}

// openManager opens the ledger for one command invocation. Logs go to the
// command's stderr.
func (o *RootOptions) openManager(cmd *cobra.Command) (*library.LibraryManager, error) {
	log := logger.New(logger.Config{
		Writer: cmd.ErrOrStderr(),
		Format: o.LogFormat,
		Level:  logger.ParseLevel(o.LogLevel),
	})
	mgr, err := library.NewLibraryManager(cmd.Context(), library.Options{
		Path:        o.DBPath,
		BusyTimeout: o.cfg.BusyTimeout,
		MaxRetries:  o.cfg.MaxRetries,
		Logger:      log,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open ledger", err)
	}
	return mgr, nil
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// withManager wraps a command body: it opens the ledger, runs fn, closes the
// ledger and reports failures in the selected output format.
func (o *RootOptions) withManager(fn func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		out := o.output(cmd)
		mgr, err := o.openManager(cmd)
		if err != nil {
			out.Failure(err)
			return err
		}
		defer mgr.Close()

		if err := fn(cmd, args, mgr, out); err != nil {
			out.Failure(err)
			return err
		}
		return nil
	}
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s ID: %s", what, s), nil)
	}
	return id, nil
}
