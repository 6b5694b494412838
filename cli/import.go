package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/config"
	"library-ledger/library"
)

// importEntry is one catalogue line in the import report.
type importEntry struct {
	Title string `json:"title"`
	ID    int64  `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

type importReport struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Entries  []importEntry `json:"entries"`
}

func newBookImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Add every book listed in a YAML catalogue",
		Long: `Add every book listed in a YAML catalogue:

  books:
    - title: The Art of War
      quantity: 3
      image: art_of_war.jpg

A failing entry does not stop the others. The command exits with status 1
when any entry was refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runImport(cmd, args[0])
		},
	}
}

// NewImportBooksCommand creates the standalone catalogue importer used by
// cmd/import_books. --fresh removes the database files before importing.
func NewImportBooksCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{
		LogLevel:  cfg.Log.Level,
		LogFormat: cfg.Log.Format,
		cfg:       *cfg,
	}
	var fresh bool

	cmd := &cobra.Command{
		Use:   "import_books [--db path] [--fresh] <catalog.yaml>",
		Short: "Load a YAML catalogue into the ledger",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !isOneOf(opts.Format, ValidFormats) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			if fresh {
				removeDatabaseFiles(cmd.ErrOrStderr(), opts.DBPath)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runImport(cmd, args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVar(&opts.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "remove any existing database files first")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	return cmd
}

func removeDatabaseFiles(w io.Writer, dbPath string) {
	fmt.Fprintln(w, "Cleaning up existing database files...")
	for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(w, "Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Fprintln(w, "Database cleanup complete.")
}

func (o *RootOptions) runImport(cmd *cobra.Command, path string) error {
	out := o.output(cmd)

	f, err := os.Open(path)
	if err != nil {
		err = WrapExitError(ExitCommandError, "open catalogue", err)
		out.Failure(err)
		return err
	}
	catalog, err := library.LoadCatalog(f)
	f.Close()
	if err != nil {
		out.Failure(err)
		return err
	}

	mgr, err := o.openManager(cmd)
	if err != nil {
		out.Failure(err)
		return err
	}
	defer mgr.Close()

	report := importReport{Entries: []importEntry{}}
	for _, r := range mgr.ImportCatalog(cmd.Context(), catalog) {
		e := importEntry{Title: r.Title, ID: r.ID}
		if r.Err != nil {
			e.Error = r.Err.Error()
			e.Code = string(library.CodeOf(r.Err))
			report.Failed++
		} else {
			report.Imported++
		}
		report.Entries = append(report.Entries, e)
	}

	var books []*library.Book
	if report.Imported > 0 && o.Format != "json" {
		if books, err = mgr.ListBooks(cmd.Context()); err != nil {
			out.Failure(err)
			return err
		}
	}

	err = out.Success(report, func(w io.Writer) {
		fmt.Fprintf(w, "Importing %d books from %s...\n", len(catalog.Books), path)
		for _, e := range report.Entries {
			if e.Error != "" {
				fmt.Fprintf(w, "Importing: %s... ERROR - %s\n", e.Title, e.Error)
				continue
			}
			fmt.Fprintf(w, "Importing: %s... SUCCESS (ID: %d)\n", e.Title, e.ID)
		}
		fmt.Fprintf(w, "\nImport complete!\n")
		fmt.Fprintf(w, "Successfully imported: %d books\n", report.Imported)
		fmt.Fprintf(w, "Errors: %d\n", report.Failed)
		if len(books) > 0 {
			fmt.Fprintln(w, "\nCatalogue:")
			fmt.Fprintf(w, "%-5s %-40s %-8s %s\n", "ID", "Title", "Quantity", "Image")
			fmt.Fprintln(w, strings.Repeat("-", 70))
			for _, b := range books {
				fmt.Fprintln(w, library.PrettyBook(b))
			}
		}
	})
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		// Already reported in the output above.
		return WrapExitError(ExitRejected, fmt.Sprintf("%d of %d catalogue entries failed", report.Failed, len(report.Entries)), nil)
	}
	return nil
}
