package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

// NewBorrowCommand creates the borrow command.
func NewBorrowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <user-id> <book-id>",
		Short: "Lend one copy of a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			userID, bookID, err := parseUserBook(args)
			if err != nil {
				return err
			}
			rec, err := mgr.Borrow(cmd.Context(), userID, bookID)
			if err != nil {
				return err
			}
			return out.Success(rec, func(w io.Writer) {
				fmt.Fprintf(w, "Book %d borrowed by user %d (record %d).\n", bookID, userID, rec.ID)
			})
		}),
	}
}

// NewReturnCommand creates the return command.
func NewReturnCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <user-id> <book-id>",
		Short: "Return a borrowed copy",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			userID, bookID, err := parseUserBook(args)
			if err != nil {
				return err
			}
			if err := mgr.Return(cmd.Context(), userID, bookID); err != nil {
				return err
			}
			return out.Success(map[string]int64{"user_id": userID, "book_id": bookID}, func(w io.Writer) {
				fmt.Fprintf(w, "Book %d returned by user %d.\n", bookID, userID)
			})
		}),
	}
}

// NewRecordCommand creates the record command group used by administrators.
func NewRecordCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Inspect and manage open borrow records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List open borrow records",
		Args:  cobra.NoArgs,
		RunE: opts.withManager(func(cmd *cobra.Command, _ []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			records, err := mgr.ListBorrowRecords(cmd.Context())
			if err != nil {
				return err
			}
			return out.Success(records, func(w io.Writer) { printRecords(w, records) })
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <user-id> <book-id>",
		Short: "Open a borrow record on a user's behalf",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			userID, bookID, err := parseUserBook(args)
			if err != nil {
				return err
			}
			rec, err := mgr.AddBorrowRecord(cmd.Context(), userID, bookID)
			if err != nil {
				return err
			}
			return out.Success(rec, func(w io.Writer) {
				fmt.Fprintf(w, "Borrow record %d added.\n", rec.ID)
			})
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <record-id>",
		Short: "Close a borrow record, returning the copy to the shelf",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("record", args[0])
			if err != nil {
				return err
			}
			if err := mgr.DeleteBorrowRecord(cmd.Context(), id); err != nil {
				return err
			}
			return out.Success(map[string]int64{"deleted_record_id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Borrow record %d deleted and copy returned.\n", id)
			})
		}),
	})

	return cmd
}

// NewShelfCommand creates the shelf command.
func NewShelfCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shelf <user-id>",
		Short: "Show what a user can borrow and what they hold",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return err
			}
			shelf, err := mgr.ShelfFor(cmd.Context(), id)
			if err != nil {
				return err
			}
			return out.Success(shelf, func(w io.Writer) { printShelf(w, shelf) })
		}),
	}
}

func parseUserBook(args []string) (int64, int64, error) {
	userID, err := parseID("user", args[0])
	if err != nil {
		return 0, 0, err
	}
	bookID, err := parseID("book", args[1])
	if err != nil {
		return 0, 0, err
	}
	return userID, bookID, nil
}

func printRecords(w io.Writer, records []*library.BorrowRecordView) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No open borrow records.")
		return
	}
	fmt.Fprintf(w, "%-5s %-20s %-40s %s\n", "ID", "User", "Book", "Borrowed at")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range records {
		fmt.Fprintf(w, "%-5d %-20s %-40s %s\n",
			r.ID,
			fmt.Sprintf("%s (%d)", r.Username, r.UserID),
			fmt.Sprintf("%s (%d)", r.Title, r.BookID),
			r.BorrowedAt.Format("2006-01-02 15:04"))
	}
}

func printShelf(w io.Writer, shelf *library.Shelf) {
	fmt.Fprintln(w, "Available to borrow:")
	printBooks(w, shelf.Available, "  (nothing available)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Currently held:")
	printBooks(w, shelf.Held, "  (nothing borrowed)")
}
