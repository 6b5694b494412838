package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

// NewBookCommand creates the book command group.
func NewBookCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the catalogue",
	}
	cmd.AddCommand(newBookAddCommand(opts))
	cmd.AddCommand(newBookEditCommand(opts))
	cmd.AddCommand(newBookListCommand(opts))
	cmd.AddCommand(newBookDeleteCommand(opts))
	cmd.AddCommand(newBookStockCommand(opts))
	cmd.AddCommand(newBookAdjustCommand(opts))
	cmd.AddCommand(newBookImportCommand(opts))
	return cmd
}

func newBookAddCommand(opts *RootOptions) *cobra.Command {
	var (
		title    string
		quantity int
		image    string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book with a number of copies",
		Args:  cobra.NoArgs,
		RunE: opts.withManager(func(cmd *cobra.Command, _ []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := mgr.AddBook(cmd.Context(), title, quantity, image)
			if err != nil {
				return err
			}
			b, err := mgr.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			return out.Success(b, func(w io.Writer) {
				fmt.Fprintf(w, "Added book ID %d '%s' with %d copies.\n", b.ID, b.Title, b.Quantity)
			})
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "copies on the shelf")
	cmd.Flags().StringVar(&image, "image", "", "image filename (optional)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newBookEditCommand(opts *RootOptions) *cobra.Command {
	var (
		title    string
		quantity int
		image    string
	)
	cmd := &cobra.Command{
		Use:   "edit <book-id>",
		Short: "Change a book's title, shelf quantity or image",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("title") {
				current, err := mgr.GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				title = current.Title
			}
			var q *int
			if cmd.Flags().Changed("quantity") {
				q = &quantity
			}
			b, err := mgr.EditBook(cmd.Context(), id, title, q, image)
			if err != nil {
				return err
			}
			return out.Success(b, func(w io.Writer) {
				fmt.Fprintf(w, "Book %d is now '%s' with %d copies on the shelf.\n", b.ID, b.Title, b.Quantity)
			})
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "new shelf quantity")
	cmd.Flags().StringVar(&image, "image", "", "new image filename")
	return cmd
}

func newBookListCommand(opts *RootOptions) *cobra.Command {
	var (
		filter      string
		minQuantity int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered by title and quantity",
		Args:  cobra.NoArgs,
		RunE: opts.withManager(func(cmd *cobra.Command, _ []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			var (
				books []*library.Book
				err   error
			)
			if filter != "" || minQuantity > 0 {
				books, err = mgr.FilterBooks(cmd.Context(), filter, minQuantity)
			} else {
				books, err = mgr.ListBooks(cmd.Context())
			}
			if err != nil {
				return err
			}
			return out.Success(books, func(w io.Writer) { printBooks(w, books, "No books in library.") })
		}),
	}
	cmd.Flags().StringVar(&filter, "title", "", "only titles containing this text")
	cmd.Flags().IntVar(&minQuantity, "min-quantity", 0, "only books with at least this many copies on the shelf")
	return cmd
}

func newBookDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book that nobody is borrowing",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			if err := mgr.DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			return out.Success(map[string]int64{"deleted_book_id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Book %d deleted.\n", id)
			})
		}),
	}
}

func newBookStockCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <book-id>",
		Short: "Show copies on the shelf, on loan and in total",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			st, err := mgr.StockOf(cmd.Context(), id)
			if err != nil {
				return err
			}
			data := struct {
				*library.Stock
				Total int `json:"total"`
			}{st, st.Total()}
			return out.Success(data, func(w io.Writer) {
				fmt.Fprintf(w, "Book %d: %d available, %d on loan, %d total\n", st.BookID, st.Available, st.OnLoan, st.Total())
			})
		}),
	}
}

func newBookAdjustCommand(opts *RootOptions) *cobra.Command {
	var delta int
	cmd := &cobra.Command{
		Use:   "adjust <book-id> --delta=<n>",
		Short: "Correct shelf stock by a signed amount",
		Long: `Correct shelf stock by a signed amount.

This is a stock adjustment, not a borrow or return: open borrow records are
not touched. Use --delta=-2 to remove two copies.`,
		Args: cobra.ExactArgs(1),
		RunE: opts.withManager(func(cmd *cobra.Command, args []string, mgr *library.LibraryManager, out *OutputFormatter) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			b, err := mgr.AdjustStock(cmd.Context(), id, delta)
			if err != nil {
				return err
			}
			return out.Success(b, func(w io.Writer) {
				fmt.Fprintf(w, "Book %d now has %d copies on the shelf.\n", b.ID, b.Quantity)
			})
		}),
	}
	cmd.Flags().IntVar(&delta, "delta", 0, "signed change to the shelf quantity")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func printBooks(w io.Writer, books []*library.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	fmt.Fprintf(w, "%-5s %-40s %-8s %s\n", "ID", "Title", "Quantity", "Image")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, b := range books {
		fmt.Fprintln(w, library.PrettyBook(b))
	}
}
