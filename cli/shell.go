package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/library"
)

// NewShellCommand creates the interactive shell. A session logs in either as
// a user (registered on first login) or as an administrator and then reads
// commands until "exit" or end of input.
func NewShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session for users and administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := opts.openManager(cmd)
			if err != nil {
				return err
			}
			defer mgr.Close()

			s := &session{
				mgr: mgr,
				p:   newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
				out: cmd.OutOrStdout(),
			}
			return s.run(cmd.Context())
		},
	}
}

type session struct {
	mgr *library.LibraryManager
	p   *prompter
	out io.Writer

	user  *library.User
	admin *library.Admin
}

type shellHandler func(s *session, ctx context.Context) error

var userCommands = map[string]shellHandler{
	"list books":  (*session).listBooks,
	"search book": (*session).searchBooks,
	"available":   (*session).available,
	"borrowed":    (*session).borrowed,
	"borrow":      (*session).borrow,
	"return":      (*session).returnBook,
}

var adminCommands = map[string]shellHandler{
	"list books":    (*session).listBooks,
	"search book":   (*session).searchBooks,
	"add book":      (*session).addBook,
	"edit book":     (*session).editBook,
	"delete book":   (*session).deleteBook,
	"adjust stock":  (*session).adjustStock,
	"stock":         (*session).stock,
	"list users":    (*session).listUsers,
	"add user":      (*session).addUser,
	"edit user":     (*session).editUser,
	"delete user":   (*session).deleteUser,
	"list records":  (*session).listRecords,
	"add record":    (*session).addRecord,
	"delete record": (*session).deleteRecord,
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to the Library Lending Ledger!")
	if err := s.login(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	commands := userCommands
	if s.admin != nil {
		commands = adminCommands
	}
	s.printHelp(commands)

	for {
		cmd, ok := s.p.line("\n> ")
		if !ok {
			return nil
		}
		switch cmd {
		case "":
			continue
		case "exit":
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		case "help":
			s.printHelp(commands)
			continue
		}

		h, found := commands[cmd]
		if !found {
			fmt.Fprintln(s.out, "Unknown command. Type 'help' to see the available commands.")
			continue
		}
		if err := h(s, ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.report(err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *session) login(ctx context.Context) error {
	for {
		role, ok := s.p.line("Login as (user/admin): ")
		if !ok {
			return io.EOF
		}
		role = strings.ToLower(role)
		if role != "user" && role != "admin" {
			fmt.Fprintln(s.out, "Please answer 'user' or 'admin'.")
			continue
		}

		name, ok := s.p.line("Username: ")
		if !ok {
			return io.EOF
		}
		password, err := s.p.password("Password: ")
		if err != nil {
			return err
		}

		if role == "admin" {
			a, err := s.mgr.LoginAdmin(ctx, name, password)
			if err != nil {
				s.report(err)
				continue
			}
			s.admin = a
			fmt.Fprintf(s.out, "Logged in as administrator %s.\n", a.Username)
			return nil
		}

		u, created, err := s.mgr.LoginUser(ctx, name, password)
		if err != nil {
			s.report(err)
			continue
		}
		s.user = u
		if created {
			fmt.Fprintf(s.out, "Welcome %s, your account has been created (ID %d).\n", u.Username, u.ID)
		} else {
			fmt.Fprintf(s.out, "Welcome back %s.\n", u.Username)
		}
		return nil
	}
}

func (s *session) printHelp(commands map[string]shellHandler) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintf(s.out, "  %s\n", strings.Join(names, ", "))
	fmt.Fprintln(s.out, "  help, exit")
}

func (s *session) report(err error) {
	if library.IsRejection(err) {
		fmt.Fprintf(s.out, "Refused: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

// ------------------ Shared ------------------

func (s *session) listBooks(ctx context.Context) error {
	books, err := s.mgr.ListBooks(ctx)
	if err != nil {
		return err
	}
	printBooks(s.out, books, "No books in library.")
	return nil
}

func (s *session) searchBooks(ctx context.Context) error {
	query, ok := s.p.line("Title contains: ")
	if !ok {
		return io.EOF
	}
	books, err := s.mgr.FilterBooks(ctx, query, 0)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintf(s.out, "No books found matching '%s'.\n", query)
		return nil
	}
	fmt.Fprintf(s.out, "Found %d book(s) matching '%s':\n", len(books), query)
	printBooks(s.out, books, "")
	return nil
}

// ------------------ User ------------------

func (s *session) available(ctx context.Context) error {
	books, err := s.mgr.AvailableToUser(ctx, s.user.ID)
	if err != nil {
		return err
	}
	printBooks(s.out, books, "Nothing available for you to borrow right now.")
	return nil
}

func (s *session) borrowed(ctx context.Context) error {
	books, err := s.mgr.HeldByUser(ctx, s.user.ID)
	if err != nil {
		return err
	}
	printBooks(s.out, books, "You have not borrowed any books.")
	return nil
}

func (s *session) borrow(ctx context.Context) error {
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	if _, err := s.mgr.Borrow(ctx, s.user.ID, bookID); err != nil {
		return err
	}
	if b, err := s.mgr.GetBook(ctx, bookID); err == nil {
		fmt.Fprintf(s.out, "Book '%s' borrowed. Enjoy!\n", b.Title)
	} else {
		fmt.Fprintf(s.out, "Book %d borrowed.\n", bookID)
	}
	return nil
}

func (s *session) returnBook(ctx context.Context) error {
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	if err := s.mgr.Return(ctx, s.user.ID, bookID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Book %d returned. Thank you!\n", bookID)
	return nil
}

// ------------------ Admin ------------------

func (s *session) addBook(ctx context.Context) error {
	title, ok := s.p.line("Title: ")
	if !ok {
		return io.EOF
	}
	quantity, err := s.p.number("Quantity: ")
	if err != nil {
		return err
	}
	image, ok := s.p.line("Image filename (optional): ")
	if !ok {
		return io.EOF
	}
	id, err := s.mgr.AddBook(ctx, title, quantity, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added book ID %d '%s' with %d copies.\n", id, title, quantity)
	return nil
}

func (s *session) editBook(ctx context.Context) error {
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	current, err := s.mgr.GetBook(ctx, bookID)
	if err != nil {
		return err
	}
	title, ok := s.p.line(fmt.Sprintf("Title [%s]: ", current.Title))
	if !ok {
		return io.EOF
	}
	if title == "" {
		title = current.Title
	}
	// Blank keeps whatever is on the shelf at commit time, not the value shown.
	var quantity *int
	answer, ok := s.p.line(fmt.Sprintf("Quantity [%d]: ", current.Quantity))
	if !ok {
		return io.EOF
	}
	if answer != "" {
		n, err := strconv.Atoi(answer)
		if err != nil {
			return fmt.Errorf("invalid number: %s", answer)
		}
		quantity = &n
	}
	image, ok := s.p.line("Image filename (blank keeps current): ")
	if !ok {
		return io.EOF
	}
	b, err := s.mgr.EditBook(ctx, bookID, title, quantity, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Book %d is now '%s' with %d copies on the shelf.\n", b.ID, b.Title, b.Quantity)
	return nil
}

func (s *session) deleteBook(ctx context.Context) error {
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	if err := s.mgr.DeleteBook(ctx, bookID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Book %d deleted.\n", bookID)
	return nil
}

func (s *session) adjustStock(ctx context.Context) error {
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	delta, err := s.p.number("Change (e.g. 3 or -1): ")
	if err != nil {
		return err
	}
	b, err := s.mgr.AdjustStock(ctx, bookID, delta)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Book %d now has %d copies on the shelf.\n", b.ID, b.Quantity)
	return nil
}

func (s *session) stock(ctx context.Context) error {
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	st, err := s.mgr.StockOf(ctx, bookID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Book %d: %d available, %d on loan, %d total\n", st.BookID, st.Available, st.OnLoan, st.Total())
	return nil
}

func (s *session) listUsers(ctx context.Context) error {
	users, err := s.mgr.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(s.out, "No users registered.")
		return nil
	}
	fmt.Fprintf(s.out, "%-5s %-30s\n", "ID", "Username")
	fmt.Fprintln(s.out, strings.Repeat("-", 36))
	for _, u := range users {
		fmt.Fprintf(s.out, "%-5d %-30s\n", u.ID, u.Username)
	}
	return nil
}

func (s *session) addUser(ctx context.Context) error {
	name, ok := s.p.line("Username: ")
	if !ok {
		return io.EOF
	}
	password, err := s.p.password(fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		return err
	}
	id, err := s.mgr.AddUser(ctx, name, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added user '%s' with ID %d\n", name, id)
	return nil
}

func (s *session) editUser(ctx context.Context) error {
	userID, err := s.p.id("User ID: ", "user")
	if err != nil {
		return err
	}
	u, err := s.mgr.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	name, ok := s.p.line(fmt.Sprintf("Username [%s]: ", u.Username))
	if !ok {
		return io.EOF
	}
	if name == "" {
		name = u.Username
	}
	password, err := s.p.password("New password (blank keeps current): ")
	if err != nil {
		return err
	}
	if err := s.mgr.EditUser(ctx, userID, name, password); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "User %d updated (%s).\n", userID, name)
	return nil
}

func (s *session) deleteUser(ctx context.Context) error {
	userID, err := s.p.id("User ID: ", "user")
	if err != nil {
		return err
	}
	if err := s.mgr.DeleteUser(ctx, userID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "User %d deleted.\n", userID)
	return nil
}

func (s *session) listRecords(ctx context.Context) error {
	records, err := s.mgr.ListBorrowRecords(ctx)
	if err != nil {
		return err
	}
	printRecords(s.out, records)
	return nil
}

func (s *session) addRecord(ctx context.Context) error {
	userID, err := s.p.id("User ID: ", "user")
	if err != nil {
		return err
	}
	bookID, err := s.p.id("Book ID: ", "book")
	if err != nil {
		return err
	}
	rec, err := s.mgr.AddBorrowRecord(ctx, userID, bookID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Borrow record %d added.\n", rec.ID)
	return nil
}

func (s *session) deleteRecord(ctx context.Context) error {
	recordID, err := s.p.id("Record ID: ", "record")
	if err != nil {
		return err
	}
	if err := s.mgr.DeleteBorrowRecord(ctx, recordID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Borrow record %d deleted and copy returned.\n", recordID)
	return nil
}
