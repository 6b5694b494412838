package library

import "time"

// Book is a catalogue title. Quantity counts the copies currently on the
// shelf, not the ones on loan.
type Book struct {
	ID            int64  `json:"id" yaml:"-"`
	Title         string `json:"title" yaml:"title"`
	Quantity      int    `json:"quantity" yaml:"quantity"`
	ImageFilename string `json:"image_filename,omitempty" yaml:"image,omitempty"`
}

// User is a borrowing member.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Don't serialize password hash
}

// Admin is a privileged account. It never takes part in lending.
type Admin struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// BorrowRecord is an open obligation: one copy of BookID held by UserID.
type BorrowRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	BookID     int64     `json:"book_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
}

// BorrowRecordView joins a record with the names an administrator sees.
type BorrowRecordView struct {
	BorrowRecord
	Username string `json:"username"`
	Title    string `json:"title"`
}

// Stock is the conservation view of a single book.
type Stock struct {
	BookID    int64 `json:"book_id"`
	Available int   `json:"available"`
	OnLoan    int   `json:"on_loan"`
}

// Total is the physical copy count.
func (s Stock) Total() int { return s.Available + s.OnLoan }

// Shelf is what a user can borrow and what they currently hold, read from
// one snapshot.
type Shelf struct {
	UserID    int64   `json:"user_id"`
	Available []*Book `json:"available"`
	Held      []*Book `json:"held"`
}
