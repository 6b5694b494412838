package library

import (
	"context"
	"database/sql"
)

// LoginUser authenticates username. An unknown username is registered on the
// spot with the given password; created reports whether that happened.
func (d *Database) LoginUser(ctx context.Context, username, password string) (user *User, created bool, err error) {
	username = normalizeName(username)
	if username == "" {
		return nil, false, validation("username cannot be empty")
	}

	user, err = d.userByName(ctx, username)
	if err == nil {
		if !CheckPassword(user.PasswordHash, password) {
			return nil, false, ErrInvalidCredentials
		}
		return user, false, nil
	}
	if CodeOf(err) != CodeNotFound {
		return nil, false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	err = d.withTx(ctx, "register user", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO users(username,password_hash) VALUES(?,?) ON CONFLICT(username) DO NOTHING`, username, hash)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1
		user, err = scanUser(tx.QueryRowContext(ctx, `SELECT id,username,password_hash FROM users WHERE username=?`, username))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	// Lost a registration race: the other login's password wins.
	if !created && !CheckPassword(user.PasswordHash, password) {
		return nil, false, ErrInvalidCredentials
	}
	return user, created, nil
}

// AddUser registers a user explicitly (administrator path).
func (d *Database) AddUser(ctx context.Context, username, password string) (int64, error) {
	username = normalizeName(username)
	if username == "" {
		return 0, validation("username cannot be empty")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}

	var id int64
	err = d.withTx(ctx, "add user", func(tx *sql.Tx) error {
		res, err := tx.StmtContext(ctx, d.insertUserStmt).ExecContext(ctx, username, hash)
		if err != nil {
			if isUniqueViolation(err) {
				return newError(CodeAlreadyExists, "username %q is taken", username)
			}
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// EditUser renames a user and, when password is non-empty, resets it.
func (d *Database) EditUser(ctx context.Context, userID int64, username, password string) error {
	username = normalizeName(username)
	if username == "" {
		return validation("username cannot be empty")
	}
	var hash sql.NullString
	if password != "" {
		h, err := HashPassword(password)
		if err != nil {
			return err
		}
		hash = sql.NullString{String: h, Valid: true}
	}

	return d.withTx(ctx, "edit user", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET username=?, password_hash=COALESCE(?, password_hash) WHERE id=?`, username, hash, userID)
		if err != nil {
			if isUniqueViolation(err) {
				return newError(CodeAlreadyExists, "username %q is taken", username)
			}
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("user %d does not exist", userID)
		}
		return nil
	})
}

// GetUser fetches a single user.
func (d *Database) GetUser(ctx context.Context, userID int64) (*User, error) {
	u, err := scanUser(d.readDB.QueryRowContext(ctx, `SELECT id,username,password_hash FROM users WHERE id=?`, userID))
	if err == sql.ErrNoRows {
		return nil, notFound("user %d does not exist", userID)
	}
	if err != nil {
		return nil, storageFailure("get user", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by id.
func (d *Database) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := d.readDB.QueryContext(ctx, `SELECT id,username,password_hash FROM users ORDER BY id`)
	if err != nil {
		return nil, storageFailure("list users", err)
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageFailure("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailure("list users", err)
	}
	return users, nil
}

func (d *Database) userByName(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(d.readDB.QueryRowContext(ctx, `SELECT id,username,password_hash FROM users WHERE username=?`, username))
	if err == sql.ErrNoRows {
		return nil, notFound("user %q does not exist", username)
	}
	if err != nil {
		return nil, storageFailure("get user", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}

// ------------------ Admins ------------------

// AddAdmin creates an administrator account. Admins are never auto-registered.
func (d *Database) AddAdmin(ctx context.Context, username, password string) (int64, error) {
	username = normalizeName(username)
	if username == "" {
		return 0, validation("username cannot be empty")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}

	var id int64
	err = d.withTx(ctx, "add admin", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO admins(username,password_hash) VALUES(?,?)`, username, hash)
		if err != nil {
			if isUniqueViolation(err) {
				return newError(CodeAlreadyExists, "admin %q already exists", username)
			}
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// LoginAdmin authenticates an administrator.
func (d *Database) LoginAdmin(ctx context.Context, username, password string) (*Admin, error) {
	var a Admin
	err := d.readDB.QueryRowContext(ctx, `SELECT id,username,password_hash FROM admins WHERE username=?`, normalizeName(username)).
		Scan(&a.ID, &a.Username, &a.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageFailure("admin login", err)
	}
	if !CheckPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &a, nil
}
