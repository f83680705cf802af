package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, username, email, first_name, last_name, bio, role,
	is_superuser, is_active, code_hash, code_issued_at, created_at, updated_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*model.Account, error) {
	var (
		a      model.Account
		role   string
		issued sql.NullTime
	)
	err := s.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.Bio,
		&role,
		&a.IsSuperuser,
		&a.IsActive,
		&a.CodeHash,
		&issued,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = model.Role(role).Normalize()
	if issued.Valid {
		t := issued.Time
		a.CodeIssued = &t
	}
	return &a, nil
}

// accountWriteError maps UNIQUE violations on username/email to field errors.
func accountWriteError(err error, a *model.Account) error {
	switch {
	case isUniqueViolation(err, "users.username"):
		return apperror.FieldTaken("username", a.Username)
	case isUniqueViolation(err, "users.email"):
		return apperror.FieldTaken("email", a.Email)
	}
	return fmt.Errorf("sqlite: writing account %q: %w", a.Username, err)
}

// CreateAccount inserts a new account, including any pending code hash, in a
// single statement. Two concurrent signups for the same username or email
// cannot both succeed: the loser gets a FieldTaken error from the UNIQUE index.
func (db *DB) CreateAccount(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	a.ID = xid.New().String()
	a.Role = a.Role.Normalize()
	a.CreatedAt = now
	a.UpdatedAt = now

	var issued any
	if a.CodeIssued != nil {
		issued = a.CodeIssued.UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Username,
		a.Email,
		a.FirstName,
		a.LastName,
		a.Bio,
		string(a.Role),
		a.IsSuperuser,
		a.IsActive,
		a.CodeHash,
		issued,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return accountWriteError(err, a)
	}
	return nil
}

func (db *DB) getAccount(ctx context.Context, where string, arg any) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE `+where, arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account")
		}
		return nil, fmt.Errorf("sqlite: getting account: %w", err)
	}
	return a, nil
}

func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getAccount(ctx, "id = ?", id)
}

func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return db.getAccount(ctx, "username = ?", username)
}

func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getAccount(ctx, "email = ?", email)
}

// ListAccounts returns accounts ordered by username. Search matches username
// or email.
func (db *DB) ListAccounts(ctx context.Context, opts repository.ListOptions) (repository.Page[model.Account], error) {
	var page repository.Page[model.Account]

	where := ""
	var args []any
	if opts.Search != "" {
		where = ` WHERE username LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'`
		p := likePattern(opts.Search)
		args = append(args, p, p)
	}

	n, err := count(ctx, db.conn, `SELECT COUNT(*) FROM users`+where, args...)
	if err != nil {
		return page, fmt.Errorf("sqlite: counting accounts: %w", err)
	}
	page.Count = n

	limit, limitArgs := limitClause(opts)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM users`+where+` ORDER BY username`+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	page.Items = []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		page.Items = append(page.Items, *a)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating account rows: %w", err)
	}
	return page, nil
}

// UpdateAccount writes the profile and role columns. The confirmation code
// and activation state have their own methods.
func (db *DB) UpdateAccount(ctx context.Context, a *model.Account) error {
	a.Role = a.Role.Normalize()
	a.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?,
		        bio = ?, role = ?, is_superuser = ?, updated_at = ?
		 WHERE id = ?`,
		a.Username,
		a.Email,
		a.FirstName,
		a.LastName,
		a.Bio,
		string(a.Role),
		a.IsSuperuser,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return accountWriteError(err, a)
	}
	return affectedOne(res, func() error { return apperror.NotFound("account") })
}

func (db *DB) SetConfirmationCode(ctx context.Context, id, codeHash string) error {
	var issued any
	if codeHash != "" {
		issued = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET code_hash = ?, code_issued_at = ?, updated_at = ? WHERE id = ?`,
		codeHash, issued, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting confirmation code for %s: %w", id, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("account") })
}

// Activate spends codeHash. The hash in the WHERE clause makes the spend
// single-use: of two concurrent exchanges only one matches a row.
func (db *DB) Activate(ctx context.Context, id, codeHash string) error {
	if codeHash == "" {
		return repository.ErrCodeSpent
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET is_active = 1, code_hash = '', code_issued_at = NULL, updated_at = ?
		 WHERE id = ? AND code_hash = ?`,
		time.Now().UTC(), id, codeHash,
	)
	if err != nil {
		return fmt.Errorf("sqlite: activating account %s: %w", id, err)
	}
	return affectedOne(res, func() error { return repository.ErrCodeSpent })
}

// DeleteAccount removes the account; its reviews and comments go with it.
func (db *DB) DeleteAccount(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", id, err)
	}
	return affectedOne(res, func() error { return apperror.NotFound("account") })
}
