package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ Directory = (*PGDirectory)(nil)

// PGDirectory resolves accounts from PostgreSQL. It is read-only: the
// auth core never writes account state.
type PGDirectory struct {
	db *sql.DB
}

func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

const accountColumns = `a.id, a.email, a.first_name, a.last_name, a.password_hash, r.id, r.name`

func (d *PGDirectory) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts a join roles r on r.id = a.role_id where a.email = $1`,
		email,
	)
	return d.scanAccount(ctx, row)
}

func (d *PGDirectory) FindByID(ctx context.Context, id string) (*Account, error) {
	row := d.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts a join roles r on r.id = a.role_id where a.id = $1`,
		id,
	)
	return d.scanAccount(ctx, row)
}

func (d *PGDirectory) scanAccount(ctx context.Context, row *sql.Row) (*Account, error) {
	var (
		account Account
		roleID  string
	)
	if err := row.Scan(&account.ID, &account.Email, &account.FirstName, &account.LastName,
		&account.PasswordHash, &roleID, &account.RoleName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	permissions, err := d.rolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	account.Permissions = permissions
	return &account, nil
}

func (d *PGDirectory) rolePermissions(ctx context.Context, roleID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`select p.name from permissions p join role_permissions rp on rp.permission_id = p.id where rp.role_id = $1 order by p.name`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query role permissions: %w", err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return permissions, nil
}
