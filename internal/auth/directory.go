package auth

import "context"

// Account is the directory's resolved view of a login identity: the
// stored credential digest plus the role and permission names already
// flattened for claim building.
type Account struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	RoleName     string
	Permissions  []string
}

// Directory is the narrow read-only contract this core consumes for
// account resolution. Implementations return ErrNotFound for absent
// accounts; any other error is treated as infrastructure failure, not
// an auth outcome.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
}
