package user

import (
	"github.com/go-faster/errors"
)

// Role determines which parts of the catalog a user may operate on. The
// server is the actual authority; client-side role checks only decide which
// actions the presentation layer offers.
type Role string

const (
	// RoleBuyer may deposit coins and buy products.
	RoleBuyer Role = "BUYER"
	// RoleSeller may create, update and delete products.
	RoleSeller Role = "SELLER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// User is the identity attached to an authenticated session. Deposit is the
// user's current balance in cents.
type User struct {
	Username string
	Role     Role
	Deposit  int64
}

// Sentinel errors for local credential validation.
var (
	ErrEmptyUsername = errors.New("username required")
	ErrEmptyPassword = errors.New("password required")
)

// Credentials holds the input for login and registration.
type Credentials struct {
	Username string
	Password string
}

// Validate rejects incomplete credentials before they reach the server.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return ErrEmptyUsername
	}
	if c.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// AllowedDenominations lists the coin values in cents the machine accepts.
var AllowedDenominations = []int64{5, 10, 20, 50, 100}

// ValidDenomination reports whether d is a coin the machine accepts.
func ValidDenomination(d int64) bool {
	for _, allowed := range AllowedDenominations {
		if d == allowed {
			return true
		}
	}
	return false
}
