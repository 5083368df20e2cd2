// Package user exposes the user directory consumed by payment initiation
// and the authorization middleware.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Roles understood by the authorization middleware.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ErrNotFound is returned when a user id has no matching record.
var ErrNotFound = errors.New("user not found")

// User is a directory entry. Phone may be empty.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Role      string
	CreatedAt time.Time
}

// Directory provides read access to user records.
type Directory interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
