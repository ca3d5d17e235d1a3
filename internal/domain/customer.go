package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse identity level carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// Customer is an account holder. Every customer owns exactly one cart.
type Customer struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	DateJoined   time.Time `json:"date_joined" db:"date_joined"`
}

func (c *Customer) Role() Role {
	if c.IsStaff {
		return RoleStaff
	}
	return RoleCustomer
}

// CustomerPatch carries a partial account update.
type CustomerPatch struct {
	Username *string
	Email    *string
	Password *string
}
