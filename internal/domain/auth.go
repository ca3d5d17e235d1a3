package domain

import (
	"time"

	"github.com/google/uuid"
)

// OAuthApplication is a registered OAuth2 client.
type OAuthApplication struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	ClientID         string    `json:"client_id" db:"client_id"`
	ClientSecretHash string    `json:"-" db:"client_secret_hash"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// OAuthAccessToken is an opaque token issued by the password grant.
type OAuthAccessToken struct {
	Token         string    `db:"token"`
	CustomerID    uuid.UUID `db:"customer_id"`
	ApplicationID uuid.UUID `db:"application_id"`
	Scope         string    `db:"scope"`
	ExpiresAt     time.Time `db:"expires_at"`
	CreatedAt     time.Time `db:"created_at"`
}

// RefreshToken records the id of an issued JWT refresh token so it can be revoked.
type RefreshToken struct {
	ID         uuid.UUID `db:"id"`
	CustomerID uuid.UUID `db:"customer_id"`
	Token      string    `db:"token"`
	ExpiresAt  time.Time `db:"expires_at"`
	CreatedAt  time.Time `db:"created_at"`
	Revoked    bool      `db:"revoked"`
}
