package entity

import (
	"time"
)

// Account is the credential record behind an identity.
// Password holds the bcrypt hash, never the plain text.
//
// Profile data lives in the profile document keyed by Account.ID, not here.
type Account struct {
	ID        string
	Email     string
	Password  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
