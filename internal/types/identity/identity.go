package identity

import (
	"time"

	"github.com/google/uuid"
)

// Partition separates authenticated identities from guests. Every streak
// record lives in exactly one partition, keyed by its owner.
type Partition string

const (
	PartitionAuthenticated Partition = "authenticated"
	PartitionGuest         Partition = "guest"
)

func (p Partition) IsGuest() bool { return p == PartitionGuest }

// User is a persisted identity. ClerkID and Email are set only for
// authenticated users; PasswordHash only for credential-bound guests.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ClerkID      *string   `json:"clerk_id,omitempty" db:"clerk_id"`
	Username     string    `json:"username" db:"username"`
	Email        *string   `json:"email,omitempty" db:"email"`
	PhotoURL     *string   `json:"photo_url,omitempty" db:"photo_url"`
	IsGuest      bool      `json:"is_guest" db:"is_guest"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) Partition() Partition {
	if u.IsGuest {
		return PartitionGuest
	}
	return PartitionAuthenticated
}

type GuestRegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type GuestLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GuestSession is returned from register/login/anonymous: the identity plus
// the bearer token the client persists locally.
type GuestSession struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
