package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleTeam  UserRole = "team"
)

// Identity is a login credential. Admin identities own tournaments and teams,
// team identities are bound to exactly one team.
type Identity struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	TeamID       *uuid.UUID `json:"team_id,omitempty" db:"team_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
