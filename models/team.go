package models

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Username     string     `json:"username" db:"username"`
	TournamentID *uuid.UUID `json:"tournament_id,omitempty" db:"tournament_id"`
	CreatedBy    uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// TeamCredentials возвращается один раз: при создании команды и при сбросе пароля.
type TeamCredentials struct {
	Team     *Team  `json:"team"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
