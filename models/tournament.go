package models

import (
	"time"

	"github.com/google/uuid"
)

// Tournament представляет турнир.
type Tournament struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TournamentOverview собирает все данные турнира для дашборда.
type TournamentOverview struct {
	Tournament *Tournament `json:"tournament"`
	Rounds     []Round     `json:"rounds"`
	Matches    []Match     `json:"matches"`
	Teams      []Team      `json:"teams"`
}
