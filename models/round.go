package models

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundOpen   RoundStatus = "open"
	RoundClosed RoundStatus = "closed"
)

type Round struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	TournamentID uuid.UUID   `json:"tournament_id" db:"tournament_id"`
	Number       int         `json:"number" db:"number"`
	Title        *string     `json:"title,omitempty" db:"title"`
	Status       RoundStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	ClosedAt     *time.Time  `json:"closed_at" db:"closed_at"`
}

func (r *Round) IsClosed() bool {
	return r.Status == RoundClosed
}
