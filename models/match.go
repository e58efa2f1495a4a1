package models

import (
	"time"

	"github.com/google/uuid"
)

type ResultStatus string

const (
	ResultDraft     ResultStatus = "draft"
	ResultFinalized ResultStatus = "finalized"
)

func (s ResultStatus) Valid() bool {
	return s == ResultDraft || s == ResultFinalized
}

// Match is a scheduled game between a home team (TeamID) and an away team (OpponentTeamID).
type Match struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TournamentID   uuid.UUID `json:"tournament_id" db:"tournament_id"`
	RoundID        uuid.UUID `json:"round_id" db:"round_id"`
	TeamID         uuid.UUID `json:"team_id" db:"team_id"`
	OpponentTeamID uuid.UUID `json:"opponent_team_id" db:"opponent_team_id"`

	Player         *string    `json:"player" db:"player"`
	OpponentPlayer *string    `json:"opponent_player" db:"opponent_player"`
	Deck           *string    `json:"deck" db:"deck"`
	OpponentDeck   *string    `json:"opponent_deck" db:"opponent_deck"`
	SelfScore      *string    `json:"self_score" db:"self_score"`
	OpponentScore  *string    `json:"opponent_score" db:"opponent_score"`
	Date           *time.Time `json:"date" db:"match_date"`

	InputAllowedTeamID InputPermission `json:"input_allowed_team_id" db:"input_allowed_team_id"`
	LockedBy           *uuid.UUID      `json:"locked_by" db:"locked_by"`
	LockedAt           *time.Time      `json:"locked_at" db:"locked_at"`
	ResultStatus       ResultStatus    `json:"result_status" db:"result_status"`
	FinalizedAt        *time.Time      `json:"finalized_at" db:"finalized_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Games []GameResult `json:"games" db:"-"`
}

func (m *Match) IsFinalized() bool {
	return m.ResultStatus == ResultFinalized
}

// HasTeam reports whether the team plays in the match on either side.
func (m *Match) HasTeam(teamID uuid.UUID) bool {
	return m.TeamID == teamID || m.OpponentTeamID == teamID
}

// LockedByOther reports whether the edit lock is held by a team other than teamID.
func (m *Match) LockedByOther(teamID uuid.UUID) bool {
	return m.LockedBy != nil && *m.LockedBy != teamID
}

// GameResult is one game of a multi-game match.
type GameResult struct {
	MatchID        uuid.UUID `json:"-" db:"match_id"`
	GameNumber     int       `json:"game_number" db:"game_number"`
	Player         *string   `json:"player" db:"player"`
	OpponentPlayer *string   `json:"opponent_player" db:"opponent_player"`
	Deck           *string   `json:"deck" db:"deck"`
	OpponentDeck   *string   `json:"opponent_deck" db:"opponent_deck"`
	SelfScore      *string   `json:"self_score" db:"self_score"`
	OpponentScore  *string   `json:"opponent_score" db:"opponent_score"`
}
