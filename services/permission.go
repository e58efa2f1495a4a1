package services

import (
	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
)

// PermissionDecision is the outcome of the result input gate.
type PermissionDecision int

const (
	PermissionAllowed PermissionDecision = iota
	PermissionDeniedNotOpen
	PermissionDeniedAdminOnly
	PermissionDeniedWrongTeam
)

func (d PermissionDecision) String() string {
	switch d {
	case PermissionAllowed:
		return "allowed"
	case PermissionDeniedNotOpen:
		return "not_open"
	case PermissionDeniedAdminOnly:
		return "admin_only"
	case PermissionDeniedWrongTeam:
		return "wrong_team"
	default:
		return "unknown"
	}
}

// Err returns nil for PermissionAllowed and the matching denial error otherwise.
func (d PermissionDecision) Err() error {
	switch d {
	case PermissionAllowed:
		return nil
	case PermissionDeniedNotOpen:
		return ErrInputNotOpen
	case PermissionDeniedAdminOnly:
		return ErrInputAdminOnly
	default:
		return ErrInputWrongTeam
	}
}

// ResolvePermission decides whether actingTeamID may submit a result for the match.
// Administrators never go through this gate.
func ResolvePermission(match *models.Match, actingTeamID uuid.UUID) PermissionDecision {
	switch match.InputAllowedTeamID.Kind() {
	case models.PermissionNone:
		return PermissionDeniedNotOpen
	case models.PermissionAdminOnly:
		return PermissionDeniedAdminOnly
	}
	allowed, _ := match.InputAllowedTeamID.TeamID()
	if allowed != actingTeamID {
		return PermissionDeniedWrongTeam
	}
	return PermissionAllowed
}

// validateInputPermission checks an admin-supplied permission against the match's teams.
func validateInputPermission(p models.InputPermission, match *models.Match) error {
	teamID, ok := p.TeamID()
	if !ok {
		return nil
	}
	if !match.HasTeam(teamID) {
		return ErrInvalidInputPermission
	}
	return nil
}
