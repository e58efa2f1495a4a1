package services

import (
	"testing"

	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolvePermission_Exhaustive(t *testing.T) {
	teamA := uuid.New()
	teamB := uuid.New()
	other := uuid.New()

	perms := map[string]models.InputPermission{
		"null":      models.NoInput(),
		"admin":     models.AdminOnlyInput(),
		"teamA":     models.TeamInput(teamA),
		"teamB":     models.TeamInput(teamB),
		"otherTeam": models.TeamInput(other),
	}
	actors := map[string]uuid.UUID{"teamA": teamA, "teamB": teamB}

	expected := map[string]map[string]PermissionDecision{
		"null":      {"teamA": PermissionDeniedNotOpen, "teamB": PermissionDeniedNotOpen},
		"admin":     {"teamA": PermissionDeniedAdminOnly, "teamB": PermissionDeniedAdminOnly},
		"teamA":     {"teamA": PermissionAllowed, "teamB": PermissionDeniedWrongTeam},
		"teamB":     {"teamA": PermissionDeniedWrongTeam, "teamB": PermissionAllowed},
		"otherTeam": {"teamA": PermissionDeniedWrongTeam, "teamB": PermissionDeniedWrongTeam},
	}

	for permName, perm := range perms {
		for actorName, actor := range actors {
			t.Run(permName+"/"+actorName, func(t *testing.T) {
				match := &models.Match{TeamID: teamA, OpponentTeamID: teamB, InputAllowedTeamID: perm}
				got := ResolvePermission(match, actor)
				assert.Equal(t, expected[permName][actorName], got)

				if got == PermissionAllowed {
					assert.NoError(t, got.Err())
				} else {
					assert.Error(t, got.Err())
				}
			})
		}
	}
}

func TestPermissionDecisionErrors(t *testing.T) {
	assert.ErrorIs(t, PermissionDeniedNotOpen.Err(), ErrInputNotOpen)
	assert.ErrorIs(t, PermissionDeniedAdminOnly.Err(), ErrInputAdminOnly)
	assert.ErrorIs(t, PermissionDeniedWrongTeam.Err(), ErrInputWrongTeam)
}

func TestValidateInputPermission(t *testing.T) {
	home, away := uuid.New(), uuid.New()
	match := &models.Match{TeamID: home, OpponentTeamID: away}

	assert.NoError(t, validateInputPermission(models.NoInput(), match))
	assert.NoError(t, validateInputPermission(models.AdminOnlyInput(), match))
	assert.NoError(t, validateInputPermission(models.TeamInput(away), match))
	assert.ErrorIs(t, validateInputPermission(models.TeamInput(uuid.New()), match), ErrInvalidInputPermission)
}
