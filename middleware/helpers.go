package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/matchdesk/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Имена JWT claims.
const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
	jwtClaimTeamID = "team_id"
)

var errNoClaims = errors.New("user claims not found in context or invalid type")

// IssueToken подписывает HS256-токен для identity. Командный токен дополнительно несёт team_id.
func IssueToken(secret string, identity *models.Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		jwtClaimUserID: identity.ID.String(),
		jwtClaimRole:   string(identity.Role),
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}
	if identity.TeamID != nil {
		claims[jwtClaimTeamID] = identity.TeamID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	return uuidClaim(ctx, jwtClaimUserID)
}

// GetTeamIDFromContext возвращает команду, от имени которой действует командный токен.
func GetTeamIDFromContext(ctx context.Context) (uuid.UUID, error) {
	return uuidClaim(ctx, jwtClaimTeamID)
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errNoClaims
	}

	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid '%s' claim in token", jwtClaimRole)
	}

	role := models.UserRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RoleTeam:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}

func uuidClaim(ctx context.Context, name string) (uuid.UUID, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errNoClaims
	}

	raw, ok := claims[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing or invalid '%s' claim in token", name)
	}

	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid '%s' claim value: %q", name, raw)
	}
	return id, nil
}
