package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/matchdesk/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protected(roles ...models.UserRole) http.Handler {
	return Authenticate(testSecret)(RequireRole(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssueToken_TeamClaims(t *testing.T) {
	teamID := uuid.New()
	identity := &models.Identity{ID: uuid.New(), Role: models.RoleTeam, TeamID: &teamID}

	token, err := IssueToken(testSecret, identity, time.Hour, time.Now())
	require.NoError(t, err)

	var gotUser, gotTeam uuid.UUID
	var gotRole models.UserRole
	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotUser, err = GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		gotRole, err = GetUserRoleFromContext(r.Context())
		require.NoError(t, err)
		gotTeam, err = GetTeamIDFromContext(r.Context())
		require.NoError(t, err)
	}))

	rec := serve(h, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, identity.ID, gotUser)
	assert.Equal(t, models.RoleTeam, gotRole)
	assert.Equal(t, teamID, gotTeam)
}

func TestAuthenticate_Rejects(t *testing.T) {
	admin := &models.Identity{ID: uuid.New(), Role: models.RoleAdmin}
	expired, err := IssueToken(testSecret, admin, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", admin, time.Hour, time.Now())
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": admin.ID.String(), "role": "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	h := protected(models.RoleAdmin)
	tests := []struct {
		name  string
		token string
	}{
		{"no header", ""},
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"`+errorMessage(tt.token)+`"}`, rec.Body.String())
		})
	}
}

func errorMessage(token string) string {
	if token == "" {
		return "missing or malformed authorization header"
	}
	return "invalid or expired token"
}

func TestRequireRole(t *testing.T) {
	admin := &models.Identity{ID: uuid.New(), Role: models.RoleAdmin}
	adminToken, err := IssueToken(testSecret, admin, time.Hour, time.Now())
	require.NoError(t, err)

	adminOnly := protected(models.RoleAdmin)
	teamOnly := protected(models.RoleTeam)

	assert.Equal(t, http.StatusNoContent, serve(adminOnly, adminToken).Code)
	assert.Equal(t, http.StatusForbidden, serve(teamOnly, adminToken).Code)
}

func TestGetTeamIDFromContext_AdminToken(t *testing.T) {
	admin := &models.Identity{ID: uuid.New(), Role: models.RoleAdmin}
	token, err := IssueToken(testSecret, admin, time.Hour, time.Now())
	require.NoError(t, err)

	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := GetTeamIDFromContext(r.Context())
		assert.Error(t, err)
	}))
	serve(h, token)
}

func TestAuthenticateWebSocket_QueryToken(t *testing.T) {
	identity := &models.Identity{ID: uuid.New(), Role: models.RoleAdmin}
	token, err := IssueToken(testSecret, identity, time.Hour, time.Now())
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	request := func(h http.Handler, query string) int {
		req := httptest.NewRequest(http.MethodGet, "/ws"+query, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	ws := AuthenticateWebSocket(testSecret)(ok)
	assert.Equal(t, http.StatusNoContent, request(ws, "?access_token="+token))
	assert.Equal(t, http.StatusNoContent, serve(ws, token).Code, "header still works")
	assert.Equal(t, http.StatusUnauthorized, request(ws, ""))
	assert.Equal(t, http.StatusUnauthorized, request(ws, "?access_token=garbage"))

	assert.Equal(t, http.StatusUnauthorized, request(Authenticate(testSecret)(ok), "?access_token="+token),
		"plain routes ignore the query parameter")
}
