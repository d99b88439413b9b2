package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"networked/models"
	"networked/repository/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	id := primitive.NewObjectID()

	raw, err := tokens.Issue(id)
	require.NoError(t, err)
	got, err := tokens.UserID(raw)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), got)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.Error(t, err)

	expired, err := NewTokens("secret", -time.Minute).Issue(id)
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.Error(t, err)
}

func TestProtectedChain(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	tokens := NewTokens("secret", time.Hour)

	mk := func(email string, role models.Role, banned bool) *models.User {
		u := &models.User{Email: email, Role: role, FirstName: "T"}
		require.NoError(t, store.Users.Create(ctx, u))
		if banned {
			require.NoError(t, store.Users.SetBan(ctx, u.ID, true, "spam"))
		}
		return u
	}
	member := mk("member@example.com", models.RoleUser, false)
	company := mk("company@example.com", models.RoleCompany, false)
	admin := mk("admin@example.com", models.RoleAdmin, false)
	banned := mk("banned@example.com", models.RoleUser, true)

	r := gin.New()
	authed := r.Group("/", JWTAuth(tokens), LoadUser(store.Users))
	authed.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, CurrentUser(c).Email) })
	authed.GET("/company", RequireRole(models.RoleCompany), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(path string, u *models.User, viaQuery bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if u != nil {
			tok, err := tokens.Issue(u.ID)
			require.NoError(t, err)
			if viaQuery {
				req = httptest.NewRequest(http.MethodGet, path+"?token="+tok, nil)
			} else {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("/me", nil, false).Code)

	w := call("/me", member, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "member@example.com", w.Body.String())
	assert.Equal(t, http.StatusOK, call("/me", member, true).Code)

	w = call("/me", banned, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "spam")

	assert.Equal(t, http.StatusForbidden, call("/company", member, false).Code)
	assert.Equal(t, http.StatusNoContent, call("/company", company, false).Code)
	assert.Equal(t, http.StatusNoContent, call("/company", admin, false).Code)

	ghost := &models.User{ID: primitive.NewObjectID()}
	assert.Equal(t, http.StatusUnauthorized, call("/me", ghost, false).Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(2, time.Minute)
	clock := time.Now()
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	clock = clock.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewIPRateLimiter(5, time.Minute)
	clock := time.Now()
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))
	clock = clock.Add(30 * time.Second)
	assert.True(t, rl.Allow("3.3.3.3"))
	assert.Len(t, rl.requests, 3)

	clock = clock.Add(31 * time.Second)
	assert.True(t, rl.Allow("4.4.4.4"))
	assert.Len(t, rl.requests, 2)
	assert.NotContains(t, rl.requests, "1.1.1.1")
	assert.NotContains(t, rl.requests, "2.2.2.2")
}
