package handler_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/handler"
)

func TestRegister(t *testing.T) {
	api := newTestAPI(t)

	t.Run("created without credentials in the body", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users", map[string]string{
			"name": "Ada", "email": "ada@example.com", "password": "analytical",
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		body := rr.Body.String()
		assert.NotContains(t, body, "password")
		assert.NotContains(t, body, "analytical")

		var user userJSON
		require.NoError(t, json.Unmarshal([]byte(body), &user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "Ada", user.Name)
		assert.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users", map[string]string{
			"name": "Other Ada", "email": "ada@example.com", "password": "different",
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		errBody := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "duplicate", errBody.Error)
		assert.Equal(t, "user with this email already exists", errBody.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		for name, body := range map[string]map[string]string{
			"no name":     {"email": "x@example.com", "password": "pw"},
			"no email":    {"name": "X", "password": "pw"},
			"no password": {"name": "X", "email": "x@example.com"},
		} {
			t.Run(name, func(t *testing.T) {
				rr := api.do(t, http.MethodPost, "/api/users", body)
				require.Equal(t, http.StatusBadRequest, rr.Code)
				errBody := decode[handler.ErrorResponse](t, rr)
				assert.Equal(t, "validation_error", errBody.Error)
				assert.Equal(t, "Name, email, and password are required", errBody.Message)
			})
		}
	})

	t.Run("whitespace-only name", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users", map[string]string{
			"name": "   ", "email": "blank@example.com", "password": "pw",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("password over 72 bytes", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users", map[string]string{
			"name": "Long", "email": "long@example.com", "password": strings.Repeat("p", 73),
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation_error", decode[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users", `{"name":`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid JSON body", decode[handler.ErrorResponse](t, rr).Message)
	})
}

func TestListUsers(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	api.register(t, "Ada", "ada@example.com", "pw1")
	api.register(t, "Grace", "grace@example.com", "pw2")

	rr = api.do(t, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")

	users := decode[[]userJSON](t, rr)
	require.Len(t, users, 2)
	emails := []string{users[0].Email, users[1].Email}
	assert.ElementsMatch(t, []string{"ada@example.com", "grace@example.com"}, emails)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t)
	registered := api.register(t, "Ada", "ada@example.com", "analytical")

	t.Run("valid credentials", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users/login", map[string]string{
			"email": "ada@example.com", "password": "analytical",
		})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "password")

		user := decode[userJSON](t, rr)
		assert.Equal(t, registered.ID, user.ID)
		// Sessions are off in this API, so no cookie is issued.
		assert.Empty(t, rr.Result().Cookies())
	})

	// Both failures must be byte-for-byte identical.
	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := api.do(t, http.MethodPost, "/api/users/login", map[string]string{
			"email": "ada@example.com", "password": "wrong",
		})
		unknown := api.do(t, http.MethodPost, "/api/users/login", map[string]string{
			"email": "nobody@example.com", "password": "analytical",
		})

		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())

		errBody := decode[handler.ErrorResponse](t, wrong)
		assert.Equal(t, "unauthenticated", errBody.Error)
		assert.Equal(t, "Invalid email or password", errBody.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "ada@example.com"})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Email and password are required", decode[handler.ErrorResponse](t, rr).Message)
	})
}

func TestSessions(t *testing.T) {
	t.Run("me is not routed without sessions", func(t *testing.T) {
		api := newTestAPI(t)
		rr := api.do(t, http.MethodGet, "/api/users/me", nil)
		// Without the /me route, "me" is not a registered path under /api/users.
		assert.NotEqual(t, http.StatusOK, rr.Code)
	})

	api := newTestAPI(t, withSessions(t))
	registered := api.register(t, "Ada", "ada@example.com", "analytical")

	rr := api.do(t, http.MethodPost, "/api/users/login", map[string]string{
		"email": "ada@example.com", "password": "analytical",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session, "login should set the session cookie")
	assert.True(t, session.HttpOnly)

	t.Run("me with the cookie", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/users/me", nil, session)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, registered.ID, decode[userJSON](t, rr).ID)
	})

	t.Run("me without the cookie", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/users/me", nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "unauthenticated", decode[handler.ErrorResponse](t, rr).Error)
	})

	t.Run("me with a forged cookie", func(t *testing.T) {
		forged := &http.Cookie{Name: auth.CookieName, Value: session.Value + "x"}
		rr := api.do(t, http.MethodGet, "/api/users/me", nil, forged)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/users/logout", nil, session)
		require.Equal(t, http.StatusOK, rr.Code)

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.CookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
	})
}
