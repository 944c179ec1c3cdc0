package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"crmnice/internal/database/dbtest"
	"crmnice/internal/domain"
	"crmnice/internal/middleware"
	"crmnice/internal/pkg/jwt"
	"crmnice/internal/repository"
)

const cookieName = "crm_session"

type authEnv struct {
	router *gin.Engine
	users  *repository.UserRepository
	admin  *domain.User
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	db := dbtest.New(t)
	users := repository.NewUserRepository(db)
	tokens := jwt.New("secret", time.Hour)
	svc := NewService(users, repository.NewReferenceRepository(db), tokens)
	svc.cost = bcrypt.MinCost

	admin := &domain.User{Username: "root", PasswordHash: hashed(t, "rootpass"), IsActive: true}
	require.NoError(t, users.CreateWithProfile(context.Background(), admin,
		&domain.UserProfile{Role: domain.RoleSuperAdmin, Language: "ru"}))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Session(tokens, svc, cookieName))
	NewHandler(svc, CookieConfig{Name: cookieName, TTL: time.Hour}).RegisterRoutes(r.Group(""))
	return &authEnv{router: r, users: users, admin: admin}
}

func (e *authEnv) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *authEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := e.post("/accounts/login/", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestHandler_LoginSetsCookieAndFollowsNext(t *testing.T) {
	e := newAuthEnv(t)

	w := e.post("/accounts/login/", url.Values{"username": {"root"}, "password": {"rootpass"}, "next": {"/favorites/"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/favorites/", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)

	w = e.post("/accounts/login/", url.Values{"username": {"root"}, "password": {"rootpass"}, "next": {"//evil.example"}})
	assert.Equal(t, homeURL, w.Header().Get("Location"))

	w = e.post("/accounts/login/", url.Values{"username": {"root"}, "password": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password.")
}

func TestHandler_InactiveCannotLogIn(t *testing.T) {
	e := newAuthEnv(t)
	u := &domain.User{Username: "gone", PasswordHash: hashed(t, "secret1"), IsActive: false}
	require.NoError(t, e.users.CreateWithProfile(context.Background(), u, &domain.UserProfile{Role: domain.RoleManager}))

	w := e.post("/accounts/login/", url.Values{"username": {"gone"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "This account is disabled.")
}

func TestHandler_ProfileRequiresLogin(t *testing.T) {
	e := newAuthEnv(t)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/profile/", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/accounts/login/?next=%2Faccounts%2Fprofile%2F", w.Header().Get("Location"))

	cookie := e.login(t, "root", "rootpass")
	req := httptest.NewRequest(http.MethodGet, "/accounts/profile/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"root"`)
}

func TestHandler_UserManagement(t *testing.T) {
	e := newAuthEnv(t)
	cookie := e.login(t, "root", "rootpass")

	w := e.post("/settings/users/add/", url.Values{
		"name":     {"Olga Petrenko"},
		"username": {"olga"},
		"email":    {"Olga@Example.com"},
		"password": {"secret1"},
		"role":     {"OBSERVER"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, usersURL, w.Header().Get("Location"))

	olga, err := e.users.GetByUsername(context.Background(), "olga")
	require.NoError(t, err)
	assert.Equal(t, "olga@example.com", olga.Email)
	require.NotNil(t, olga.Profile)
	assert.Equal(t, domain.RoleObserver, olga.Profile.Role)

	// the new observer cannot manage users
	observer := e.login(t, "olga", "secret1")
	w = e.post("/settings/users/add/", url.Values{"username": {"x"}}, observer)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/companies/", w.Header().Get("Location"))

	// nobody deletes themselves
	w = e.post("/settings/users/"+strconv.FormatInt(e.admin.ID, 10)+"/delete/", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	_, err = e.users.GetByID(context.Background(), e.admin.ID)
	assert.NoError(t, err)

	w = e.post("/settings/users/"+strconv.FormatInt(olga.ID, 10)+"/delete/", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	_, err = e.users.GetByID(context.Background(), olga.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandler_Logout(t *testing.T) {
	e := newAuthEnv(t)
	cookie := e.login(t, "root", "rootpass")

	w := e.post("/accounts/logout/", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, middleware.LoginURL, w.Header().Get("Location"))
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}
