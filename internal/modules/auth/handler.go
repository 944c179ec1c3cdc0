package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crmnice/internal/domain"
	"crmnice/internal/middleware"
	"crmnice/internal/pkg/logger"
	"crmnice/internal/pkg/render"
	"crmnice/internal/pkg/response"
)

const (
	homeURL  = "/companies/"
	usersURL = "/settings/users/"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Handler manages all HTTP interactions for accounts
type Handler struct {
	service *Service
	cookie  CookieConfig
}

// NewHandler creates a new auth handler with injected service
func NewHandler(service *Service, cookie CookieConfig) *Handler {
	return &Handler{service: service, cookie: cookie}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.GET("/login/", h.LoginForm)
		accounts.POST("/login/", h.Login)
		accounts.GET("/logout/", h.Logout)
		accounts.POST("/logout/", h.Logout)

		me := accounts.Group("", middleware.RequireLogin())
		me.GET("/profile/", h.Profile)
		me.GET("/profile/edit/", h.ProfileEditForm)
		me.POST("/profile/edit/", h.UpdateProfile)
		me.POST("/password/", h.ChangePassword)
	}

	manage := middleware.RequireCapability(domain.CapManageUsers)
	users := rg.Group("/settings/users", manage)
	{
		users.GET("/", h.Users)
		users.GET("/add/", h.UserAddForm)
		users.POST("/add/", h.CreateUser)
		users.GET("/:id/edit/", h.UserEditForm)
		users.POST("/:id/edit/", h.UpdateUser)
		users.GET("/:id/delete/", h.UserDeleteConfirm)
		users.POST("/:id/delete/", h.DeleteUser)
	}
}

/* ---------- SESSION ---------- */

// LoginForm показывает страницу входа; вошедших сразу отправляет к компаниям.
func (h *Handler) LoginForm(c *gin.Context) {
	if middleware.CurrentIdentity(c) != nil {
		c.Redirect(http.StatusSeeOther, homeURL)
		return
	}
	render.View(c, http.StatusOK, "accounts/login", gin.H{"next": c.Query("next")})
}

func (h *Handler) Login(c *gin.Context) {
	var f LoginForm
	_ = c.ShouldBind(&f)
	if f.Next == "" {
		f.Next = c.Query("next")
	}

	result, err := h.service.Login(c.Request.Context(), f)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			render.FormError(c, "accounts/login", f, verr.Message, verr.Fields)
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInactive):
			logger.Info("login refused", zap.String("username", f.Username), zap.Error(err))
			render.FormError(c, "accounts/login", f, capitalizeFirst(err.Error())+".", nil)
		default:
			response.Internal(c, err)
		}
		return
	}

	h.setSession(c, result.Token, int(h.cookie.TTL.Seconds()))
	c.Redirect(http.StatusSeeOther, safeNext(f.Next))
}

func (h *Handler) Logout(c *gin.Context) {
	h.setSession(c, "", -1)
	c.Redirect(http.StatusSeeOther, middleware.LoginURL)
}

func (h *Handler) setSession(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

// safeNext only follows local paths after login.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return homeURL
	}
	return next
}

/* ---------- PROFILE ---------- */

func (h *Handler) Profile(c *gin.Context) {
	viewer := middleware.CurrentIdentity(c)
	user, err := h.service.GetUser(c.Request.Context(), viewer.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.View(c, http.StatusOK, "accounts/profile", gin.H{"user": ToUserView(user), "profile": ProfileFormFrom(user)})
}

func (h *Handler) ProfileEditForm(c *gin.Context) {
	viewer := middleware.CurrentIdentity(c)
	user, err := h.service.GetUser(c.Request.Context(), viewer.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "accounts/profile_edit_modal", gin.H{
		"form":      ProfileFormFrom(user),
		"languages": domain.Languages,
	})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	viewer := middleware.CurrentIdentity(c)
	var f ProfileForm
	_ = c.ShouldBind(&f)
	if _, err := h.service.UpdateProfile(c.Request.Context(), viewer.UserID, &f); err != nil {
		h.rejectForm(c, "accounts/profile_edit_modal", gin.H{"form": f, "languages": domain.Languages}, err)
		return
	}
	render.Redirect(c, "/accounts/profile/", render.LevelSuccess, "Profile updated.")
}

func (h *Handler) ChangePassword(c *gin.Context) {
	viewer := middleware.CurrentIdentity(c)
	var f PasswordForm
	_ = c.ShouldBind(&f)
	if err := h.service.ChangePassword(c.Request.Context(), viewer.UserID, &f); err != nil {
		h.rejectForm(c, "accounts/password_modal", gin.H{}, err)
		return
	}
	render.Redirect(c, "/accounts/profile/", render.LevelSuccess, "Password changed.")
}

/* ---------- USERS ---------- */

func (h *Handler) Users(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "settings/users", gin.H{"users": users})
}

// userForm renders the add/edit modal, or re-renders it with errors.
func (h *Handler) userForm(c *gin.Context, view string, f UserForm, id int64, err error) {
	countries, cerr := h.service.Countries(c.Request.Context())
	if cerr != nil {
		response.Internal(c, cerr)
		return
	}
	data := gin.H{"form": f, "countries": countries, "roles": []domain.Role{
		domain.RoleSuperAdmin, domain.RoleManager, domain.RoleObserver,
	}}
	if id != 0 {
		data["id"] = id
	}
	if err != nil {
		h.rejectForm(c, view, data, err)
		return
	}
	render.Fragment(c, http.StatusOK, view, data)
}

func (h *Handler) UserAddForm(c *gin.Context) {
	h.userForm(c, "settings/modals/user_add", UserForm{Role: string(domain.RoleManager)}, 0, nil)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var f UserForm
	_ = c.ShouldBind(&f)
	user, err := h.service.CreateUser(c.Request.Context(), &f)
	if err != nil {
		h.userForm(c, "settings/modals/user_add", f, 0, err)
		return
	}
	render.Redirect(c, usersURL, render.LevelSuccess, fmt.Sprintf("User %q created.", user.Username))
}

func (h *Handler) UserEditForm(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.userForm(c, "settings/modals/user_edit", UserFormFrom(user), id, nil)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var f UserForm
	_ = c.ShouldBind(&f)
	user, err := h.service.UpdateUser(c.Request.Context(), id, &f)
	if errors.Is(err, ErrNotFound) {
		h.fail(c, err)
		return
	}
	if err != nil {
		h.userForm(c, "settings/modals/user_edit", f, id, err)
		return
	}
	render.Redirect(c, usersURL, render.LevelSuccess, fmt.Sprintf("User %q updated.", user.Username))
}

func (h *Handler) UserDeleteConfirm(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/user_delete", gin.H{
		"user_id":   id,
		"user_name": user.DisplayName(),
	})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.service.DeleteUser(c.Request.Context(), middleware.CurrentIdentity(c), id)
	switch {
	case err == nil:
		render.Redirect(c, usersURL, render.LevelSuccess, fmt.Sprintf("User %q deleted.", user.Username))
	case errors.Is(err, ErrSelfDelete):
		render.Redirect(c, usersURL, render.LevelError, capitalizeFirst(err.Error())+".")
	default:
		h.fail(c, err)
	}
}

/* ---------- helpers ---------- */

func (h *Handler) rejectForm(c *gin.Context, view string, values any, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		render.Fragment(c, http.StatusBadRequest, view, render.FormState{
			Values:      values,
			Message:     verr.Message,
			FieldErrors: verr.Fields,
		})
		return
	}
	h.fail(c, err)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "User")
		return
	}
	response.Internal(c, err)
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.NotFound(c, "User")
		return 0, false
	}
	return id, true
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
