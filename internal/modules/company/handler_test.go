package company

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmnice/internal/domain"
	"crmnice/internal/middleware"
)

func newTestRouter(e *env, viewer *domain.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if viewer != nil {
			c.Set(middleware.ContextIdentity, viewer)
		}
		c.Next()
	})
	NewHandler(e.svc).RegisterRoutes(r.Group(""))
	return r
}

type formField struct{ key, value string }

func multipartRequest(t *testing.T, target string, fields []formField, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		require.NoError(t, w.WriteField(f.key, f.value))
	}
	for name, content := range files {
		part, err := w.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateRedirects(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)

	req := multipartRequest(t, "/companies/add/", []formField{
		{"name", "Acme"},
		{"phones[]", "+380501112233"},
		{"contact_names[]", "Olga"},
		{"phones[]", "+380671112233"},
		{"contact_names[]", "Ivan"},
		{"favorite_phone", "1"},
		{"addresses[]", "Main st 1"},
	}, map[string][]byte{"shop.jpg": []byte("jpeg")})
	w := serve(r, req)

	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/companies/", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "flash=")

	var c domain.Company
	require.NoError(t, e.db.Preload("Phones").Preload("Addresses").First(&c).Error)
	assert.Equal(t, "#00001", c.ClientIDValue())
	require.Len(t, c.Phones, 2)
	require.Len(t, c.Addresses, 1)
	assert.True(t, c.Addresses[0].IsFavorite)
	require.Len(t, c.Photos, 1)
	assert.Equal(t, "+380671112233", c.FavoritePhone().Number)
}

func TestHandler_CreateRejectedRerendersForm(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)

	w := serve(r, postForm("/companies/add/", url.Values{"name": {"Acme"}, "phones[]": {" "}}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			View    string `json:"view"`
			Context struct {
				Values struct {
					Form CompanyForm `json:"form"`
				} `json:"values"`
				Message string `json:"message"`
			} `json:"context"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "companies/create", body.Data.View)
	assert.Equal(t, ErrNoPhones.Error(), body.Data.Context.Message)
	assert.Equal(t, "Acme", body.Data.Context.Values.Form.Name)
	assert.Zero(t, e.count(t, &domain.Company{}))
}

func TestHandler_ObserverCannotWrite(t *testing.T) {
	e := newEnv(t)
	observer := &domain.Identity{UserID: e.manager.UserID, Username: "obs", Role: domain.RoleObserver}
	r := newTestRouter(e, observer)

	w := serve(r, postForm("/companies/add/", url.Values{"name": {"Acme"}, "phones[]": {"1"}}))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/companies/", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), "warning")
	assert.Zero(t, e.count(t, &domain.Company{}))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/companies/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ListPartial(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)

	req := httptest.NewRequest(http.MethodGet, "/companies/?status=Active&page=abc", nil)
	req.Header.Set("HX-Request", "true")
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"view":"companies/list_content"`)
	assert.Contains(t, w.Body.String(), `"new_count":0`)
}

func TestHandler_NotFound(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)

	for _, path := range []string{"/companies/abc/", "/companies/999/", "/companies/999/export/"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "NOT_FOUND", path)
	}
	w := serve(r, postForm("/companies/999/comments/add/", url.Values{"comment_text": {"hi"}}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_InlineEndpoints(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)
	c, err := e.svc.Create(context.Background(), e.manager, validForm())
	require.NoError(t, err)
	base := fmt.Sprintf("/companies/%d/", c.ID)

	w := serve(r, postForm(base+"short-comment/", url.Values{"short_comment": {"call back"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = serve(r, postForm(base+"short-comment/", url.Values{"short_comment": {strings.Repeat("x", 501)}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, postForm(base+"call-date/", url.Values{"call_date": {"2026-13-45"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, postForm(base+"call-date/", url.Values{"call_date": {"2026-12-01"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "components/call_date_display")

	w = serve(r, postForm(base+"comments/add/", url.Values{"comment_text": {""}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, postForm(base+"comments/add/", url.Values{"comment_text": {"hello"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"author_name":"Anna K"`)
}

func TestHandler_CheckDuplicates(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)
	_, err := e.svc.Create(context.Background(), e.manager, validForm())
	require.NoError(t, err)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/companies/check-duplicates/?phone=%2B380501112233&website=", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"phone":{"exists":true,"company":"Acme"}}`, w.Body.String())
}

func TestHandler_ExportCSV(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)
	c, err := e.svc.Create(context.Background(), e.manager, validForm())
	require.NoError(t, err)

	w := serve(r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/companies/%d/export/", c.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "ID,#00001")

	w = serve(r, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/companies/%d/export/?format=xlsx", c.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestHandler_DeleteFlow(t *testing.T) {
	e := newEnv(t)
	r := newTestRouter(e, e.manager)
	c, err := e.svc.Create(context.Background(), e.manager, validForm())
	require.NoError(t, err)
	path := fmt.Sprintf("/companies/%d/delete/", c.ID)

	w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "companies/delete_modal")

	w = serve(r, httptest.NewRequest(http.MethodPost, path, nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Zero(t, e.count(t, &domain.Company{}))
}
