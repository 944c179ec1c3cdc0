// Package render is the boundary between handlers and the page renderer.
// Handlers name a view and hand over its data; a request carrying
// "HX-Request: true" gets the fragment variant of the view.
package render

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"crmnice/internal/pkg/response"
)

const (
	flashCookie = "flash"

	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelInfo    = "info"
)

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Page is what the renderer receives.
type Page struct {
	View     string  `json:"view"`
	Partial  bool    `json:"partial"`
	Messages []Flash `json:"messages,omitempty"`
	Context  any     `json:"context"`
}

// FormState re-renders a rejected form with what the user typed.
type FormState struct {
	Values      any               `json:"values"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func IsPartial(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("HX-Request"), "true")
}

// ViewName picks the full page or its fragment.
func ViewName(c *gin.Context, page string) string {
	if IsPartial(c) {
		return page + "_content"
	}
	return page
}

func View(c *gin.Context, status int, page string, data any) {
	response.Success(c, status, Page{
		View:     ViewName(c, page),
		Partial:  IsPartial(c),
		Messages: popFlashes(c),
		Context:  data,
	})
}

// Fragment renders a named fragment regardless of the request header.
func Fragment(c *gin.Context, status int, name string, data any) {
	response.Success(c, status, Page{View: name, Partial: true, Context: data})
}

func FormError(c *gin.Context, page string, values any, message string, fieldErrors map[string]string) {
	View(c, http.StatusBadRequest, page, FormState{
		Values:      values,
		Message:     message,
		FieldErrors: fieldErrors,
	})
}

// Redirect answers 303 See Other and leaves a one-shot message for the
// next rendered page.
func Redirect(c *gin.Context, location, level, message string) {
	if message != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(flashCookie, level+"|"+message, 60, "/", "", false, true)
	}
	c.Redirect(http.StatusSeeOther, location)
}

func popFlashes(c *gin.Context) []Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)

	level, msg, ok := strings.Cut(raw, "|")
	if !ok {
		return []Flash{{Level: LevelInfo, Message: raw}}
	}
	return []Flash{{Level: level, Message: msg}}
}
