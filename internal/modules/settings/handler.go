package settings

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crmnice/internal/domain"
	"crmnice/internal/middleware"
	"crmnice/internal/pkg/render"
	"crmnice/internal/pkg/response"
	"crmnice/internal/repository"
)

const (
	countriesURL  = "/settings/countries/"
	citiesURL     = "/settings/cities/"
	categoriesURL = "/settings/categories/"
	statusesURL   = "/settings/statuses/"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireCapability(domain.CapViewCompanies)
	manage := middleware.RequireCapability(domain.CapManageSettings)

	rg.GET("/api/cities-by-country/", view, h.CitiesByCountry)

	s := rg.Group("/settings")
	{
		s.GET("/", manage, h.Dashboard)

		s.GET("/countries/", manage, h.Countries)
		s.GET("/countries/add/", manage, h.CountryAddForm)
		s.POST("/countries/add/", manage, h.CreateCountry)
		s.GET("/countries/:id/edit/", manage, h.CountryEditForm)
		s.POST("/countries/:id/edit/", manage, h.UpdateCountry)
		s.GET("/countries/:id/delete/", manage, h.CountryDeleteConfirm)
		s.POST("/countries/:id/delete/", manage, h.DeleteCountry)

		s.GET("/cities/", manage, h.Cities)
		s.GET("/cities/add/", manage, h.CityAddForm)
		s.POST("/cities/add/", manage, h.CreateCity)
		s.GET("/cities/:id/edit/", manage, h.CityEditForm)
		s.POST("/cities/:id/edit/", manage, h.UpdateCity)
		s.GET("/cities/:id/delete/", manage, h.CityDeleteConfirm)
		s.POST("/cities/:id/delete/", manage, h.DeleteCity)

		s.GET("/categories/", manage, h.Categories)
		s.GET("/categories/add/", manage, h.CategoryAddForm)
		s.POST("/categories/add/", manage, h.CreateCategory)
		s.GET("/categories/:id/edit/", manage, h.CategoryEditForm)
		s.POST("/categories/:id/edit/", manage, h.UpdateCategory)
		s.GET("/categories/:id/delete/", manage, h.CategoryDeleteConfirm)
		s.POST("/categories/:id/delete/", manage, h.DeleteCategory)

		// managers see the status legend
		s.GET("/statuses/", view, h.Statuses)
		s.GET("/statuses/add/", manage, h.StatusAddForm)
		s.POST("/statuses/add/", manage, h.CreateStatus)
		s.GET("/statuses/:id/edit/", manage, h.StatusEditForm)
		s.POST("/statuses/:id/edit/", manage, h.UpdateStatus)
		s.GET("/statuses/:id/delete/", manage, h.StatusDeleteConfirm)
		s.POST("/statuses/:id/delete/", manage, h.DeleteStatus)
	}
}

func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "settings/dashboard", d)
}

// CitiesByCountry answers the dependent select on the company form.
func (h *Handler) CitiesByCountry(c *gin.Context) {
	cities, err := h.service.CityOptions(c.Request.Context(), c.Query("country_id"))
	if err != nil {
		response.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

/* ---------- COUNTRIES ---------- */

func (h *Handler) Countries(c *gin.Context) {
	countries, err := h.service.Countries(c.Request.Context())
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "settings/countries", gin.H{"countries": countries})
}

func (h *Handler) CountryAddForm(c *gin.Context) {
	render.Fragment(c, http.StatusOK, "settings/modals/country_add", gin.H{"form": CountryForm{}})
}

func (h *Handler) CreateCountry(c *gin.Context) {
	var f CountryForm
	_ = c.ShouldBind(&f)
	country, err := h.service.CreateCountry(c.Request.Context(), &f)
	if err != nil {
		h.rejectForm(c, "settings/modals/country_add", gin.H{"form": f}, err)
		return
	}
	render.Redirect(c, countriesURL, render.LevelSuccess, fmt.Sprintf("Country %q added.", country.Name))
}

func (h *Handler) CountryEditForm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	country, err := h.service.Country(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/country_edit", gin.H{
		"form": CountryFormFrom(country),
		"id":   id,
	})
}

func (h *Handler) UpdateCountry(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var f CountryForm
	_ = c.ShouldBind(&f)
	country, err := h.service.UpdateCountry(c.Request.Context(), id, &f)
	if err != nil {
		h.rejectForm(c, "settings/modals/country_edit", gin.H{"form": f, "id": id}, err)
		return
	}
	render.Redirect(c, countriesURL, render.LevelSuccess, fmt.Sprintf("Country %q updated.", country.Name))
}

func (h *Handler) CountryDeleteConfirm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	confirm, err := h.service.ConfirmDeleteCountry(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/country_delete", confirm)
}

func (h *Handler) DeleteCountry(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	country, err := h.service.DeleteCountry(c.Request.Context(), id)
	name := ""
	if country != nil {
		name = country.Name
	}
	h.deleted(c, countriesURL, "country", name, err)
}

/* ---------- CITIES ---------- */

func (h *Handler) Cities(c *gin.Context) {
	page, err := h.service.Cities(c.Request.Context(), c.Query("country"))
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "settings/cities", page)
}

func (h *Handler) cityForm(c *gin.Context, status int, view string, f CityForm, id int64, err error) {
	countries, cerr := h.service.AllCountries(c.Request.Context())
	if cerr != nil {
		response.Internal(c, cerr)
		return
	}
	data := gin.H{"form": f, "countries": countries}
	if id != 0 {
		data["id"] = id
	}
	if err != nil {
		h.rejectForm(c, view, data, err)
		return
	}
	render.Fragment(c, status, view, data)
}

func (h *Handler) CityAddForm(c *gin.Context) {
	h.cityForm(c, http.StatusOK, "settings/modals/city_add", CityForm{Country: c.Query("country")}, 0, nil)
}

func (h *Handler) CreateCity(c *gin.Context) {
	var f CityForm
	_ = c.ShouldBind(&f)
	city, err := h.service.CreateCity(c.Request.Context(), &f)
	if err != nil {
		h.cityForm(c, http.StatusBadRequest, "settings/modals/city_add", f, 0, err)
		return
	}
	render.Redirect(c, citiesURL, render.LevelSuccess, fmt.Sprintf("City %q added.", city.Name))
}

func (h *Handler) CityEditForm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	city, err := h.service.City(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cityForm(c, http.StatusOK, "settings/modals/city_edit", CityFormFrom(city), id, nil)
}

func (h *Handler) UpdateCity(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var f CityForm
	_ = c.ShouldBind(&f)
	city, err := h.service.UpdateCity(c.Request.Context(), id, &f)
	if err != nil {
		h.cityForm(c, http.StatusBadRequest, "settings/modals/city_edit", f, id, err)
		return
	}
	render.Redirect(c, citiesURL, render.LevelSuccess, fmt.Sprintf("City %q updated.", city.Name))
}

func (h *Handler) CityDeleteConfirm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	confirm, err := h.service.ConfirmDeleteCity(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/city_delete", confirm)
}

func (h *Handler) DeleteCity(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	city, err := h.service.DeleteCity(c.Request.Context(), id)
	name := ""
	if city != nil {
		name = city.Name
	}
	h.deleted(c, citiesURL, "city", name, err)
}

/* ---------- CATEGORIES ---------- */

func (h *Handler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "settings/categories", gin.H{"categories": categories})
}

func (h *Handler) CategoryAddForm(c *gin.Context) {
	render.Fragment(c, http.StatusOK, "settings/modals/category_add", gin.H{"form": CategoryForm{
		BadgeColorBg: domain.DefaultCategoryBg,
		BadgeColorFg: domain.DefaultCategoryFg,
		BadgeClass:   domain.DefaultCategoryBadge,
	}})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var f CategoryForm
	_ = c.ShouldBind(&f)
	category, err := h.service.CreateCategory(c.Request.Context(), &f)
	if err != nil {
		h.rejectForm(c, "settings/modals/category_add", gin.H{"form": f}, err)
		return
	}
	render.Redirect(c, categoriesURL, render.LevelSuccess, fmt.Sprintf("Category %q added.", category.Name))
}

func (h *Handler) CategoryEditForm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	category, err := h.service.Category(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/category_edit", gin.H{
		"form": CategoryFormFrom(category),
		"id":   id,
	})
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var f CategoryForm
	_ = c.ShouldBind(&f)
	category, err := h.service.UpdateCategory(c.Request.Context(), id, &f)
	if err != nil {
		h.rejectForm(c, "settings/modals/category_edit", gin.H{"form": f, "id": id}, err)
		return
	}
	render.Redirect(c, categoriesURL, render.LevelSuccess, fmt.Sprintf("Category %q updated.", category.Name))
}

func (h *Handler) CategoryDeleteConfirm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	confirm, err := h.service.ConfirmDeleteCategory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/category_delete", confirm)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	category, err := h.service.DeleteCategory(c.Request.Context(), id)
	name := ""
	if category != nil {
		name = category.Name
	}
	h.deleted(c, categoriesURL, "category", name, err)
}

/* ---------- STATUSES ---------- */

func (h *Handler) Statuses(c *gin.Context) {
	statuses, err := h.service.Statuses(c.Request.Context())
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "settings/statuses", gin.H{
		"statuses":      statuses,
		"badge_classes": domain.StatusBadgeClasses,
	})
}

func (h *Handler) StatusAddForm(c *gin.Context) {
	render.Fragment(c, http.StatusOK, "settings/modals/status_add", gin.H{
		"form":          StatusForm{BadgeClass: domain.DefaultStatusBadge},
		"badge_classes": domain.StatusBadgeClasses,
	})
}

func (h *Handler) CreateStatus(c *gin.Context) {
	var f StatusForm
	_ = c.ShouldBind(&f)
	status, err := h.service.CreateStatus(c.Request.Context(), &f)
	if err != nil {
		h.rejectForm(c, "settings/modals/status_add", gin.H{"form": f, "badge_classes": domain.StatusBadgeClasses}, err)
		return
	}
	render.Redirect(c, statusesURL, render.LevelSuccess, fmt.Sprintf("Status %q added.", status.Name))
}

func (h *Handler) StatusEditForm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/status_edit", gin.H{
		"form":          StatusFormFrom(status),
		"id":            id,
		"badge_classes": domain.StatusBadgeClasses,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var f StatusForm
	_ = c.ShouldBind(&f)
	status, err := h.service.UpdateStatus(c.Request.Context(), id, &f)
	if err != nil {
		h.rejectForm(c, "settings/modals/status_edit", gin.H{
			"form":          f,
			"id":            id,
			"badge_classes": domain.StatusBadgeClasses,
		}, err)
		return
	}
	render.Redirect(c, statusesURL, render.LevelSuccess, fmt.Sprintf("Status %q updated.", status.Name))
}

func (h *Handler) StatusDeleteConfirm(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	confirm, err := h.service.ConfirmDeleteStatus(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "settings/modals/status_delete", confirm)
}

func (h *Handler) DeleteStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	status, err := h.service.DeleteStatus(c.Request.Context(), id)
	name := ""
	if status != nil {
		name = status.Name
	}
	h.deleted(c, statusesURL, "status", name, err)
}

/* ---------- helpers ---------- */

// deleted answers a delete. A refusal goes back to the list with the
// dependent count; nothing was removed in that case.
func (h *Handler) deleted(c *gin.Context, listURL, what, name string, err error) {
	var inUse *repository.InUseError
	switch {
	case err == nil:
		render.Redirect(c, listURL, render.LevelSuccess, fmt.Sprintf("%s %q deleted.", capitalize(what), name))
	case errors.As(err, &inUse):
		render.Redirect(c, listURL, render.LevelError,
			fmt.Sprintf("Cannot delete %s %q: it is used by %d %s.", what, name, inUse.Count, inUse.Dependents))
	default:
		h.fail(c, err)
	}
}

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
		response.NotFound(c, "Record")
		return
	}
	response.Internal(c, err)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.NotFound(c, "Record")
		return 0, false
	}
	return id, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
