package company

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crmnice/internal/domain"
	"crmnice/internal/middleware"
	"crmnice/internal/pkg/render"
	"crmnice/internal/pkg/response"
	"crmnice/internal/pkg/storage"
)

const listURL = "/companies/"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireCapability(domain.CapViewCompanies)
	edit := middleware.RequireCapability(domain.CapEditCompanies)

	companies := rg.Group("/companies")
	{
		companies.GET("/", view, h.List)
		companies.GET("/add/", edit, h.CreateForm)
		companies.POST("/add/", edit, h.Create)
		companies.GET("/check-duplicates/", view, h.CheckDuplicates)

		companies.GET("/:id/", view, h.Detail)
		companies.GET("/:id/edit/", edit, h.EditForm)
		companies.POST("/:id/edit/", edit, h.Update)
		companies.GET("/:id/delete/", edit, h.DeleteConfirm)
		companies.POST("/:id/delete/", edit, h.Delete)
		companies.GET("/:id/export/", view, h.Export)

		companies.POST("/:id/short-comment/", edit, h.UpdateShortComment)
		companies.POST("/:id/call-date/", edit, h.UpdateCallDate)
		companies.POST("/:id/comments/add/", edit, h.AddComment)
		companies.POST("/:id/comments/:comment_id/delete/", edit, h.DeleteComment)
		companies.POST("/:id/photos/delete/", edit, h.DeletePhoto)
		companies.POST("/:id/logo/delete/", edit, h.DeleteLogo)
	}
}

// formPage is the context of the create and edit pages.
type formPage struct {
	Form      CompanyForm  `json:"form"`
	Options   *FormOptions `json:"options"`
	CompanyID int64        `json:"company_id,omitempty"`
}

func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		// a malformed page number falls back to the first page
		q.Page = 1
	}

	view, err := h.service.List(c.Request.Context(), middleware.CurrentIdentity(c), q)
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "companies/list", view)
}

func (h *Handler) Detail(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	view, err := h.service.Detail(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.View(c, http.StatusOK, "companies/detail", view)
}

func (h *Handler) CreateForm(c *gin.Context) {
	ctx := c.Request.Context()
	opts, err := h.service.FormOptions(ctx, middleware.CurrentIdentity(c))
	if err != nil {
		response.Internal(c, err)
		return
	}
	form, err := h.service.NewForm(ctx)
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "companies/create", formPage{Form: form, Options: opts})
}

func (h *Handler) Create(c *gin.Context) {
	viewer := middleware.CurrentIdentity(c)
	form, err := bindForm(c)
	if err != nil {
		h.rejectForm(c, "companies/create", 0, form, err)
		return
	}

	company, err := h.service.Create(c.Request.Context(), viewer, form)
	if err != nil {
		h.rejectForm(c, "companies/create", 0, form, err)
		return
	}
	render.Redirect(c, listURL, render.LevelSuccess, fmt.Sprintf("Company %q created.", company.Name))
}

func (h *Handler) EditForm(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	company, err := h.service.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	opts, err := h.service.FormOptions(ctx, middleware.CurrentIdentity(c))
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "companies/edit", formPage{
		Form:      FormFromCompany(company),
		Options:   opts,
		CompanyID: id,
	})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	viewer := middleware.CurrentIdentity(c)
	form, err := bindForm(c)
	if err != nil {
		h.rejectForm(c, "companies/edit", id, form, err)
		return
	}

	company, err := h.service.Update(c.Request.Context(), viewer, id, form)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Company")
		return
	}
	if err != nil {
		h.rejectForm(c, "companies/edit", id, form, err)
		return
	}
	render.Redirect(c, listURL, render.LevelSuccess, fmt.Sprintf("Company %q updated.", company.Name))
}

// rejectForm re-renders the form with what was submitted. Errors that are
// not the user's fault become a 500.
func (h *Handler) rejectForm(c *gin.Context, page string, id int64, form *CompanyForm, err error) {
	var (
		verr  *ValidationError
		ferr  *storage.FileError
		msg   string
		field map[string]string
	)
	switch {
	case errors.As(err, &verr):
		msg, field = verr.Message, verr.Fields
	case errors.As(err, &ferr):
		msg = ferr.Error()
		field = map[string]string{"photos": msg}
	case errors.Is(err, ErrNoPhones):
		msg = ErrNoPhones.Error()
		field = map[string]string{"phones": msg}
	default:
		response.Internal(c, err)
		return
	}

	opts, oerr := h.service.FormOptions(c.Request.Context(), middleware.CurrentIdentity(c))
	if oerr != nil {
		response.Internal(c, oerr)
		return
	}
	if form == nil {
		form = &CompanyForm{}
	}
	render.FormError(c, page, formPage{Form: *form, Options: opts, CompanyID: id}, msg, field)
}

func (h *Handler) DeleteConfirm(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	company, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Fragment(c, http.StatusOK, "companies/delete_modal", gin.H{
		"company_id":   id,
		"company_name": company.Name,
	})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	company, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	render.Redirect(c, listURL, render.LevelSuccess, fmt.Sprintf("Company %q deleted.", company.Name))
}

func (h *Handler) UpdateShortComment(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	err := h.service.UpdateShortComment(c.Request.Context(), id, c.PostForm("short_comment"))
	switch {
	case err == nil:
		c.String(http.StatusOK, "OK")
	case errors.Is(err, ErrCommentTooLong):
		c.String(http.StatusBadRequest, err.Error())
	default:
		h.fail(c, err)
	}
}

func (h *Handler) UpdateCallDate(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	company, err := h.service.UpdateCallDate(c.Request.Context(), id, c.PostForm("call_date"))
	switch {
	case err == nil:
		render.Fragment(c, http.StatusOK, "components/call_date_display", gin.H{"company": company})
	case errors.Is(err, ErrBadDate):
		c.String(http.StatusBadRequest, err.Error())
	default:
		h.fail(c, err)
	}
}

func (h *Handler) AddComment(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	comments, err := h.service.AddComment(c.Request.Context(), middleware.CurrentIdentity(c), id, c.PostForm("comment_text"))
	switch {
	case err == nil:
		render.Fragment(c, http.StatusOK, "components/comments_list", gin.H{
			"comments":   comments,
			"company_id": id,
		})
	case errors.Is(err, ErrEmptyComment):
		c.String(http.StatusBadRequest, err.Error())
	default:
		h.fail(c, err)
	}
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	commentID, err := strconv.ParseInt(c.Param("comment_id"), 10, 64)
	if err != nil {
		response.NotFound(c, "Comment")
		return
	}
	if err := h.service.DeleteComment(c.Request.Context(), id, commentID); err != nil {
		h.fail(c, err)
		return
	}
	// the client drops the element
	c.String(http.StatusOK, "")
}

func (h *Handler) DeletePhoto(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	if err := h.service.RemovePhoto(c.Request.Context(), id, c.PostForm("photo_url")); err != nil {
		h.fail(c, err)
		return
	}
	render.Redirect(c, detailURL(id), "", "")
}

func (h *Handler) DeleteLogo(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	if err := h.service.RemoveLogo(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	render.Redirect(c, detailURL(id), "", "")
}

func (h *Handler) CheckDuplicates(c *gin.Context) {
	var q DuplicateQuery
	_ = c.ShouldBindQuery(&q)
	if raw := c.Query("exclude_id"); raw != "" {
		q.ExcludeID, _ = strconv.ParseInt(raw, 10, 64)
	}

	dups, err := h.service.CheckDuplicates(c.Request.Context(), q)
	if err != nil {
		response.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, dups)
}

func (h *Handler) Export(c *gin.Context) {
	id, ok := companyID(c)
	if !ok {
		return
	}
	company, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	rows := ExportRows(company, h.service.Location())
	var (
		body        []byte
		contentType string
		ext         string
	)
	if c.Query("format") == "xlsx" {
		body, err = WriteXLSX(rows)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		ext = "xlsx"
	} else {
		body, err = WriteCSV(rows)
		contentType = "text/csv; charset=utf-8"
		ext = "csv"
	}
	if err != nil {
		response.Internal(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": ExportFilename(company, ext),
	}))
	c.Data(http.StatusOK, contentType, body)
}

// fail maps service errors that are not form rejections.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Company")
	case errors.Is(err, ErrCommentNotFound):
		response.NotFound(c, "Comment")
	default:
		response.Internal(c, err)
	}
}

func companyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.NotFound(c, "Company")
		return 0, false
	}
	return id, true
}

func detailURL(id int64) string {
	return listURL + strconv.FormatInt(id, 10) + "/"
}

// bindForm reads the multipart (or urlencoded) company form.
func bindForm(c *gin.Context) (*CompanyForm, error) {
	var f CompanyForm
	if err := c.ShouldBind(&f); err != nil {
		return &f, &ValidationError{Message: "Invalid form data."}
	}
	_, hasAddresses := c.GetPostFormArray("addresses[]")
	_, hasFavorite := c.GetPostForm("favorite_address")
	f.AddressesSubmitted = hasAddresses || hasFavorite

	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		f.Photos = mf.File["photos"]
		if logos := mf.File["logo"]; len(logos) > 0 {
			f.Logo = logos[0]
		}
	}
	return &f, nil
}
