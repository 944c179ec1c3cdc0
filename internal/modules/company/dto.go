package company

import (
	"mime/multipart"
	"strconv"
	"strings"

	"crmnice/internal/domain"
	"crmnice/internal/repository"
)

// CompanyForm is the create/edit form as submitted.
type CompanyForm struct {
	Name            string `form:"name" json:"name" validate:"required,max=255"`
	City            string `form:"city" json:"city"`
	Category        string `form:"category" json:"category"`
	Status          string `form:"status" json:"status"`
	Telegram        string `form:"telegram" json:"telegram" validate:"max=255"`
	Website         string `form:"website" json:"website" validate:"omitempty,url,max=200"`
	Instagram       string `form:"instagram" json:"instagram" validate:"max=255"`
	ShortComment    string `form:"short_comment" json:"short_comment" validate:"max=500"`
	FullDescription string `form:"full_description" json:"full_description"`
	Keywords        string `form:"keywords" json:"keywords"`
	CallDate        string `form:"call_date" json:"call_date" validate:"omitempty,datetime=2006-01-02"`

	Phones        []string `form:"phones[]" json:"phones"`
	ContactNames  []string `form:"contact_names[]" json:"contact_names"`
	FavoritePhone string   `form:"favorite_phone" json:"favorite_phone"`

	Addresses       []string `form:"addresses[]" json:"addresses"`
	FavoriteAddress string   `form:"favorite_address" json:"favorite_address"`
	// AddressesSubmitted is false when the form had no address inputs at
	// all; the stored addresses are then left alone.
	AddressesSubmitted bool `form:"-" json:"-"`

	Photos []*multipart.FileHeader `form:"-" json:"-"`
	Logo   *multipart.FileHeader   `form:"-" json:"-"`
}

func (f *CompanyForm) trim() {
	for _, p := range []*string{
		&f.Name, &f.City, &f.Category, &f.Status, &f.Telegram, &f.Website,
		&f.Instagram, &f.ShortComment, &f.Keywords, &f.CallDate,
	} {
		*p = strings.TrimSpace(*p)
	}
}

// FormFromCompany fills the edit form with stored values.
func FormFromCompany(c *domain.Company) CompanyForm {
	f := CompanyForm{
		Name:            c.Name,
		Telegram:        c.Telegram,
		Website:         c.Website,
		Instagram:       c.Instagram,
		ShortComment:    c.ShortComment,
		FullDescription: c.FullDescription,
		Keywords:        c.Keywords,
		City:            idString(c.CityID),
		Category:        idString(c.CategoryID),
		Status:          idString(c.StatusID),
	}
	if d := c.CallDateValue(); d != nil {
		f.CallDate = d.Format(dateLayout)
	}
	for i, p := range c.Phones {
		f.Phones = append(f.Phones, p.Number)
		f.ContactNames = append(f.ContactNames, p.ContactName)
		if p.IsFavorite {
			f.FavoritePhone = strconv.Itoa(i)
		}
	}
	for i, a := range c.Addresses {
		f.Addresses = append(f.Addresses, a.Address)
		if a.IsFavorite {
			f.FavoriteAddress = strconv.Itoa(i)
		}
	}
	return f
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// ListQuery is the list page query string.
type ListQuery struct {
	Search      string   `form:"search"`
	Statuses    []string `form:"status"`
	Cities      []string `form:"city"`
	Category    string   `form:"category"`
	DateUpdated string   `form:"date_updated"`
	CallDate    string   `form:"call_date"`
	Page        int      `form:"page"`
}

// ListView is everything the list page shows.
type ListView struct {
	*repository.CompanyPage
	NewCount       int64             `json:"new_count"`
	AllStatuses    []domain.Status   `json:"all_statuses"`
	AllCities      []domain.City     `json:"all_cities"`
	AllCategories  []domain.Category `json:"all_categories"`
	FavoriteIDs    []int64           `json:"favorite_company_ids"`
	Search         string            `json:"search_query"`
	SelStatuses    []string          `json:"selected_statuses"`
	SelCities      []string          `json:"selected_cities"`
	SelCategory    string            `json:"selected_category"`
	SelDateUpdated string            `json:"selected_date_updated"`
	SelCallDate    string            `json:"selected_call_date"`
}

// FormOptions are the choices offered by the company form.
type FormOptions struct {
	Cities      []domain.City     `json:"cities"`
	Categories  []domain.Category `json:"categories"`
	Statuses    []domain.Status   `json:"statuses"`
	Countries   []domain.Country  `json:"countries"`
	UserCountry *int64            `json:"user_country,omitempty"`
}

// DetailView is the company card with the description made safe to embed.
type DetailView struct {
	Company         *domain.Company `json:"company"`
	DescriptionHTML string          `json:"description_html"`
}

// Duplicate answers one field of the duplicate check.
type Duplicate struct {
	Exists  bool   `json:"exists"`
	Company string `json:"company,omitempty"`
}

type DuplicateQuery struct {
	Phone     string `form:"phone"`
	Website   string `form:"website"`
	Instagram string `form:"instagram"`
	Telegram  string `form:"telegram"`
	ExcludeID int64  `form:"-"`
}
