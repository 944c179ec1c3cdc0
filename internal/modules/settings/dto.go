package settings

import (
	"strconv"
	"strings"

	"crmnice/internal/domain"
)

type CountryForm struct {
	Name      string `form:"name" json:"name" validate:"required,max=100"`
	Code      string `form:"code" json:"code" validate:"required,len=2,alpha"`
	FlagEmoji string `form:"flag_emoji" json:"flag_emoji" validate:"max=8"`
}

func (f *CountryForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Code = strings.ToUpper(strings.TrimSpace(f.Code))
	f.FlagEmoji = strings.TrimSpace(f.FlagEmoji)
}

type CityForm struct {
	Name    string `form:"name" json:"name" validate:"required,max=100"`
	Country string `form:"country" json:"country" validate:"required,numeric"`
}

type CategoryForm struct {
	Name         string `form:"name" json:"name" validate:"required,max=100"`
	BadgeColorBg string `form:"badge_color_bg" json:"badge_color_bg" validate:"omitempty,hexcolor"`
	BadgeColorFg string `form:"badge_color_fg" json:"badge_color_fg" validate:"omitempty,hexcolor"`
	BadgeClass   string `form:"badge_class" json:"badge_class" validate:"max=64"`
}

// StatusForm keeps the checkbox as text: browsers send "on".
type StatusForm struct {
	Name       string `form:"name" json:"name" validate:"required,max=100"`
	IsDefault  string `form:"is_default" json:"is_default"`
	BadgeClass string `form:"badge_class" json:"badge_class" validate:"omitempty,oneof=badge--secondary badge--primary badge--success badge--warning badge--danger"`
}

func (f StatusForm) isDefault() bool {
	switch strings.ToLower(strings.TrimSpace(f.IsDefault)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func CountryFormFrom(c *domain.Country) CountryForm {
	return CountryForm{Name: c.Name, Code: c.Code, FlagEmoji: c.FlagEmoji}
}

func CityFormFrom(c *domain.City) CityForm {
	return CityForm{Name: c.Name, Country: idString(c.CountryID)}
}

func CategoryFormFrom(c *domain.Category) CategoryForm {
	return CategoryForm{
		Name:         c.Name,
		BadgeColorBg: c.BadgeColorBg,
		BadgeColorFg: c.BadgeColorFg,
		BadgeClass:   c.BadgeClass,
	}
}

func StatusFormFrom(s *domain.Status) StatusForm {
	f := StatusForm{Name: s.Name, BadgeClass: s.BadgeClass}
	if s.IsDefault {
		f.IsDefault = "on"
	}
	return f
}

// CitiesPage is the context of the cities table.
type CitiesPage struct {
	Cities          []domain.CityWithCount `json:"cities"`
	Countries       []domain.Country       `json:"countries"`
	SelectedCountry string                 `json:"selected_country"`
}

// Dashboard shows how much reference data exists.
type Dashboard struct {
	Countries  int `json:"countries"`
	Cities     int `json:"cities"`
	Categories int `json:"categories"`
	Statuses   int `json:"statuses"`
}

// CityOption is one entry of the cities-by-country answer.
type CityOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeleteConfirm is the context of a delete confirmation modal.
type DeleteConfirm struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	UsageCount int64  `json:"usage_count"`
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
