package domain

const (
	DefaultCategoryBg    = "#E5E7EB"
	DefaultCategoryFg    = "#111827"
	DefaultCategoryBadge = "badge--custom-blue"
	DefaultStatusBadge   = "badge--secondary"
)

// StatusBadgeClasses are the badge styles a status may use.
var StatusBadgeClasses = []string{
	"badge--secondary",
	"badge--primary",
	"badge--success",
	"badge--warning",
	"badge--danger",
}

type Country struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Code      string `json:"code" gorm:"size:10;not null;uniqueIndex"`
	FlagEmoji string `json:"flag_emoji" gorm:"size:8"`
}

func (Country) TableName() string { return "countries" }

type City struct {
	ID        int64    `json:"id" gorm:"primaryKey"`
	Name      string   `json:"name" gorm:"size:100;not null;uniqueIndex:idx_city_name_country"`
	CountryID int64    `json:"country_id" gorm:"not null;index;uniqueIndex:idx_city_name_country"`
	Country   *Country `json:"country,omitempty" gorm:"foreignKey:CountryID;constraint:OnDelete:RESTRICT"`
}

func (City) TableName() string { return "cities" }

type Category struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	BadgeColorBg string `json:"badge_color_bg" gorm:"size:16;not null;default:'#E5E7EB'"`
	BadgeColorFg string `json:"badge_color_fg" gorm:"size:16;not null;default:'#111827'"`
	BadgeClass   string `json:"badge_class" gorm:"size:64;not null;default:'badge--custom-blue'"`
}

func (Category) TableName() string { return "categories" }

type Status struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	IsDefault  bool   `json:"is_default" gorm:"not null;default:false"`
	BadgeClass string `json:"badge_class" gorm:"size:64;not null;default:'badge--secondary'"`
}

func (Status) TableName() string { return "statuses" }

// Counted rows feed the settings tables ("used by N companies").
type CountryWithCount struct {
	Country
	CityCount int64 `json:"city_count"`
}

type CityWithCount struct {
	City
	CompanyCount int64 `json:"company_count"`
}

type CategoryWithCount struct {
	Category
	CompanyCount int64 `json:"company_count"`
}

type StatusWithCount struct {
	Status
	CompanyCount int64 `json:"company_count"`
}
