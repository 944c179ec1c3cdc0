package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ClientIDCounter is the counter row client ids are drawn from.
const ClientIDCounter = "company_client_id"

// FormatClientID renders the external company number: 7 -> "#00007".
func FormatClientID(n int64) string {
	return fmt.Sprintf("#%05d", n)
}

type Company struct {
	ID              int64                       `json:"id" gorm:"primaryKey"`
	ClientID        *string                     `json:"client_id" gorm:"size:32;uniqueIndex"`
	Name            string                      `json:"name" gorm:"size:255;not null;index"`
	CityID          *int64                      `json:"city_id" gorm:"index"`
	CategoryID      *int64                      `json:"category_id" gorm:"index"`
	StatusID        *int64                      `json:"status_id" gorm:"index"`
	Telegram        string                      `json:"telegram" gorm:"size:255"`
	Website         string                      `json:"website" gorm:"size:200"`
	Instagram       string                      `json:"instagram" gorm:"size:255"`
	ShortComment    string                      `json:"short_comment" gorm:"size:500"`
	FullDescription string                      `json:"full_description" gorm:"type:text"`
	Keywords        string                      `json:"keywords" gorm:"type:text"`
	CallDate        *datatypes.Date             `json:"call_date"`
	Logo            string                      `json:"logo" gorm:"size:255"`
	Photos          datatypes.JSONSlice[string] `json:"photos"`
	CreatedAt       time.Time                   `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time                   `json:"updated_at" gorm:"index"`

	City      *City            `json:"city,omitempty" gorm:"foreignKey:CityID;constraint:OnDelete:RESTRICT"`
	Category  *Category        `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Status    *Status          `json:"status,omitempty" gorm:"foreignKey:StatusID;constraint:OnDelete:RESTRICT"`
	Phones    []CompanyPhone   `json:"phones,omitempty" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	Addresses []CompanyAddress `json:"addresses,omitempty" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
	Comments  []CompanyComment `json:"comments,omitempty" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`

	// Set per viewer by the list query, never stored.
	IsFavorite bool `json:"is_favorite" gorm:"-"`
}

func (Company) TableName() string { return "companies" }

// ClientIDValue returns the client id or "" before it is assigned.
func (c *Company) ClientIDValue() string {
	if c.ClientID == nil {
		return ""
	}
	return *c.ClientID
}

// CallDateValue returns the call date as a time, nil when unset.
func (c *Company) CallDateValue() *time.Time {
	if c.CallDate == nil {
		return nil
	}
	t := time.Time(*c.CallDate)
	return &t
}

// FavoritePhone is the preferred phone, or the first one.
func (c *Company) FavoritePhone() *CompanyPhone {
	for i := range c.Phones {
		if c.Phones[i].IsFavorite {
			return &c.Phones[i]
		}
	}
	if len(c.Phones) > 0 {
		return &c.Phones[0]
	}
	return nil
}

// FavoriteAddress is the preferred address, or the first one.
func (c *Company) FavoriteAddress() *CompanyAddress {
	for i := range c.Addresses {
		if c.Addresses[i].IsFavorite {
			return &c.Addresses[i]
		}
	}
	if len(c.Addresses) > 0 {
		return &c.Addresses[0]
	}
	return nil
}

type CompanyPhone struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	CompanyID   int64  `json:"company_id" gorm:"not null;index"`
	Number      string `json:"number" gorm:"size:32;not null"`
	ContactName string `json:"contact_name" gorm:"size:255"`
	IsFavorite  bool   `json:"is_favorite" gorm:"not null;default:false"`
}

func (CompanyPhone) TableName() string { return "company_phones" }

type CompanyAddress struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	CompanyID  int64  `json:"company_id" gorm:"not null;index"`
	Address    string `json:"address" gorm:"size:500;not null"`
	IsFavorite bool   `json:"is_favorite" gorm:"not null;default:false"`
}

func (CompanyAddress) TableName() string { return "company_addresses" }

type CompanyComment struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	CompanyID  int64     `json:"company_id" gorm:"not null;index"`
	AuthorName string    `json:"author_name" gorm:"size:255;not null"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (CompanyComment) TableName() string { return "company_comments" }

// Counter is a named monotonically increasing value.
type Counter struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string { return "counters" }
