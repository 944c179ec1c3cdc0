package domain

import (
	"strings"
	"time"
)

var Languages = []string{"ru", "en", "uk"}

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:254;index"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`

	Profile *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string { return "users" }

// DisplayName is "First Last", falling back to the username.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full
}

type UserProfile struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	UserID       int64     `json:"user_id" gorm:"not null;uniqueIndex"`
	Role         Role      `json:"role" gorm:"size:20;not null;default:'MANAGER'"`
	CountryID    *int64    `json:"country_id" gorm:"index"`
	Avatar       string    `json:"avatar" gorm:"size:255"`
	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
	Language     string    `json:"language" gorm:"size:10;not null;default:'ru'"`
	Description  string    `json:"description" gorm:"type:text"`

	Country *Country `json:"country,omitempty" gorm:"foreignKey:CountryID;constraint:OnDelete:RESTRICT"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// Identity is the authenticated requester as seen by handlers.
type Identity struct {
	UserID      int64
	Username    string
	DisplayName string
	Role        Role
	CountryID   *int64
}

func (i *Identity) Can(c Capability) bool {
	return i != nil && i.Role.Can(c)
}
