package auth

import (
	"strings"
	"time"

	"crmnice/internal/domain"
)

type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required,max=150"`
	Password string `form:"password" json:"-" validate:"required"`
	Next     string `form:"next" json:"next"`
}

// UserForm is the super-admin account form. Name is split into first and
// last name on the first space.
type UserForm struct {
	Name     string `form:"name" json:"name" validate:"required,max=300"`
	Username string `form:"username" json:"username" validate:"required,max=150"`
	Email    string `form:"email" json:"email" validate:"required,email,max=254"`
	Password string `form:"password" json:"-" validate:"omitempty,min=6"`
	Role     string `form:"role" json:"role" validate:"required,oneof=SUPER_ADMIN MANAGER OBSERVER"`
	Country  string `form:"country" json:"country" validate:"omitempty,numeric"`
	IsActive string `form:"is_active" json:"is_active"`
}

func (f *UserForm) trim() {
	f.Name = strings.Join(strings.Fields(f.Name), " ")
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.Password = strings.TrimSpace(f.Password)
	f.Role = strings.TrimSpace(f.Role)
	f.Country = strings.TrimSpace(f.Country)
}

func (f *UserForm) active() bool {
	switch strings.ToLower(strings.TrimSpace(f.IsActive)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// ProfileForm is what users may change about themselves.
type ProfileForm struct {
	FirstName   string `form:"first_name" json:"first_name" validate:"max=150"`
	LastName    string `form:"last_name" json:"last_name" validate:"max=150"`
	Email       string `form:"email" json:"email" validate:"omitempty,email,max=254"`
	Language    string `form:"language" json:"language" validate:"omitempty,oneof=ru en uk"`
	Description string `form:"description" json:"description" validate:"max=2000"`
}

type PasswordForm struct {
	OldPassword  string `form:"old_password" json:"-" validate:"required"`
	NewPassword  string `form:"new_password1" json:"-" validate:"required,min=6"`
	NewPassword2 string `form:"new_password2" json:"-" validate:"required"`
}

// UserView is one row of the users table.
type UserView struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	DisplayName  string      `json:"display_name"`
	Role         domain.Role `json:"role"`
	RoleLabel    string      `json:"role_label"`
	CountryID    *int64      `json:"country_id,omitempty"`
	CountryName  string      `json:"country_name,omitempty"`
	IsActive     bool        `json:"is_active"`
	RegisteredAt time.Time   `json:"registered_at"`
}

func ToUserView(u *domain.User) UserView {
	v := UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName(),
		IsActive:    u.IsActive,
	}
	if p := u.Profile; p != nil {
		v.Role = p.Role
		v.RoleLabel = p.Role.Label()
		v.CountryID = p.CountryID
		v.RegisteredAt = p.RegisteredAt
		if p.Country != nil {
			v.CountryName = p.Country.Name
		}
	}
	return v
}

func UserFormFrom(u *domain.User) UserForm {
	f := UserForm{
		Name:     strings.TrimSpace(u.FirstName + " " + u.LastName),
		Username: u.Username,
		Email:    u.Email,
	}
	if u.IsActive {
		f.IsActive = "on"
	}
	if p := u.Profile; p != nil {
		f.Role = string(p.Role)
		if p.CountryID != nil {
			f.Country = formatID(*p.CountryID)
		}
	}
	return f
}

func ProfileFormFrom(u *domain.User) ProfileForm {
	f := ProfileForm{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	if u.Profile != nil {
		f.Language = u.Profile.Language
		f.Description = u.Profile.Description
	}
	return f
}

// splitName puts the first word into the first name and the rest into the last name.
func splitName(name string) (first, last string) {
	first, last, _ = strings.Cut(name, " ")
	return first, last
}
