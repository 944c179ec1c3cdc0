package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"crmnice/internal/domain"
	"crmnice/internal/pkg/validator"
	"crmnice/internal/repository"
)

const invalidForm = "Please correct the errors in the form."

// Service contains the account logic: sessions, profiles and user management.
type Service struct {
	users     UserRepository
	countries CountryReader
	tokens    tokenIssuer
	cost      int
}

type LoginResult struct {
	User  *domain.User
	Token string
}

func NewService(users UserRepository, countries CountryReader, tokens tokenIssuer) *Service {
	return &Service{
		users:     users,
		countries: countries,
		tokens:    tokens,
		cost:      bcrypt.DefaultCost,
	}
}

func validate(form interface{}) error {
	if fields := validator.Validate(form); fields != nil {
		return &ValidationError{Message: invalidForm, Fields: fields}
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the credentials and issues a session token. Unknown users
// and wrong passwords look the same to the caller.
func (s *Service) Login(ctx context.Context, f LoginForm) (*LoginResult, error) {
	f.Username = strings.TrimSpace(f.Username)
	if err := validate(&f); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, f.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(f.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactive
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &LoginResult{User: user, Token: token}, nil
}

// LoadIdentity builds the request identity for the session middleware.
// A user without a profile is treated as a manager without a country.
func (s *Service) LoadIdentity(ctx context.Context, userID int64) (*domain.Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactive
	}
	id := &domain.Identity{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Role:        domain.RoleManager,
	}
	if user.Profile != nil {
		id.Role = user.Profile.Role
		id.CountryID = user.Profile.CountryID
	}
	return id, nil
}

/* ---------- USER MANAGEMENT ---------- */

func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, len(users))
	for i := range users {
		out[i] = ToUserView(&users[i])
	}
	return out, nil
}

func (s *Service) Countries(ctx context.Context) ([]domain.Country, error) {
	return s.countries.AllCountries(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// checkUserForm validates the account form; excludeID is the account being
// edited, 0 on create.
func (s *Service) checkUserForm(ctx context.Context, f *UserForm, excludeID int64) (*int64, error) {
	f.trim()
	if excludeID == 0 && f.Password == "" {
		return nil, fieldError("password", "This field is required.")
	}
	if err := validate(f); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsername(ctx, f.Username, excludeID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fieldError("username", "A user with this username already exists.")
	}
	taken, err = s.users.ExistsByEmail(ctx, f.Email, excludeID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fieldError("email", "A user with this email already exists.")
	}

	if f.Country == "" {
		return nil, nil
	}
	countryID, err := strconv.ParseInt(f.Country, 10, 64)
	if err != nil {
		return nil, fieldError("country", "Select a valid choice.")
	}
	if _, err := s.countries.GetCountry(ctx, countryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("country", "Select a valid choice.")
		}
		return nil, err
	}
	return &countryID, nil
}

// CreateUser creates the account and its profile together.
func (s *Service) CreateUser(ctx context.Context, f *UserForm) (*domain.User, error) {
	countryID, err := s.checkUserForm(ctx, f, 0)
	if err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(f.Password)
	if err != nil {
		return nil, err
	}

	first, last := splitName(f.Name)
	user := &domain.User{
		Username:     f.Username,
		Email:        f.Email,
		PasswordHash: hash,
		FirstName:    first,
		LastName:     last,
		IsActive:     true,
	}
	profile := &domain.UserProfile{
		Role:      domain.Role(f.Role),
		CountryID: countryID,
		Language:  "ru",
	}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fieldError("username", "A user with this username already exists.")
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser changes role, country, names, email and the active flag.
// A non-empty password replaces the old one.
func (s *Service) UpdateUser(ctx context.Context, id int64, f *UserForm) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	countryID, err := s.checkUserForm(ctx, f, id)
	if err != nil {
		return nil, err
	}

	user.FirstName, user.LastName = splitName(f.Name)
	user.Username = f.Username
	user.Email = f.Email
	user.IsActive = f.active()

	profile := user.Profile
	if profile == nil {
		profile = &domain.UserProfile{Language: "ru"}
	}
	profile.Role = domain.Role(f.Role)
	profile.CountryID = countryID
	profile.Country = nil

	if err := s.users.UpdateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fieldError("username", "A user with this username already exists.")
		}
		return nil, err
	}
	if f.Password != "" {
		hash, err := s.hashPassword(f.Password)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// DeleteUser removes another account; nobody deletes themselves.
func (s *Service) DeleteUser(ctx context.Context, viewer *domain.Identity, id int64) (*domain.User, error) {
	if viewer != nil && viewer.UserID == id {
		return nil, ErrSelfDelete
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

/* ---------- PROFILE ---------- */

func (s *Service) UpdateProfile(ctx context.Context, userID int64, f *ProfileForm) (*domain.User, error) {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Language = strings.TrimSpace(f.Language)
	f.Description = strings.TrimSpace(f.Description)
	if err := validate(f); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.Email != "" {
		taken, err := s.users.ExistsByEmail(ctx, f.Email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fieldError("email", "A user with this email already exists.")
		}
	}

	user.FirstName, user.LastName, user.Email = f.FirstName, f.LastName, f.Email
	profile := user.Profile
	if profile == nil {
		profile = &domain.UserProfile{Role: domain.RoleManager}
	}
	profile.Language = f.Language
	if profile.Language == "" {
		profile.Language = "ru"
	}
	profile.Description = f.Description
	profile.Country = nil

	if err := s.users.UpdateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword requires the current password and a matching confirmation.
func (s *Service) ChangePassword(ctx context.Context, userID int64, f *PasswordForm) error {
	if err := validate(f); err != nil {
		return err
	}
	if f.NewPassword != f.NewPassword2 {
		return fieldError("new_password2", "The two password fields didn't match.")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(f.OldPassword)); err != nil {
		return fieldError("old_password", "Your old password was entered incorrectly.")
	}

	hash, err := s.hashPassword(f.NewPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
