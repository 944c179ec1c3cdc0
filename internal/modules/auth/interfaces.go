package auth

import (
	"context"

	"crmnice/internal/domain"
)

// UserRepository lists only the methods the auth service uses.
type UserRepository interface {
	CreateWithProfile(ctx context.Context, u *domain.User, p *domain.UserProfile) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateWithProfile(ctx context.Context, u *domain.User, p *domain.UserProfile) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// CountryReader resolves the optional country of an account.
type CountryReader interface {
	GetCountry(ctx context.Context, id int64) (*domain.Country, error)
	AllCountries(ctx context.Context) ([]domain.Country, error)
}

type tokenIssuer interface {
	GenerateToken(userID int64, username string) (string, error)
}
