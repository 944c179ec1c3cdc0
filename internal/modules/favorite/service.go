package favorite

import (
	"context"
	"errors"
	"fmt"

	"crmnice/internal/domain"
	"crmnice/internal/repository"
)

// ErrCompanyNotFound - переключение для несуществующей компании.
var ErrCompanyNotFound = errors.New("company not found")

type Service struct {
	favorites FavoriteRepository
	companies CompanyLookup
}

func NewService(favorites FavoriteRepository, companies CompanyLookup) *Service {
	return &Service{favorites: favorites, companies: companies}
}

// Toggle добавляет компанию в избранное пользователя или убирает её оттуда.
func (s *Service) Toggle(ctx context.Context, userID, companyID int64) (domain.ToggleResult, error) {
	if _, err := s.companies.GetPlain(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrCompanyNotFound
		}
		return "", fmt.Errorf("get company: %w", err)
	}
	return s.favorites.Toggle(ctx, userID, companyID)
}

// List возвращает избранное зрителя; пользователь с назначенной страной
// видит только компании этой страны.
func (s *Service) List(ctx context.Context, viewer *domain.Identity) (ListView, error) {
	favorites, err := s.favorites.ListByUser(ctx, viewer.UserID, viewer.CountryID)
	if err != nil {
		return ListView{}, fmt.Errorf("list favorites: %w", err)
	}
	return ToListView(favorites), nil
}
