package favorite

import (
	"time"

	"crmnice/internal/domain"
)

// FavoriteItem - строка страницы избранного
type FavoriteItem struct {
	Company *domain.Company `json:"company"`
	AddedAt time.Time       `json:"added_at"`
}

// ListView - контекст страницы /favorites/
type ListView struct {
	Favorites []FavoriteItem `json:"favorites"`
	Total     int            `json:"total"`
}

// ToListView конвертирует закладки в контекст страницы
func ToListView(favorites []domain.UserFavoriteCompany) ListView {
	items := make([]FavoriteItem, 0, len(favorites))
	for _, f := range favorites {
		items = append(items, FavoriteItem{Company: f.Company, AddedAt: f.CreatedAt})
	}
	return ListView{Favorites: items, Total: len(items)}
}
