package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crmnice/internal/domain"
)

type seedCountry struct {
	country domain.Country
	cities  []string
}

var seedCountries = []seedCountry{
	{domain.Country{Name: "Украина", Code: "UA", FlagEmoji: "🇺🇦"}, []string{"Киев", "Харьков", "Львов", "Одесса", "Днепр"}},
	{domain.Country{Name: "Польша", Code: "PL", FlagEmoji: "🇵🇱"}, []string{"Варшава", "Краков", "Гданьск", "Вроцлав"}},
	{domain.Country{Name: "Германия", Code: "DE", FlagEmoji: "🇩🇪"}, []string{"Берлин", "Мюнхен", "Гамбург", "Франкфурт", "Кёльн"}},
	{domain.Country{Name: "Чехия", Code: "CZ", FlagEmoji: "🇨🇿"}, []string{"Прага", "Брно", "Острава"}},
}

var seedCategories = []domain.Category{
	{Name: "IT-услуги", BadgeColorBg: "#3B82F6", BadgeColorFg: "#FFFFFF", BadgeClass: "badge--custom-blue"},
	{Name: "Ресторан", BadgeColorBg: "#10B981", BadgeColorFg: "#FFFFFF", BadgeClass: "badge--success"},
	{Name: "Образование", BadgeColorBg: "#F59E0B", BadgeColorFg: "#FFFFFF", BadgeClass: "badge--warning"},
	{Name: "Недвижимость", BadgeColorBg: "#8B5CF6", BadgeColorFg: "#FFFFFF", BadgeClass: "badge--custom-purple"},
}

var seedStatuses = []domain.Status{
	{Name: "Новый", IsDefault: true, BadgeClass: "badge--secondary"},
	{Name: "В работе", BadgeClass: "badge--primary"},
	{Name: "Закрыто", BadgeClass: "badge--success"},
}

// SeedReferenceData inserts the starter countries, cities, categories and
// statuses. Rows that already exist are left alone, so it can run again.
// A default status is only seeded when none exists yet.
func SeedReferenceData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		insert := func(v interface{}) error {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(v).Error
		}

		for _, sc := range seedCountries {
			country := sc.country
			if err := insert(&country); err != nil {
				return fmt.Errorf("seed country %s: %w", country.Code, err)
			}
			if err := tx.Where("code = ?", country.Code).First(&country).Error; err != nil {
				return fmt.Errorf("load country %s: %w", country.Code, err)
			}
			for _, name := range sc.cities {
				city := domain.City{Name: name, CountryID: country.ID}
				if err := insert(&city); err != nil {
					return fmt.Errorf("seed city %s: %w", name, err)
				}
			}
		}

		for _, c := range seedCategories {
			category := c
			if err := insert(&category); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}

		var defaults int64
		if err := tx.Model(&domain.Status{}).Where("is_default = ?", true).Count(&defaults).Error; err != nil {
			return err
		}
		for _, s := range seedStatuses {
			status := s
			if defaults > 0 {
				status.IsDefault = false
			}
			if err := insert(&status); err != nil {
				return fmt.Errorf("seed status %s: %w", s.Name, err)
			}
		}
		return nil
	})
}
