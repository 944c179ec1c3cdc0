package company

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"crmnice/internal/domain"
)

const (
	exportDate     = "02.01.2006"
	exportDateTime = "02.01.2006 15:04"
	exportSheet    = "Компанія"

	phonesSection   = "Телефони"
	commentsSection = "Коментарі"
)

// ExportRows lays the company out as two-column rows: the field table, a
// blank row, the phones, a blank row, the comments (newest first).
func ExportRows(c *domain.Company, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.UTC
	}
	callDate := ""
	if d := c.CallDateValue(); d != nil {
		callDate = d.Format(exportDate)
	}
	cityName, categoryName, statusName := "", "", ""
	if c.City != nil {
		cityName = c.City.Name
	}
	if c.Category != nil {
		categoryName = c.Category.Name
	}
	if c.Status != nil {
		statusName = c.Status.Name
	}

	rows := [][]string{
		{"Поле", "Значення"},
		{"ID", c.ClientIDValue()},
		{"Назва", c.Name},
		{"Місто", cityName},
		{"Розділ", categoryName},
		{"Статус", statusName},
		{"Telegram", c.Telegram},
		{"Сайт", c.Website},
		{"Instagram", c.Instagram},
		{"Короткий коментар", c.ShortComment},
		{"Повний опис", c.FullDescription},
		{"Ключові слова", c.Keywords},
		{"Дата дзвінка", callDate},
		{"Дата створення", c.CreatedAt.In(loc).Format(exportDateTime)},
		{"Дата оновлення", c.UpdatedAt.In(loc).Format(exportDateTime)},
	}

	rows = append(rows, []string{}, []string{phonesSection})
	for _, p := range c.Phones {
		mark := ""
		if p.IsFavorite {
			mark = "⭐"
		}
		rows = append(rows, []string{mark + " " + p.Number, p.ContactName})
	}

	rows = append(rows, []string{}, []string{commentsSection})
	for _, cm := range c.Comments {
		rows = append(rows, []string{
			cm.CreatedAt.In(loc).Format(exportDateTime) + " - " + cm.AuthorName,
			cm.Text,
		})
	}
	return rows
}

// ExportFilename is company_<client id>_<name>.<ext> without characters
// that break a Content-Disposition header.
func ExportFilename(c *domain.Company, ext string) string {
	clean := strings.NewReplacer(`"`, "", "\\", "", "/", "_", "\n", " ", "\r", " ", "#", "")
	return clean.Replace(fmt.Sprintf("company_%s_%s.%s", c.ClientIDValue(), c.Name, ext))
}

func WriteCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX renders the rows into a single-sheet workbook. The header row
// and the section titles are bold on a grey fill.
func WriteXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E5E7EB"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}

		style := wrapStyle
		if i == 0 || (len(row) == 1 && (row[0] == phonesSection || row[0] == commentsSection)) {
			style = headerStyle
		}
		end, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellStyle(exportSheet, cell, end, style); err != nil {
			return nil, fmt.Errorf("failed to style row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 32); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 70); err != nil {
		return nil, err
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
