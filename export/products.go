// Package export renders catalog data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"storefront/models"

	"github.com/tealeg/xlsx"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var productHeaders = []string{
	"ID", "Title", "Slug", "Category", "Price", "Quantity", "Size", "Color", "CreatedAt",
}

// WriteProducts writes one sheet with a header row and one row per product.
// Categories must be preloaded.
func WriteProducts(w io.Writer, products []models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range productHeaders {
		headerRow.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.Title)
		row.AddCell().SetString(deref(p.Slug))
		category := ""
		if p.Category != nil {
			category = p.Category.Title
		}
		row.AddCell().SetString(category)
		row.AddCell().SetFloat(p.Price)
		row.AddCell().SetInt(p.Quantity)
		row.AddCell().SetInt(p.Size)
		row.AddCell().SetString(p.Color)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
