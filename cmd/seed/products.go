package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/xuri/excelize/v2"
)

// Sheet columns, after one header row
const (
	colID = iota
	colName
	colPrice
	colCategory
	colQuantity
	colImage
)

type cartLine struct {
	Product  model.Product
	Quantity int
}

func readCartLinesFromXLSX(filePath string) ([]cartLine, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var lines []cartLine
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}

		line, ok := parseCartLine(row)
		if !ok {
			skipped++
			continue
		}
		lines = append(lines, line)
	}

	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Skipped rows: %d\n", skipped)
	return lines, nil
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// parseCartLine rejects rows without an id or with an unusable price or
// quantity. A blank quantity means one unit.
func parseCartLine(row []string) (cartLine, bool) {
	id := cell(row, colID)
	if id == "" {
		return cartLine{}, false
	}

	price, err := strconv.ParseFloat(cell(row, colPrice), 64)
	if err != nil || price < 0 {
		return cartLine{}, false
	}

	quantity := 1
	if raw := cell(row, colQuantity); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity < 1 {
			return cartLine{}, false
		}
	}

	product := model.Product{
		ID:    id,
		Name:  cell(row, colName),
		Price: price,
		Image: cell(row, colImage),
	}
	if category := cell(row, colCategory); category != "" {
		product.Category = model.Category{ID: strings.ToLower(category), Name: category}
	}
	if product.Image != "" {
		product.Images = []string{product.Image}
	}

	return cartLine{Product: product, Quantity: quantity}, true
}

func loadCart(ctx context.Context, carts service.CartRegistry, sessionID string, lines []cartLine) (*service.CartStore, error) {
	store, err := carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if err := store.AddItemQuantity(line.Product, line.Quantity); err != nil {
			return nil, fmt.Errorf("product %s: %w", line.Product.ID, err)
		}
	}
	return store, nil
}
