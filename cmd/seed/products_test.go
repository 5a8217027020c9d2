package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeSheet(t *testing.T, rows [][]interface{}) string {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}

	path := filepath.Join(t.TempDir(), "cart.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadCartLinesFromXLSX(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"id", "name", "price", "category", "quantity", "image"},
		{"p1", "Toner", 20, "Skincare", 2, "toner.png"},
		{"p2", "Serum", 15.5, "", "", ""},
		{"", "No id", 10, "", 1, ""},
		{"p3", "Bad price", "free", "", 1, ""},
		{"p4", "Bad quantity", 5, "", 0, ""},
	})

	lines, err := readCartLinesFromXLSX(path)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "p1", lines[0].Product.ID)
	assert.Equal(t, 20.0, lines[0].Product.Price)
	assert.Equal(t, "Skincare", lines[0].Product.Category.Name)
	assert.Equal(t, []string{"toner.png"}, lines[0].Product.Images)
	assert.Equal(t, 2, lines[0].Quantity)

	assert.Equal(t, "p2", lines[1].Product.ID)
	assert.Equal(t, 15.5, lines[1].Product.Price)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestReadCartLinesFromXLSX_MissingFile(t *testing.T) {
	_, err := readCartLinesFromXLSX(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestLoadCart(t *testing.T) {
	carts := service.NewCartRegistry(repository.NewMemoryCartStateRepository(), "cart-storage", time.Second)
	lines := []cartLine{
		{Product: productLine("p1", 20), Quantity: 2},
		{Product: productLine("p2", 15), Quantity: 1},
		{Product: productLine("p1", 20), Quantity: 1},
	}

	store, err := loadCart(context.Background(), carts, "seed-session", lines)
	require.NoError(t, err)

	assert.Equal(t, "cart-storage:seed-session", store.Key())
	assert.Equal(t, 4, store.GetTotalItems())
	assert.Equal(t, 75.0, store.GetTotalPrice())
	assert.Len(t, store.Items(), 2)
}

func productLine(id string, price float64) model.Product {
	return model.Product{ID: id, Name: id, Price: price}
}
