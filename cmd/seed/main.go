package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/storage"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/ikkim/storefront-cart/pkg/util"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path> [session_id]")
	}

	filePath := os.Args[1]
	sessionID := util.NewSessionID()
	if len(os.Args) > 2 {
		sessionID = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "warn", Format: "console", Service: "storefront-cart-seed"})

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	lines, err := readCartLinesFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	fmt.Printf("Cart lines to import: %d\n", len(lines))

	fmt.Printf("Import into session %s using %s storage? (yes/no): ", sessionID, cfg.Cart.StorageBackend)
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	ctx := context.Background()
	cartRepo, closeStorage, err := storage.OpenCartRepository(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open cart storage:", err)
	}
	defer closeStorage()

	carts := service.NewCartRegistry(cartRepo, cfg.Cart.StorageKey, cfg.Cart.PersistTimeout)
	store, err := loadCart(ctx, carts, sessionID, lines)
	if err != nil {
		log.Fatal("Failed to load cart:", err)
	}
	if err := store.Flush(ctx); err != nil {
		log.Fatal("Failed to persist cart:", err)
	}

	token, err := util.GenerateSessionToken(sessionID, cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		log.Fatal("Failed to sign session token:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Storage key: %s\n", store.Key())
	fmt.Printf("  Total items: %d\n", store.GetTotalItems())
	fmt.Printf("  Total price: %.2f\n", store.GetTotalPrice())
	fmt.Printf("  Session token: %s\n", token)
}
