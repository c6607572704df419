package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirku/backend-pos/internal/auth"
	"github.com/kasirku/backend-pos/internal/config"
	"github.com/kasirku/backend-pos/internal/db"
	"github.com/kasirku/backend-pos/internal/pricing"
)

func main() {
	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "pos-seeder")
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	defer pool.Close()

	verifier, err := auth.VerifierFor(cfg.PINScheme)
	if err != nil {
		log.Fatalf("Invalid pin scheme: %v", err)
	}

	seedUsers(ctx, pool, verifier)
	seedCatalog(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, verifier auth.PINVerifier) {
	users := []struct {
		Username string
		PIN      string
		Role     string
	}{
		{"admin", "1234", "admin"},
		{"kasir1", "1111", "cashier"},
		{"kasir2", "2222", "cashier"},
	}

	fmt.Println("Seeding Users...")
	for _, u := range users {
		hashed, err := verifier.Hash(u.PIN)
		if err != nil {
			log.Printf("Failed to hash pin for %s: %v", u.Username, err)
			continue
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO users (username, pin, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (username) DO NOTHING;
		`, u.Username, hashed, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Username, err)
		}
	}
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	categories := []string{"Makanan", "Minuman", "Cemilan"}

	fmt.Println("Seeding Categories...")
	catIDs := make(map[string]string)
	for _, name := range categories {
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING;
		`, name)
		if err != nil {
			log.Printf("Failed to seed category %s: %v", name, err)
		}

		var id string
		if err := pool.QueryRow(ctx, "SELECT id FROM categories WHERE name = $1", name).Scan(&id); err != nil {
			log.Printf("Failed to get ID for category %s: %v", name, err)
			continue
		}
		catIDs[name] = id
	}

	products := []struct {
		Name     string
		Category string
		Price    pricing.Money
		Stock    int32
		Image    string
	}{
		{"Nasi Goreng Spesial", "Makanan", 25000, 40, "https://images.unsplash.com/photo-1603133872878-684f208fb84b?w=800"},
		{"Mie Ayam Bakso", "Makanan", 18000, 35, "https://images.unsplash.com/photo-1569718212165-3a8278d5f624?w=800"},
		{"Ayam Geprek", "Makanan", 22000, 30, "https://images.unsplash.com/photo-1562967916-eb82221dfb92?w=800"},
		{"Sate Ayam", "Makanan", 20000, 25, "https://images.unsplash.com/photo-1529563021893-cc83c992d75d?w=800"},
		{"Es Teh Manis", "Minuman", 5000, 100, "https://images.unsplash.com/photo-1499638673689-79a0b5115d87?w=800"},
		{"Es Jeruk", "Minuman", 7000, 80, "https://images.unsplash.com/photo-1613478223719-2ab802602423?w=800"},
		{"Kopi Susu Gula Aren", "Minuman", 15000, 60, "https://images.unsplash.com/photo-1461023058943-07fcbe16d735?w=800"},
		{"Air Mineral", "Minuman", 4000, 120, "https://images.unsplash.com/photo-1548839140-29a749e1cf4d?w=800"},
		{"Kentang Goreng", "Cemilan", 12000, 50, "https://images.unsplash.com/photo-1573080496219-bb080dd4f877?w=800"},
		{"Pisang Goreng", "Cemilan", 10000, 45, "https://images.unsplash.com/photo-1587132137056-bfbf3f4a1e8a?w=800"},
		{"Tahu Crispy", "Cemilan", 8000, 55, "https://images.unsplash.com/photo-1541529086526-db283c563270?w=800"},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		catID, ok := catIDs[p.Category]
		if !ok {
			log.Printf("Missing category ID for %s", p.Category)
			continue
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO products (name, price, stock, category_id, image_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET
				price = EXCLUDED.price,
				category_id = EXCLUDED.category_id,
				image_url = EXCLUDED.image_url;
		`, p.Name, p.Price, p.Stock, catID, p.Image)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}
