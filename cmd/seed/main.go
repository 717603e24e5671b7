// Package main provides a CLI tool for bootstrapping the first admin
// account and optional demo data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/internal/domain/auth"
	"pharmapos/internal/infrastructure/storage/postgres"
	"pharmapos/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbDSN := os.Getenv("DATABASE_DSN")
	if dbDSN == "" {
		log.Fatal("DATABASE_DSN environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbDSN)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedAdminUser creates the bootstrap admin account. Credentials must
// be supplied by the operator; there is no built-in default password.
func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD environment variables are required")
	}
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	fullName := os.Getenv("ADMIN_FULL_NAME")
	if fullName == "" {
		fullName = "Administrator"
	}

	var existingID int64
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM users WHERE username = $1`,
		username,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "username", username, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := auth.NewUser(username, string(passwordHash), fullName, auth.RoleAdmin)
	if err := user.Validate(ctx); err != nil {
		return err
	}

	err = pool.Pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, $5, $5)
		RETURNING id
	`, user.Username, user.PasswordHash, user.FullName, user.Role, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created",
		"username", user.Username,
		"user_id", user.ID,
	)
	return nil
}

// seedDemoData inserts a handful of medicaments and clients for local
// development. Idempotent on the unique codes.
func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding demo data...")

	medicaments := []struct {
		code          string
		name          string
		category      string
		purchasePrice string
		sellingPrice  string
		quantity      int
		threshold     int
		expiresInDays int
	}{
		{"MED-2026-00001", "Paracétamol 500mg", "Antalgique", "1.20", "2.50", 200, 30, 365},
		{"MED-2026-00002", "Ibuprofène 400mg", "Anti-inflammatoire", "1.80", "3.40", 150, 25, 540},
		{"MED-2026-00003", "Amoxicilline 1g", "Antibiotique", "3.50", "6.90", 80, 15, 270},
		{"MED-2026-00004", "Vitamine C 1000mg", "Complément", "2.10", "4.20", 120, 20, 720},
		{"MED-2026-00005", "Sirop antitussif 150ml", "Voies respiratoires", "2.90", "5.80", 60, 10, 180},
	}

	for _, m := range medicaments {
		expiration := time.Now().AddDate(0, 0, m.expiresInDays)
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO medicaments (
				code, name, category, purchase_price, selling_price,
				quantity_in_stock, stock_threshold, expiration_date, is_active
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
			ON CONFLICT (code) DO NOTHING
		`, m.code, m.name, m.category, m.purchasePrice, m.sellingPrice, m.quantity, m.threshold, expiration)
		if err != nil {
			log.Warnw("failed to seed medicament", "name", m.name, "error", err)
			continue
		}

		// Account for the seeded quantity in the ledger so a rebuild
		// reproduces the cached value.
		_, err = pool.Pool.Exec(ctx, `
			INSERT INTO stock_movements (medicament_id, movement_type, quantity, reason)
			SELECT id, 'entry', $2, 'initial demo stock'
			FROM medicaments
			WHERE code = $1
			  AND NOT EXISTS (
				SELECT 1 FROM stock_movements sm
				JOIN medicaments md ON md.id = sm.medicament_id
				WHERE md.code = $1
			  )
		`, m.code, m.quantity)
		if err != nil {
			log.Warnw("failed to seed stock movement", "code", m.code, "error", err)
		}
	}

	clients := []struct {
		code      string
		firstName string
		lastName  string
		phone     string
	}{
		{"CLI-2026-00001", "Marie", "Dupont", "0601020304"},
		{"CLI-2026-00002", "Jean", "Martin", "0605060708"},
		{"CLI-2026-00003", "Fatou", "Diallo", "0609101112"},
	}

	for _, c := range clients {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO clients (code, first_name, last_name, phone, is_active)
			VALUES ($1, $2, $3, $4, true)
			ON CONFLICT (code) DO NOTHING
		`, c.code, c.firstName, c.lastName, c.phone)
		if err != nil {
			log.Warnw("failed to seed client", "code", c.code, "error", err)
		}
	}

	log.Info("demo data seeded successfully")
	return nil
}
