// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"machshop/internal/core/id"
	"machshop/internal/infrastructure/storage/postgres"
	"machshop/pkg/logger"
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

	// Connect to database
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedMachines(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed machines", "error", err)
	}

	if err := seedCustomers(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed customers", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedMachines(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding machines...")

	machines := []struct {
		name     string
		category string
		price    string
		quantity int
		warranty int
	}{
		{"Vertical Form Fill Seal Machine VFS-240", "Packing Machine", "1250000", 4, 12},
		{"Automatic Liquid Filling Machine LF-8", "Filling Machine", "860000", 6, 12},
		{"Continuous Band Sealer CBS-900", "Sealing Machine", "145000", 12, 6},
		{"Semi-Automatic Capping Machine CAP-2", "Capping Machine", "380000", 5, 12},
		{"Inkjet Date Coder DC-100", "Date Coding Machine", "225000", 8, 12},
		{"Cabinet Food Dehydrator FD-32", "Dehydrator Machine", "540000", 3, 18},
		{"Ribbon Blender Mixer RB-500", "Mixing Machine", "990000", 2, 24},
		{"Self-Adhesive Labelling Machine LB-150", "Labelling Machine", "670000", 4, 12},
		{"Pulverizer Grinding Machine GR-20", "Grinding Machine", "430000", 5, 12},
		{"Conveyor Belt 3m", "Optional Line Equipment", "95000", 10, 6},
	}

	for i, m := range machines {
		code := fmt.Sprintf("MCH%05d", i+1)
		_, err := pool.Exec(ctx, `
			INSERT INTO cat_machines (
				id, code, name, category, price, quantity,
				vat_percentage, warranty_months, version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, $4, $5, $6, 18, $7, 1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, id.New(), code, m.name, m.category, m.price, m.quantity, m.warranty)
		if err != nil {
			log.Warnw("failed to seed machine", "name", m.name, "error", err)
		}
	}

	log.Info("machines seeded")
	return nil
}

func seedCustomers(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	log.Info("seeding customers...")

	customers := []struct {
		name    string
		phone   string
		email   string
		nic     string
		address string
	}{
		{"Lanka Food Products (Pvt) Ltd", "+94 11 234 5678", "purchasing@lankafood.lk", "", "Colombo 10"},
		{"R. M. Perera", "+94 77 123 4567", "rmperera@gmail.com", "751234567V", "Kandy"},
		{"Golden Harvest Mills", "+94 11 876 5432", "info@goldenharvest.lk", "", "Negombo"},
		{"S. Fernando", "+94 71 987 6543", "", "882345678V", "Galle"},
	}

	for i, c := range customers {
		code := fmt.Sprintf("CUS%05d", i+1)
		_, err := pool.Exec(ctx, `
			INSERT INTO cat_customers (
				id, code, name, phone, email, nic, address,
				version, deletion_mark, attributes
			)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
					1, false, '{}')
			ON CONFLICT (code) WHERE deletion_mark = FALSE DO NOTHING
		`, id.New(), code, c.name, c.phone, c.email, c.nic, c.address)
		if err != nil {
			log.Warnw("failed to seed customer", "name", c.name, "error", err)
		}
	}

	log.Info("customers seeded")
	return nil
}
