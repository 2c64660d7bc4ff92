package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, categories and an active budget for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initGormDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			if err := db.Exec("TRUNCATE expense_audit_log, expenses, budgets, categories, users RESTART IDENTITY CASCADE").Error; err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		seedUsers := []struct {
			Email      string
			Name       string
			Role       string
			Department string
		}{
			{"padil@mail.com", "Padil Admin", "admin", "finance"},
			{"manager@mail.com", "Maya Manager", "manager", "engineering"},
			{"fadhil@mail.com", "Fadhil", "user", "engineering"},
		}

		ids := make(map[string]int64, len(seedUsers))
		for _, u := range seedUsers {
			id, err := ensureRow(db,
				"SELECT id FROM users WHERE email = ?", []interface{}{u.Email},
				"INSERT INTO users (email, name, password_hash, role, department, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, true, now(), now()) RETURNING id",
				[]interface{}{u.Email, u.Name, string(hash), u.Role, u.Department})
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			ids[u.Role] = id
			fmt.Println("Seeded user:", u.Email, "role:", u.Role)
		}

		seedCategories := []struct {
			Name  string
			Desc  string
			Color string
		}{
			{"Travel", "Flights, hotels and ground transport", "#1F77B4"},
			{"Meals", "Team meals and client entertainment", "#FF7F0E"},
			{"Software", "Licences and subscriptions", "#2CA02C"},
			{"Office", "Supplies and equipment", "#9467BD"},
		}

		var travelID int64
		for _, c := range seedCategories {
			id, err := ensureRow(db,
				"SELECT id FROM categories WHERE name = ?", []interface{}{c.Name},
				"INSERT INTO categories (name, description, color, is_active, created_by, created_at, updated_at) VALUES (?, ?, ?, true, ?, now(), now()) RETURNING id",
				[]interface{}{c.Name, c.Desc, c.Color, ids["admin"]})
			if err != nil {
				log.Fatalf("failed to seed category %s: %v", c.Name, err)
			}
			if c.Name == "Travel" {
				travelID = id
			}
			fmt.Println("Seeded category:", c.Name)
		}

		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Second)

		approvers := fmt.Sprintf("[%d]", ids["manager"])
		_, err = ensureRow(db,
			"SELECT id FROM budgets WHERE name = ?", []interface{}{"Engineering travel"},
			`INSERT INTO budgets (name, amount, currency, period, start_date, end_date, category_id, department, owner_id,
				approver_ids, status, alert_threshold, auto_approval_limit, created_at, updated_at)
			VALUES (?, 5000, 'USD', 'monthly', ?, ?, ?, 'engineering', ?, ?::jsonb, 'active', 80, 50, now(), now()) RETURNING id`,
			[]interface{}{"Engineering travel", start, end, travelID, ids["manager"], approvers})
		if err != nil {
			log.Fatalf("failed to seed budget: %v", err)
		}
		fmt.Println("Seeded budget: Engineering travel")

		fmt.Println("Seeding completed successfully!")
	},
}

// ensureRow returns the id found by lookup, inserting the row first when it is missing.
func ensureRow(db *gorm.DB, lookup string, lookupArgs []interface{}, insert string, insertArgs []interface{}) (int64, error) {
	var id int64
	if err := db.Raw(lookup, lookupArgs...).Row().Scan(&id); err == nil {
		return id, nil
	}
	if err := db.Raw(insert, insertArgs...).Row().Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
