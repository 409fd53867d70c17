package database

import (
	"log/slog"
	"os"
	"time"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		slog.Error("DB_DSN not set; configure the database in .env")
		os.Exit(1)
	}

	var err error

	// Wait for the DB to come up (docker-compose starts us together).
	for i := 0; i < 5; i++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			break
		}
		slog.Warn("database not ready, retrying in 2s", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		slog.Error("could not connect to database after 5 attempts", "error", err)
		os.Exit(1)
	}

	slog.Info("connected to MySQL")

	if err := Migrate(DB); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	slog.Info("database schema synced")
}

// Migrate creates/updates the tables. Split out so tests can run it
// against their own (sqlite) database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Customer{},
		&models.Bill{},
		&models.BillItem{},
		&models.Payment{},
		&models.PaymentAllocation{},
	)
}
