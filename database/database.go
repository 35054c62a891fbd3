package database

import (
	"fmt"
	"log"
	"os"

	"formdesk/internal/domain/billing"
	"formdesk/internal/domain/forms"
	"formdesk/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := DB.AutoMigrate(
		// accounts
		&users.User{},
		&users.VerificationToken{},

		// forms
		&forms.Form{},
		&forms.FormField{},
		&forms.Response{},

		// billing
		&billing.PaymentSettings{},
		&billing.Transaction{},
		&billing.PaymentIntent{},
		&billing.Subscription{},
		&billing.SubscriptionPayment{},
	); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}
