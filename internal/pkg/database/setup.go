package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/JobFox/app/models"
	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

const retryDelay = 5 * time.Second

var DB *gorm.DB

// DSN builds the MySQL data source name from DB_* variables.
func DSN() string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// SetupDatabase connects with retries and migrates the pricing schema.
func SetupDatabase() (*gorm.DB, error) {
	maxRetries := env.GetEnvInt("DB_CONNECT_RETRIES", 5)
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			if env.GetEnvBool("DB_AUTO_MIGRATE", true) {
				if err := DB.AutoMigrate(&models.PricingTier{}); err != nil {
					return nil, fmt.Errorf("auto migrate: %w", err)
				}
			}
			return DB, nil
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}
	DB = nil
	return nil, err
}

func GetDB() *gorm.DB {
	return DB
}
