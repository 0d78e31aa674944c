package db

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EZGGdotxyz/ezgg-service/internal/config"
	"github.com/EZGGdotxyz/ezgg-service/internal/models"
)

var DB *gorm.DB

// InitDB connects to postgres and migrates the schema.
func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	DB, err = gorm.Open(postgres.Open(config.AppConfig.Database.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	if err := DB.AutoMigrate(
		&models.BlockChain{},
		&models.TokenContract{},
		&models.BizContract{},
		&models.TransactionHistory{},
		&models.PayLink{},
		&models.TransactionFeeEstimate{},
		&models.MemberRecent{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Println("database schema migrated")
}
