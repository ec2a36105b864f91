package repo

import (
	"log"

	"scramble-service/internal/config"
	"scramble-service/internal/model"
	"scramble-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB connects the match-history database. A missing DSN leaves DB nil
// and history disabled; the board runs fine without it.
func InitDB() {
	dsn := config.GlobalConfig.Database.DSN
	if dsn == "" {
		logger.Log.Info("No database DSN configured, match history disabled")
		return
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal("Failed to connect to database",
			zap.Error(err),
		)
	}

	if err := DB.AutoMigrate(&model.MatchRecord{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
