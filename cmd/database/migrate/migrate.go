package migration

import (
	"fmt"
	"log"

	"Pantry-Pipeline-Backend/entities"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Product{}); err != nil {
		log.Fatalf("Error migrating product database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Receipt{}); err != nil {
		log.Fatalf("Error migrating receipt database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.DetectedLineItem{}); err != nil {
		log.Fatalf("Error migrating line item database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.CandidateMatch{}); err != nil {
		log.Fatalf("Error migrating candidate match database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.InventoryItem{}); err != nil {
		log.Fatalf("Error migrating inventory item database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
