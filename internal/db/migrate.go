package db

import (
	"plantastic/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table in creation order
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Plant{},
		&domain.PlantNNClass{},
		&domain.PlantImage{},
		&domain.SoilType{},
		&domain.Disease{},
		&domain.DiseaseImage{},
		&domain.Symptom{},
		&domain.DiseaseSymptom{},
		&domain.DiseaseNNClass{},
		&domain.TaskType{},
		&domain.UserPlant{},
		&domain.UserPlantImage{},
		&domain.Task{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
