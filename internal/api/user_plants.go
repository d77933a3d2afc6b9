package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Dates

	"plantastic/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// CreateUserPlantRequest registers a plant owned by the user
type CreateUserPlantRequest struct {
	PlantNNClassID   uint    `json:"plant_nn_classes_id" binding:"required"` // Variety
	Nickname         string  `json:"nickname"`                               // Optional nickname
	AcquisitionDate  *string `json:"acquisition_date"`                       // YYYY-MM-DD
	LastWateringDate *string `json:"last_watering_date"`                     // YYYY-MM-DD
	Notes            string  `json:"notes"`                                  // Free text
	SoilTypeID       *uint   `json:"soil_type_id"`                           // Optional soil
}

// UpdateUserPlantRequest is a partial update; a zero soil_type_id clears the soil
type UpdateUserPlantRequest struct {
	PlantNNClassID   *uint   `json:"plant_nn_classes_id"`
	Nickname         *string `json:"nickname"`
	AcquisitionDate  *string `json:"acquisition_date"`
	LastWateringDate *string `json:"last_watering_date"`
	Notes            *string `json:"notes"`
	SoilTypeID       *uint   `json:"soil_type_id"`
}

// UserPlantImageRequest attaches an image to a user plant
type UserPlantImageRequest struct {
	ImageURL    string `json:"image_url" binding:"required"`
	Description string `json:"description"`
	IsMainImage bool   `json:"is_main_image"`
}

// preloadUserPlant loads the associations returned with a user plant
func preloadUserPlant(db *gorm.DB) *gorm.DB {
	return db.Preload("Variety.Plant").Preload("Variety.Images").Preload("Soil").Preload("Images")
}

// checkVariety returns 404 when the variety does not exist
func checkVariety(db *gorm.DB, id uint) error {
	var n int64
	if err := db.Model(&domain.PlantNNClass{}).Where("class_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound("Plant variety not found")
	}
	return nil
}

// checkSoil returns 404 when the soil type does not exist
func checkSoil(db *gorm.DB, id uint) error {
	var n int64
	if err := db.Model(&domain.SoilType{}).Where("soil_type_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound("Soil type not found")
	}
	return nil
}

// pastDate parses an optional date that may not be later than today
func pastDate(s *string, today time.Time, field string) (*time.Time, error) {
	d, err := parseOptionalDate(s)
	if err != nil || d == nil {
		return d, err
	}
	if d.After(today) {
		return nil, invalid(field + " cannot be in the future")
	}
	return d, nil
}

// ListUserPlantsHandler returns the user's live plants, newest first
func ListUserPlantsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var plants []domain.UserPlant
		err := preloadUserPlant(dbFor(c, db)).
			Where("user_id = ? AND deleted = ?", user.UserID, false).
			Order("created_at DESC, user_plant_id DESC").
			Find(&plants).Error
		if err != nil {
			respondError(c, err, "Failed to load plants")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_plants": plants})
	}
}

// CreateUserPlantHandler adds a plant to the user's collection
func CreateUserPlantHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var req CreateUserPlantRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		today := todayFor(user)
		acquired, err := pastDate(req.AcquisitionDate, today, "acquisition_date")
		if err != nil {
			respondError(c, err, "")
			return
		}
		watered, err := pastDate(req.LastWateringDate, today, "last_watering_date")
		if err != nil {
			respondError(c, err, "")
			return
		}
		tx := dbFor(c, db)
		if err := checkVariety(tx, req.PlantNNClassID); err != nil {
			respondError(c, err, "Failed to create plant")
			return
		}
		if req.SoilTypeID != nil {
			if err := checkSoil(tx, *req.SoilTypeID); err != nil {
				respondError(c, err, "Failed to create plant")
				return
			}
		}
		up := domain.UserPlant{
			UserID:           user.UserID,
			PlantNNClassID:   req.PlantNNClassID,
			Nickname:         strings.TrimSpace(req.Nickname),
			AcquisitionDate:  acquired,
			LastWateringDate: watered,
			Notes:            req.Notes,
			SoilTypeID:       req.SoilTypeID,
		}
		if err := tx.Create(&up).Error; err != nil {
			respondError(c, err, "Failed to create plant")
			return
		}
		if err := preloadUserPlant(tx).First(&up, "user_plant_id = ?", up.ID).Error; err != nil {
			respondError(c, err, "Failed to load plant")
			return
		}
		invalidateUsers(c, rdb) // Plant counts changed
		logrus.WithFields(logrus.Fields{
			"user_id":       user.UserID,
			"user_plant_id": up.ID,
			"variety_id":    up.PlantNNClassID,
		}).Info("User plant created")
		c.JSON(http.StatusCreated, gin.H{"user_plant": up})
	}
}

// GetUserPlantHandler returns one of the user's plants
func GetUserPlantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		tx := dbFor(c, db)
		up, err := loadUserPlant(tx, currentUser(c), id)
		if err != nil {
			respondError(c, err, "Failed to load plant")
			return
		}
		if err := preloadUserPlant(tx).First(up, "user_plant_id = ?", up.ID).Error; err != nil {
			respondError(c, err, "Failed to load plant")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_plant": up})
	}
}

// UpdateUserPlantHandler changes the given fields of a user plant
func UpdateUserPlantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		var req UpdateUserPlantRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user := currentUser(c)
		tx := dbFor(c, db)
		up, err := loadUserPlant(tx, user, id)
		if err != nil {
			respondError(c, err, "Failed to load plant")
			return
		}
		today := todayFor(user)
		updates := map[string]any{}
		if req.PlantNNClassID != nil {
			if err := checkVariety(tx, *req.PlantNNClassID); err != nil {
				respondError(c, err, "Failed to update plant")
				return
			}
			updates["plant_nn_classes_id"] = *req.PlantNNClassID
		}
		if req.Nickname != nil {
			updates["nickname"] = strings.TrimSpace(*req.Nickname)
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		if req.AcquisitionDate != nil {
			d, err := pastDate(req.AcquisitionDate, today, "acquisition_date")
			if err != nil {
				respondError(c, err, "")
				return
			}
			updates["acquisition_date"] = d
		}
		if req.LastWateringDate != nil {
			d, err := pastDate(req.LastWateringDate, today, "last_watering_date")
			if err != nil {
				respondError(c, err, "")
				return
			}
			updates["last_watering_date"] = d
		}
		if req.SoilTypeID != nil {
			if *req.SoilTypeID == 0 {
				updates["soil_type_id"] = nil
			} else {
				if err := checkSoil(tx, *req.SoilTypeID); err != nil {
					respondError(c, err, "Failed to update plant")
					return
				}
				updates["soil_type_id"] = *req.SoilTypeID
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(up).Updates(updates).Error; err != nil {
				respondError(c, err, "Failed to update plant")
				return
			}
		}
		var fresh domain.UserPlant
		if err := preloadUserPlant(tx).First(&fresh, "user_plant_id = ?", up.ID).Error; err != nil {
			respondError(c, err, "Failed to load plant")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_plant": fresh})
	}
}

// DeleteUserPlantHandler soft-deletes a plant and every task attached to it
func DeleteUserPlantHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		user := currentUser(c)
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			up, err := loadUserPlant(tx, user, id)
			if err != nil {
				return err
			}
			if err := tx.Model(&domain.Task{}).Where("user_plant_id = ?", up.ID).Update("deleted", true).Error; err != nil {
				return err // Return error to rollback
			}
			return tx.Model(up).Update("deleted", true).Error
		})
		if err != nil {
			respondError(c, err, "Failed to delete plant")
			return
		}
		invalidateUsers(c, rdb) // Plant counts changed
		logrus.WithFields(logrus.Fields{"user_id": user.UserID, "user_plant_id": id}).Info("User plant deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Plant deleted"})
	}
}

// WaterUserPlantHandler records a watering today and closes the due watering tasks
func WaterUserPlantHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		user := currentUser(c)
		today := todayFor(user)
		var up *domain.UserPlant
		completed := 0
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			loaded, err := loadUserPlant(tx, user, id)
			if err != nil {
				return err
			}
			up = loaded
			if err := tx.Model(up).Update("last_watering_date", today).Error; err != nil {
				return err
			}
			watering := tx.Model(&domain.TaskType{}).Select("task_type_id").Where("task_name = ?", domain.WateringTaskName)
			var due []domain.Task
			err = tx.Preload("TaskType").
				Where("user_plant_id = ? AND deleted = ? AND is_completed = ? AND is_recurring = ?", up.ID, false, false, false).
				Where("task_type_id IN (?) AND due_date <= ?", watering, today).
				Order("due_date").
				Find(&due).Error
			if err != nil {
				return err
			}
			for i := range due {
				if _, err := completeTask(tx, &due[i], today); err != nil {
					return err
				}
				completed++
			}
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to record watering")
			return
		}
		up.LastWateringDate = &today
		logrus.WithFields(logrus.Fields{
			"user_id":         user.UserID,
			"user_plant_id":   up.ID,
			"tasks_completed": completed,
		}).Info("Plant watered")
		c.JSON(http.StatusOK, gin.H{"user_plant": up, "tasks_completed": completed})
	}
}

// AddUserPlantImageHandler attaches an image; a new main image replaces the old one
func AddUserPlantImageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		var req UserPlantImageRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user := currentUser(c)
		var img domain.UserPlantImage
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			up, err := loadUserPlant(tx, user, id)
			if err != nil {
				return err
			}
			if req.IsMainImage {
				err := tx.Model(&domain.UserPlantImage{}).
					Where("user_plant_id = ? AND is_main_image = ?", up.ID, true).
					Update("is_main_image", false).Error
				if err != nil {
					return err
				}
			}
			img = domain.UserPlantImage{
				UserPlantID: up.ID,
				ImageURL:    req.ImageURL,
				Description: req.Description,
				IsMainImage: req.IsMainImage,
			}
			return tx.Create(&img).Error
		})
		if err != nil {
			respondError(c, err, "Failed to add image")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"image": img})
	}
}

// ListUserPlantImagesHandler returns the images of a user plant, main image first
func ListUserPlantImagesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		tx := dbFor(c, db)
		up, err := loadUserPlant(tx, currentUser(c), id)
		if err != nil {
			respondError(c, err, "Failed to load plant")
			return
		}
		var images []domain.UserPlantImage
		if err := tx.Where("user_plant_id = ?", up.ID).Order("is_main_image DESC, image_id").Find(&images).Error; err != nil {
			respondError(c, err, "Failed to load images")
			return
		}
		c.JSON(http.StatusOK, gin.H{"images": images})
	}
}
