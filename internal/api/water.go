package api

import (
	"math"     // Rounding
	"net/http" // HTTP status codes

	"plantastic/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Growth phases accepted by the calculator
const (
	GrowthActive = "active"
	GrowthRest   = "rest"
)

// WaterRequest describes the pot and the room
type WaterRequest struct {
	PotSize     float64  `json:"pot_size" binding:"required,gt=0"`             // Pot volume, liters
	Temperature *float64 `json:"temperature"`                                  // Room temperature, °C, unset leaves the amount alone
	Humidity    *float64 `json:"humidity" binding:"omitempty,gte=0,lte=100"`   // Relative humidity, %, unset leaves the amount alone
	Growth      string   `json:"growth" binding:"omitempty,oneof=active rest"` // Growth phase
	UserPlantID *uint    `json:"user_plant_id"`                                // Adjust for plant and soil
}

// WaterResult is the recommended amount and how it was reached
type WaterResult struct {
	Milliliters int     `json:"ml"`
	Multiplier  float64 `json:"multiplier"`
	Growth      string  `json:"growth"`
}

// WaterAmount returns the recommended milliliters for one watering.
// A nil temperature or humidity applies no correction. plantCoef and
// soilRetention are ignored when not positive.
func WaterAmount(potSize float64, temperature, humidity *float64, growth string, plantCoef, soilRetention float64) (int, float64) {
	m := 1.0
	if growth == GrowthRest {
		m *= 0.7
	}
	if temperature != nil && *temperature < 15 {
		m *= 0.8
	}
	if humidity != nil && *humidity > 60 {
		m *= 0.85
	}
	if plantCoef > 0 {
		m *= plantCoef
	}
	if soilRetention > 0 {
		m /= soilRetention
	}
	return int(math.Round(potSize * 100 * m)), m
}

// WaterCalculatorHandler computes a watering amount, optionally for one of the user's plants
func WaterCalculatorHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WaterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pot_size must be positive and humidity within 0..100"})
			return
		}
		if req.Growth == "" {
			req.Growth = GrowthActive
		}
		var plantCoef, retention float64
		if req.UserPlantID != nil {
			tx := dbFor(c, db)
			up, err := loadUserPlant(tx, currentUser(c), *req.UserPlantID)
			if err != nil {
				respondError(c, err, "Failed to load plant")
				return
			}
			var variety domain.PlantNNClass
			if err := tx.Preload("Plant").First(&variety, "class_id = ?", up.PlantNNClassID).Error; err != nil {
				respondError(c, err, "Failed to load plant")
				return
			}
			if variety.Plant != nil {
				plantCoef = variety.Plant.WateringCoefficient
			}
			if up.SoilTypeID != nil {
				var soil domain.SoilType
				if err := tx.First(&soil, "soil_type_id = ?", *up.SoilTypeID).Error; err != nil {
					respondError(c, err, "Failed to load soil type")
					return
				}
				retention = soil.WaterRetentionCoefficient
			}
		}
		ml, m := WaterAmount(req.PotSize, req.Temperature, req.Humidity, req.Growth, plantCoef, retention)
		c.JSON(http.StatusOK, WaterResult{Milliliters: ml, Multiplier: m, Growth: req.Growth})
	}
}
