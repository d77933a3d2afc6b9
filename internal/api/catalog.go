package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"plantastic/internal/domain"     // Importing domain models
	"plantastic/internal/middleware" // Request-scoped logger
	"plantastic/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// catalogPrefix namespaces every cached catalog response
const catalogPrefix = "catalog:"

const (
	soilTypesKey = catalogPrefix + "soil-types" // Soil type list
	taskTypesKey = catalogPrefix + "task-types" // Task type list
)

// Catalog bundles the dependencies of the catalog handlers
type Catalog struct {
	DB    *gorm.DB      // Database
	Redis *redis.Client // Cache, nil disables caching
	TTL   time.Duration // Cache lifetime
}

// cached serves key from Redis or computes it with load and stores it
func (cat *Catalog) cached(c *gin.Context, key string, load func() (gin.H, error)) {
	ctx := context.Background() // Context for Redis operations
	var hit gin.H
	found, err := utils.GetCache(ctx, cat.Redis, key, &hit)
	if err != nil {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Cache read failed")
	}
	if err == nil && found {
		hit["cached"] = true // Indicate response is from cache
		c.JSON(http.StatusOK, hit)
		return
	}
	resp, err := load()
	if err != nil {
		respondError(c, err, "Failed to load catalog")
		return
	}
	if err := utils.SetCache(ctx, cat.Redis, key, resp, cat.TTL); err != nil {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Cache write failed")
	}
	resp["cached"] = false // Indicate response is not from cache
	c.JSON(http.StatusOK, resp)
}

// invalidate drops every cached catalog response
func (cat *Catalog) invalidate(c *gin.Context) {
	if err := utils.DeleteCachePrefix(context.Background(), cat.Redis, catalogPrefix); err != nil {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Cache invalidation failed")
	}
}

// invalidateKey drops a single cached catalog response
func (cat *Catalog) invalidateKey(c *gin.Context, key string) {
	if err := utils.DeleteCache(context.Background(), cat.Redis, key); err != nil {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Cache invalidation failed")
	}
}

// ListPlantsHandler returns a page of plants, optionally filtered by q
func (cat *Catalog) ListPlantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, offset := pagination(c)
		q := strings.TrimSpace(c.Query("q"))
		key := catalogPrefix + "plants:q=" + strings.ToLower(q) + ":page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		cat.cached(c, key, func() (gin.H, error) {
			query := dbFor(c, cat.DB).Model(&domain.Plant{})
			if q != "" {
				like := "%" + strings.ToLower(q) + "%"
				query = query.Where("LOWER(scientific_name) LIKE ? OR LOWER(common_name_ru) LIKE ? OR LOWER(synonyms) LIKE ?", like, like, like)
			}
			var total int64 // Total matching plants
			if err := query.Count(&total).Error; err != nil {
				return nil, err
			}
			var plants []domain.Plant
			if err := query.Order("scientific_name").Offset(offset).Limit(pageSize).Find(&plants).Error; err != nil {
				return nil, err
			}
			return gin.H{
				"plants":      plants,
				"page":        page,
				"page_size":   pageSize,
				"total":       total,
				"total_pages": totalPages(total, pageSize),
			}, nil
		})
	}
}

// GetPlantHandler returns a plant with its varieties and their images
func (cat *Catalog) GetPlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		cat.cached(c, catalogPrefix+"plant:"+strconv.Itoa(int(id)), func() (gin.H, error) {
			var plant domain.Plant
			if err := dbFor(c, cat.DB).Preload("Varieties.Images").First(&plant, "plant_id = ?", id).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return nil, notFound("Plant not found")
				}
				return nil, err
			}
			return gin.H{"plant": plant}, nil
		})
	}
}

// GetVarietyHandler returns a variety with its plant and images
func (cat *Catalog) GetVarietyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		cat.cached(c, catalogPrefix+"variety:"+strconv.Itoa(int(id)), func() (gin.H, error) {
			var variety domain.PlantNNClass
			if err := dbFor(c, cat.DB).Preload("Plant").Preload("Images").First(&variety, "class_id = ?", id).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return nil, notFound("Variety not found")
				}
				return nil, err
			}
			return gin.H{"variety": variety}, nil
		})
	}
}

// ListSoilTypesHandler returns every soil type
func (cat *Catalog) ListSoilTypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cat.cached(c, soilTypesKey, func() (gin.H, error) {
			var soils []domain.SoilType
			if err := dbFor(c, cat.DB).Order("soil_type_id").Find(&soils).Error; err != nil {
				return nil, err
			}
			return gin.H{"soil_types": soils}, nil
		})
	}
}

// ListTaskTypesHandler returns every task type
func (cat *Catalog) ListTaskTypesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cat.cached(c, taskTypesKey, func() (gin.H, error) {
			var types []domain.TaskType
			if err := dbFor(c, cat.DB).Order("task_type_id").Find(&types).Error; err != nil {
				return nil, err
			}
			return gin.H{"task_types": types}, nil
		})
	}
}
