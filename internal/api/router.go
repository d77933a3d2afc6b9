package api

import (
	"time" // Durations

	"plantastic/internal/inference"  // Classifier clients
	"plantastic/internal/middleware" // Custom middleware

	"github.com/gin-contrib/cors"                             // CORS for the mini app
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics exposition
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps is everything the HTTP layer needs
type Deps struct {
	DB          *gorm.DB             // Database
	Redis       *redis.Client        // Cache, may be nil
	CacheTTL    time.Duration        // Catalog cache lifetime
	Auth        AuthSettings         // Telegram handshake and JWT settings
	Plants      inference.Classifier // Plant classifier
	Diseases    inference.Classifier // Disease detector
	CORSOrigins []string             // Allowed origins, "*" allows all
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(d Deps) *gin.Engine {
	r := gin.New() // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestIDMiddleware(), middleware.LoggerMiddleware(), middleware.MetricsMiddleware())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	cat := &Catalog{DB: d.DB, Redis: d.Redis, TTL: d.CacheTTL}
	ident := &Identifier{DB: d.DB, Plants: d.Plants, Diseases: d.Diseases}

	// Public routes
	r.GET("/health", HealthHandler(d.DB, d.Redis))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/auth/telegram", TelegramAuthHandler(d.DB, d.Redis, d.Auth))

	// Catalog routes
	r.GET("/plants", cat.ListPlantsHandler())
	r.GET("/plants/:id", cat.GetPlantHandler())
	r.GET("/varieties/:id", cat.GetVarietyHandler())
	r.GET("/diseases", cat.ListDiseasesHandler())
	r.GET("/diseases/by-symptoms", cat.DiagnoseBySymptomsHandler())
	r.GET("/diseases/:id", cat.GetDiseaseHandler())
	r.GET("/symptoms", cat.ListSymptomsHandler())
	r.GET("/soil-types", cat.ListSoilTypesHandler())
	r.GET("/task-types", cat.ListTaskTypesHandler())

	// Authenticated routes
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(d.Auth.JWTSecret), middleware.ActiveUserMiddleware(d.DB))

	authed.GET("/users/me", GetMeHandler())
	authed.PATCH("/users/me", UpdateMeHandler(d.DB))
	authed.DELETE("/users/me", DeleteMeHandler(d.DB, d.Redis))

	authed.GET("/user-plants", ListUserPlantsHandler(d.DB))
	authed.POST("/user-plants", CreateUserPlantHandler(d.DB, d.Redis))
	authed.GET("/user-plants/:id", GetUserPlantHandler(d.DB))
	authed.PATCH("/user-plants/:id", UpdateUserPlantHandler(d.DB))
	authed.DELETE("/user-plants/:id", DeleteUserPlantHandler(d.DB, d.Redis))
	authed.POST("/user-plants/:id/water", WaterUserPlantHandler(d.DB))
	authed.POST("/user-plants/:id/images", AddUserPlantImageHandler(d.DB))
	authed.GET("/user-plants/:id/images", ListUserPlantImagesHandler(d.DB))

	authed.GET("/tasks", ListTasksHandler(d.DB))
	authed.GET("/tasks/week", WeekTasksHandler(d.DB))
	authed.GET("/tasks/calendar", CalendarHandler(d.DB))
	authed.POST("/tasks", CreateTaskHandler(d.DB))
	authed.GET("/tasks/:id", GetTaskHandler(d.DB))
	authed.PATCH("/tasks/:id", UpdateTaskHandler(d.DB))
	authed.POST("/tasks/:id/complete", CompleteTaskHandler(d.DB))
	authed.DELETE("/tasks/:id", DeleteTaskHandler(d.DB))

	authed.POST("/identify/plant", ident.IdentifyPlantHandler())
	authed.POST("/identify/disease", ident.IdentifyDiseaseHandler())
	authed.POST("/water/calculate", WaterCalculatorHandler(d.DB))

	// Admin routes (protected, admin only)
	admin := authed.Group("/admin")
	admin.Use(middleware.AdminOnlyMiddleware())
	admin.GET("/users", ListUsersHandler(d.DB, d.Redis))
	admin.POST("/plants", cat.CreatePlantHandler())
	admin.PUT("/plants/:id", cat.UpdatePlantHandler())
	admin.DELETE("/plants/:id", cat.DeletePlantHandler())
	admin.POST("/plants/:id/varieties", cat.CreateVarietyHandler())
	admin.POST("/diseases", cat.CreateDiseaseHandler())
	admin.PUT("/diseases/:id", cat.UpdateDiseaseHandler())
	admin.POST("/symptoms", cat.CreateSymptomHandler())
	admin.POST("/soil-types", cat.CreateSoilTypeHandler())
	admin.POST("/task-types", cat.CreateTaskTypeHandler())

	return r
}

// corsConfig allows the mini app origins with bearer tokens
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
