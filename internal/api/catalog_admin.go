package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"plantastic/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// PlantRequest creates or replaces the descriptive fields of a plant
type PlantRequest struct {
	ScientificName       string  `json:"scientific_name" binding:"required"`
	CommonNameRu         string  `json:"common_name_ru" binding:"required"`
	Synonyms             string  `json:"synonyms"`
	Family               string  `json:"family"`
	Genus                string  `json:"genus"`
	Description          string  `json:"description"`
	MaxHeightCm          *int    `json:"max_height_cm"`
	GrowthRate           string  `json:"growth_rate"`
	LightRequirements    string  `json:"light_requirements"`
	TemperatureRange     string  `json:"temperature_range"`
	HumidityRequirements string  `json:"humidity_requirements"`
	SoilRequirements     string  `json:"soil_requirements"`
	RepottingFrequency   string  `json:"repotting_frequency"`
	PropagationMethods   string  `json:"propagation_methods"`
	Toxicity             string  `json:"toxicity"`
	CareFeatures         string  `json:"care_features"`
	WateringFrequency    string  `json:"watering_frequency"`
	WateringCoefficient  float64 `json:"watering_coefficient" binding:"gte=0"`
}

func (r *PlantRequest) apply(p *domain.Plant) {
	p.ScientificName = r.ScientificName
	p.CommonNameRu = r.CommonNameRu
	p.Synonyms = r.Synonyms
	p.Family = r.Family
	p.Genus = r.Genus
	p.Description = r.Description
	p.MaxHeightCm = r.MaxHeightCm
	p.GrowthRate = r.GrowthRate
	p.LightRequirements = r.LightRequirements
	p.TemperatureRange = r.TemperatureRange
	p.HumidityRequirements = r.HumidityRequirements
	p.SoilRequirements = r.SoilRequirements
	p.RepottingFrequency = r.RepottingFrequency
	p.PropagationMethods = r.PropagationMethods
	p.Toxicity = r.Toxicity
	p.CareFeatures = r.CareFeatures
	p.WateringFrequency = r.WateringFrequency
	p.WateringCoefficient = r.WateringCoefficient
}

// VarietyRequest adds a classifier label to a plant
type VarietyRequest struct {
	ClassLabel  string `json:"class_label" binding:"required"`  // Label produced by the classifier
	VarietyName string `json:"variety_name" binding:"required"` // Human readable variety
	ImageURL    string `json:"image_url"`                       // Optional main image
}

// DiseaseRequest creates or replaces a disease and its symptom links
type DiseaseRequest struct {
	DiseaseNameRu       string   `json:"disease_name_ru" binding:"required"`
	DiseaseNameEn       string   `json:"disease_name_en"`
	Description         string   `json:"description"`
	SymptomsDescription string   `json:"symptoms_description"`
	Treatment           string   `json:"treatment"`
	Prevention          string   `json:"prevention"`
	SymptomIDs          []uint   `json:"symptom_ids"`
	ClassLabels         []string `json:"class_labels"`
}

// SymptomRequest creates a symptom
type SymptomRequest struct {
	SymptomNameRu string `json:"symptom_name_ru" binding:"required"`
	Question      string `json:"question" binding:"required"`
	SymptomNameEn string `json:"symptom_name_en"`
}

// SoilTypeRequest creates a soil type
type SoilTypeRequest struct {
	NameRu                    string  `json:"name_ru" binding:"required"`
	NameEn                    string  `json:"name_en"`
	DescriptionRu             string  `json:"description_ru"`
	WaterRetentionCoefficient float64 `json:"water_retention_coefficient" binding:"required,gt=0"`
}

// TaskTypeRequest creates a task type
type TaskTypeRequest struct {
	TaskName        string `json:"task_name" binding:"required"`
	TaskDescription string `json:"task_description"`
}

// logCatalogWrite records an admin change to the catalog
func logCatalogWrite(c *gin.Context, entity string, id uint, action string) {
	logrus.WithFields(logrus.Fields{
		"admin_id": currentUser(c).UserID,
		"entity":   entity,
		"id":       id,
		"action":   action,
	}).Info("Catalog updated")
}

// CreatePlantHandler adds a plant to the catalog
func (cat *Catalog) CreatePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PlantRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var plant domain.Plant
		req.apply(&plant)
		if err := dbFor(c, cat.DB).Create(&plant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, conflict("Plant with this scientific name already exists"), "")
				return
			}
			respondError(c, err, "Failed to create plant")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "plant", plant.ID, "create")
		c.JSON(http.StatusCreated, gin.H{"plant": plant})
	}
}

// UpdatePlantHandler replaces the descriptive fields of a plant
func (cat *Catalog) UpdatePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		var req PlantRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tx := dbFor(c, cat.DB)
		var plant domain.Plant
		if err := tx.First(&plant, "plant_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(c, notFound("Plant not found"), "")
				return
			}
			respondError(c, err, "Failed to load plant")
			return
		}
		req.apply(&plant)
		if err := tx.Save(&plant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, conflict("Plant with this scientific name already exists"), "")
				return
			}
			respondError(c, err, "Failed to update plant")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "plant", plant.ID, "update")
		c.JSON(http.StatusOK, gin.H{"plant": plant})
	}
}

// DeletePlantHandler removes a plant with its varieties unless a user plant uses one of them
func (cat *Catalog) DeletePlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		err = dbFor(c, cat.DB).Transaction(func(tx *gorm.DB) error {
			var plant domain.Plant
			if err := tx.First(&plant, "plant_id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Plant not found")
				}
				return err
			}
			varieties := tx.Model(&domain.PlantNNClass{}).Select("class_id").Where("plant_id = ?", id)
			var used int64
			if err := tx.Model(&domain.UserPlant{}).Where("plant_nn_classes_id IN (?)", varieties).Count(&used).Error; err != nil {
				return err
			}
			if used > 0 {
				return conflict("Plant is used by user plants")
			}
			if err := tx.Where("plant_nn_classes_id IN (?)", varieties).Delete(&domain.PlantImage{}).Error; err != nil {
				return err // Return error to rollback
			}
			if err := tx.Where("plant_id = ?", id).Delete(&domain.PlantNNClass{}).Error; err != nil {
				return err // Return error to rollback
			}
			return tx.Delete(&plant).Error
		})
		if err != nil {
			respondError(c, err, "Failed to delete plant")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "plant", id, "delete")
		c.JSON(http.StatusOK, gin.H{"message": "Plant deleted"})
	}
}

// CreateVarietyHandler adds a classifier label to a plant
func (cat *Catalog) CreateVarietyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		var req VarietyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		variety := domain.PlantNNClass{PlantID: id, ClassLabel: req.ClassLabel, VarietyName: req.VarietyName}
		err = dbFor(c, cat.DB).Transaction(func(tx *gorm.DB) error {
			var plant domain.Plant
			if err := tx.First(&plant, "plant_id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Plant not found")
				}
				return err
			}
			if err := tx.Create(&variety).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return conflict("Variety with this class label already exists")
				}
				return err
			}
			if req.ImageURL == "" {
				return nil
			}
			img := domain.PlantImage{PlantNNClassID: variety.ClassID, ImageURL: req.ImageURL, IsMainImage: true}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
			variety.Images = []domain.PlantImage{img}
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to create variety")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "variety", variety.ClassID, "create")
		c.JSON(http.StatusCreated, gin.H{"variety": variety})
	}
}

// saveDisease writes the disease row and replaces its symptom links and classifier labels
func saveDisease(tx *gorm.DB, disease *domain.Disease, req *DiseaseRequest) error {
	disease.DiseaseNameRu = req.DiseaseNameRu
	disease.DiseaseNameEn = req.DiseaseNameEn
	disease.Description = req.Description
	disease.SymptomsDescription = req.SymptomsDescription
	disease.Treatment = req.Treatment
	disease.Prevention = req.Prevention
	if err := tx.Omit("Images", "Classes").Save(disease).Error; err != nil {
		return err
	}
	if req.SymptomIDs != nil {
		var found int64
		if err := tx.Model(&domain.Symptom{}).Where("symptom_id IN ?", req.SymptomIDs).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(uniqueIDs(req.SymptomIDs)) {
			return notFound("Symptom not found")
		}
		if err := tx.Where("disease_id = ?", disease.ID).Delete(&domain.DiseaseSymptom{}).Error; err != nil {
			return err
		}
		for _, sid := range uniqueIDs(req.SymptomIDs) {
			link := domain.DiseaseSymptom{DiseaseID: disease.ID, SymptomID: sid}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
	}
	if req.ClassLabels != nil {
		if err := tx.Where("disease_id = ?", disease.ID).Delete(&domain.DiseaseNNClass{}).Error; err != nil {
			return err
		}
		for _, label := range req.ClassLabels {
			class := domain.DiseaseNNClass{ClassLabel: label, DiseaseID: disease.ID}
			if err := tx.Create(&class).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return conflict("Class label " + label + " is already mapped")
				}
				return err
			}
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := map[uint]bool{}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// CreateDiseaseHandler adds a disease with its symptoms
func (cat *Catalog) CreateDiseaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DiseaseRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var disease domain.Disease
		err := dbFor(c, cat.DB).Transaction(func(tx *gorm.DB) error {
			if err := saveDisease(tx, &disease, &req); err != nil {
				return err
			}
			list := []domain.Disease{disease}
			if err := attachSymptoms(tx, list); err != nil {
				return err
			}
			disease = list[0]
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to create disease")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "disease", disease.ID, "create")
		c.JSON(http.StatusCreated, gin.H{"disease": disease})
	}
}

// UpdateDiseaseHandler replaces a disease and, when given, its symptom links
func (cat *Catalog) UpdateDiseaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		var req DiseaseRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var disease domain.Disease
		err = dbFor(c, cat.DB).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&disease, "disease_id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Disease not found")
				}
				return err
			}
			if err := saveDisease(tx, &disease, &req); err != nil {
				return err
			}
			list := []domain.Disease{disease}
			if err := attachSymptoms(tx, list); err != nil {
				return err
			}
			disease = list[0]
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to update disease")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "disease", disease.ID, "update")
		c.JSON(http.StatusOK, gin.H{"disease": disease})
	}
}

// CreateSymptomHandler adds a symptom
func (cat *Catalog) CreateSymptomHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SymptomRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		symptom := domain.Symptom{SymptomNameRu: req.SymptomNameRu, Question: req.Question, SymptomNameEn: req.SymptomNameEn}
		if err := dbFor(c, cat.DB).Create(&symptom).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, conflict("Symptom already exists"), "")
				return
			}
			respondError(c, err, "Failed to create symptom")
			return
		}
		cat.invalidate(c)
		logCatalogWrite(c, "symptom", symptom.SymptomID, "create")
		c.JSON(http.StatusCreated, gin.H{"symptom": symptom})
	}
}

// CreateSoilTypeHandler adds a soil type
func (cat *Catalog) CreateSoilTypeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SoilTypeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		soil := domain.SoilType{
			NameRu:                    req.NameRu,
			NameEn:                    req.NameEn,
			DescriptionRu:             req.DescriptionRu,
			WaterRetentionCoefficient: req.WaterRetentionCoefficient,
		}
		if err := dbFor(c, cat.DB).Create(&soil).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, conflict("Soil type already exists"), "")
				return
			}
			respondError(c, err, "Failed to create soil type")
			return
		}
		cat.invalidateKey(c, soilTypesKey) // Only the soil type list changed
		logCatalogWrite(c, "soil_type", soil.ID, "create")
		c.JSON(http.StatusCreated, gin.H{"soil_type": soil})
	}
}

// CreateTaskTypeHandler adds a task type
func (cat *Catalog) CreateTaskTypeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskTypeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		taskType := domain.TaskType{TaskName: req.TaskName, TaskDescription: req.TaskDescription}
		if err := dbFor(c, cat.DB).Create(&taskType).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, conflict("Task type already exists"), "")
				return
			}
			respondError(c, err, "Failed to create task type")
			return
		}
		cat.invalidateKey(c, taskTypesKey) // Only the task type list changed
		logCatalogWrite(c, "task_type", taskType.ID, "create")
		c.JSON(http.StatusCreated, gin.H{"task_type": taskType})
	}
}
