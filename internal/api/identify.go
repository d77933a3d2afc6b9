package api

import (
	"errors"        // Error inspection
	"io"            // Reading uploads
	"mime"          // Content type parsing
	"net/http"      // HTTP status codes
	"path/filepath" // File extensions
	"strings"       // String manipulation

	"plantastic/internal/domain"     // Importing domain models
	"plantastic/internal/inference"  // Classifier clients
	"plantastic/internal/middleware" // Context keys

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// maxUploadSize is the largest accepted image
const maxUploadSize = 10 << 20

var (
	plantImageTypes = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true, ".heif": true,
		"image/jpeg": true, "image/png": true, "image/webp": true, "image/heic": true, "image/heif": true,
	}
	diseaseImageTypes = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true,
		"image/jpeg": true, "image/png": true,
	}
)

// Identifier joins classifier output with the catalog
type Identifier struct {
	DB       *gorm.DB             // Catalog
	Plants   inference.Classifier // Plant classifier
	Diseases inference.Classifier // Disease detector
}

// PlantSummary is the catalog part of a plant identification result
type PlantSummary struct {
	PlantID        uint   `json:"plant_id"`
	ScientificName string `json:"scientific_name"`
	CommonNameRu   string `json:"common_name_ru"`
	Family         string `json:"family,omitempty"`
}

// PlantCandidate is one ranked plant prediction
type PlantCandidate struct {
	Rank       int                  `json:"rank"`
	Label      string               `json:"label"`
	Confidence float64              `json:"confidence"`
	Variety    *domain.PlantNNClass `json:"variety,omitempty"`
	Plant      *PlantSummary        `json:"plant,omitempty"`
	ImageURL   string               `json:"image_url,omitempty"`
}

// DiseaseCandidate is one ranked disease prediction
type DiseaseCandidate struct {
	Rank       int             `json:"rank"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Disease    *domain.Disease `json:"disease,omitempty"`
	ImageURL   string          `json:"image_url,omitempty"`
}

// uploadError is a rejected upload and the status it maps to
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

// readUpload reads the multipart "file" field, enforcing size and type limits
func readUpload(c *gin.Context, allowed map[string]bool) (inference.Image, *uploadError) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+1<<20) // Room for multipart framing
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return inference.Image{}, &uploadError{http.StatusRequestEntityTooLarge, "File is larger than 10 MiB"}
		}
		return inference.Image{}, &uploadError{http.StatusBadRequest, "Multipart field file is required"}
	}
	if header.Size > maxUploadSize {
		return inference.Image{}, &uploadError{http.StatusRequestEntityTooLarge, "File is larger than 10 MiB"}
	}
	if header.Size == 0 {
		return inference.Image{}, &uploadError{http.StatusBadRequest, "File is empty"}
	}
	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = strings.ToLower(mt)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowed[ext] && !allowed[contentType] {
		return inference.Image{}, &uploadError{http.StatusUnsupportedMediaType, "Unsupported image type"}
	}
	f, err := header.Open()
	if err != nil {
		return inference.Image{}, &uploadError{http.StatusBadRequest, "Cannot read file"}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return inference.Image{}, &uploadError{http.StatusBadRequest, "Cannot read file"}
	}
	return inference.Image{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// IdentifyPlantHandler classifies a plant photo and attaches catalog data to each prediction
func (id *Identifier) IdentifyPlantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		img, uerr := readUpload(c, plantImageTypes)
		if uerr != nil {
			c.JSON(uerr.status, gin.H{"error": uerr.msg})
			return
		}
		preds, err := id.Plants.Predict(c.Request.Context(), img)
		if err != nil {
			respondError(c, err, "Plant identification failed")
			return
		}
		results, err := matchPlants(dbFor(c, id.DB), preds)
		if err != nil {
			respondError(c, err, "Failed to match predictions")
			return
		}
		logrus.WithFields(logrus.Fields{
			"request_id":  c.GetString(middleware.RequestIDKey),
			"predictions": len(results),
			"filename":    img.Filename,
		}).Info("Plant identified")
		c.JSON(http.StatusOK, gin.H{"predictions": results})
	}
}

// IdentifyDiseaseHandler runs disease detection and attaches treatment data to each prediction
func (id *Identifier) IdentifyDiseaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		img, uerr := readUpload(c, diseaseImageTypes)
		if uerr != nil {
			c.JSON(uerr.status, gin.H{"error": uerr.msg})
			return
		}
		preds, err := id.Diseases.Predict(c.Request.Context(), img)
		if err != nil {
			respondError(c, err, "Disease detection failed")
			return
		}
		results, err := matchDiseases(dbFor(c, id.DB), preds)
		if err != nil {
			respondError(c, err, "Failed to match predictions")
			return
		}
		logrus.WithFields(logrus.Fields{
			"request_id":  c.GetString(middleware.RequestIDKey),
			"predictions": len(results),
			"filename":    img.Filename,
		}).Info("Disease detected")
		c.JSON(http.StatusOK, gin.H{"predictions": results})
	}
}

// labelIndex maps normalized class labels to their class ids
func labelIndex(db *gorm.DB, model any) (map[string]uint, error) {
	var rows []struct {
		ClassID    uint
		ClassLabel string
	}
	if err := db.Model(model).Select("class_id, class_label").Scan(&rows).Error; err != nil {
		return nil, err
	}
	index := make(map[string]uint, len(rows))
	for _, r := range rows {
		index[inference.NormalizeLabel(r.ClassLabel)] = r.ClassID
	}
	return index, nil
}

// matchPlants keeps the classifier ranking; unmatched labels are returned without catalog data
func matchPlants(db *gorm.DB, preds []inference.Prediction) ([]PlantCandidate, error) {
	index, err := labelIndex(db, &domain.PlantNNClass{})
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, p := range preds {
		if cid, ok := index[inference.NormalizeLabel(p.Label)]; ok {
			ids = append(ids, cid)
		}
	}
	byID := map[uint]*domain.PlantNNClass{}
	if len(ids) > 0 {
		var varieties []domain.PlantNNClass
		if err := db.Preload("Plant").Preload("Images").Where("class_id IN ?", ids).Find(&varieties).Error; err != nil {
			return nil, err
		}
		for i := range varieties {
			byID[varieties[i].ClassID] = &varieties[i]
		}
	}
	results := make([]PlantCandidate, 0, len(preds))
	for i, p := range preds {
		r := PlantCandidate{Rank: i + 1, Label: p.Label, Confidence: p.Confidence}
		if v, ok := byID[index[inference.NormalizeLabel(p.Label)]]; ok {
			r.Variety = v
			r.ImageURL = v.MainImageURL()
			if v.Plant != nil {
				r.Plant = &PlantSummary{
					PlantID:        v.Plant.ID,
					ScientificName: v.Plant.ScientificName,
					CommonNameRu:   v.Plant.CommonNameRu,
					Family:         v.Plant.Family,
				}
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// matchDiseases keeps the detector ranking; unmatched labels are returned without catalog data
func matchDiseases(db *gorm.DB, preds []inference.Prediction) ([]DiseaseCandidate, error) {
	var classes []domain.DiseaseNNClass
	if err := db.Find(&classes).Error; err != nil {
		return nil, err
	}
	diseaseFor := make(map[string]uint, len(classes))
	for _, cl := range classes {
		diseaseFor[inference.NormalizeLabel(cl.ClassLabel)] = cl.DiseaseID
	}
	var ids []uint
	for _, p := range preds {
		if did, ok := diseaseFor[inference.NormalizeLabel(p.Label)]; ok {
			ids = append(ids, did)
		}
	}
	byID := map[uint]*domain.Disease{}
	if len(ids) > 0 {
		var diseases []domain.Disease
		if err := db.Preload("Images").Where("disease_id IN ?", ids).Find(&diseases).Error; err != nil {
			return nil, err
		}
		if err := attachSymptoms(db, diseases); err != nil {
			return nil, err
		}
		for i := range diseases {
			byID[diseases[i].ID] = &diseases[i]
		}
	}
	results := make([]DiseaseCandidate, 0, len(preds))
	for i, p := range preds {
		r := DiseaseCandidate{Rank: i + 1, Label: p.Label, Confidence: p.Confidence}
		if d, ok := byID[diseaseFor[inference.NormalizeLabel(p.Label)]]; ok {
			r.Disease = d
			r.ImageURL = d.MainImageURL()
		}
		results = append(results, r)
	}
	return results, nil
}
