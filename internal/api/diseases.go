package api

import (
	"sort"    // Ranking
	"strconv" // String conversion
	"strings" // String manipulation

	"plantastic/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// DiseaseMatch is one candidate of a symptom-based diagnosis
type DiseaseMatch struct {
	Disease domain.Disease `json:"disease"` // Candidate disease
	Matched int            `json:"matched"` // Selected symptoms the disease has
	Total   int            `json:"total"`   // Symptoms the disease has
	Score   float64        `json:"score"`   // Matched / Total
}

// attachSymptoms fills Disease.Symptoms for every disease in one query
func attachSymptoms(db *gorm.DB, diseases []domain.Disease) error {
	if len(diseases) == 0 {
		return nil
	}
	ids := make([]uint, len(diseases))
	for i, d := range diseases {
		ids[i] = d.ID
	}
	var rows []struct {
		DiseaseID uint
		domain.Symptom
	}
	err := db.Table("disease_symptoms").
		Select("disease_symptoms.disease_id, symptoms.*").
		Joins("JOIN symptoms ON symptoms.symptom_id = disease_symptoms.symptom_id").
		Where("disease_symptoms.disease_id IN ?", ids).
		Order("symptoms.symptom_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	byDisease := map[uint][]domain.Symptom{}
	for _, r := range rows {
		byDisease[r.DiseaseID] = append(byDisease[r.DiseaseID], r.Symptom)
	}
	for i := range diseases {
		diseases[i].Symptoms = byDisease[diseases[i].ID]
	}
	return nil
}

// ListDiseasesHandler returns a page of diseases with their main images
func (cat *Catalog) ListDiseasesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, offset := pagination(c)
		key := catalogPrefix + "diseases:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		cat.cached(c, key, func() (gin.H, error) {
			tx := dbFor(c, cat.DB)
			var total int64
			if err := tx.Model(&domain.Disease{}).Count(&total).Error; err != nil {
				return nil, err
			}
			var diseases []domain.Disease
			if err := tx.Preload("Images").Order("disease_id").Offset(offset).Limit(pageSize).Find(&diseases).Error; err != nil {
				return nil, err
			}
			return gin.H{
				"diseases":    diseases,
				"page":        page,
				"page_size":   pageSize,
				"total":       total,
				"total_pages": totalPages(total, pageSize),
			}, nil
		})
	}
}

// GetDiseaseHandler returns a disease with symptoms and images
func (cat *Catalog) GetDiseaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		cat.cached(c, catalogPrefix+"disease:"+strconv.Itoa(int(id)), func() (gin.H, error) {
			tx := dbFor(c, cat.DB)
			var disease domain.Disease
			if err := tx.Preload("Images").First(&disease, "disease_id = ?", id).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return nil, notFound("Disease not found")
				}
				return nil, err
			}
			list := []domain.Disease{disease}
			if err := attachSymptoms(tx, list); err != nil {
				return nil, err
			}
			return gin.H{"disease": list[0]}, nil
		})
	}
}

// ListSymptomsHandler returns every symptom with its question
func (cat *Catalog) ListSymptomsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cat.cached(c, catalogPrefix+"symptoms", func() (gin.H, error) {
			var symptoms []domain.Symptom
			if err := dbFor(c, cat.DB).Order("symptom_id").Find(&symptoms).Error; err != nil {
				return nil, err
			}
			return gin.H{"symptoms": symptoms}, nil
		})
	}
}

// DiagnoseBySymptomsHandler ranks diseases by how many of the selected symptoms they show
func (cat *Catalog) DiagnoseBySymptomsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := parseIDList(c.Query("symptom_ids"))
		if len(ids) == 0 {
			respondError(c, invalid("symptom_ids must list at least one symptom id"), "")
			return
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(int(id))
		}
		cat.cached(c, catalogPrefix+"diagnose:"+strings.Join(parts, ","), func() (gin.H, error) {
			matches, err := rankDiseases(dbFor(c, cat.DB), ids)
			if err != nil {
				return nil, err
			}
			return gin.H{"matches": matches}, nil
		})
	}
}

// rankDiseases orders diseases by matched symptom count, then by id
func rankDiseases(db *gorm.DB, symptomIDs []uint) ([]DiseaseMatch, error) {
	var candidateIDs []uint
	if err := db.Model(&domain.DiseaseSymptom{}).Distinct("disease_id").
		Where("symptom_id IN ?", symptomIDs).Pluck("disease_id", &candidateIDs).Error; err != nil {
		return nil, err
	}
	if len(candidateIDs) == 0 {
		return []DiseaseMatch{}, nil
	}
	var diseases []domain.Disease
	if err := db.Preload("Images").Where("disease_id IN ?", candidateIDs).Find(&diseases).Error; err != nil {
		return nil, err
	}
	if err := attachSymptoms(db, diseases); err != nil {
		return nil, err
	}
	selected := make(map[uint]bool, len(symptomIDs))
	for _, id := range symptomIDs {
		selected[id] = true
	}
	matches := make([]DiseaseMatch, 0, len(diseases))
	for _, d := range diseases {
		m := DiseaseMatch{Disease: d, Total: len(d.Symptoms)}
		for _, s := range d.Symptoms {
			if selected[s.SymptomID] {
				m.Matched++
			}
		}
		if m.Total > 0 {
			m.Score = float64(m.Matched) / float64(m.Total)
		}
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Matched != b.Matched {
			return a.Matched > b.Matched
		}
		return a.Disease.ID < b.Disease.ID
	})
	return matches, nil
}
