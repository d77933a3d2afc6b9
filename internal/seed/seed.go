// Package seed loads catalog reference data from a YAML document.
package seed

import (
	"fmt"
	"io"
	"os"

	"plantastic/internal/domain"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// File is the seed document.
type File struct {
	SoilTypes []SoilType `yaml:"soil_types"`
	TaskTypes []TaskType `yaml:"task_types"`
	Plants    []Plant    `yaml:"plants"`
	Symptoms  []Symptom  `yaml:"symptoms"`
	Diseases  []Disease  `yaml:"diseases"`
}

type SoilType struct {
	NameRu                    string  `yaml:"name_ru"`
	NameEn                    string  `yaml:"name_en"`
	DescriptionRu             string  `yaml:"description_ru"`
	WaterRetentionCoefficient float64 `yaml:"water_retention_coefficient"`
}

type TaskType struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Image struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Main        bool   `yaml:"main"`
	SourceURL   string `yaml:"source_url"`
}

type Variety struct {
	ClassLabel  string  `yaml:"class_label"`
	VarietyName string  `yaml:"variety_name"`
	Images      []Image `yaml:"images"`
}

type Plant struct {
	ScientificName       string    `yaml:"scientific_name"`
	CommonNameRu         string    `yaml:"common_name_ru"`
	Synonyms             string    `yaml:"synonyms"`
	Family               string    `yaml:"family"`
	Genus                string    `yaml:"genus"`
	Description          string    `yaml:"description"`
	MaxHeightCm          *int      `yaml:"max_height_cm"`
	GrowthRate           string    `yaml:"growth_rate"`
	LightRequirements    string    `yaml:"light_requirements"`
	TemperatureRange     string    `yaml:"temperature_range"`
	HumidityRequirements string    `yaml:"humidity_requirements"`
	SoilRequirements     string    `yaml:"soil_requirements"`
	RepottingFrequency   string    `yaml:"repotting_frequency"`
	PropagationMethods   string    `yaml:"propagation_methods"`
	Toxicity             string    `yaml:"toxicity"`
	CareFeatures         string    `yaml:"care_features"`
	WateringFrequency    string    `yaml:"watering_frequency"`
	WateringCoefficient  float64   `yaml:"watering_coefficient"`
	Varieties            []Variety `yaml:"varieties"`
}

type Symptom struct {
	NameRu   string `yaml:"name_ru"`
	NameEn   string `yaml:"name_en"`
	Question string `yaml:"question"`
}

type Disease struct {
	NameRu              string   `yaml:"name_ru"`
	NameEn              string   `yaml:"name_en"`
	Description         string   `yaml:"description"`
	SymptomsDescription string   `yaml:"symptoms_description"`
	Treatment           string   `yaml:"treatment"`
	Prevention          string   `yaml:"prevention"`
	Symptoms            []string `yaml:"symptoms"` // symptom name_ru values
	ClassLabels         []string `yaml:"class_labels"`
	Images              []Image  `yaml:"images"`
}

// Result counts the rows written per entity.
type Result struct {
	SoilTypes     int `json:"soil_types"`
	TaskTypes     int `json:"task_types"`
	Plants        int `json:"plants"`
	Varieties     int `json:"varieties"`
	PlantImages   int `json:"plant_images"`
	Symptoms      int `json:"symptoms"`
	Diseases      int `json:"diseases"`
	DiseaseLinks  int `json:"disease_symptoms"`
	DiseaseLabels int `json:"disease_classes"`
	DiseaseImages int `json:"disease_images"`
}

// Parse decodes a seed document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &f, nil
}

// LoadFile opens and parses path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Apply upserts every entry by its natural key in a single transaction.
func Apply(db *gorm.DB, f *File) (Result, error) {
	var res Result
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, s := range f.SoilTypes {
			if s.NameRu == "" || s.WaterRetentionCoefficient <= 0 {
				return fmt.Errorf("soil type %q: name_ru and a positive water_retention_coefficient are required", s.NameRu)
			}
			row := domain.SoilType{}
			err := tx.Where(domain.SoilType{NameRu: s.NameRu}).
				Assign(map[string]any{"name_en": s.NameEn, "description_ru": s.DescriptionRu, "water_retention_coefficient": s.WaterRetentionCoefficient}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("soil type %q: %w", s.NameRu, err)
			}
			res.SoilTypes++
		}
		for _, t := range f.TaskTypes {
			row := domain.TaskType{}
			err := tx.Where(domain.TaskType{TaskName: t.Name}).
				Assign(map[string]any{"task_description": t.Description}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("task type %q: %w", t.Name, err)
			}
			res.TaskTypes++
		}
		for _, p := range f.Plants {
			if err := applyPlant(tx, p, &res); err != nil {
				return err
			}
		}
		symptomIDs := map[string]uint{}
		for _, s := range f.Symptoms {
			row := domain.Symptom{}
			err := tx.Where(domain.Symptom{SymptomNameRu: s.NameRu}).
				Assign(map[string]any{"question": s.Question, "symptom_name_en": s.NameEn}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("symptom %q: %w", s.NameRu, err)
			}
			symptomIDs[s.NameRu] = row.SymptomID
			res.Symptoms++
		}
		for _, d := range f.Diseases {
			if err := applyDisease(tx, d, symptomIDs, &res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logrus.WithFields(logrus.Fields{
		"soil_types": res.SoilTypes,
		"task_types": res.TaskTypes,
		"plants":     res.Plants,
		"varieties":  res.Varieties,
		"symptoms":   res.Symptoms,
		"diseases":   res.Diseases,
	}).Info("Catalog seeded")
	return res, nil
}

func applyPlant(tx *gorm.DB, p Plant, res *Result) error {
	plant := domain.Plant{}
	err := tx.Where(domain.Plant{ScientificName: p.ScientificName}).
		Assign(map[string]any{ // A map so zero values overwrite stored ones
			"common_name_ru":        p.CommonNameRu,
			"synonyms":              p.Synonyms,
			"family":                p.Family,
			"genus":                 p.Genus,
			"description":           p.Description,
			"max_height_cm":         p.MaxHeightCm,
			"growth_rate":           p.GrowthRate,
			"light_requirements":    p.LightRequirements,
			"temperature_range":     p.TemperatureRange,
			"humidity_requirements": p.HumidityRequirements,
			"soil_requirements":     p.SoilRequirements,
			"repotting_frequency":   p.RepottingFrequency,
			"propagation_methods":   p.PropagationMethods,
			"toxicity":              p.Toxicity,
			"care_features":         p.CareFeatures,
			"watering_frequency":    p.WateringFrequency,
			"watering_coefficient":  p.WateringCoefficient,
		}).
		FirstOrCreate(&plant).Error
	if err != nil {
		return fmt.Errorf("plant %q: %w", p.ScientificName, err)
	}
	res.Plants++
	for _, v := range p.Varieties {
		variety := domain.PlantNNClass{}
		err := tx.Where(domain.PlantNNClass{ClassLabel: v.ClassLabel}).
			Assign(map[string]any{"plant_id": plant.ID, "variety_name": v.VarietyName}).
			FirstOrCreate(&variety).Error
		if err != nil {
			return fmt.Errorf("variety %q: %w", v.ClassLabel, err)
		}
		res.Varieties++
		for _, img := range v.Images {
			row := domain.PlantImage{}
			err := tx.Where(domain.PlantImage{PlantNNClassID: variety.ClassID, ImageURL: img.URL}).
				Assign(map[string]any{"description": img.Description, "is_main_image": img.Main, "source_url": img.SourceURL}).
				FirstOrCreate(&row).Error
			if err != nil {
				return fmt.Errorf("variety %q image: %w", v.ClassLabel, err)
			}
			res.PlantImages++
		}
	}
	return nil
}

func applyDisease(tx *gorm.DB, d Disease, symptomIDs map[string]uint, res *Result) error {
	disease := domain.Disease{}
	err := tx.Where(domain.Disease{DiseaseNameRu: d.NameRu}).
		Assign(map[string]any{
			"disease_name_en":      d.NameEn,
			"description":          d.Description,
			"symptoms_description": d.SymptomsDescription,
			"treatment":            d.Treatment,
			"prevention":           d.Prevention,
		}).
		FirstOrCreate(&disease).Error
	if err != nil {
		return fmt.Errorf("disease %q: %w", d.NameRu, err)
	}
	res.Diseases++
	for _, name := range d.Symptoms {
		sid, ok := symptomIDs[name]
		if !ok {
			var s domain.Symptom
			if err := tx.Where("symptom_name_ru = ?", name).First(&s).Error; err != nil {
				return fmt.Errorf("disease %q: unknown symptom %q", d.NameRu, name)
			}
			sid = s.SymptomID
		}
		link := domain.DiseaseSymptom{}
		if err := tx.Where(domain.DiseaseSymptom{DiseaseID: disease.ID, SymptomID: sid}).FirstOrCreate(&link).Error; err != nil {
			return fmt.Errorf("disease %q symptom %q: %w", d.NameRu, name, err)
		}
		res.DiseaseLinks++
	}
	for _, label := range d.ClassLabels {
		class := domain.DiseaseNNClass{}
		err := tx.Where(domain.DiseaseNNClass{ClassLabel: label}).
			Assign(map[string]any{"disease_id": disease.ID}).
			FirstOrCreate(&class).Error
		if err != nil {
			return fmt.Errorf("disease %q label %q: %w", d.NameRu, label, err)
		}
		res.DiseaseLabels++
	}
	for _, img := range d.Images {
		row := domain.DiseaseImage{}
		err := tx.Where(domain.DiseaseImage{DiseaseID: disease.ID, ImageURL: img.URL}).
			Assign(map[string]any{"description": img.Description, "is_main_image": img.Main, "source_url": img.SourceURL}).
			FirstOrCreate(&row).Error
		if err != nil {
			return fmt.Errorf("disease %q image: %w", d.NameRu, err)
		}
		res.DiseaseImages++
	}
	return nil
}
