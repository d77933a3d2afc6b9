package domain

// Plant Model, one catalog species
type Plant struct {
	ID                   uint    `gorm:"column:plant_id;primaryKey" json:"plant_id"`
	ScientificName       string  `gorm:"column:scientific_name;unique;not null" json:"scientific_name"`
	CommonNameRu         string  `gorm:"column:common_name_ru;not null" json:"common_name_ru"`
	Synonyms             string  `gorm:"column:synonyms" json:"synonyms,omitempty"`
	Family               string  `gorm:"column:family" json:"family,omitempty"`
	Genus                string  `gorm:"column:genus" json:"genus,omitempty"`
	Description          string  `gorm:"column:description;type:text" json:"description,omitempty"`
	MaxHeightCm          *int    `gorm:"column:max_height_cm" json:"max_height_cm,omitempty"`
	GrowthRate           string  `gorm:"column:growth_rate" json:"growth_rate,omitempty"`
	LightRequirements    string  `gorm:"column:light_requirements" json:"light_requirements,omitempty"`
	TemperatureRange     string  `gorm:"column:temperature_range" json:"temperature_range,omitempty"`
	HumidityRequirements string  `gorm:"column:humidity_requirements" json:"humidity_requirements,omitempty"`
	SoilRequirements     string  `gorm:"column:soil_requirements" json:"soil_requirements,omitempty"`
	RepottingFrequency   string  `gorm:"column:repotting_frequency" json:"repotting_frequency,omitempty"`
	PropagationMethods   string  `gorm:"column:propagation_methods" json:"propagation_methods,omitempty"`
	Toxicity             string  `gorm:"column:toxicity" json:"toxicity,omitempty"`
	CareFeatures         string  `gorm:"column:care_features" json:"care_features,omitempty"`
	WateringFrequency    string  `gorm:"column:watering_frequency" json:"watering_frequency,omitempty"`
	WateringCoefficient  float64 `gorm:"column:watering_coefficient" json:"watering_coefficient,omitempty"`

	Varieties []PlantNNClass `gorm:"foreignKey:PlantID;references:ID;constraint:OnDelete:CASCADE" json:"varieties,omitempty"`
}

func (Plant) TableName() string { return "plants" }

// PlantNNClass maps one classifier label to a plant variety
type PlantNNClass struct {
	ClassID     uint   `gorm:"column:class_id;primaryKey" json:"class_id"`
	ClassLabel  string `gorm:"column:class_label;unique;not null" json:"class_label"`
	PlantID     uint   `gorm:"column:plant_id;index;not null" json:"plant_id"`
	VarietyName string `gorm:"column:variety_name;not null" json:"variety_name"`

	Plant  *Plant       `gorm:"foreignKey:PlantID;references:ID" json:"plant,omitempty"`
	Images []PlantImage `gorm:"foreignKey:PlantNNClassID;references:ClassID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (PlantNNClass) TableName() string { return "plant_nn_classes" }

// MainImageURL returns the main image, or the first image when none is flagged
func (v *PlantNNClass) MainImageURL() string {
	for _, img := range v.Images {
		if img.IsMainImage {
			return img.ImageURL
		}
	}
	if len(v.Images) > 0 {
		return v.Images[0].ImageURL
	}
	return ""
}

// PlantImage Model
type PlantImage struct {
	ImageID        uint   `gorm:"column:image_id;primaryKey;autoIncrement" json:"image_id"`
	PlantNNClassID uint   `gorm:"column:plant_nn_classes_id;index" json:"plant_nn_classes_id"`
	ImageURL       string `gorm:"column:image_url;not null" json:"image_url"`
	Description    string `gorm:"column:description" json:"description,omitempty"`
	IsMainImage    bool   `gorm:"column:is_main_image;default:false" json:"is_main_image"`
	SourceURL      string `gorm:"column:source_url" json:"source_url,omitempty"`
}

func (PlantImage) TableName() string { return "plant_images" }

// SoilType Model
type SoilType struct {
	ID                        uint    `gorm:"column:soil_type_id;primaryKey;autoIncrement" json:"soil_type_id"`
	NameRu                    string  `gorm:"column:name_ru;uniqueIndex;not null" json:"name_ru"`
	NameEn                    string  `gorm:"column:name_en" json:"name_en,omitempty"`
	DescriptionRu             string  `gorm:"column:description_ru;type:text" json:"description_ru,omitempty"`
	WaterRetentionCoefficient float64 `gorm:"column:water_retention_coefficient;not null" json:"water_retention_coefficient"`
}

func (SoilType) TableName() string { return "soil_types" }
