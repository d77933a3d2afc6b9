package domain

// Disease Model
type Disease struct {
	ID                  uint   `gorm:"column:disease_id;primaryKey" json:"disease_id"`
	DiseaseNameRu       string `gorm:"column:disease_name_ru;not null" json:"disease_name_ru"`
	DiseaseNameEn       string `gorm:"column:disease_name_en" json:"disease_name_en,omitempty"`
	Description         string `gorm:"column:description;type:text" json:"description,omitempty"`
	SymptomsDescription string `gorm:"column:symptoms_description;type:text" json:"symptoms_description,omitempty"`
	Treatment           string `gorm:"column:treatment;type:text" json:"treatment,omitempty"`
	Prevention          string `gorm:"column:prevention;type:text" json:"prevention,omitempty"`

	Images   []DiseaseImage   `gorm:"foreignKey:DiseaseID;references:ID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Symptoms []Symptom        `gorm:"-" json:"symptoms,omitempty"` // Filled from disease_symptoms
	Classes  []DiseaseNNClass `gorm:"foreignKey:DiseaseID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Disease) TableName() string { return "diseases" }

// MainImageURL returns the main image, or the first image when none is flagged
func (d *Disease) MainImageURL() string {
	for _, img := range d.Images {
		if img.IsMainImage {
			return img.ImageURL
		}
	}
	if len(d.Images) > 0 {
		return d.Images[0].ImageURL
	}
	return ""
}

// DiseaseImage Model
type DiseaseImage struct {
	ImageID     uint   `gorm:"column:image_id;primaryKey;autoIncrement" json:"image_id"`
	DiseaseID   uint   `gorm:"column:disease_id;index;not null" json:"disease_id"`
	ImageURL    string `gorm:"column:image_url;not null" json:"image_url"`
	Description string `gorm:"column:description" json:"description,omitempty"`
	IsMainImage bool   `gorm:"column:is_main_image;default:false" json:"is_main_image"`
	SourceURL   string `gorm:"column:source_url" json:"source_url,omitempty"`
}

func (DiseaseImage) TableName() string { return "disease_images" }

// Symptom Model
type Symptom struct {
	SymptomID     uint   `gorm:"column:symptom_id;primaryKey" json:"symptom_id"`
	SymptomNameRu string `gorm:"column:symptom_name_ru;unique;not null" json:"symptom_name_ru"`
	Question      string `gorm:"column:question;not null" json:"question"`
	SymptomNameEn string `gorm:"column:symptom_name_en" json:"symptom_name_en,omitempty"`
}

func (Symptom) TableName() string { return "symptoms" }

// DiseaseSymptom is the join row between diseases and symptoms
type DiseaseSymptom struct {
	DiseaseSymptomID uint `gorm:"column:disease_symptom_id;primaryKey"`
	DiseaseID        uint `gorm:"column:disease_id;index;not null"`
	SymptomID        uint `gorm:"column:symptom_id;index;not null"`
}

func (DiseaseSymptom) TableName() string { return "disease_symptoms" }

// DiseaseNNClass maps one disease detector label to a disease
type DiseaseNNClass struct {
	ClassID    uint   `gorm:"column:class_id;primaryKey" json:"class_id"`
	ClassLabel string `gorm:"column:class_label;unique;not null" json:"class_label"`
	DiseaseID  uint   `gorm:"column:disease_id;index;not null" json:"disease_id"`

	Disease *Disease `gorm:"foreignKey:DiseaseID;references:ID" json:"disease,omitempty"`
}

func (DiseaseNNClass) TableName() string { return "disease_nn_classes" }
