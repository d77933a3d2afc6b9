package domain

import "time"

// UserPlant Model, a plant owned by a user
type UserPlant struct {
	ID               uint       `gorm:"column:user_plant_id;primaryKey;autoIncrement" json:"user_plant_id"`
	UserID           int64      `gorm:"column:user_id;index;not null" json:"user_id"`
	PlantNNClassID   uint       `gorm:"column:plant_nn_classes_id;not null" json:"plant_nn_classes_id"`
	Nickname         string     `gorm:"column:nickname" json:"nickname,omitempty"`
	AcquisitionDate  *time.Time `gorm:"column:acquisition_date;type:date" json:"acquisition_date,omitempty"`
	LastWateringDate *time.Time `gorm:"column:last_watering_date;type:date" json:"last_watering_date,omitempty"`
	Notes            string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
	SoilTypeID       *uint      `gorm:"column:soil_type_id" json:"soil_type_id,omitempty"`
	Deleted          bool       `gorm:"column:deleted;not null;default:false" json:"-"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`

	Variety *PlantNNClass    `gorm:"foreignKey:PlantNNClassID;references:ClassID" json:"variety,omitempty"`
	Soil    *SoilType        `gorm:"foreignKey:SoilTypeID;references:ID;constraint:OnDelete:SET NULL" json:"soil,omitempty"`
	Images  []UserPlantImage `gorm:"foreignKey:UserPlantID;references:ID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (UserPlant) TableName() string { return "user_plants" }

// UserPlantImage Model
type UserPlantImage struct {
	ImageID     uint      `gorm:"column:image_id;primaryKey;autoIncrement" json:"image_id"`
	UserPlantID uint      `gorm:"column:user_plant_id;index;not null" json:"user_plant_id"`
	ImageURL    string    `gorm:"column:image_url;type:text;not null" json:"image_url"`
	UploadDate  time.Time `gorm:"column:upload_date;autoCreateTime" json:"upload_date"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	IsMainImage bool      `gorm:"column:is_main_image;default:false" json:"is_main_image"`
}

func (UserPlantImage) TableName() string { return "user_plant_images" }
