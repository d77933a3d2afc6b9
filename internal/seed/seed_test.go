package seed

import (
	"os"
	"strings"
	"testing"

	"plantastic/internal/config"
	"plantastic/internal/db"
	"plantastic/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: t.TempDir() + "/seed.db"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return conn
}

func TestApply_SampleCatalogIsIdempotent(t *testing.T) {
	conn := openDB(t)
	f, err := LoadFile("../../data/catalog.yaml")
	require.NoError(t, err)

	first, err := Apply(conn, f)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Plants)
	assert.Equal(t, 3, first.Varieties)
	assert.Equal(t, 2, first.Diseases)
	assert.Equal(t, 4, first.DiseaseLinks)

	_, err = Apply(conn, f)
	require.NoError(t, err)

	var plants, varieties, links, watering int64
	conn.Model(&domain.Plant{}).Count(&plants)
	conn.Model(&domain.PlantNNClass{}).Count(&varieties)
	conn.Model(&domain.DiseaseSymptom{}).Count(&links)
	conn.Model(&domain.TaskType{}).Where("task_name = ?", domain.WateringTaskName).Count(&watering)
	assert.EqualValues(t, 2, plants)
	assert.EqualValues(t, 3, varieties)
	assert.EqualValues(t, 4, links)
	assert.EqualValues(t, 1, watering)
}

func TestApply_UpdatesExistingRows(t *testing.T) {
	conn := openDB(t)
	doc := `
plants:
  - scientific_name: Ficus elastica
    common_name_ru: Фикус
    watering_coefficient: 1.0
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = Apply(conn, f)
	require.NoError(t, err)

	f.Plants[0].WateringCoefficient = 0.9
	_, err = Apply(conn, f)
	require.NoError(t, err)

	var p domain.Plant
	require.NoError(t, conn.Where("scientific_name = ?", "Ficus elastica").First(&p).Error)
	assert.InDelta(t, 0.9, p.WateringCoefficient, 1e-9)
}

func TestApply_ZeroValuesOverwrite(t *testing.T) {
	conn := openDB(t)
	doc := `
plants:
  - scientific_name: Ficus elastica
    common_name_ru: Фикус
    family: Moraceae
    max_height_cm: 300
    watering_coefficient: 1.3
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = Apply(conn, f)
	require.NoError(t, err)

	f.Plants[0].WateringCoefficient = 0
	f.Plants[0].Family = ""
	f.Plants[0].MaxHeightCm = nil
	_, err = Apply(conn, f)
	require.NoError(t, err)

	var p domain.Plant
	require.NoError(t, conn.Where("scientific_name = ?", "Ficus elastica").First(&p).Error)
	assert.Zero(t, p.WateringCoefficient)
	assert.Empty(t, p.Family)
	assert.Nil(t, p.MaxHeightCm)
}

func TestApply_UnknownSymptomRollsBack(t *testing.T) {
	conn := openDB(t)
	doc := `
soil_types:
  - name_ru: Песок
    water_retention_coefficient: 0.5
diseases:
  - name_ru: Хлороз
    symptoms: [Нет такого]
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = Apply(conn, f)
	require.Error(t, err)

	var soils int64
	conn.Model(&domain.SoilType{}).Count(&soils)
	assert.Zero(t, soils, "transaction must roll back")
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("plantz: []\n"))
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(t.TempDir() + "/missing.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
