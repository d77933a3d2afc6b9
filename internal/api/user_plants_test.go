package api

import (
	"net/http"
	"strconv"
	"testing"

	"plantastic/internal/domain"
	"plantastic/internal/schedule"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plantPath(id uint, suffix string) string {
	return "/user-plants/" + strconv.Itoa(int(id)) + suffix
}

func TestCreateUserPlant(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")

	w := env.do(http.MethodPost, "/user-plants", gin.H{
		"plant_nn_classes_id": env.fx.variety.ClassID,
		"nickname":            "  Monty ",
		"acquisition_date":    date(env.today().AddDate(0, -1, 0)),
		"soil_type_id":        env.fx.soil.ID,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	up := decode[struct {
		UserPlant domain.UserPlant `json:"user_plant"`
	}](t, w).UserPlant
	assert.Equal(t, "Monty", up.Nickname)
	require.NotNil(t, up.Variety)
	require.NotNil(t, up.Variety.Plant)
	assert.Equal(t, "Monstera deliciosa", up.Variety.Plant.ScientificName)

	t.Run("future acquisition date", func(t *testing.T) {
		w := env.do(http.MethodPost, "/user-plants", gin.H{
			"plant_nn_classes_id": env.fx.variety.ClassID,
			"acquisition_date":    date(env.today().AddDate(0, 0, 1)),
		}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("unknown variety", func(t *testing.T) {
		w := env.do(http.MethodPost, "/user-plants", gin.H{"plant_nn_classes_id": 9999}, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("unknown soil", func(t *testing.T) {
		w := env.do(http.MethodPost, "/user-plants", gin.H{"plant_nn_classes_id": env.fx.variety.ClassID, "soil_type_id": 9999}, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("malformed date", func(t *testing.T) {
		w := env.do(http.MethodPost, "/user-plants", gin.H{"plant_nn_classes_id": env.fx.variety.ClassID, "last_watering_date": "10.03.2026"}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUserPlant_Ownership(t *testing.T) {
	env := newEnv(t)
	owner := env.user(10, "user")
	other := env.user(11, "user")
	up := env.userPlant(10)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, plantPath(up.ID, ""), nil, owner).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, plantPath(up.ID, ""), nil, other).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPatch, plantPath(up.ID, ""), gin.H{"nickname": "x"}, other).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, plantPath(up.ID, ""), nil, other).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, plantPath(9999, ""), nil, owner).Code)

	list := decode[struct {
		UserPlants []domain.UserPlant `json:"user_plants"`
	}](t, env.do(http.MethodGet, "/user-plants", nil, other))
	assert.Empty(t, list.UserPlants)
}

func TestUpdateUserPlant(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	up := env.userPlant(10)

	w := env.do(http.MethodPatch, plantPath(up.ID, ""), gin.H{
		"nickname":           "Big Monty",
		"last_watering_date": date(env.today()),
		"soil_type_id":       0,
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		UserPlant domain.UserPlant `json:"user_plant"`
	}](t, w).UserPlant
	assert.Equal(t, "Big Monty", got.Nickname)
	assert.Nil(t, got.SoilTypeID)
	require.NotNil(t, got.LastWateringDate)
	assert.Equal(t, date(env.today()), date(*got.LastWateringDate))
}

func TestDeleteUserPlant_CascadesToTasks(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	up := env.userPlant(10)

	w := env.do(http.MethodPost, "/tasks", gin.H{
		"user_plant_id":   up.ID,
		"task_type_id":    env.fx.watering.ID,
		"due_date":        date(env.today()),
		"description":     "Полить",
		"recurrence_rule": schedule.Rule{Frequency: schedule.Weekly, Interval: 1},
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	instance := decode[struct{ Task domain.Task }](t, w).Task

	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, plantPath(up.ID, ""), nil, token).Code)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, plantPath(up.ID, ""), nil, token).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/tasks/"+strconv.Itoa(int(instance.ID)), nil, token).Code)
	var live int64
	env.db.Model(&domain.Task{}).Where("user_plant_id = ? AND deleted = ?", up.ID, false).Count(&live)
	assert.Zero(t, live)

	tasks := decode[struct{ Tasks []domain.Task }](t, env.do(http.MethodGet, "/tasks", nil, token))
	assert.Empty(t, tasks.Tasks)
}

func TestWaterUserPlant_CompletesDueWateringTasks(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	up := env.userPlant(10)
	today := env.today()

	overdue := domain.Task{UserID: 10, UserPlantID: up.ID, TaskTypeID: env.fx.watering.ID, DueDate: today.AddDate(0, 0, -2), Description: "old"}
	future := domain.Task{UserID: 10, UserPlantID: up.ID, TaskTypeID: env.fx.watering.ID, DueDate: today.AddDate(0, 0, 3), Description: "later"}
	feed := domain.Task{UserID: 10, UserPlantID: up.ID, TaskTypeID: env.fx.fertilize.ID, DueDate: today, Description: "feed"}
	require.NoError(t, env.db.Create(&overdue).Error)
	require.NoError(t, env.db.Create(&future).Error)
	require.NoError(t, env.db.Create(&feed).Error)

	w := env.do(http.MethodPost, plantPath(up.ID, "/water"), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["tasks_completed"])

	var got domain.UserPlant
	require.NoError(t, env.db.First(&got, up.ID).Error)
	require.NotNil(t, got.LastWateringDate)
	assert.Equal(t, date(today), date(*got.LastWateringDate))

	for _, tc := range []struct {
		task domain.Task
		done bool
	}{{overdue, true}, {future, false}, {feed, false}} {
		var row domain.Task
		require.NoError(t, env.db.First(&row, tc.task.ID).Error)
		assert.Equal(t, tc.done, row.IsCompleted, tc.task.Description)
	}
}

func TestUserPlantImages_SingleMain(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	up := env.userPlant(10)

	for _, url := range []string{"https://img/1.jpg", "https://img/2.jpg"} {
		w := env.do(http.MethodPost, plantPath(up.ID, "/images"), gin.H{"image_url": url, "is_main_image": true}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	images := decode[struct{ Images []domain.UserPlantImage }](t, env.do(http.MethodGet, plantPath(up.ID, "/images"), nil, token)).Images
	require.Len(t, images, 2)
	assert.True(t, images[0].IsMainImage)
	assert.Equal(t, "https://img/2.jpg", images[0].ImageURL)
	assert.False(t, images[1].IsMainImage)
}
