package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"plantastic/internal/config"
	"plantastic/internal/db"
	"plantastic/internal/domain"
	"plantastic/internal/inference"
	"plantastic/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBotToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

var testSecret = []byte("test-secret")

func init() { gin.SetMode(gin.TestMode) }

// fakeClassifier returns canned predictions
type fakeClassifier struct {
	preds []inference.Prediction
	err   error
	calls int
	last  inference.Image
}

func (f *fakeClassifier) Predict(_ context.Context, img inference.Image) ([]inference.Prediction, error) {
	f.calls++
	f.last = img
	return f.preds, f.err
}

// fixture holds the catalog rows created by newEnv
type fixture struct {
	soil      domain.SoilType
	watering  domain.TaskType
	fertilize domain.TaskType
	plant     domain.Plant
	variety   domain.PlantNNClass
	mildew    domain.Disease
	rot       domain.Disease
	symptoms  []domain.Symptom
}

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	router   *gin.Engine
	plants   *fakeClassifier
	diseases *fakeClassifier
	clock    time.Time
	fx       fixture
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: t.TempDir() + "/api.db"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := time.Now()
	prev := now
	now = func() time.Time { return clock }
	t.Cleanup(func() { now = prev })

	env := &testEnv{
		t:        t,
		db:       conn,
		mr:       mr,
		rdb:      rdb,
		plants:   &fakeClassifier{},
		diseases: &fakeClassifier{},
		clock:    clock,
	}
	env.router = NewRouter(Deps{
		DB:       conn,
		Redis:    rdb,
		CacheTTL: time.Minute,
		Auth: AuthSettings{
			BotToken:  testBotToken,
			JWTSecret: testSecret,
			TokenTTL:  time.Hour,
			MaxAge:    time.Hour,
		},
		Plants:   env.plants,
		Diseases: env.diseases,
	})
	env.seed()
	return env
}

func (e *testEnv) seed() {
	t := e.t
	fx := &e.fx
	fx.soil = domain.SoilType{NameRu: "Универсальный", WaterRetentionCoefficient: 0.8}
	require.NoError(t, e.db.Create(&fx.soil).Error)
	fx.watering = domain.TaskType{TaskName: domain.WateringTaskName}
	fx.fertilize = domain.TaskType{TaskName: "fertilizing"}
	require.NoError(t, e.db.Create(&fx.watering).Error)
	require.NoError(t, e.db.Create(&fx.fertilize).Error)

	fx.plant = domain.Plant{ScientificName: "Monstera deliciosa", CommonNameRu: "Монстера", Family: "Araceae", WateringCoefficient: 1.2}
	require.NoError(t, e.db.Create(&fx.plant).Error)
	fx.variety = domain.PlantNNClass{PlantID: fx.plant.ID, ClassLabel: "monstera_deliciosa", VarietyName: "Монстера деликатесная"}
	require.NoError(t, e.db.Create(&fx.variety).Error)
	require.NoError(t, e.db.Create(&domain.PlantImage{PlantNNClassID: fx.variety.ClassID, ImageURL: "https://img/monstera.jpg", IsMainImage: true}).Error)

	for _, name := range []string{"Желтые листья", "Белый налет", "Пятна"} {
		s := domain.Symptom{SymptomNameRu: name, Question: name + "?"}
		require.NoError(t, e.db.Create(&s).Error)
		fx.symptoms = append(fx.symptoms, s)
	}
	fx.mildew = domain.Disease{DiseaseNameRu: "Мучнистая роса", Treatment: "Фунгицид"}
	fx.rot = domain.Disease{DiseaseNameRu: "Корневая гниль", Treatment: "Пересадка"}
	require.NoError(t, e.db.Create(&fx.mildew).Error)
	require.NoError(t, e.db.Create(&fx.rot).Error)
	links := []domain.DiseaseSymptom{
		{DiseaseID: fx.mildew.ID, SymptomID: fx.symptoms[0].SymptomID},
		{DiseaseID: fx.mildew.ID, SymptomID: fx.symptoms[1].SymptomID},
		{DiseaseID: fx.rot.ID, SymptomID: fx.symptoms[0].SymptomID},
	}
	require.NoError(t, e.db.Create(&links).Error)
	require.NoError(t, e.db.Create(&domain.DiseaseNNClass{ClassLabel: "powdery_mildew", DiseaseID: fx.mildew.ID}).Error)
}

// today is the calendar date of the stubbed clock for a UTC user
func (e *testEnv) today() time.Time {
	return calendarDate(e.clock.UTC())
}

// user stores a user and returns a session token for it
func (e *testEnv) user(id int64, role string) string {
	e.t.Helper()
	u := domain.User{UserID: id, FirstName: "User", RegistrationDate: e.clock, LastActivityDate: e.clock, Timezone: "UTC", Role: role}
	require.NoError(e.t, e.db.Create(&u).Error)
	token, err := utils.GenerateJWT(utils.TelegramUser{ID: id, FirstName: "User"}, testSecret, time.Hour, time.Now())
	require.NoError(e.t, err)
	return token
}

// userPlant stores a plant owned by userID
func (e *testEnv) userPlant(userID int64) domain.UserPlant {
	e.t.Helper()
	up := domain.UserPlant{UserID: userID, PlantNNClassID: e.fx.variety.ClassID, Nickname: "Monty", SoilTypeID: &e.fx.soil.ID}
	require.NoError(e.t, e.db.Create(&up).Error)
	return up
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(path, filename, contentType string, data []byte, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(e.t, err)
	_, err = part.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func date(t time.Time) string { return t.Format(dateLayout) }
