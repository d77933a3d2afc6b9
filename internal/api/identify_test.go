package api

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"plantastic/internal/inference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}

func TestIdentifyPlant_JoinsCatalog(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	env.plants.preds = []inference.Prediction{
		{Label: "Monstera_Deliciosa", Confidence: 0.91},
		{Label: "unknown plant", Confidence: 0.05},
	}

	w := env.upload("/identify/plant", "leaf.JPG", "image/jpeg", jpeg, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preds := decode[struct{ Predictions []PlantCandidate }](t, w).Predictions
	require.Len(t, preds, 2)

	assert.Equal(t, 1, preds[0].Rank)
	assert.InDelta(t, 0.91, preds[0].Confidence, 1e-9)
	require.NotNil(t, preds[0].Variety)
	assert.Equal(t, env.fx.variety.ClassID, preds[0].Variety.ClassID)
	require.NotNil(t, preds[0].Plant)
	assert.Equal(t, "Monstera deliciosa", preds[0].Plant.ScientificName)
	assert.Equal(t, "https://img/monstera.jpg", preds[0].ImageURL)

	assert.Equal(t, 2, preds[1].Rank)
	assert.Nil(t, preds[1].Variety)
	assert.Equal(t, "unknown plant", preds[1].Label)

	assert.Equal(t, 1, env.plants.calls)
	assert.Equal(t, "leaf.JPG", env.plants.last.Filename)
	assert.Equal(t, jpeg, env.plants.last.Data)
}

func TestIdentifyDisease_JoinsCatalog(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	env.diseases.preds = []inference.Prediction{{Label: "powdery mildew", Confidence: 0.8}}

	w := env.upload("/identify/disease", "leaf.png", "image/png", []byte("png-bytes"), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preds := decode[struct{ Predictions []DiseaseCandidate }](t, w).Predictions
	require.Len(t, preds, 1)
	require.NotNil(t, preds[0].Disease)
	assert.Equal(t, env.fx.mildew.ID, preds[0].Disease.ID)
	assert.Equal(t, "Фунгицид", preds[0].Disease.Treatment)
	assert.Len(t, preds[0].Disease.Symptoms, 2)
}

func TestIdentify_UploadRejections(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")

	cases := []struct {
		name        string
		path        string
		filename    string
		contentType string
		data        []byte
		status      int
	}{
		{"empty file", "/identify/plant", "a.jpg", "image/jpeg", nil, http.StatusBadRequest},
		{"gif", "/identify/plant", "a.gif", "image/gif", jpeg, http.StatusUnsupportedMediaType},
		{"webp for disease", "/identify/disease", "a.webp", "image/webp", jpeg, http.StatusUnsupportedMediaType},
		{"too large", "/identify/plant", "a.jpg", "image/jpeg", bytes.Repeat([]byte{1}, maxUploadSize+1), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.upload(tc.path, tc.filename, tc.contentType, tc.data, token)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	t.Run("heic accepted for plants", func(t *testing.T) {
		w := env.upload("/identify/plant", "a.heic", "application/octet-stream", jpeg, token)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
	assert.Zero(t, env.diseases.calls)
}

func TestIdentify_UpstreamErrors(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")

	env.plants.err = fmt.Errorf("%w: classifier returned 500", inference.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, env.upload("/identify/plant", "a.jpg", "image/jpeg", jpeg, token).Code)

	env.plants.err = inference.ErrUnavailable
	assert.Equal(t, http.StatusServiceUnavailable, env.upload("/identify/plant", "a.jpg", "image/jpeg", jpeg, token).Code)
}
