package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaterAmount(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	cases := []struct {
		name                 string
		pot                  float64
		temp, humidity       *float64
		growth               string
		plantCoef, retention float64
		want                 int
	}{
		{"baseline", 2, v(22), v(50), GrowthActive, 0, 0, 200},
		{"rest", 2, v(22), v(50), GrowthRest, 0, 0, 140},
		{"cold", 2, v(10), v(50), GrowthActive, 0, 0, 160},
		{"humid", 2, v(22), v(70), GrowthActive, 0, 0, 170},
		{"everything", 1, v(10), v(80), GrowthRest, 0, 0, 48},
		{"plant and soil", 2, v(22), v(50), GrowthActive, 1.2, 0.8, 300},
		{"boundaries are exclusive", 1, v(15), v(60), GrowthActive, 0, 0, 100},
		{"unknown room", 2, nil, nil, GrowthActive, 0, 0, 200},
		{"zero degrees is still cold", 2, v(0), nil, GrowthActive, 0, 0, 160},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ml, _ := WaterAmount(tc.pot, tc.temp, tc.humidity, tc.growth, tc.plantCoef, tc.retention)
			assert.Equal(t, tc.want, ml)
		})
	}
}

func TestWaterCalculatorHandler(t *testing.T) {
	env := newEnv(t)
	token := env.user(10, "user")
	up := env.userPlant(10)

	w := env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 2, "temperature": 22, "humidity": 50}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 200, decode[WaterResult](t, w).Milliliters)
	assert.Equal(t, GrowthActive, decode[WaterResult](t, w).Growth)

	// Monstera coefficient 1.2 in a 0.8 retention soil
	w = env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 2, "temperature": 22, "humidity": 50, "user_plant_id": up.ID}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 300, decode[WaterResult](t, w).Milliliters)

	// Omitted room conditions do not count as a cold room
	w = env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 2}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[WaterResult](t, w)
	assert.Equal(t, 200, res.Milliliters)
	assert.InDelta(t, 1.0, res.Multiplier, 1e-9)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 0}, token).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 1, "humidity": 120}, token).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 1, "growth": "dormant"}, token).Code)

	other := env.user(11, "user")
	w = env.do(http.MethodPost, "/water/calculate", gin.H{"pot_size": 1, "user_plant_id": up.ID}, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
