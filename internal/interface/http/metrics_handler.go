package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/metric"
	"github.com/oksasatya/fitness-onboarding/pkg/response"
	"github.com/oksasatya/fitness-onboarding/pkg/validation"
)

type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler { return &MetricsHandler{} }

// BMI POST /api/metrics/bmi {height_cm, weight_kg}
func (h *MetricsHandler) BMI(c *gin.Context) {
	var req struct {
		HeightCm float64 `json:"height_cm"`
		WeightKg float64 `json:"weight_kg"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	response.Success[any](c, http.StatusOK, metric.Analyze(req.HeightCm, req.WeightKg), "bmi analysis", nil)
}

// Normalize POST /api/metrics/normalize {field, text, last}
// An unknown field echoes last back unchanged.
func (h *MetricsHandler) Normalize(c *gin.Context) {
	var req struct {
		Field string  `json:"field" binding:"required"`
		Text  string  `json:"text"`
		Last  float64 `json:"last"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	n, ok := metric.NormalizeField(req.Field, req.Text)
	if !ok {
		n = metric.Normalized{Field: req.Field, Value: req.Last, Text: strconv.FormatFloat(req.Last, 'f', -1, 64)}
		response.Success[any](c, http.StatusOK, n, "unknown field", map[string]any{"changed": false})
		return
	}
	response.Success[any](c, http.StatusOK, n, "normalized", map[string]any{"changed": true})
}

// ActivityLevels GET /api/activity-levels
func (h *MetricsHandler) ActivityLevels(c *gin.Context) {
	response.Success[any](c, http.StatusOK, entity.ActivityOptions, "activity levels", nil)
}
