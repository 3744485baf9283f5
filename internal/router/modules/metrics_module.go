package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fitness-onboarding/internal/container"
	handlers "github.com/oksasatya/fitness-onboarding/internal/interface/http"
	"github.com/oksasatya/fitness-onboarding/internal/interface/middleware"
)

// MetricsModule exposes the stateless BMI and form helpers.
type MetricsModule struct {
	Handler *handlers.MetricsHandler
}

func NewMetricsModule(h *handlers.MetricsHandler) *MetricsModule {
	return &MetricsModule{Handler: h}
}

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 240, time.Minute, middleware.KeyByIP(), nil)
	rg.POST("/metrics/bmi", rl, m.Handler.BMI)
	rg.POST("/metrics/normalize", rl, m.Handler.Normalize)
	rg.GET("/activity-levels", rl, m.Handler.ActivityLevels)
}
