package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fitness-onboarding/internal/container"
	handlers "github.com/oksasatya/fitness-onboarding/internal/interface/http"
	"github.com/oksasatya/fitness-onboarding/internal/interface/middleware"
	"github.com/oksasatya/fitness-onboarding/pkg/helpers"
)

// OnboardingModule routes, all protected:
// GET/PUT /api/onboarding/profile, PUT /api/onboarding/activity,
// GET /api/onboarding/bmi, POST /api/onboarding/complete, GET /api/profiles/search
type OnboardingModule struct {
	Handler *handlers.OnboardingHandler
	JWT     *helpers.JWTManager
}

func NewOnboardingModule(h *handlers.OnboardingHandler, jwt *helpers.JWTManager) *OnboardingModule {
	return &OnboardingModule{Handler: h, JWT: jwt}
}

func (m *OnboardingModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/onboarding/profile", m.Handler.GetProfile)
		auth.PUT("/onboarding/profile", m.Handler.SaveProfile)
		auth.PUT("/onboarding/activity", m.Handler.SelectActivity)
		auth.GET("/onboarding/bmi", m.Handler.Analysis)
		auth.POST("/onboarding/complete", m.Handler.Complete)
		auth.GET("/profiles/search", m.Handler.SearchProfiles)
	}
}
