package modules

import (
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/container"
	"github.com/oksasatya/fitness-onboarding/internal/interface/middleware"
	"github.com/oksasatya/fitness-onboarding/pkg/response"
)

// DebugModule exposes process counters. Requests from private networks are
// not rate limited.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	g := rg.Group("/debug", rl)
	g.GET("/vars", gin.WrapH(expvar.Handler()))
	g.GET("/profile-sync", func(c *gin.Context) {
		response.Success(c, http.StatusOK, application.SyncStats(), "OK", nil)
	})
}
