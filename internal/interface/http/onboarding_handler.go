package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/metric"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/search"
	"github.com/oksasatya/fitness-onboarding/pkg/response"
	"github.com/oksasatya/fitness-onboarding/pkg/validation"
)

// ProfileSearcher looks profiles up in the read-side index.
type ProfileSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.Hit, error)
}

type OnboardingHandler struct {
	Onboarding *application.Onboarding
	Search     ProfileSearcher
	Logger     *logrus.Logger
}

func NewOnboardingHandler(o *application.Onboarding, s ProfileSearcher, logger *logrus.Logger) *OnboardingHandler {
	return &OnboardingHandler{Onboarding: o, Search: s, Logger: logger}
}

type profileView struct {
	Profile  entity.UserProfile `json:"profile"`
	Stage    entity.Stage       `json:"stage"`
	Analysis metric.Analysis    `json:"analysis"`
}

type measurementsRequest struct {
	Gender   entity.Gender `json:"gender" binding:"omitempty,gender"`
	Age      int           `json:"age"`
	HeightCm float64       `json:"height_cm"`
	WeightKg float64       `json:"weight_kg"`
}

type activityRequest struct {
	ActivityLevel entity.ActivityLevel `json:"activity_level" binding:"required,activity"`
}

func (h *OnboardingHandler) open(c *gin.Context) (*application.OnboardingSession, bool) {
	sess, err := h.Onboarding.Open(c.Request.Context(), identity(c))
	if err != nil {
		syncError(c, h.Logger, err)
		return nil, false
	}
	return sess, true
}

func view(sess *application.OnboardingSession) profileView {
	p := sess.Profile()
	return profileView{Profile: p, Stage: sess.Stage(), Analysis: metric.Analyze(p.HeightCm, p.WeightKg)}
}

// GetProfile GET /api/onboarding/profile
func (h *OnboardingHandler) GetProfile(c *gin.Context) {
	sess, ok := h.open(c)
	if !ok {
		return
	}
	response.Success[any](c, http.StatusOK, view(sess), "profile", nil)
}

// SaveProfile PUT /api/onboarding/profile
// Out-of-range numbers are clamped, not rejected.
func (h *OnboardingHandler) SaveProfile(c *gin.Context) {
	var req measurementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sess, ok := h.open(c)
	if !ok {
		return
	}
	out, err := sess.SaveMeasurements(c.Request.Context(), application.AnthropometricsInput{
		Gender:   req.Gender,
		Age:      req.Age,
		HeightCm: req.HeightCm,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		syncError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, view(sess), "profile saved", map[string]any{"profile": out.Profile, "bmi": out.BMI})
}

// SelectActivity PUT /api/onboarding/activity
func (h *OnboardingHandler) SelectActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	sess, ok := h.open(c)
	if !ok {
		return
	}
	res, err := sess.SelectActivity(c.Request.Context(), req.ActivityLevel)
	if err != nil {
		syncError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, view(sess), "activity level selected", map[string]any{"sync": res})
}

// Analysis GET /api/onboarding/bmi
func (h *OnboardingHandler) Analysis(c *gin.Context) {
	sess, ok := h.open(c)
	if !ok {
		return
	}
	a, res := sess.Analyze(c.Request.Context())
	response.Success[any](c, http.StatusOK, a, "bmi analysis", map[string]any{"sync": res, "stage": sess.Stage()})
}

// Complete POST /api/onboarding/complete
func (h *OnboardingHandler) Complete(c *gin.Context) {
	sess, ok := h.open(c)
	if !ok {
		return
	}
	out, err := sess.Complete(c.Request.Context())
	if err != nil {
		syncError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, out, "onboarding complete", nil)
}

// SearchProfiles GET /api/profiles/search?q=&size=
func (h *OnboardingHandler) SearchProfiles(c *gin.Context) {
	if h.Search == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "search disabled", nil)
		return
	}
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Search.Search(c.Request.Context(), q, size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("profile search failed")
		}
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, hits, "profiles", map[string]any{"count": len(hits)})
}
