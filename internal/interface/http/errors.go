package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/interface/middleware"
	"github.com/oksasatya/fitness-onboarding/pkg/response"
)

func identity(c *gin.Context) application.Identity {
	return application.Identity(c.GetString(middleware.CtxUserIDKey))
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: middleware.ClientIP(c), UserAgent: c.GetHeader("User-Agent")}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrNameRequired),
		errors.Is(err, application.ErrEmailRequired),
		errors.Is(err, application.ErrInvalidEmail),
		errors.Is(err, application.ErrPasswordRequired),
		errors.Is(err, application.ErrWeakPassword),
		errors.Is(err, application.ErrPasswordMismatch),
		errors.Is(err, application.ErrMissingFields),
		errors.Is(err, application.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrIdentityMissing):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrEmailInUse),
		errors.Is(err, application.ErrSaveInProgress):
		return http.StatusConflict
	case errors.Is(err, application.ErrBMIUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, application.ErrTooManyRequests):
		return http.StatusTooManyRequests
	case errors.Is(err, application.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// authError answers with the user-facing notice for err.
func authError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{"path": c.FullPath(), "request_id": middleware.RequestID(c)}).Error("auth request failed")
	}
	notice := application.AuthMessage(err)
	response.Error[any](c, status, notice.Title, notice)
}

// syncError answers a failed onboarding write.
func syncError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{"path": c.FullPath(), "request_id": middleware.RequestID(c), "user_id": identity(c).String()}).Error("onboarding request failed")
	}
	response.Error[any](c, status, err.Error(), nil)
}
