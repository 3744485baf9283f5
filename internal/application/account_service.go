package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fitness-onboarding/config"
	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	repo "github.com/oksasatya/fitness-onboarding/internal/domain/repository"
	"github.com/oksasatya/fitness-onboarding/pkg/helpers"
	"github.com/oksasatya/fitness-onboarding/pkg/mailer"
	mailtpl "github.com/oksasatya/fitness-onboarding/pkg/mailer/templates"
)

const (
	MinPasswordLen = 6
	sessionTTL     = 24 * time.Hour
	resetTTL       = 30 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MailQueue accepts email jobs for the worker.
type MailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

// AccountService issues identities: registration, login, token rotation and
// password reset. Registration also creates the profile record.
type AccountService struct {
	Repo   repo.AccountRepository
	Sync   *Synchronizer
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Mail   MailQueue
	Geo    mailtpl.GeoResolver
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewAccountService(r repo.AccountRepository, sync *Synchronizer, jwt *helpers.JWTManager, rdb *redis.Client, mail MailQueue, cfg *config.Config, logger *logrus.Logger) *AccountService {
	return &AccountService{Repo: r, Sync: sync, JWT: jwt, Redis: rdb, Mail: mail, Cfg: cfg, Logger: logger}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type LoginResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// RequestMeta is what the mailer shows about where a request came from.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func sessionKey(userID string) string { return "user:session:" + userID }
func resetKey(token string) string    { return "pwd:reset:token:" + token }

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NormalizeEmail trims and lowercases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration applies the sign-up form rules in display order.
func ValidateRegistration(in RegisterInput) (RegisterInput, error) {
	out := RegisterInput{
		Name:            strings.TrimSpace(in.Name),
		Email:           NormalizeEmail(in.Email),
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	}
	switch {
	case out.Name == "":
		return out, ErrNameRequired
	case out.Email == "":
		return out, ErrEmailRequired
	case !emailPattern.MatchString(out.Email):
		return out, ErrInvalidEmail
	case out.Password == "":
		return out, ErrPasswordRequired
	case len(out.Password) < MinPasswordLen:
		return out, ErrWeakPassword
	case out.Password != out.ConfirmPassword:
		return out, ErrPasswordMismatch
	}
	return out, nil
}

// Register creates the account and its profile record, then signs the user in.
// Both writes are blocking.
func (s *AccountService) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*LoginResponse, TokenPair, error) {
	in, err := ValidateRegistration(in)
	if err != nil {
		return nil, TokenPair{}, err
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	now := time.Now().UTC()
	a := &entity.Account{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Password:  hash,
		Name:      in.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, TokenPair{}, ErrEmailInUse
		}
		return nil, TokenPair{}, fmt.Errorf("create account: %w: %v", ErrPersistenceUnavailable, err)
	}
	if err := s.Sync.CreateRecord(ctx, Identity(a.ID), a.Name, a.Email); err != nil {
		// an account never outlives a failed record write
		if dErr := s.Repo.Delete(ctx, a.ID); dErr != nil && s.Logger != nil {
			s.Logger.WithError(dErr).WithField("user_id", a.ID).Error("undo account after record failure")
		}
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, a)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.enqueue(ctx, mailer.EmailJob{
		To:       a.Email,
		Template: mailtpl.Welcome,
		Data: mailtpl.NewWelcomeData(s.Cfg, a.Name, a.Email,
			mailtpl.WithTime(now),
			mailtpl.WithIP(meta.IP),
			mailtpl.WithUserAgent(meta.UserAgent),
		),
	})
	return &LoginResponse{UserID: a.ID, Email: a.Email, Name: a.Name}, pair, nil
}

// Authenticate validates email/password and returns the account without issuing tokens.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*entity.Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	a, err := s.Repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrAccountNotFound) {
		return nil, fmt.Errorf("lookup account: %w: %v", ErrPersistenceUnavailable, err)
	}
	hash := ""
	if a != nil {
		hash = a.Password
	}
	if !helpers.CheckPassword(hash, password) {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *AccountService) IssueTokens(ctx context.Context, a *entity.Account) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(a.ID, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", a.ID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(a.ID, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", a.ID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}

	if s.Redis != nil {
		key := sessionKey(a.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    a.ID,
			"email":      a.Email,
			"name":       a.Name,
			"sid":        sid,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResponse, TokenPair, error) {
	a, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, a)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return &LoginResponse{UserID: a.ID, Email: a.Email, Name: a.Name}, pair, nil
}

// Refresh rotates the session id and both tokens. The refresh token must
// belong to the current session.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	if s.Redis != nil {
		data, rErr := s.Redis.HGetAll(ctx, sessionKey(claims.UserID)).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, ErrInvalidToken
		}
	}
	a, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	return s.IssueTokens(ctx, a)
}

// Logout drops the session; tokens issued for it stop passing the auth middleware.
func (s *AccountService) Logout(ctx context.Context, id Identity) error {
	if s.Redis == nil || id.Missing() {
		return nil
	}
	return s.Redis.Del(ctx, sessionKey(id.String())).Err()
}

// ResetInit issues a reset token and queues the email. Unknown addresses are
// reported as ErrAccountNotFound.
func (s *AccountService) ResetInit(ctx context.Context, email string, meta RequestMeta) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	if s.Redis == nil {
		return "", fmt.Errorf("reset: %w: no token store", ErrPersistenceUnavailable)
	}
	a, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrAccountNotFound) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup account: %w: %v", ErrPersistenceUnavailable, err)
	}
	tok := uuid.NewString()
	if err := s.Redis.Set(ctx, resetKey(tok), a.ID, resetTTL).Err(); err != nil {
		return "", fmt.Errorf("store reset token: %w: %v", ErrPersistenceUnavailable, err)
	}
	link := s.resetBaseURL() + "?token=" + tok
	s.enqueue(ctx, mailer.EmailJob{
		To:       a.Email,
		Template: mailtpl.ResetPassword,
		Data: mailtpl.NewResetPasswordData(s.Cfg, a.Name, a.Email, link,
			mailtpl.WithTime(time.Now()),
			mailtpl.WithExpiresIn(resetTTL),
			mailtpl.WithIP(meta.IP),
			mailtpl.WithUserAgent(meta.UserAgent),
			mailtpl.WithGeoFromIP(ctx, s.Geo, meta.IP),
		),
	})
	return link, nil
}

// ResetConfirm consumes a reset token, stores the new hash and ends any session.
func (s *AccountService) ResetConfirm(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}
	if s.Redis == nil {
		return fmt.Errorf("reset: %w: no token store", ErrPersistenceUnavailable)
	}
	uid, err := s.Redis.Get(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && uid == "") {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("read reset token: %w: %v", ErrPersistenceUnavailable, err)
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, uid, hash); err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w: %v", ErrPersistenceUnavailable, err)
	}
	s.Redis.Del(ctx, resetKey(token), sessionKey(uid))
	return nil
}

func (s *AccountService) resetBaseURL() string {
	if s.Cfg != nil && s.Cfg.ResetPasswordURL != "" {
		return s.Cfg.ResetPasswordURL
	}
	return "/reset-password"
}

// enqueue is best-effort; a failed publish never fails the auth call.
func (s *AccountService) enqueue(ctx context.Context, job mailer.EmailJob) {
	if s.Mail == nil || (s.Cfg != nil && !s.Cfg.MailSendEnabled) {
		return
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Warn("failed to publish email job")
	}
}
