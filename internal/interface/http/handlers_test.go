package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/fitness-onboarding/config"
	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	repo "github.com/oksasatya/fitness-onboarding/internal/domain/repository"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/redisdoc"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/search"
	"github.com/oksasatya/fitness-onboarding/internal/interface/middleware"
	"github.com/oksasatya/fitness-onboarding/pkg/helpers"
	"github.com/oksasatya/fitness-onboarding/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

/* ─── fixtures ─── */

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*entity.Account
}

func (r *memAccounts) Create(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.Email == a.Email {
			return repo.ErrDuplicateEmail
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccounts) GetByID(_ context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repo.ErrAccountNotFound
}

func (r *memAccounts) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repo.ErrAccountNotFound
}

func (r *memAccounts) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repo.ErrAccountNotFound
	}
	a.Password = hash
	return nil
}

func (r *memAccounts) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repo.ErrAccountNotFound
	}
	delete(r.byID, id)
	return nil
}

type stubSearcher struct {
	hits []search.Hit
	err  error
	q    string
}

func (s *stubSearcher) Search(_ context.Context, q string, _ int) ([]search.Hit, error) {
	s.q = q
	return s.hits, s.err
}

type harness struct {
	engine   *gin.Engine
	mr       *miniredis.Miniredis
	searcher *stubSearcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger, _ := logtest.NewNullLogger()
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	cfg := &config.Config{ResetPasswordURL: "https://app.example/reset"}

	syncer := application.NewSynchronizer(redisdoc.NewStore(rdb, "profile:"), nil, logger)
	accounts := application.NewAccountService(&memAccounts{byID: map[string]*entity.Account{}}, syncer, jwt, rdb, nil, cfg, logger)
	onboarding := application.NewOnboarding(syncer, redisdoc.NewGuard(rdb, time.Second), nil, logger)
	searcher := &stubSearcher{}

	auth := NewAuthHandler(accounts, logger, "", false)
	ob := NewOnboardingHandler(onboarding, searcher, logger)
	mh := NewMetricsHandler()

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)
	api.POST("/auth/reset/init", auth.ResetInit)
	api.POST("/auth/reset/confirm", auth.ResetConfirm)
	api.POST("/metrics/bmi", mh.BMI)
	api.POST("/metrics/normalize", mh.Normalize)
	api.GET("/activity-levels", mh.ActivityLevels)

	p := api.Group("", middleware.Auth(rdb, jwt))
	p.POST("/auth/logout", auth.Logout)
	p.GET("/onboarding/profile", ob.GetProfile)
	p.PUT("/onboarding/profile", ob.SaveProfile)
	p.PUT("/onboarding/activity", ob.SelectActivity)
	p.GET("/onboarding/bmi", ob.Analysis)
	p.POST("/onboarding/complete", ob.Complete)
	p.GET("/profiles/search", ob.SearchProfiles)

	return &harness{engine: r, mr: mr, searcher: searcher}
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func (h *harness) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (h *harness) register(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	w, env := h.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": email, "password": "secret1", "confirm_password": "secret1",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", w.Code, w.Body.String())
	}
	if !env.Success {
		t.Fatalf("register envelope = %+v", env)
	}
	return w.Result().Cookies()
}

/* ─── auth ─── */

func TestRegisterCreatesProfileRecord(t *testing.T) {
	h := newHarness(t)
	cookies := h.register(t, "Ana@Example.com")

	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = c.Value != ""
	}
	if !names[helpers.AccessCookie] || !names[helpers.RefreshCookie] {
		t.Errorf("cookies = %v", names)
	}
	keys := h.mr.Keys()
	found := false
	for _, k := range keys {
		if strings.HasPrefix(k, "profile:") && !strings.HasPrefix(k, "profile:saving:") {
			found = true
			if got := h.mr.HGet(k, entity.FieldEmail); got != `"ana@example.com"` {
				t.Errorf("stored email = %s", got)
			}
		}
	}
	if !found {
		t.Errorf("no profile document among %v", keys)
	}
}

func TestAuthErrors(t *testing.T) {
	h := newHarness(t)
	h.register(t, "ana@example.com")

	tests := []struct {
		name  string
		path  string
		body  map[string]string
		code  int
		title string
	}{
		{"duplicate email", "/api/auth/register", map[string]string{"name": "B", "email": "ana@example.com", "password": "secret1", "confirm_password": "secret1"}, http.StatusConflict, "Email Exists"},
		{"short password", "/api/auth/register", map[string]string{"name": "B", "email": "b@example.com", "password": "123", "confirm_password": "123"}, http.StatusBadRequest, "Weak Password"},
		{"mismatch", "/api/auth/register", map[string]string{"name": "B", "email": "b@example.com", "password": "secret1", "confirm_password": "secret2"}, http.StatusBadRequest, "Password mismatch"},
		{"wrong password", "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "nope123"}, http.StatusUnauthorized, "Wrong email/password"},
		{"missing fields", "/api/auth/login", map[string]string{"email": ""}, http.StatusBadRequest, "Missing fields"},
		{"reset unknown email", "/api/auth/reset/init", map[string]string{"email": "ghost@example.com"}, http.StatusNotFound, "No account found"},
		{"reset bad token", "/api/auth/reset/confirm", map[string]string{"token": "nope", "new_password": "secret9"}, http.StatusBadRequest, "Link expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := h.do(t, http.MethodPost, tt.path, tt.body, nil)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d body = %s", w.Code, tt.code, w.Body.String())
			}
			if env.Message != tt.title {
				t.Errorf("message = %q, want %q", env.Message, tt.title)
			}
		})
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	h := newHarness(t)
	h.register(t, "ana@example.com")

	w, _ := h.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "secret1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()

	w, _ = h.do(t, http.MethodPost, "/api/auth/refresh", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d %s", w.Code, w.Body.String())
	}
	rotated := w.Result().Cookies()

	// the pre-rotation access token no longer matches the session
	if w, _ := h.do(t, http.MethodGet, "/api/onboarding/profile", nil, cookies); w.Code != http.StatusUnauthorized {
		t.Errorf("old token status = %d", w.Code)
	}
	if w, _ := h.do(t, http.MethodPost, "/api/auth/logout", nil, rotated); w.Code != http.StatusOK {
		t.Fatalf("logout = %d", w.Code)
	}
	if w, _ := h.do(t, http.MethodGet, "/api/onboarding/profile", nil, rotated); w.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d", w.Code)
	}
	if w, _ := h.do(t, http.MethodPost, "/api/auth/refresh", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh without cookie = %d", w.Code)
	}
}

/* ─── onboarding ─── */

func TestOnboardingFlow(t *testing.T) {
	h := newHarness(t)
	cookies := h.register(t, "ana@example.com")

	var view profileView
	w, env := h.do(t, http.MethodGet, "/api/onboarding/profile", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("get profile = %d %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(env.Data, &view)
	if view.Stage != entity.StageRegistered || view.Profile.Name != "Ana" || view.Analysis.Available {
		t.Errorf("initial view = %+v", view)
	}

	w, env = h.do(t, http.MethodPut, "/api/onboarding/profile", map[string]any{
		"gender": "female", "age": 200, "height_cm": 175, "weight_kg": 72,
	}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("save profile = %d %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(env.Data, &view)
	if view.Profile.Age != 90 || view.Stage != entity.StageProfileEntered || view.Profile.BMI != 23.51 {
		t.Errorf("after save = %+v", view)
	}

	w, env = h.do(t, http.MethodPut, "/api/onboarding/activity", map[string]string{"activity_level": "moderate"}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("activity = %d %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(env.Data, &view)
	if view.Profile.ActivityMultiplier != 1.55 {
		t.Errorf("multiplier = %v", view.Profile.ActivityMultiplier)
	}

	w, env = h.do(t, http.MethodGet, "/api/onboarding/bmi", nil, cookies)
	var analysis struct {
		BMIText string `json:"bmi_text"`
		Plan    struct {
			Key string `json:"plan_key"`
		} `json:"plan"`
	}
	_ = json.Unmarshal(env.Data, &analysis)
	if w.Code != http.StatusOK || analysis.BMIText != "23.5" || analysis.Plan.Key != "maintain" {
		t.Errorf("bmi = %d %s", w.Code, w.Body.String())
	}

	w, env = h.do(t, http.MethodPost, "/api/onboarding/complete", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("complete = %d %s", w.Code, w.Body.String())
	}
	var done application.CompletionOutcome
	_ = json.Unmarshal(env.Data, &done)
	if done.Stage != entity.StageComplete {
		t.Errorf("completion = %+v", done)
	}
}

func TestOnboardingRejections(t *testing.T) {
	h := newHarness(t)
	cookies := h.register(t, "ana@example.com")

	if w, _ := h.do(t, http.MethodGet, "/api/onboarding/profile", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d", w.Code)
	}

	w, env := h.do(t, http.MethodPut, "/api/onboarding/activity", map[string]string{"activity_level": "marathon"}, cookies)
	if w.Code != http.StatusBadRequest || !strings.Contains(string(env.Error), "activity_level") {
		t.Errorf("bad level = %d %s", w.Code, w.Body.String())
	}

	w, _ = h.do(t, http.MethodPut, "/api/onboarding/profile", map[string]any{"age": "thirty"}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad age type = %d", w.Code)
	}

	w, _ = h.do(t, http.MethodPost, "/api/onboarding/complete", nil, cookies)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("complete without bmi = %d %s", w.Code, w.Body.String())
	}
}

func TestSaveProfileWhileSaving(t *testing.T) {
	h := newHarness(t)
	cookies := h.register(t, "ana@example.com")

	var uid string
	for _, k := range h.mr.Keys() {
		if strings.HasPrefix(k, "user:session:") {
			uid = strings.TrimPrefix(k, "user:session:")
		}
	}
	if err := h.mr.Set("profile:saving:"+uid+":profile", "other"); err != nil {
		t.Fatal(err)
	}
	w, _ := h.do(t, http.MethodPut, "/api/onboarding/profile", map[string]any{"age": 30, "height_cm": 170, "weight_kg": 60}, cookies)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestSearchProfiles(t *testing.T) {
	h := newHarness(t)
	cookies := h.register(t, "ana@example.com")

	h.searcher.hits = []search.Hit{{ID: "u1", Source: map[string]any{"name": "Ana"}}}
	w, env := h.do(t, http.MethodGet, "/api/profiles/search?q=ana", nil, cookies)
	if w.Code != http.StatusOK || env.Meta["count"] != float64(1) || h.searcher.q != "ana" {
		t.Errorf("search = %d %s", w.Code, w.Body.String())
	}
	if w, _ := h.do(t, http.MethodGet, "/api/profiles/search", nil, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("empty q = %d", w.Code)
	}
	h.searcher.err = errors.New("es down")
	if w, _ := h.do(t, http.MethodGet, "/api/profiles/search?q=ana", nil, cookies); w.Code != http.StatusBadGateway {
		t.Errorf("es down = %d", w.Code)
	}
}

/* ─── metrics ─── */

func TestMetricsBMI(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		height, weight float64
		text, plan     string
	}{
		{175, 72, "23.5", "maintain"},
		{180, 57, "17.6", "gain"},
		{0, 72, "--", "gain"},
	}
	for _, tt := range tests {
		_, env := h.do(t, http.MethodPost, "/api/metrics/bmi", map[string]float64{"height_cm": tt.height, "weight_kg": tt.weight}, nil)
		var a struct {
			BMIText string `json:"bmi_text"`
			Plan    struct {
				Key string `json:"plan_key"`
			} `json:"plan"`
		}
		_ = json.Unmarshal(env.Data, &a)
		if a.BMIText != tt.text || a.Plan.Key != tt.plan {
			t.Errorf("%v/%v => %+v, want %s %s", tt.height, tt.weight, a, tt.text, tt.plan)
		}
	}
}

func TestMetricsNormalize(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		field, text string
		last        float64
		want        float64
		changed     bool
	}{
		{"age", "3a0", 0, 30, true},
		{"age", "", 30, 5, true},
		{"height", "300", 0, 250, true},
		{"weight", "72.5kg", 0, 72.5, true},
		{"shoe", "44", 41, 41, false},
	}
	for _, tt := range tests {
		_, env := h.do(t, http.MethodPost, "/api/metrics/normalize", map[string]any{"field": tt.field, "text": tt.text, "last": tt.last}, nil)
		var n struct {
			Value float64 `json:"value"`
		}
		_ = json.Unmarshal(env.Data, &n)
		if n.Value != tt.want || env.Meta["changed"] != tt.changed {
			t.Errorf("%s %q => %v changed=%v, want %v %v", tt.field, tt.text, n.Value, env.Meta["changed"], tt.want, tt.changed)
		}
	}
}

func TestActivityLevels(t *testing.T) {
	h := newHarness(t)
	_, env := h.do(t, http.MethodGet, "/api/activity-levels", nil, nil)
	var opts []entity.ActivityOption
	_ = json.Unmarshal(env.Data, &opts)
	if len(opts) != 5 || opts[0].Level != entity.ActivitySedentary || opts[4].Multiplier != 1.9 {
		t.Errorf("options = %+v", opts)
	}
}
