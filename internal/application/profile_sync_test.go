package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

/* ─── fakes ─── */

// countingStore is an in-memory DocumentStore that counts every call.
type countingStore struct {
	mu     sync.Mutex
	docs   map[string]repository.Document
	gets   int
	creats int
	merges []repository.Document
	err    error
}

func newCountingStore() *countingStore {
	return &countingStore{docs: map[string]repository.Document{}}
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets + s.creats + len(s.merges)
}

func (s *countingStore) Get(_ context.Context, key string) (repository.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.err != nil {
		return nil, false, s.err
	}
	d, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	out := make(repository.Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out, true, nil
}

func (s *countingStore) Create(_ context.Context, key string, fields repository.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creats++
	if s.err != nil {
		return s.err
	}
	if _, ok := s.docs[key]; ok {
		return repository.ErrDocumentExists
	}
	d := repository.Document{}
	for k, v := range fields {
		d[k] = v
	}
	s.docs[key] = d
	return nil
}

func (s *countingStore) Merge(_ context.Context, key string, fields repository.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges = append(s.merges, fields)
	if s.err != nil {
		return s.err
	}
	d, ok := s.docs[key]
	if !ok {
		return repository.ErrDocumentNotFound
	}
	for k, v := range fields {
		d[k] = v
	}
	return nil
}

type recordingProjector struct {
	mu      sync.Mutex
	changes []ProfileChange
	err     error
}

func (p *recordingProjector) Project(_ context.Context, c ProfileChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return p.err
}

func newTestSync(t *testing.T) (*Synchronizer, *countingStore, *recordingProjector, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	store := newCountingStore()
	proj := &recordingProjector{}
	s := NewSynchronizer(store, proj, logger)
	s.Now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }
	return s, store, proj, hook
}

func seed(t *testing.T, s *Synchronizer, id Identity) {
	t.Helper()
	if err := s.CreateRecord(context.Background(), id, "Ana", "ana@example.com"); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
}

/* ─── load ─── */

func TestLoadProfileDefaults(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	ctx := context.Background()

	p, err := s.LoadProfile(ctx, "")
	if err != nil {
		t.Fatalf("missing identity: %v", err)
	}
	if p != entity.DefaultProfile() {
		t.Errorf("missing identity profile = %+v", p)
	}
	if store.calls() != 0 {
		t.Errorf("missing identity made %d store calls", store.calls())
	}

	p, err = s.LoadProfile(ctx, "nobody")
	if err != nil {
		t.Fatalf("missing record: %v", err)
	}
	if p.Gender != entity.GenderMale || p.ActivityLevel != entity.ActivityUnset || p.Stage() != entity.StageRegistered {
		t.Errorf("missing record profile = %+v", p)
	}
}

func TestLoadProfileStoreFailure(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	store.err = errors.New("connection refused")

	p, err := s.LoadProfile(context.Background(), "u1")
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Fatalf("err = %v, want ErrPersistenceUnavailable", err)
	}
	if p != entity.DefaultProfile() {
		t.Errorf("profile on failure = %+v, want defaults", p)
	}
}

func TestLoadProfileIgnoresWrongTypes(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	store.docs["u1"] = repository.Document{
		entity.FieldName:               42,
		entity.FieldAge:                "thirty",
		entity.FieldHeight:             175.0,
		entity.FieldActivityLevel:      "moderate",
		entity.FieldActivityMultiplier: 9.9,
		entity.FieldGender:             "other",
	}
	p, err := s.LoadProfile(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "" || p.Age != 0 || p.HeightCm != 175 {
		t.Errorf("typed reads wrong: %+v", p)
	}
	if p.ActivityMultiplier != 1.55 {
		t.Errorf("multiplier = %v, want 1.55 derived from level", p.ActivityMultiplier)
	}
	if p.Gender != entity.GenderMale {
		t.Errorf("gender = %q, want male fallback", p.Gender)
	}
}

/* ─── create ─── */

func TestCreateRecord(t *testing.T) {
	s, store, proj, _ := newTestSync(t)
	seed(t, s, "u1")

	doc := store.docs["u1"]
	if doc[entity.FieldName] != "Ana" || doc[entity.FieldEmail] != "ana@example.com" {
		t.Errorf("doc = %v", doc)
	}
	if doc[entity.FieldCreatedAt] != s.Now().UnixMilli() {
		t.Errorf("createdAt = %v", doc[entity.FieldCreatedAt])
	}
	if len(proj.changes) != 1 || proj.changes[0].Op != OpRecordCreated {
		t.Errorf("projected = %+v", proj.changes)
	}

	err := s.CreateRecord(context.Background(), "u1", "Ana", "ana@example.com")
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Errorf("second create err = %v", err)
	}
	if err := s.CreateRecord(context.Background(), "", "x", "y"); !errors.Is(err, ErrIdentityMissing) {
		t.Errorf("missing identity err = %v", err)
	}
}

/* ─── anthropometrics ─── */

func TestSaveAnthropometricsClampsAndRoundTrips(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	ctx := context.Background()
	seed(t, s, "u1")

	res, err := s.SaveAnthropometrics(ctx, "u1", AnthropometricsInput{
		Gender: entity.GenderFemale, Age: 120, HeightCm: 300, WeightKg: 10,
	})
	if err != nil || !res.IsApplied() {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	doc := store.docs["u1"]
	if doc[entity.FieldAge] != 90 || doc[entity.FieldHeight] != 250.0 || doc[entity.FieldWeight] != 25.0 {
		t.Errorf("not clamped: %v", doc)
	}
	if doc[entity.FieldProfileCompleted] != true {
		t.Errorf("profileCompleted = %v", doc[entity.FieldProfileCompleted])
	}

	p, err := s.LoadProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := entity.UserProfile{
		Name: "Ana", Email: "ana@example.com", CreatedAt: s.Now().UnixMilli(),
		Gender: entity.GenderFemale, Age: 90, HeightCm: 250, WeightKg: 25,
		ActivityLevel: entity.ActivityUnset, ProfileCompleted: true,
	}
	if p != want {
		t.Errorf("round trip\n got %+v\nwant %+v", p, want)
	}
	if p.Stage() != entity.StageProfileEntered {
		t.Errorf("stage = %s", p.Stage())
	}
}

func TestSaveAnthropometricsBlockingFailure(t *testing.T) {
	s, store, proj, hook := newTestSync(t)
	seed(t, s, "u1")
	store.err = errors.New("unavailable")
	proj.changes = nil

	res, err := s.SaveAnthropometrics(context.Background(), "u1", AnthropometricsInput{Age: 30, HeightCm: 175, WeightKg: 72})
	if !errors.Is(err, ErrPersistenceUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if res.Outcome != OutcomeFailed || res.Err == nil {
		t.Errorf("res = %+v", res)
	}
	if len(proj.changes) != 0 {
		t.Errorf("failed write was projected")
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.ErrorLevel {
		t.Errorf("expected an error log entry, got %+v", e)
	}
}

func TestSaveAnthropometricsRecreatesMissingRecord(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	res, err := s.SaveAnthropometrics(context.Background(), "u1", AnthropometricsInput{Age: 30, HeightCm: 175, WeightKg: 72})
	if err != nil || !res.IsApplied() {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	if store.creats != 1 || store.docs["u1"][entity.FieldAge] != 30 {
		t.Errorf("creates = %d doc = %v", store.creats, store.docs["u1"])
	}
	if r := s.SaveActivity(context.Background(), "u1", entity.ActivityLight); !r.IsApplied() {
		t.Errorf("activity after recreate = %+v", r)
	}
}

func TestSaveAnthropometricsInvalidGender(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	seed(t, s, "u1")
	if _, err := s.SaveAnthropometrics(context.Background(), "u1", AnthropometricsInput{Gender: "x", Age: 30, HeightCm: 170, WeightKg: 60}); err != nil {
		t.Fatal(err)
	}
	if store.docs["u1"][entity.FieldGender] != "male" {
		t.Errorf("gender = %v", store.docs["u1"][entity.FieldGender])
	}
}

/* ─── activity ─── */

func TestSaveActivityWritesLevelAndMultiplierTogether(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	seed(t, s, "u1")

	res := s.SaveActivity(context.Background(), "u1", entity.ActivityModerate)
	if !res.IsApplied() {
		t.Fatalf("res = %+v", res)
	}
	if len(store.merges) != 1 {
		t.Fatalf("merges = %d, want exactly 1", len(store.merges))
	}
	m := store.merges[0]
	if m[entity.FieldActivityLevel] != "moderate" || m[entity.FieldActivityMultiplier] != 1.55 {
		t.Errorf("merge = %v", m)
	}
}

func TestSaveActivityCases(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		level   entity.ActivityLevel
		failing bool
		want    SyncOutcome
		reason  string
		calls   int
	}{
		{"each level", "u1", entity.ActivityExtraActive, false, OutcomeApplied, "", 1},
		{"unknown level", "u1", "marathon", false, OutcomeSkipped, ReasonUnknownActivity, 0},
		{"unset level", "u1", entity.ActivityUnset, false, OutcomeSkipped, ReasonUnknownActivity, 0},
		{"identity missing", "", entity.ActivityLight, false, OutcomeSkipped, ReasonIdentityMissing, 0},
		{"store down", "u1", entity.ActivityLight, true, OutcomeFailed, "store down", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, _, _ := newTestSync(t)
			store.docs["u1"] = repository.Document{entity.FieldName: "Ana"}
			if tt.failing {
				store.err = errors.New("store down")
			}
			res := s.SaveActivity(context.Background(), tt.id, tt.level)
			if res.Outcome != tt.want || res.Reason != tt.reason {
				t.Errorf("res = %+v, want %s/%q", res, tt.want, tt.reason)
			}
			if got := len(store.merges); got != tt.calls {
				t.Errorf("merges = %d, want %d", got, tt.calls)
			}
		})
	}
}

func TestSaveActivityFailureIsLoggedNotReturned(t *testing.T) {
	s, store, _, hook := newTestSync(t)
	store.err = errors.New("timeout")
	res := s.SaveActivity(context.Background(), "u1", entity.ActivitySedentary)
	if res.Outcome != OutcomeFailed {
		t.Fatalf("res = %+v", res)
	}
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Data["op"] != OpActivitySet {
		t.Errorf("log entry = %+v", e)
	}
}

/* ─── bmi snapshot ─── */

func TestSaveBmiSnapshotSentinelWritesNothing(t *testing.T) {
	s, store, proj, _ := newTestSync(t)
	store.docs["u1"] = repository.Document{}

	res := s.SaveBmiSnapshot(context.Background(), "u1", 0, entity.PlanLose)
	if res.Outcome != OutcomeSkipped || res.Reason != ReasonBMIUnavailable {
		t.Errorf("res = %+v", res)
	}
	if store.calls() != 0 {
		t.Errorf("store calls = %d, want 0", store.calls())
	}
	if len(proj.changes) != 0 {
		t.Errorf("skipped write was projected")
	}
}

func TestSaveBmiSnapshotImpossibleValuesSkipped(t *testing.T) {
	for _, bmi := range []float64{-3, math.NaN(), math.Inf(1), math.Inf(-1)} {
		s, store, _, _ := newTestSync(t)
		seed(t, s, "u1")
		before := store.calls()
		res := s.SaveBmiSnapshot(context.Background(), "u1", bmi, entity.PlanLose)
		if res.Outcome != OutcomeSkipped || res.Reason != ReasonBMIUnavailable {
			t.Errorf("bmi %v: res = %+v", bmi, res)
		}
		if store.calls() != before {
			t.Errorf("bmi %v: %d store calls", bmi, store.calls()-before)
		}
		if _, ok := store.docs["u1"][entity.FieldBMI]; ok {
			t.Errorf("bmi %v was written", bmi)
		}
	}
}

func TestSaveBmiSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		bmi      float64
		plan     entity.PlanKey
		wantBMI  float64
		wantPlan string
	}{
		{"rounded to two decimals", 23.5147, entity.PlanMaintain, 23.51, "maintain"},
		{"underweight", 17.5781, entity.PlanGain, 17.58, "gain"},
		{"overweight", 31.1418, entity.PlanLose, 31.14, "lose"},
		{"mismatched plan replaced", 31.1418, entity.PlanGain, 31.14, "lose"},
		{"empty plan replaced", 18.5, "", 18.5, "maintain"},
		{"plan follows raw value", 24.996, entity.PlanMaintain, 25, "maintain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, _, _ := newTestSync(t)
			store.docs["u1"] = repository.Document{}
			res := s.SaveBmiSnapshot(context.Background(), "u1", tt.bmi, tt.plan)
			if !res.IsApplied() {
				t.Fatalf("res = %+v", res)
			}
			if len(store.merges) != 1 {
				t.Fatalf("merges = %d", len(store.merges))
			}
			m := store.merges[0]
			if m[entity.FieldBMI] != tt.wantBMI || m[entity.FieldRecommendedPlan] != tt.wantPlan {
				t.Errorf("merge = %v, want bmi %v plan %s", m, tt.wantBMI, tt.wantPlan)
			}
		})
	}
}

func TestSaveBmiSnapshotFailureAndIdentity(t *testing.T) {
	s, store, _, _ := newTestSync(t)
	if r := s.SaveBmiSnapshot(context.Background(), "", 22, entity.PlanMaintain); r.Reason != ReasonIdentityMissing {
		t.Errorf("missing identity res = %+v", r)
	}
	if store.calls() != 0 {
		t.Errorf("store calls = %d", store.calls())
	}
	store.err = errors.New("offline")
	if r := s.SaveBmiSnapshot(context.Background(), "u1", 22, entity.PlanMaintain); r.Outcome != OutcomeFailed || !errors.Is(r.Err, store.err) {
		t.Errorf("failing res = %+v", r)
	}
}

func TestSyncStatsCountOutcomes(t *testing.T) {
	s, _, _, _ := newTestSync(t)
	key := OpBMISnapshot + "." + string(OutcomeSkipped)
	before := SyncStats()[key]
	s.SaveBmiSnapshot(context.Background(), "", 22, entity.PlanMaintain)
	s.SaveBmiSnapshot(context.Background(), "u1", 0, entity.PlanGain)
	if got := SyncStats()[key]; got != before+2 {
		t.Errorf("%s = %d, want %d", key, got, before+2)
	}
}

/* ─── projection ─── */

func TestProjectionFailureDoesNotChangeResult(t *testing.T) {
	s, store, proj, hook := newTestSync(t)
	store.docs["u1"] = repository.Document{}
	proj.err = errors.New("es down")

	res := s.SaveActivity(context.Background(), "u1", entity.ActivityLight)
	if !res.IsApplied() {
		t.Fatalf("res = %+v", res)
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "profile projection failed" {
			found = true
		}
	}
	if !found {
		t.Error("projection failure not logged")
	}
}

func TestFanoutRunsAll(t *testing.T) {
	a, b := &recordingProjector{}, &recordingProjector{err: errors.New("boom")}
	err := Fanout{a, nil, b}.Project(context.Background(), ProfileChange{Identity: "u1", Op: OpBMISnapshot})
	if err == nil {
		t.Error("expected first error from fanout")
	}
	if len(a.changes) != 1 || len(b.changes) != 1 {
		t.Errorf("a=%d b=%d, want both called", len(a.changes), len(b.changes))
	}
}

// slowProjector finishes only if its ctx survives a sibling's failure.
type slowProjector struct {
	delivered chan bool
}

func (p *slowProjector) Project(ctx context.Context, _ ProfileChange) error {
	select {
	case <-time.After(50 * time.Millisecond):
		p.delivered <- true
		return nil
	case <-ctx.Done():
		p.delivered <- false
		return ctx.Err()
	}
}

func TestFanoutFailureDoesNotCancelSiblings(t *testing.T) {
	slow := &slowProjector{delivered: make(chan bool, 1)}
	failing := &recordingProjector{err: errors.New("publisher closed")}

	err := Fanout{failing, slow}.Project(context.Background(), ProfileChange{Identity: "u1", Op: OpActivitySet})
	if !errors.Is(err, failing.err) {
		t.Errorf("err = %v, want it to carry the failing projector's error", err)
	}
	if !<-slow.delivered {
		t.Error("slow projector was cancelled by its sibling's failure")
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	e1, e2 := errors.New("es down"), errors.New("queue down")
	err := Fanout{&recordingProjector{err: e1}, &recordingProjector{err: e2}}.Project(context.Background(), ProfileChange{Identity: "u1"})
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("err = %v, want both", err)
	}
}
