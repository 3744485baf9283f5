package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/metric"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// Synchronizer reconciles locally entered values with the remote profile
// record. Registration and the first profile save are blocking: their
// failures come back as errors. Activity and BMI saves are best-effort: their
// failures are logged and reported only through the SyncResult.
//
// No timeout is placed on store calls beyond what ctx carries.
type Synchronizer struct {
	Store     repository.DocumentStore
	Projector ProfileProjector
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewSynchronizer(store repository.DocumentStore, projector ProfileProjector, logger *logrus.Logger) *Synchronizer {
	return &Synchronizer{Store: store, Projector: projector, Logger: logger, Now: time.Now}
}

// AnthropometricsInput is the raw profile-details form.
type AnthropometricsInput struct {
	Gender   entity.Gender
	Age      int
	HeightCm float64
	WeightKg float64
}

// Normalize clamps every numeric field into its domain. An unknown gender
// falls back to the male baseline.
func (in AnthropometricsInput) Normalize() AnthropometricsInput {
	out := AnthropometricsInput{
		Gender:   in.Gender,
		Age:      metric.ClampAge(in.Age),
		HeightCm: metric.ClampHeight(in.HeightCm),
		WeightKg: metric.ClampWeight(in.WeightKg),
	}
	if !out.Gender.Valid() {
		out.Gender = entity.GenderMale
	}
	return out
}

func (s *Synchronizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Synchronizer) warn(err error, id Identity, op string, msg string) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": id.String(), "op": op}).Warn(msg)
}

func (s *Synchronizer) applied(ctx context.Context, id Identity, op string, fields repository.Document) {
	project(ctx, s.Projector, s.Logger, ProfileChange{Identity: id, Op: op, Fields: fields, At: s.now().UTC()})
}

// LoadProfile fetches the record for id. A missing record or missing identity
// yields the default profile, not an error.
func (s *Synchronizer) LoadProfile(ctx context.Context, id Identity) (entity.UserProfile, error) {
	if id.Missing() {
		return entity.DefaultProfile(), nil
	}
	doc, ok, err := s.Store.Get(ctx, id.String())
	if err != nil {
		return entity.DefaultProfile(), fmt.Errorf("load profile: %w: %v", ErrPersistenceUnavailable, err)
	}
	if !ok {
		return entity.DefaultProfile(), nil
	}
	return profileFromDocument(doc), nil
}

// CreateRecord writes the initial record at registration. Blocking.
func (s *Synchronizer) CreateRecord(ctx context.Context, id Identity, name, email string) error {
	if id.Missing() {
		return ErrIdentityMissing
	}
	fields := repository.Document{
		entity.FieldName:      name,
		entity.FieldEmail:     email,
		entity.FieldCreatedAt: s.now().UnixMilli(),
	}
	if err := s.Store.Create(ctx, id.String(), fields); err != nil {
		record(OpRecordCreated, Failed(err))
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id.String()).Error("create profile record failed")
		}
		return fmt.Errorf("create record: %w: %v", ErrPersistenceUnavailable, err)
	}
	record(OpRecordCreated, Applied())
	s.applied(ctx, id, OpRecordCreated, fields)
	return nil
}

// SaveAnthropometrics clamps and writes the profile-details step. Blocking:
// a store failure is returned as ErrPersistenceUnavailable alongside a
// failed result.
func (s *Synchronizer) SaveAnthropometrics(ctx context.Context, id Identity, in AnthropometricsInput) (SyncResult, error) {
	if id.Missing() {
		return record(OpAnthropometricsSet, Skipped(ReasonIdentityMissing)), nil
	}
	fields := anthropometricFields(in.Normalize())
	if err := s.mergeOrCreate(ctx, id, fields); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id.String()).Error("save profile details failed")
		}
		return record(OpAnthropometricsSet, Failed(err)), fmt.Errorf("save profile: %w: %v", ErrPersistenceUnavailable, err)
	}
	s.applied(ctx, id, OpAnthropometricsSet, fields)
	return record(OpAnthropometricsSet, Applied()), nil
}

// mergeOrCreate recreates a record that is missing, e.g. after a registration
// whose record write failed. Losing the create race to another writer falls
// back to the merge.
func (s *Synchronizer) mergeOrCreate(ctx context.Context, id Identity, fields repository.Document) error {
	err := s.Store.Merge(ctx, id.String(), fields)
	if !errors.Is(err, repository.ErrDocumentNotFound) {
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", id.String()).Warn("profile record missing, recreating")
	}
	err = s.Store.Create(ctx, id.String(), fields)
	if errors.Is(err, repository.ErrDocumentExists) {
		return s.Store.Merge(ctx, id.String(), fields)
	}
	return err
}

// SaveActivity writes the level together with its multiplier in one merge.
// Best-effort.
func (s *Synchronizer) SaveActivity(ctx context.Context, id Identity, level entity.ActivityLevel) SyncResult {
	if id.Missing() {
		return record(OpActivitySet, Skipped(ReasonIdentityMissing))
	}
	mult, ok := level.Multiplier()
	if !ok {
		return record(OpActivitySet, Skipped(ReasonUnknownActivity))
	}
	fields := repository.Document{
		entity.FieldActivityLevel:      string(level),
		entity.FieldActivityMultiplier: mult,
	}
	if err := s.Store.Merge(ctx, id.String(), fields); err != nil {
		s.warn(err, id, OpActivitySet, "auto-save activity failed")
		return record(OpActivitySet, Failed(err))
	}
	s.applied(ctx, id, OpActivitySet, fields)
	return record(OpActivitySet, Applied())
}

// SaveBmiSnapshot persists bmi (rounded to 2 decimals) and its plan key.
// The unavailable sentinel, and any other non-positive or non-finite value,
// is never written. A plan key that disagrees with
// the classification of bmi is replaced by the classified one. Best-effort.
func (s *Synchronizer) SaveBmiSnapshot(ctx context.Context, id Identity, bmi float64, planKey entity.PlanKey) SyncResult {
	if id.Missing() {
		return record(OpBMISnapshot, Skipped(ReasonIdentityMissing))
	}
	if bmi <= metric.Unavailable || math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return record(OpBMISnapshot, Skipped(ReasonBMIUnavailable))
	}
	if want := metric.Classify(bmi).Key; planKey != want {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"user_id": id.String(), "given": planKey, "classified": want}).
				Debug("plan key replaced by classification")
		}
		planKey = want
	}
	fields := repository.Document{
		entity.FieldBMI:             metric.RoundForStorage(bmi),
		entity.FieldRecommendedPlan: string(planKey),
	}
	if err := s.Store.Merge(ctx, id.String(), fields); err != nil {
		s.warn(err, id, OpBMISnapshot, "failed to save BMI")
		return record(OpBMISnapshot, Failed(err))
	}
	s.applied(ctx, id, OpBMISnapshot, fields)
	return record(OpBMISnapshot, Applied())
}
