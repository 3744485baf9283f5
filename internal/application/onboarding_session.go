package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/metric"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// Onboarding opens per-identity sessions over the synchronizer.
type Onboarding struct {
	Sync     *Synchronizer
	Guard    SavingGuard
	Archiver SnapshotArchiver
	Logger   *logrus.Logger
}

func NewOnboarding(sync *Synchronizer, guard SavingGuard, archiver SnapshotArchiver, logger *logrus.Logger) *Onboarding {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	return &Onboarding{Sync: sync, Guard: guard, Archiver: archiver, Logger: logger}
}

// Open loads the record and returns a session pre-filled with it, so the
// flow resumes from whatever steps are already done.
func (o *Onboarding) Open(ctx context.Context, id Identity) (*OnboardingSession, error) {
	p, err := o.Sync.LoadProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OnboardingSession{o: o, id: id, profile: p}, nil
}

// OnboardingSession holds one identity's view of its record between writes.
//
// Reactive rule: every change of height or weight recomputes the BMI, and
// every recomputation that yields a real value saves a BMI snapshot.
type OnboardingSession struct {
	o       *Onboarding
	id      Identity
	profile entity.UserProfile
}

func (s *OnboardingSession) Profile() entity.UserProfile { return s.profile }

func (s *OnboardingSession) Stage() entity.Stage { return s.profile.Stage() }

// guardError is returned when the saving guard itself could not be reached.
// It matches ErrPersistenceUnavailable.
type guardError struct{ err error }

func (e guardError) Error() string   { return "saving guard: " + e.err.Error() }
func (e guardError) Unwrap() []error { return []error{ErrPersistenceUnavailable, e.err} }

func (s *OnboardingSession) guarded(ctx context.Context, step string, fn func() error) error {
	if s.id.Missing() {
		return fn()
	}
	release, ok, err := s.o.Guard.Acquire(ctx, s.id, step)
	if err != nil {
		return guardError{err}
	}
	if !ok {
		return ErrSaveInProgress
	}
	defer release()
	return fn()
}

// MeasurementsOutcome reports both writes a profile-details save can cause.
type MeasurementsOutcome struct {
	Profile SyncResult `json:"profile"`
	BMI     SyncResult `json:"bmi"`
}

// SaveMeasurements writes the profile-details step and, once it lands,
// recomputes and snapshots the BMI.
func (s *OnboardingSession) SaveMeasurements(ctx context.Context, in AnthropometricsInput) (MeasurementsOutcome, error) {
	var out MeasurementsOutcome
	err := s.guarded(ctx, "profile", func() error {
		res, err := s.o.Sync.SaveAnthropometrics(ctx, s.id, in)
		out.Profile = res
		if err != nil {
			return err
		}
		if !res.IsApplied() {
			out.BMI = Skipped(res.Reason)
			return nil
		}
		n := in.Normalize()
		s.profile.Gender = n.Gender
		s.profile.Age = n.Age
		s.profile.HeightCm = n.HeightCm
		s.profile.WeightKg = n.WeightKg
		s.profile.ProfileCompleted = true
		out.BMI = s.recompute(ctx)
		return nil
	})
	return out, err
}

// SelectActivity saves the chosen level. Failures stay in the result,
// including an unreachable saving guard; only a concurrent save of the same
// step is returned as an error.
func (s *OnboardingSession) SelectActivity(ctx context.Context, level entity.ActivityLevel) (SyncResult, error) {
	var res SyncResult
	err := s.guarded(ctx, "activity", func() error {
		res = s.o.Sync.SaveActivity(ctx, s.id, level)
		if res.IsApplied() {
			s.profile.ActivityLevel = level
			s.profile.ActivityMultiplier, _ = level.Multiplier()
		}
		return nil
	})
	var ge guardError
	if errors.As(err, &ge) {
		s.o.Sync.warn(ge.err, s.id, OpActivitySet, "saving guard unavailable")
		return record(OpActivitySet, Failed(ge.err)), nil
	}
	return res, err
}

// Analyze recomputes from the record's height and weight, snapshots the
// result and returns what the results screen displays. The snapshot shares
// the profile step's guard so it never lands after a newer measurement save.
func (s *OnboardingSession) Analyze(ctx context.Context) (metric.Analysis, SyncResult) {
	a := metric.Analyze(s.profile.HeightCm, s.profile.WeightKg)
	var res SyncResult
	err := s.guarded(ctx, "profile", func() error {
		res = s.recompute(ctx)
		return nil
	})
	var ge guardError
	switch {
	case errors.Is(err, ErrSaveInProgress):
		res = record(OpBMISnapshot, Skipped(ReasonSaveInProgress))
	case errors.As(err, &ge):
		s.o.Sync.warn(ge.err, s.id, OpBMISnapshot, "saving guard unavailable")
		res = record(OpBMISnapshot, Failed(ge.err))
	}
	return a, res
}

func (s *OnboardingSession) recompute(ctx context.Context) SyncResult {
	bmi := metric.ComputeBMI(s.profile.HeightCm, s.profile.WeightKg)
	plan := metric.Classify(bmi)
	res := s.o.Sync.SaveBmiSnapshot(ctx, s.id, bmi, plan.Key)
	if res.IsApplied() {
		s.profile.BMI = metric.RoundForStorage(bmi)
		s.profile.RecommendedPlan = plan.Key
	}
	return res
}

// CompletionOutcome is returned when the user continues past the BMI results.
type CompletionOutcome struct {
	Profile    entity.UserProfile `json:"profile"`
	Stage      entity.Stage       `json:"stage"`
	ArchiveURL string             `json:"archive_url,omitempty"`
}

// Complete finishes onboarding. It needs a computable BMI; archiving the
// snapshot is best-effort.
func (s *OnboardingSession) Complete(ctx context.Context) (CompletionOutcome, error) {
	var out CompletionOutcome
	err := s.guarded(ctx, "complete", func() error {
		if s.id.Missing() {
			return ErrIdentityMissing
		}
		if metric.ComputeBMI(s.profile.HeightCm, s.profile.WeightKg) == metric.Unavailable {
			return ErrBMIUnavailable
		}
		if !s.profile.HasBMI() {
			s.recompute(ctx)
		}
		out.Profile = s.profile
		out.Stage = s.profile.Stage()
		if s.o.Archiver != nil {
			url, err := s.o.Archiver.Archive(ctx, s.id, s.profile)
			if err != nil {
				s.o.Sync.warn(err, s.id, OpOnboardingCompleted, "archive profile snapshot failed")
			} else {
				out.ArchiveURL = url
			}
		}
		s.o.Sync.applied(ctx, s.id, OpOnboardingCompleted, repository.Document(projectionDocument(s.id, s.profile)))
		return nil
	})
	return out, err
}
