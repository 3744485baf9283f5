package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// Projection ops, also used as event names.
const (
	OpRecordCreated       = "record_created"
	OpAnthropometricsSet  = "anthropometrics_saved"
	OpActivitySet         = "activity_saved"
	OpBMISnapshot         = "bmi_snapshot_saved"
	OpOnboardingCompleted = "onboarding_completed"
)

// ProfileChange describes one applied write to a profile record.
type ProfileChange struct {
	Identity Identity            `json:"identity"`
	Op       string              `json:"op"`
	Fields   repository.Document `json:"fields"`
	At       time.Time           `json:"at"`
}

// ProfileProjector mirrors applied writes somewhere else (search index,
// event queue). Projection is best-effort and never affects a SyncResult.
type ProfileProjector interface {
	Project(ctx context.Context, change ProfileChange) error
}

// SnapshotArchiver stores the full profile once onboarding completes.
type SnapshotArchiver interface {
	Archive(ctx context.Context, id Identity, p entity.UserProfile) (string, error)
}

// Fanout runs every projector concurrently on the caller's ctx. One failing
// projector does not cancel the others; all errors are joined.
type Fanout []ProfileProjector

func (f Fanout) Project(ctx context.Context, change ProfileChange) error {
	var g errgroup.Group
	errs := make([]error, len(f))
	for i, p := range f {
		if p == nil {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			errs[i] = p.Project(ctx, change)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// project is the best-effort wrapper used by the synchronizer.
func project(ctx context.Context, p ProfileProjector, logger *logrus.Logger, change ProfileChange) {
	if p == nil {
		return
	}
	if err := p.Project(ctx, change); err != nil && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"user_id": change.Identity.String(),
			"op":      change.Op,
		}).Warn("profile projection failed")
	}
}
