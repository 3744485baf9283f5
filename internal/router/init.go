package router

import (
	"context"

	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/container"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/archive"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/events"
	pginfra "github.com/oksasatya/fitness-onboarding/internal/infrastructure/postgres"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/redisdoc"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/search"
	handlers "github.com/oksasatya/fitness-onboarding/internal/interface/http"
	"github.com/oksasatya/fitness-onboarding/internal/router/modules"
)

type ProfileDeps struct {
	Sync       *application.Synchronizer
	Onboarding *application.Onboarding
	Index      *search.ProfileIndex
}

func documentStore() repository.DocumentStore {
	cfg := container.GetConfig()
	if cfg.UsePostgresDocs() {
		return pginfra.NewDocumentStore(container.GetPGPool())
	}
	return redisdoc.NewStore(container.GetRedis(), cfg.ProfileKeyPrefix)
}

// buildProfileDeps wires the synchronizer to whichever read-side projections
// and archive are configured.
func buildProfileDeps() ProfileDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var fan application.Fanout
	var index *search.ProfileIndex
	if es := container.GetES(); es != nil {
		index = search.NewProfileIndex(es, cfg.ESProfilesIndex)
		if err := index.EnsureIndex(context.Background()); err != nil {
			logger.WithError(err).WithField("index", cfg.ESProfilesIndex).Warn("ensure profile index failed")
		}
		fan = append(fan, index)
	}
	if pub := container.GetProfilePub(); pub != nil {
		fan = append(fan, events.NewProfileEvents(pub))
	}
	var projector application.ProfileProjector
	if len(fan) > 0 {
		projector = fan
	}

	var archiver application.SnapshotArchiver
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		archiver = archive.NewSnapshotArchive(archive.GCSBucket{Client: gcs, Bucket: cfg.GCSBucket})
	}

	sync := application.NewSynchronizer(documentStore(), projector, logger)
	guard := redisdoc.NewGuard(container.GetRedis(), cfg.SavingGuardTTL)
	return ProfileDeps{
		Sync:       sync,
		Onboarding: application.NewOnboarding(sync, guard, archiver, logger),
		Index:      index,
	}
}

func buildAuthHandler(sync *application.Synchronizer) *handlers.AuthHandler {
	cfg := container.GetConfig()
	var mail application.MailQueue
	if pub := container.GetMailPub(); pub != nil {
		mail = pub
	}
	svc := application.NewAccountService(
		pginfra.NewAccountRepository(container.GetPGPool()),
		sync,
		container.GetJWT(),
		container.GetRedis(),
		mail,
		cfg,
		container.GetLogger(),
	)
	return handlers.NewAuthHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	profile := buildProfileDeps()

	var searcher handlers.ProfileSearcher
	if profile.Index != nil {
		searcher = profile.Index
	}

	r.Add(modules.NewAuthModule(buildAuthHandler(profile.Sync), container.GetJWT()))
	r.Add(modules.NewOnboardingModule(handlers.NewOnboardingHandler(profile.Onboarding, searcher, container.GetLogger()), container.GetJWT()))
	r.Add(modules.NewMetricsModule(handlers.NewMetricsHandler()))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
