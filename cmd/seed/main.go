package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oksasatya/fitness-onboarding/config"
	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/metric"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
	pginfra "github.com/oksasatya/fitness-onboarding/internal/infrastructure/postgres"
	"github.com/oksasatya/fitness-onboarding/internal/infrastructure/redisdoc"
	"github.com/oksasatya/fitness-onboarding/pkg/helpers"
)

// seed creates a demo account with a fully onboarded profile document.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, MinConns: 1, MaxConnLifetime: time.Minute})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	email := "demo@example.com"
	password := "password123"
	name := "Demo User"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	accounts := pginfra.NewAccountRepository(pool)
	acc := &entity.Account{ID: uuid.NewString(), Email: email, Password: hash, Name: name}
	if err := accounts.Create(ctx, acc); err != nil {
		if !errors.Is(err, repository.ErrDuplicateEmail) {
			log.Fatalf("failed to seed account: %v", err)
		}
		if acc, err = accounts.GetByEmail(ctx, email); err != nil {
			log.Fatalf("failed to load existing account: %v", err)
		}
	}

	var store repository.DocumentStore
	if cfg.UsePostgresDocs() {
		store = pginfra.NewDocumentStore(pool)
	} else {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		store = redisdoc.NewStore(rdb, cfg.ProfileKeyPrefix)
	}
	sync := application.NewSynchronizer(store, nil, logger)
	id := application.Identity(acc.ID)

	if err := sync.CreateRecord(ctx, id, acc.Name, acc.Email); err != nil {
		// an existing record is fine, the writes below bring it up to date
		logger.WithError(err).Info("profile record not created")
	}
	in := application.AnthropometricsInput{Gender: entity.GenderMale, Age: 30, HeightCm: 175, WeightKg: 72}
	if _, err := sync.SaveAnthropometrics(ctx, id, in); err != nil {
		log.Fatalf("failed to seed measurements: %v", err)
	}
	if res := sync.SaveActivity(ctx, id, entity.ActivityModerate); !res.IsApplied() {
		log.Fatalf("failed to seed activity: %s", res.Reason)
	}
	bmi := metric.ComputeBMI(in.HeightCm, in.WeightKg)
	if res := sync.SaveBmiSnapshot(ctx, id, bmi, metric.Classify(bmi).Key); !res.IsApplied() {
		log.Fatalf("failed to seed bmi: %s", res.Reason)
	}

	p, err := sync.LoadProfile(ctx, id)
	if err != nil {
		log.Fatalf("failed to read back profile: %v", err)
	}
	fmt.Printf("seeded account: id=%s email=%s password=%s stage=%s bmi=%.2f plan=%s\n",
		acc.ID, email, password, p.Stage(), p.BMI, p.RecommendedPlan)
}
