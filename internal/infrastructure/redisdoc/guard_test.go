package redisdoc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/fitness-onboarding/internal/application"
)

func TestGuardExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewGuard(rdb, time.Minute)
	ctx := context.Background()

	release, ok, err := g.Acquire(ctx, "u1", "profile")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := g.Acquire(ctx, "u1", "profile"); ok {
		t.Fatal("second acquire for the same step succeeded")
	}
	if _, ok, _ := g.Acquire(ctx, "u1", "activity"); !ok {
		t.Fatal("other step should not be blocked")
	}
	if _, ok, _ := g.Acquire(ctx, "u2", "profile"); !ok {
		t.Fatal("other identity should not be blocked")
	}

	release()
	if _, ok, _ := g.Acquire(ctx, "u1", "profile"); !ok {
		t.Fatal("acquire after release failed")
	}
}

func TestGuardExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewGuard(rdb, time.Second)
	ctx := context.Background()

	release, ok, _ := g.Acquire(ctx, "u1", "bmi")
	if !ok {
		t.Fatal("acquire failed")
	}
	mr.FastForward(2 * time.Second)
	release2, ok, _ := g.Acquire(ctx, "u1", "bmi")
	if !ok {
		t.Fatal("lock did not expire")
	}
	// a stale release must not drop the new holder's lock
	release()
	if _, ok, _ := g.Acquire(ctx, "u1", "bmi"); ok {
		t.Fatal("stale release removed the current lock")
	}
	release2()
}

var _ application.SavingGuard = (*Guard)(nil)
