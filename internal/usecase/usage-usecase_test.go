package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	in_memory "github.com/trackcqishibee-web/locallife-assistant/internal/storage/in-memory"
)

type fakeUsageAPI struct {
	stats model.UsageStats
	err   error
}

func (f *fakeUsageAPI) GetUsage(ctx context.Context, userID string) (model.UsageStats, error) {
	if f.err != nil {
		return model.UsageStats{}, f.err
	}
	return f.stats, nil
}

func newTestUsage(api *fakeUsageAPI) *UsageUsecase {
	return NewUsageUsecase(UsageUsecaseDeps{
		Store: in_memory.NewStore(),
		API:   api,
	}, config.Chat{TrialLimit: 10}, testLogger())
}

func TestRefreshMirrorsStats(t *testing.T) {
	ctx := context.Background()
	u := newTestUsage(&fakeUsageAPI{
		stats: model.UsageStats{InteractionCount: 4, TrialRemaining: 6},
	})

	stats, err := u.Refresh(ctx, "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.InteractionCount != 4 {
		t.Errorf("stats = %+v", stats)
	}

	cached, err := u.Cached(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cached != stats {
		t.Errorf("cached = %+v, want mirror of %+v", cached, stats)
	}
}

func TestRefreshFailureDoesNotTouchMirror(t *testing.T) {
	ctx := context.Background()
	u := newTestUsage(&fakeUsageAPI{err: errors.New("backend down")})

	if _, err := u.Refresh(ctx, "anon_u1"); err == nil {
		t.Fatal("expected refresh error")
	}
	cached, err := u.Cached(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cached != (model.UsageStats{}) {
		t.Errorf("cached = %+v, want zero", cached)
	}
}

func TestObserveNudgesOnceAtLowWater(t *testing.T) {
	ctx := context.Background()
	u := newTestUsage(&fakeUsageAPI{})

	nudge, err := u.Observe(ctx, model.UsageStats{TrialRemaining: 4})
	if err != nil || nudge {
		t.Fatalf("above low water: nudge = %v, err = %v", nudge, err)
	}

	nudge, err = u.Observe(ctx, model.UsageStats{TrialRemaining: 3})
	if err != nil || !nudge {
		t.Fatalf("at low water: nudge = %v, err = %v", nudge, err)
	}

	nudge, err = u.Observe(ctx, model.UsageStats{TrialRemaining: 2})
	if err != nil || nudge {
		t.Fatalf("repeat nudge fired: %v, err = %v", nudge, err)
	}
}

func TestObserveIgnoresRegisteredUsers(t *testing.T) {
	ctx := context.Background()
	u := newTestUsage(&fakeUsageAPI{})

	nudge, err := u.Observe(ctx, model.UsageStats{TrialRemaining: 0, IsRegistered: true})
	if err != nil || nudge {
		t.Fatalf("registered user nudged: %v, err = %v", nudge, err)
	}
}

func TestResetPromptReArmsNudge(t *testing.T) {
	ctx := context.Background()
	u := newTestUsage(&fakeUsageAPI{})

	if _, err := u.Observe(ctx, model.UsageStats{TrialRemaining: 1}); err != nil {
		t.Fatal(err)
	}
	if err := u.ResetPrompt(ctx); err != nil {
		t.Fatal(err)
	}
	nudge, err := u.Observe(ctx, model.UsageStats{TrialRemaining: 1})
	if err != nil || !nudge {
		t.Fatalf("nudge not re-armed: %v, err = %v", nudge, err)
	}
}

func TestHardStopMarksPrompt(t *testing.T) {
	ctx := context.Background()
	u := newTestUsage(&fakeUsageAPI{})

	if err := u.HardStop(ctx); err != nil {
		t.Fatal(err)
	}
	nudge, err := u.Observe(ctx, model.UsageStats{TrialRemaining: 1})
	if err != nil || nudge {
		t.Fatalf("soft nudge fired after hard stop: %v, err = %v", nudge, err)
	}
}

func TestLowWaterFloor(t *testing.T) {
	u := NewUsageUsecase(UsageUsecaseDeps{
		Store: in_memory.NewStore(),
		API:   &fakeUsageAPI{},
	}, config.Chat{TrialLimit: 2}, testLogger())

	if u.lowWater != 1 {
		t.Errorf("lowWater = %d, want floor of 1", u.lowWater)
	}
}
