package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	"github.com/trackcqishibee-web/locallife-assistant/internal/storage"
)

// UsageAPI is the backend usage counter surface.
type UsageAPI interface {
	GetUsage(ctx context.Context, userID string) (model.UsageStats, error)
}

type UsageUsecaseDeps struct {
	Store storage.Store
	API   UsageAPI
}

// UsageUsecase mirrors backend interaction counters and decides when to
// nudge an anonymous user toward registration. The nudge fires once per
// anonymous identity; a hard trial stop always repeats it.
type UsageUsecase struct {
	UsageUsecaseDeps
	lowWater int
	logger   *slog.Logger
}

func NewUsageUsecase(deps UsageUsecaseDeps, cfg config.Chat, logger *slog.Logger) *UsageUsecase {
	lowWater := cfg.TrialLimit / 3
	if lowWater < 1 {
		lowWater = 1
	}
	return &UsageUsecase{
		UsageUsecaseDeps: deps,
		lowWater:         lowWater,
		logger:           logger,
	}
}

// Refresh fetches the counters for userID and mirrors them locally so the
// last known state survives offline starts.
func (u *UsageUsecase) Refresh(ctx context.Context, userID string) (model.UsageStats, error) {
	stats, err := u.API.GetUsage(ctx, userID)
	if err != nil {
		return model.UsageStats{}, fmt.Errorf("failed to fetch usage: %w", err)
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return model.UsageStats{}, fmt.Errorf("failed to marshal usage: %w", err)
	}
	if err := u.Store.Set(ctx, storage.KeyUsageStats, raw); err != nil {
		return model.UsageStats{}, fmt.Errorf("failed to save usage: %w", err)
	}
	return stats, nil
}

// Cached returns the last mirrored counters, zero stats when none exist.
func (u *UsageUsecase) Cached(ctx context.Context) (model.UsageStats, error) {
	raw, err := u.Store.Get(ctx, storage.KeyUsageStats)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return model.UsageStats{}, nil
		}
		return model.UsageStats{}, fmt.Errorf("failed to load usage: %w", err)
	}
	var stats model.UsageStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return model.UsageStats{}, fmt.Errorf("failed to unmarshal usage: %w", err)
	}
	return stats, nil
}

// Observe inspects fresh turn stats and reports whether a registration
// nudge should be shown now. Registered users never see one.
func (u *UsageUsecase) Observe(ctx context.Context, stats model.UsageStats) (bool, error) {
	if stats.IsRegistered {
		return false, nil
	}
	if stats.TrialRemaining > u.lowWater {
		return false, nil
	}
	prompted, err := u.prompted(ctx)
	if err != nil {
		return false, err
	}
	if prompted {
		return false, nil
	}
	if err := u.Store.Set(ctx, storage.KeyRegistrationPrompted, []byte("1")); err != nil {
		return false, fmt.Errorf("failed to mark registration prompt: %w", err)
	}
	u.logger.Info("showing registration nudge", "trial_remaining", stats.TrialRemaining)
	return true, nil
}

// HardStop records that the trial is exhausted. Unlike Observe, the
// prompt fires even when the soft nudge was already shown.
func (u *UsageUsecase) HardStop(ctx context.Context) error {
	if err := u.Store.Set(ctx, storage.KeyRegistrationPrompted, []byte("1")); err != nil {
		return fmt.Errorf("failed to mark registration prompt: %w", err)
	}
	return nil
}

// ResetPrompt clears the nudge marker, called when the identity changes.
func (u *UsageUsecase) ResetPrompt(ctx context.Context) error {
	if err := u.Store.Delete(ctx, storage.KeyRegistrationPrompted); err != nil {
		return fmt.Errorf("failed to clear registration prompt: %w", err)
	}
	return nil
}

func (u *UsageUsecase) prompted(ctx context.Context) (bool, error) {
	_, err := u.Store.Get(ctx, storage.KeyRegistrationPrompted)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load registration prompt marker: %w", err)
	}
	return true, nil
}
