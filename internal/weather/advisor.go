package weather

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/pkg/logger"
)

// Provider is the pair of weather endpoints the advisor consults.
type Provider interface {
	Current(ctx context.Context, at model.Coordinates) (string, error)
	Forecast(ctx context.Context, at model.Coordinates) ([]Sample, error)
}

var adverseConditions = map[string]bool{
	"Rain":         true,
	"Snow":         true,
	"Thunderstorm": true,
}

// IsAdverse reports whether a condition label rules out outdoor plans.
func IsAdverse(condition string) bool {
	return adverseConditions[condition]
}

// Advisor decides whether outdoor plans should move indoors.
type Advisor struct {
	provider Provider
	timeout  time.Duration
	logger   *logger.Logger
}

// NewAdvisor creates an advisor. Every lookup is bounded by timeout.
func NewAdvisor(provider Provider, timeout time.Duration, log *logger.Logger) *Advisor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = logger.Global()
	}
	return &Advisor{provider: provider, timeout: timeout, logger: log}
}

// Adverse fails open: lookup errors and timeouts are logged and read as
// "no adverse condition".
func (a *Advisor) Adverse(ctx context.Context, at model.Coordinates, target time.Time, future bool) bool {
	condition, err := a.Condition(ctx, at, target, future)
	if err != nil {
		a.logger.Warn("weather lookup failed, skipping advisory",
			zap.Error(err),
			zap.Bool("forecast", future),
		)
		return false
	}
	return IsAdverse(condition)
}

// Condition returns the label for target: the closest forecast sample when
// target is in the future, current conditions otherwise.
func (a *Advisor) Condition(ctx context.Context, at model.Coordinates, target time.Time, future bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if !future {
		return a.provider.Current(ctx, at)
	}

	samples, err := a.provider.Forecast(ctx, at)
	if err != nil {
		return "", err
	}
	closest, ok := Closest(samples, target)
	if !ok {
		return "", fmt.Errorf("no forecast samples: %w", ErrMalformed)
	}
	return closest.Condition, nil
}

// Closest picks the sample with the minimum absolute distance to target.
// Earlier samples win ties.
func Closest(samples []Sample, target time.Time) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}
	best := samples[0]
	bestDiff := absDuration(best.Time.Sub(target))
	for _, s := range samples[1:] {
		if d := absDuration(s.Time.Sub(target)); d < bestDiff {
			best, bestDiff = s, d
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
