package cointegration

import (
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pairs-trader/internal/models"
)

// ScreenUniverse evaluates each candidate over the bars and returns the
// cointegrated pairs sorted by half-life ascending, truncated to MaxPairs.
// Candidates lacking history are skipped.
func ScreenUniverse(ev Evaluator, bars []models.Bar, candidates []models.Pair, cfg Config, logger *logrus.Logger) ([]Result, error) {
	if logger == nil {
		logger = logrus.New()
	}
	accepted := make([]Result, 0, len(candidates))
	for _, pair := range candidates {
		a, b := models.Align(models.SeriesFromBars(bars, pair.A), models.SeriesFromBars(bars, pair.B))
		res, err := ev.Evaluate(pair, a, b, cfg.Window)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientData) || errors.Is(err, models.ErrMisaligned) {
				logger.WithFields(logrus.Fields{"pair": pair.ID(), "error": err}).Debug("Skipping candidate")
				continue
			}
			return nil, err
		}
		if res.Cointegrated {
			accepted = append(accepted, res)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].HalfLife == accepted[j].HalfLife {
			return accepted[i].Pair.ID() < accepted[j].Pair.ID()
		}
		return accepted[i].HalfLife < accepted[j].HalfLife
	})
	if cfg.MaxPairs > 0 && len(accepted) > cfg.MaxPairs {
		accepted = accepted[:cfg.MaxPairs]
	}

	logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"accepted":   len(accepted),
	}).Info("Universe screened")
	return accepted, nil
}

// RollingCheck re-evaluates a pair every step observations over a sliding
// window, for monitoring whether the relationship holds.
func RollingCheck(ev Evaluator, pair models.Pair, a, b models.PriceSeries, window, step int) ([]Result, error) {
	if step <= 0 {
		step = 1
	}
	if len(a) != len(b) {
		return nil, models.Errorf(models.ErrMisaligned, "lengths %d and %d differ", len(a), len(b))
	}
	var results []Result
	for end := window; end <= len(a); end += step {
		res, err := ev.Evaluate(pair, a[end-window:end], b[end-window:end], window)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientData) {
				continue
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
