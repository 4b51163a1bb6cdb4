// Package logger provides pair lifecycle logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PairLogger provides dedicated logging for per-pair trading events.
type PairLogger struct {
	*logrus.Entry
}

// NewPairLogger creates a new pair logger.
func NewPairLogger(baseLogger *logrus.Logger) *PairLogger {
	return &PairLogger{
		Entry: baseLogger.WithField("component", "pairs"),
	}
}

// LogScreenResult logs a cointegration screen outcome.
func (pl *PairLogger) LogScreenResult(pairID string, at time.Time, statistic, halfLife, hedgeRatio float64, cointegrated bool, reason string) {
	pl.WithFields(logrus.Fields{
		"pair_id":      pairID,
		"bar_time":     at.Format(time.RFC3339),
		"statistic":    statistic,
		"half_life":    halfLife,
		"hedge_ratio":  hedgeRatio,
		"cointegrated": cointegrated,
		"reason":       reason,
	}).Info("Pair screened")
}

// LogEntry logs a position opening.
func (pl *PairLogger) LogEntry(pairID, direction string, at time.Time, zScore, units, notional, hedgeRatio float64) {
	pl.WithFields(logrus.Fields{
		"pair_id":     pairID,
		"direction":   direction,
		"bar_time":    at.Format(time.RFC3339),
		"z_score":     zScore,
		"units":       units,
		"notional":    notional,
		"hedge_ratio": hedgeRatio,
	}).Info("Position opened")
}

// LogExit logs a position closing.
func (pl *PairLogger) LogExit(pairID, reason string, at time.Time, zScore, pnl float64, barsHeld int) {
	pl.WithFields(logrus.Fields{
		"pair_id":   pairID,
		"reason":    reason,
		"bar_time":  at.Format(time.RFC3339),
		"z_score":   zScore,
		"pnl":       pnl,
		"bars_held": barsHeld,
	}).Info("Position closed")
}

// LogFilterReset logs a hedge-ratio filter reset after divergence.
func (pl *PairLogger) LogFilterReset(pairID string, at time.Time, cause error) {
	pl.WithFields(logrus.Fields{
		"pair_id":  pairID,
		"bar_time": at.Format(time.RFC3339),
		"error":    cause.Error(),
	}).Warn("Hedge-ratio filter reset")
}

// LogKillSwitch logs a kill switch state change.
func (pl *PairLogger) LogKillSwitch(at time.Time, tripped bool, drawdown float64) {
	pl.WithFields(logrus.Fields{
		"bar_time": at.Format(time.RFC3339),
		"tripped":  tripped,
		"drawdown": drawdown,
	}).Warn("Kill switch state changed")
}

// LogSkip logs a pair skipped for one bar.
func (pl *PairLogger) LogSkip(pairID string, at time.Time, reason string) {
	pl.WithFields(logrus.Fields{
		"pair_id":  pairID,
		"bar_time": at.Format(time.RFC3339),
		"reason":   reason,
	}).Debug("Pair skipped for bar")
}
