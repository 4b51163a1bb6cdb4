// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for runs and fills.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRunStarted logs the start of a backtest run.
func (al *AuditLogger) LogRunStarted(runID, configHash string, pairs, bars int, initialCapital float64) {
	al.WithFields(logrus.Fields{
		"run_id":          runID,
		"config_hash":     configHash,
		"pairs":           pairs,
		"bars":            bars,
		"initial_capital": initialCapital,
	}).Info("Backtest run started")
}

// LogFill logs one executed leg.
func (al *AuditLogger) LogFill(fillID, pairID, instrument, side string, quantity, price, commission float64, at time.Time) {
	al.WithFields(logrus.Fields{
		"fill_id":    fillID,
		"pair_id":    pairID,
		"instrument": instrument,
		"side":       side,
		"quantity":   quantity,
		"price":      price,
		"commission": commission,
		"timestamp":  at.Unix(),
	}).Debug("Fill recorded")
}

// LogRunCompleted logs the end of a backtest run.
func (al *AuditLogger) LogRunCompleted(runID string, finalEquity float64, trades, fills int, interrupted bool, duration time.Duration) {
	al.WithFields(logrus.Fields{
		"run_id":       runID,
		"final_equity": finalEquity,
		"trades":       trades,
		"fills":        fills,
		"interrupted":  interrupted,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Backtest run completed")
}
