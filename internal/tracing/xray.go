// Package tracing wraps backtest phases in AWS X-Ray segments.
package tracing

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-xray-sdk-go/strategy/ctxmissing"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/aws/aws-xray-sdk-go/xraylog"
	"github.com/sirupsen/logrus"
)

const defaultDaemonAddr = "127.0.0.1:2000"

// Config contains X-Ray configuration.
type Config struct {
	ServiceName string
	Enabled     bool
	DaemonAddr  string
}

// ConfigFromEnv reads XRAY_ENABLED and XRAY_DAEMON_ADDR.
func ConfigFromEnv(serviceName string) Config {
	addr := os.Getenv("XRAY_DAEMON_ADDR")
	if addr == "" {
		addr = defaultDaemonAddr
	}
	return Config{
		ServiceName: serviceName,
		Enabled:     os.Getenv("XRAY_ENABLED") == "true",
		DaemonAddr:  addr,
	}
}

// Logger adapter for X-Ray SDK.
type xrayLoggerAdapter struct {
	logger *logrus.Logger
}

func (l *xrayLoggerAdapter) Log(level xraylog.LogLevel, msg fmt.Stringer) {
	switch level {
	case xraylog.LogLevelDebug:
		l.logger.Debug(msg.String())
	case xraylog.LogLevelInfo:
		l.logger.Info(msg.String())
	case xraylog.LogLevelWarn:
		l.logger.Warn(msg.String())
	case xraylog.LogLevelError:
		l.logger.Error(msg.String())
	}
}

// Tracer opens segments when tracing is enabled. A nil or disabled Tracer
// runs the traced functions directly.
type Tracer struct {
	service string
	enabled bool
}

// Initialize configures X-Ray and returns a Tracer.
func Initialize(cfg Config, logger *logrus.Logger) (*Tracer, error) {
	t := &Tracer{service: cfg.ServiceName, enabled: cfg.Enabled}
	if !cfg.Enabled {
		return t, nil
	}
	if logger == nil {
		logger = logrus.New()
	}

	xray.SetLogger(&xrayLoggerAdapter{logger: logger})
	if err := xray.Configure(xray.Config{
		DaemonAddr:             cfg.DaemonAddr,
		ContextMissingStrategy: ctxmissing.NewDefaultLogErrorStrategy(),
	}); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"daemon_addr":  cfg.DaemonAddr,
		"service_name": cfg.ServiceName,
	}).Info("AWS X-Ray initialized")
	return t, nil
}

// Enabled reports whether segments are emitted.
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// Start opens the root segment of a command. The returned function closes it.
func (t *Tracer) Start(ctx context.Context, name string) (context.Context, func(error)) {
	if !t.Enabled() {
		return ctx, func(error) {}
	}
	ctx, seg := xray.BeginSegment(ctx, t.service+"."+name)
	return ctx, seg.Close
}

// Capture runs fn inside a subsegment of the current segment.
func (t *Tracer) Capture(ctx context.Context, name string, fn func(context.Context) error) error {
	if !t.Enabled() {
		return fn(ctx)
	}
	return xray.Capture(ctx, name, fn)
}

// Annotate adds an indexed annotation to the current segment.
func (t *Tracer) Annotate(ctx context.Context, key string, value any) {
	if !t.Enabled() {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.AddAnnotation(key, value)
	}
}
