// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package exchange

import "log"

// Logger is the minimal logging surface the façade and the default
// sub-client depend on. Implementations must be safe for concurrent
// use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. It is the default when no Logger is
// configured.
type NopLogger struct{}

// Debugf implements Logger.
func (NopLogger) Debugf(string, ...any) {}

// Infof implements Logger.
func (NopLogger) Infof(string, ...any) {}

// Warnf implements Logger.
func (NopLogger) Warnf(string, ...any) {}

// Errorf implements Logger.
func (NopLogger) Errorf(string, ...any) {}

// StdLogger adapts the standard library *log.Logger to Logger.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger wraps l.
func NewStdLogger(l *log.Logger) StdLogger {
	return StdLogger{Logger: l}
}

// Debugf implements Logger.
func (s StdLogger) Debugf(format string, args ...any) { s.Printf("DEBUG "+format, args...) }

// Infof implements Logger.
func (s StdLogger) Infof(format string, args ...any) { s.Printf("INFO "+format, args...) }

// Warnf implements Logger.
func (s StdLogger) Warnf(format string, args ...any) { s.Printf("WARN "+format, args...) }

// Errorf implements Logger.
func (s StdLogger) Errorf(format string, args ...any) { s.Printf("ERROR "+format, args...) }
