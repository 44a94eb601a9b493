// Package jlog is the kernel's shared logging adapter. Every package that
// needs operational logging (as opposed to the rollup debug-log protocol
// output written by api.Console and oracle.Publish) logs through here.
package jlog

import "github.com/echa/log"

// logger is initialized with no output filters so the kernel stays silent
// until a host embedding it opts in.
var logger log.Logger = log.Log

func init() {
	DisableLog()
}

// DisableLog disables all kernel log output. This is the default.
func DisableLog() {
	logger = log.Disabled
}

// UseLogger installs l as the kernel's logger.
func UseLogger(l log.Logger) {
	logger = l
}

// Logger returns the currently installed logger so callers can check
// its level before doing expensive formatting work.
func Logger() log.Logger {
	return logger
}

func Debugf(format string, args ...any) { logger.Debugf(format, args...) }
func Infof(format string, args ...any)  { logger.Infof(format, args...) }
func Warnf(format string, args ...any)  { logger.Warnf(format, args...) }
func Errorf(format string, args ...any) { logger.Errorf(format, args...) }
