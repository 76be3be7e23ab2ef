package netsweep

import "sync"

// DebugLevel represents the verbosity level for debug logging.
type DebugLevel int

const (
	// DebugOff disables all debug logging.
	DebugOff DebugLevel = iota
	// DebugBasic logs pipeline progress (phase start/complete, skips).
	DebugBasic
	// DebugVerbose also logs per-host probe detail from the subpackages.
	DebugVerbose
)

// DebugLogger is a callback function for debug logging.
// The stage parameter indicates which pipeline step generated the message.
type DebugLogger func(stage Stage, format string, args ...interface{})

var (
	debugLogger DebugLogger
	debugLevel  DebugLevel
	debugMu     sync.RWMutex
)

// SetDebugLogger sets a custom debug logger callback.
// Pass nil to disable debug logging.
func SetDebugLogger(logger DebugLogger) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugLogger = logger
}

// SetDebugLevel sets the debug verbosity level.
func SetDebugLevel(level DebugLevel) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugLevel = level
}

// GetDebugLevel returns the current debug level.
func GetDebugLevel() DebugLevel {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugLevel
}

func logAt(min DebugLevel, stage Stage, format string, args ...interface{}) {
	debugMu.RLock()
	logger := debugLogger
	level := debugLevel
	debugMu.RUnlock()

	if logger != nil && level >= min {
		logger(stage, format, args...)
	}
}

// debugLog logs a message if debug logging is enabled.
func debugLog(stage Stage, format string, args ...interface{}) {
	logAt(DebugBasic, stage, format, args...)
}

// debugLogVerbose logs a message if verbose debug logging is enabled.
func debugLogVerbose(stage Stage, format string, args ...interface{}) {
	logAt(DebugVerbose, stage, format, args...)
}
