// Package osdetect guesses an operating-system family from the TTL of an
// echo reply.
//
// Network stacks start packets at a small set of initial TTLs (32, 64, 128,
// 255) and every router hop decrements it, so the observed TTL rounded up to
// the next initial value hints at the sender's stack:
//   - 64:  Linux, BSD, macOS, most embedded Linux
//   - 128: Windows NT family
//   - 255: routers, switches, Solaris/AIX
//   - 32:  legacy Windows 9x/NT
package osdetect

// Hint is an OS guess derived from a reply TTL.
type Hint struct {
	ObservedTTL int
	OriginalTTL int
	OS          string // Human-readable guess, "" when nothing can be said
	Family      string // Windows, Unix, Network or ""
	Confidence  int    // 0-100
}

// DebugLogger is a callback for debug logging.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// EstimateOriginalTTL returns the initial TTL the sender most likely used.
func EstimateOriginalTTL(observed int) int {
	switch {
	case observed <= 0 || observed > 255:
		return 0
	case observed <= 32:
		return 32
	case observed <= 64:
		return 64
	case observed <= 128:
		return 128
	default:
		return 255
	}
}

// AnalyzeTTL returns the OS hint for an observed TTL. A zero Hint.OS means the
// TTL was unknown or out of range.
func AnalyzeTTL(observed int) Hint {
	h := Hint{ObservedTTL: observed, OriginalTTL: EstimateOriginalTTL(observed)}

	switch h.OriginalTTL {
	case 32:
		h.OS, h.Family, h.Confidence = "Windows 9x/NT (legacy)", "Windows", 60
	case 64:
		h.OS, h.Family, h.Confidence = "Linux/Unix/BSD/macOS", "Unix", 70
	case 128:
		h.OS, h.Family, h.Confidence = "Windows", "Windows", 80
	case 255:
		h.OS, h.Family, h.Confidence = "Network device (Cisco/Solaris)", "Network", 70
	}

	if h.OS != "" {
		debugLog("ttl %d -> initial %d, %s (%d%%)", observed, h.OriginalTTL, h.OS, h.Confidence)
	}
	return h
}

// Hops returns the number of router hops implied by the observed TTL, or -1
// when unknown.
func (h Hint) Hops() int {
	if h.OriginalTTL == 0 {
		return -1
	}
	return h.OriginalTTL - h.ObservedTTL
}
