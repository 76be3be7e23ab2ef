package netsweep

import (
	"github.com/marcuoli/go-netsweep/pkg/netsweep/arp"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/llmnr"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/localaddr"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/mdns"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/osdetect"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/oui"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/rdns"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/report"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ssdp"
)

// Subpackage debug output is per host, so it is routed at verbose level.
// Sink saves happen once per run and are logged at basic level.
func init() {
	localaddr.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageResolve, format, args...)
	}
	ping.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageSweep, format, args...)
	}
	fingerprint.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageFingerprint, format, args...)
	}
	arp.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageARP, format, args...)
	}
	oui.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageVendor, format, args...)
	}
	rdns.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageDNS, format, args...)
	}
	mdns.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageMDNS, format, args...)
	}
	llmnr.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageLLMNR, format, args...)
	}
	ssdp.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageSSDP, format, args...)
	}
	osdetect.DebugLogger = func(format string, args ...interface{}) {
		debugLogVerbose(StageOSDetect, format, args...)
	}
	report.DebugLogger = func(format string, args ...interface{}) {
		debugLog(StageReport, format, args...)
	}
}
