package netsweep

// Log prefix constants for pipeline stages.
// Format follows [Component] or [Component:Subcomponent] pattern.
const (
	LogPrefixSweep = "[Sweep]"

	LogPrefixResolve     = "[Sweep:Resolve]"
	LogPrefixPing        = "[Sweep:Ping]"
	LogPrefixFingerprint = "[Sweep:Nmap]"
	LogPrefixARP         = "[Sweep:ARP]"
	LogPrefixVendor      = "[Sweep:OUI]"
	LogPrefixDNS         = "[Sweep:DNS]"
	LogPrefixMDNS        = "[Sweep:mDNS]"
	LogPrefixLLMNR       = "[Sweep:LLMNR]"
	LogPrefixSSDP        = "[Sweep:SSDP]"
	LogPrefixOSDetect    = "[Sweep:OSDetect]"
	LogPrefixReport      = "[Sweep:Report]"
)

// StageToPrefix returns the log prefix for a given stage.
// Consumers can use it in their debug logger callback.
func StageToPrefix(stage Stage) string {
	switch stage {
	case StageResolve:
		return LogPrefixResolve
	case StageSweep:
		return LogPrefixPing
	case StageFingerprint:
		return LogPrefixFingerprint
	case StageARP:
		return LogPrefixARP
	case StageVendor:
		return LogPrefixVendor
	case StageDNS:
		return LogPrefixDNS
	case StageMDNS:
		return LogPrefixMDNS
	case StageLLMNR:
		return LogPrefixLLMNR
	case StageSSDP:
		return LogPrefixSSDP
	case StageOSDetect:
		return LogPrefixOSDetect
	case StageReport:
		return LogPrefixReport
	default:
		return LogPrefixSweep
	}
}
