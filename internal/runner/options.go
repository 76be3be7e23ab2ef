package runner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	envutil "github.com/projectdiscovery/utils/env"

	"github.com/marcuoli/go-netsweep/pkg/netsweep"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/report"
)

var (
	MongoURIEnv = envutil.GetEnvOrDefault("MONGO_URI", "")
	MongoDBEnv  = envutil.GetEnvOrDefault("DB_NAME", report.DefaultMongoDatabase)
	NmapPathEnv = envutil.GetEnvOrDefault("NETSWEEP_NMAP_PATH", "")
	OUIDBEnv    = envutil.GetEnvOrDefault("NETSWEEP_OUI_DB", "")
)

// Options contains the configuration options for a sweep.
type Options struct {
	LocalIP   string
	Interface string

	PingMethod   string
	Privileged   bool
	PingTimeout  time.Duration
	SweepWorkers int

	Ports              string
	FingerprintWorkers int
	FingerprintTimeout time.Duration
	NmapPath           string
	SkipFingerprint    bool

	MAC   bool
	OUIDB string
	RDNS  bool
	MDNS  bool
	LLMNR bool
	SSDP  bool
	TTLOS bool

	Output          string
	MongoURI        string
	MongoDB         string
	MongoCollection string

	Verbose bool
	Debug   bool
	Silent  bool
	NoColor bool
	Version bool
}

// DefaultOptions returns the options used when no flag is given.
func DefaultOptions() *Options {
	return &Options{
		PingMethod:         string(ping.MethodExec),
		PingTimeout:        ping.DefaultTimeout,
		SweepWorkers:       ping.DefaultWorkers,
		Ports:              fingerprint.DefaultPorts,
		FingerprintWorkers: fingerprint.DefaultWorkers,
		MongoDB:            report.DefaultMongoDatabase,
		MongoCollection:    report.DefaultMongoCollection,
	}
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`netsweep finds the live hosts of the local /24 and fingerprints them with nmap`)

	flagSet.CreateGroup("target", "Target",
		flagSet.StringVar(&options.LocalIP, "ip", "", "local IPv4 address to sweep around (skips resolution)"),
		flagSet.StringVarP(&options.Interface, "interface", "i", "", "resolve the local address from this network interface"),
	)

	flagSet.CreateGroup("sweep", "Sweep",
		flagSet.StringVarP(&options.PingMethod, "ping-method", "pm", string(ping.MethodExec), "liveness probe method (exec, icmp)"),
		flagSet.BoolVar(&options.Privileged, "privileged", false, "use a raw ICMP socket with -pm icmp"),
		flagSet.DurationVarP(&options.PingTimeout, "ping-timeout", "pt", ping.DefaultTimeout, "time to wait for an echo reply"),
		flagSet.IntVarP(&options.SweepWorkers, "sweep-workers", "sw", ping.DefaultWorkers, "number of concurrent ping probes"),
	)

	flagSet.CreateGroup("fingerprint", "Fingerprint",
		flagSet.StringVarP(&options.Ports, "ports", "p", fingerprint.DefaultPorts, "port window handed to nmap"),
		flagSet.IntVarP(&options.FingerprintWorkers, "fingerprint-workers", "fw", fingerprint.DefaultWorkers, "number of concurrent nmap scans"),
		flagSet.DurationVarP(&options.FingerprintTimeout, "fingerprint-timeout", "ft", 0, "per-host nmap timeout (0 = none)"),
		flagSet.StringVar(&options.NmapPath, "nmap-path", NmapPathEnv, "nmap binary to use"),
		flagSet.BoolVarP(&options.SkipFingerprint, "skip-fingerprint", "sf", false, "report live hosts without running nmap"),
	)

	flagSet.CreateGroup("enrich", "Enrichment",
		flagSet.BoolVar(&options.MAC, "mac", false, "resolve missing MAC addresses over ARP"),
		flagSet.StringVar(&options.OUIDB, "oui-db", OUIDBEnv, "IEEE oui.txt used to name MAC vendors"),
		flagSet.BoolVar(&options.RDNS, "rdns", false, "add hostnames from reverse DNS"),
		flagSet.BoolVar(&options.MDNS, "mdns", false, "add hostnames answered over mDNS"),
		flagSet.BoolVar(&options.LLMNR, "llmnr", false, "add hostnames answered over LLMNR"),
		flagSet.BoolVar(&options.SSDP, "ssdp", false, "fill unknown OS from UPnP SERVER headers"),
		flagSet.BoolVar(&options.TTLOS, "ttl-os", false, "fill unknown OS from the echo reply TTL"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&options.Output, "output", "o", "", "append the scan record to this JSON history file"),
		flagSet.StringVar(&options.MongoURI, "mongo-uri", MongoURIEnv, "save the scan record to this MongoDB"),
		flagSet.StringVar(&options.MongoDB, "mongo-db", MongoDBEnv, "MongoDB database"),
		flagSet.StringVar(&options.MongoCollection, "mongo-collection", report.DefaultMongoCollection, "MongoDB collection"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Debug, "debug", false, "show per-host probe detail"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only the JSON report"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	options.configureOutput()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", netsweep.VersionInfo())
		os.Exit(0)
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	if options.Verbose || options.Debug {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}

// Validate checks option values that the flag parser cannot.
func (options *Options) Validate() error {
	var errs []error

	switch ping.Method(options.PingMethod) {
	case ping.MethodExec, ping.MethodICMP:
	default:
		errs = append(errs, fmt.Errorf("invalid ping method %q (want %s or %s)", options.PingMethod, ping.MethodExec, ping.MethodICMP))
	}
	if options.Privileged && ping.Method(options.PingMethod) != ping.MethodICMP {
		errs = append(errs, errors.New("-privileged requires -ping-method icmp"))
	}
	if options.LocalIP != "" && options.Interface != "" {
		errs = append(errs, errors.New("-ip and -interface are mutually exclusive"))
	}
	if options.PingTimeout <= 0 {
		errs = append(errs, errors.New("ping timeout must be positive"))
	}
	if options.SweepWorkers <= 0 {
		errs = append(errs, errors.New("sweep workers must be positive"))
	}
	if options.FingerprintWorkers <= 0 {
		errs = append(errs, errors.New("fingerprint workers must be positive"))
	}
	if options.FingerprintTimeout < 0 {
		errs = append(errs, errors.New("fingerprint timeout must not be negative"))
	}
	if strings.TrimSpace(options.Ports) == "" {
		errs = append(errs, errors.New("port window is empty"))
	}
	return errors.Join(errs...)
}
