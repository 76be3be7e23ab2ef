package report

import (
	"time"

	"github.com/rs/xid"

	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
)

// Stats aggregates the skip counters of both phases.
type Stats struct {
	Sweep       ping.Stats        `json:"sweep" bson:"sweep"`
	Fingerprint fingerprint.Stats `json:"fingerprint" bson:"fingerprint"`
}

// ScanRecord is one run as stored by the sinks.
type ScanRecord struct {
	ScanID    string                `json:"scan_id" bson:"scan_id"`
	Timestamp time.Time             `json:"timestamp" bson:"timestamp"`
	LocalIP   string                `json:"local_ip" bson:"local_ip"`
	Subnet    string                `json:"subnet" bson:"subnet"`
	Devices   []*fingerprint.Device `json:"devices" bson:"devices"`
	Stats     Stats                 `json:"stats" bson:"stats"`
}

// NewScanRecord starts a record with a fresh scan ID and the current UTC time.
func NewScanRecord(localIP, subnet string) *ScanRecord {
	return &ScanRecord{
		ScanID:    xid.New().String(),
		Timestamp: time.Now().UTC(),
		LocalIP:   localIP,
		Subnet:    subnet,
		Devices:   []*fingerprint.Device{},
	}
}
