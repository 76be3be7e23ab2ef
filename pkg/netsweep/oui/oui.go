// Package oui resolves MAC addresses to vendor names using an IEEE OUI
// database file (the oui.txt published by the IEEE registration authority).
package oui

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/klauspost/oui"
)

// ErrInvalidMAC is returned for strings that are not 48-bit MAC addresses.
var ErrInvalidMAC = errors.New("invalid MAC address")

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from OUI operations.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// VendorInfo contains information about a MAC address vendor.
type VendorInfo struct {
	Manufacturer string
	Address      []string
	Country      string
	Prefix       string
}

// Resolver looks up vendors in a loaded OUI database.
type Resolver struct {
	path string
	db   oui.OuiDB
}

// Open loads the OUI database at path into memory.
func Open(path string) (*Resolver, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("OUI database %s: %w", path, err)
	}
	debugLog("Loading OUI database from: %s", path)
	db, err := oui.OpenStaticFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OUI database: %w", err)
	}
	return &Resolver{path: path, db: db}, nil
}

// Path returns the database file the resolver was loaded from.
func (r *Resolver) Path() string {
	return r.path
}

// Lookup returns the vendor of a MAC address, or nil when the prefix is not
// registered. The MAC address can be "00:11:22:33:44:55", "00-11-22-33-44-55"
// or "001122334455".
func (r *Resolver) Lookup(mac string) (*VendorInfo, error) {
	normalized := NormalizeMAC(mac)
	if normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	hwAddr, err := net.ParseMAC(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMAC, err)
	}

	entry, err := r.db.Query(hwAddr.String())
	if err != nil {
		if errors.Is(err, oui.ErrNotFound) {
			debugLog("%s: vendor not found in database", normalized)
			return nil, nil
		}
		return nil, fmt.Errorf("OUI lookup failed: %w", err)
	}

	vendor := &VendorInfo{
		Manufacturer: entry.Manufacturer,
		Address:      entry.Address,
		Country:      entry.Country,
		Prefix:       entry.Prefix.String(),
	}
	debugLog("%s -> %s", normalized, vendor.Manufacturer)
	return vendor, nil
}

// LookupName returns just the manufacturer name, or "" if unknown.
func (r *Resolver) LookupName(mac string) string {
	vendor, err := r.Lookup(mac)
	if err != nil || vendor == nil {
		return ""
	}
	return vendor.Manufacturer
}

// NormalizeMAC normalizes various MAC address formats to lowercase
// colon-separated form. Returns empty string if invalid.
func NormalizeMAC(mac string) string {
	mac = strings.ToLower(mac)
	mac = strings.ReplaceAll(mac, "-", "")
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, ".", "")

	if len(mac) != 12 {
		return ""
	}
	for _, c := range mac {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return ""
		}
	}

	return fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		mac[0:2], mac[2:4], mac[4:6], mac[6:8], mac[8:10], mac[10:12])
}
