// Package report renders scan results as JSON and persists scan records to
// the optional history sinks.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
)

// Indent is the indentation used for stdout reports and the history file.
const Indent = "    "

// ErrorReport is the document written when a run fails.
type ErrorReport struct {
	Error string `json:"error"`
}

// WriteDevices writes devices as an indented JSON array. No devices yields "[]".
func WriteDevices(w io.Writer, devices []*fingerprint.Device) error {
	if devices == nil {
		devices = []*fingerprint.Device{}
	}
	for _, d := range devices {
		normalize(d)
	}
	return writeJSON(w, devices)
}

// WriteError writes {"error": msg}.
func WriteError(w io.Writer, msg string) error {
	return writeJSON(w, ErrorReport{Error: msg})
}

// normalize keeps list fields serialising as arrays and the OS non-empty.
func normalize(d *fingerprint.Device) {
	if d == nil {
		return
	}
	if d.Hostnames == nil {
		d.Hostnames = []string{}
	}
	if d.OpenPorts == nil {
		d.OpenPorts = []int{}
	}
	if d.OS == "" {
		d.OS = fingerprint.UnknownOS
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", Indent)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
