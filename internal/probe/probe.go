// Package probe implements the protocol-specific identify probes. A
// probe talks exactly one wire protocol (SCSI/CAM inquiry, ATA
// identify, NVMe admin identify, or the raw ident ioctl), issues at
// most one passthrough command (plus one alternate-opcode retry for
// ATA) and extracts the drive's identity token and descriptive strings
// from the response. Probes never write to the device.
package probe

import "errors"

// Status classifies a probe attempt.
type Status int

const (
	// Identified means the probe obtained an identify response.
	Identified Status = iota
	// NotApplicable means the device speaks a different protocol;
	// the caller should move on to the next probe.
	NotApplicable
	// Failed means the command was issued but the device reported an
	// error or returned a malformed response. This path contributes
	// nothing to the drive record.
	Failed
)

func (s Status) String() string {
	switch s {
	case Identified:
		return "identified"
	case NotApplicable:
		return "not applicable"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrRejected is returned by a transport when the device refused the
// command itself (as opposed to the transport failing). For ATA this
// drives the identify-opcode retry and the NotApplicable outcome.
var ErrRejected = errors.New("command rejected by device")

// Outcome is the result of one probe attempt.
type Outcome struct {
	Status Status

	// Identity is the hardware serial token. Probes that rely on the
	// transport-supplied serial (ATA enrichment) leave it empty.
	Identity string

	Vendor   string
	Product  string
	Revision string

	// Err holds the cause when Status is Failed.
	Err error
}

func failed(err error) Outcome {
	return Outcome{Status: Failed, Err: err}
}
