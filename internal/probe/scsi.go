package probe

import "github.com/drvkit/drvlist/internal/strutil"

// CAMIdentity is the slice of the transport handle the inquiry probe
// reads: the unit serial number and the standard inquiry data the
// transport collected when the device was opened.
type CAMIdentity interface {
	// Serial returns the device's unit serial number bytes,
	// fixed-length and space-padded.
	Serial() []byte

	// Inquiry returns the standard inquiry identification fields:
	// vendor (8 bytes), product (16 bytes) and revision (4 bytes),
	// space-padded ASCII.
	Inquiry() (vendor, product, revision []byte)
}

// Inquiry extracts identity and identification strings from a device
// reachable through the generic SCSI/CAM transport. It issues no
// command of its own: the transport already holds the inquiry response
// and serial, so the probe always succeeds once the transport opened.
func Inquiry(dev CAMIdentity) Outcome {
	vendor, product, revision := dev.Inquiry()
	return Outcome{
		Status:   Identified,
		Identity: strutil.FixedASCII(dev.Serial()),
		Vendor:   strutil.FixedASCII(vendor),
		Product:  strutil.FixedASCII(product),
		Revision: strutil.FixedASCII(revision),
	}
}
