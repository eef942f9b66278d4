// Package device is the OS-facing access layer: enumerating disk
// nodes, querying media geometry and identity ioctls, and opening the
// passthrough transports the probes talk through. Everything above
// this package is portable; the FreeBSD syscall plumbing lives behind
// the System interface so the resolver and probes are tested against
// fakes on any platform.
package device

import (
	"errors"

	"github.com/drvkit/drvlist/internal/probe"
)

// ErrTransportUnavailable reports that a device node exists but could
// not be reached through the SCSI/CAM transport. Callers fall back to
// the raw device node.
var ErrTransportUnavailable = errors.New("transport unavailable")

// ErrNotSupported reports that device access is not implemented on
// this platform.
var ErrNotSupported = errors.New("device access not supported on this platform")

// System is the complete OS surface the resolver consumes. Names are
// bare device names without the "/dev/" prefix.
type System interface {
	// List enumerates the system's disk device names.
	List() ([]string, error)

	// MediaSize returns the device's media size in bytes.
	MediaSize(name string) (int64, error)

	// PhysPath returns the device's physical path string, or an
	// empty string when the device has none.
	PhysPath(name string) (string, error)

	// RawIdent returns the device identifier through the generic
	// disk ident ioctl.
	RawIdent(name string) (string, error)

	// OpenCAM opens the device through the SCSI/CAM passthrough
	// transport. ErrTransportUnavailable means the device is not
	// CAM-attached.
	OpenCAM(name string) (CAMDevice, error)

	// OpenNVMe opens an NVMe controller node for admin commands.
	OpenNVMe(name string) (NVMeDevice, error)
}

// CAMDevice is an open CAM passthrough handle. The identification
// data is collected when the device is opened; SIM and Address expose
// the controller and bus topology behind it.
type CAMDevice interface {
	probe.CAMIdentity
	probe.ATACommander

	// SIM returns the controller driver name, its unit number and
	// the bus id the device hangs off.
	SIM() (name string, unit, bus uint32)

	// Address returns the device's bus/target/lun address.
	Address() (path, target uint32, lun uint64)

	Close() error
}

// NVMeDevice is an open NVMe controller handle.
type NVMeDevice interface {
	probe.NVMeAdmin

	Close() error
}
