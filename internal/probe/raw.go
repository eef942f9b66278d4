package probe

import (
	"errors"
	"fmt"
)

// Identer exposes the generic device-identification ioctl available on
// any disk node, used when no protocol transport could be opened.
type Identer interface {
	DeviceIdent() (string, error)
}

// IdentFunc adapts a plain lookup function to the Identer interface.
type IdentFunc func() (string, error)

func (f IdentFunc) DeviceIdent() (string, error) { return f() }

// RawIdent obtains a serial-equivalent token through the generic
// identification ioctl. It yields identity only; vendor, product and
// revision stay unknown for devices only reachable this way.
func RawIdent(dev Identer) Outcome {
	id, err := dev.DeviceIdent()
	if err != nil {
		return failed(fmt.Errorf("device ident: %w", err))
	}
	if id == "" {
		return failed(errors.New("device ident: empty identifier"))
	}
	return Outcome{Status: Identified, Identity: id}
}
