//go:build !freebsd

package device

import "fmt"

type unsupportedSystem struct{}

// New returns a System whose every call reports ErrNotSupported. The
// inventory only runs against real hardware on FreeBSD; keeping this
// stub lets the portable packages build and test everywhere else.
func New() System { return unsupportedSystem{} }

func (unsupportedSystem) List() ([]string, error) {
	return nil, fmt.Errorf("list devices: %w", ErrNotSupported)
}

func (unsupportedSystem) MediaSize(name string) (int64, error) {
	return 0, fmt.Errorf("media size %s: %w", name, ErrNotSupported)
}

func (unsupportedSystem) PhysPath(name string) (string, error) {
	return "", fmt.Errorf("phys path %s: %w", name, ErrNotSupported)
}

func (unsupportedSystem) RawIdent(name string) (string, error) {
	return "", fmt.Errorf("raw ident %s: %w", name, ErrNotSupported)
}

func (unsupportedSystem) OpenCAM(name string) (CAMDevice, error) {
	return nil, fmt.Errorf("open %s: %w", name, ErrTransportUnavailable)
}

func (unsupportedSystem) OpenNVMe(name string) (NVMeDevice, error) {
	return nil, fmt.Errorf("open %s: %w", name, ErrNotSupported)
}
