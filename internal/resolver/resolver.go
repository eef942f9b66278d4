// Package resolver walks candidate device names and settles each one
// into a drive record: it picks the transport the device answers on,
// runs the matching identify probe, and merges the observation into
// the registry under the drive's hardware serial. Multiple device
// nodes backed by the same physical drive land on the same record.
package resolver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/drvkit/drvlist/internal/device"
	"github.com/drvkit/drvlist/internal/fixup"
	"github.com/drvkit/drvlist/internal/probe"
	"github.com/drvkit/drvlist/internal/registry"
	"github.com/drvkit/drvlist/internal/strutil"
)

// ErrUnidentified means every applicable probe failed for a device;
// the device is skipped and the run continues.
var ErrUnidentified = errors.New("device could not be identified")

// Options tune what the resolver collects per device.
type Options struct {
	// Phys collects the physical topology path for each device.
	Phys bool

	// VerboseDriver includes the bus id in the driver string.
	VerboseDriver bool
}

// Resolver identifies devices and accumulates them in a registry.
type Resolver struct {
	sys    device.System
	reg    *registry.Registry
	fixups *fixup.Table
	opts   Options
	log    zerolog.Logger
}

func New(sys device.System, reg *registry.Registry, fixups *fixup.Table, opts Options, log zerolog.Logger) *Resolver {
	return &Resolver{sys: sys, reg: reg, fixups: fixups, opts: opts, log: log}
}

// ResolveAll resolves every name in order and returns the names that
// could not be identified. Per-device failures never stop the walk.
func (r *Resolver) ResolveAll(names []string) (skipped []string) {
	for _, name := range names {
		if err := r.Resolve(name); err != nil {
			r.log.Warn().Err(err).Str("device", name).Msg("skipping device")
			skipped = append(skipped, name)
		}
	}
	return skipped
}

// Resolve identifies one device and merges it into the registry. The
// name may carry a "/dev/" prefix.
func (r *Resolver) Resolve(name string) error {
	name = strings.TrimPrefix(name, "/dev/")

	// Media size is read before any transport open; it stays
	// available even for devices the CAM layer refuses.
	size, err := r.sys.MediaSize(name)
	if err != nil {
		size = 0
	}
	r.log.Debug().Str("device", name).
		Str("size", humanize.Bytes(uint64(size))).
		Msg("probing device")

	cam, err := r.sys.OpenCAM(name)
	if err != nil {
		r.log.Debug().Err(err).Str("device", name).Msg("not CAM-attached, falling back to raw node")
		return r.resolveRaw(name, size)
	}
	defer cam.Close()
	return r.resolveCAM(name, cam, size)
}

// resolveCAM handles a device reachable through the SCSI/CAM
// transport. NVMe namespace devices (nda) are identified through
// their sibling controller node but keep the CAM-observed driver and
// path strings; ATA devices (ada) run the identify probe so protocol
// strings take precedence over the inquiry data.
func (r *Resolver) resolveCAM(name string, cam device.CAMDevice, size int64) error {
	simName, simUnit, busID := cam.SIM()
	driver := fmt.Sprintf("%s%d", simName, simUnit)
	if r.opts.VerboseDriver {
		driver = fmt.Sprintf("%s%d @ bus %d", simName, simUnit, busID)
	}
	pathID, targetID, lun := cam.Address()
	path := fmt.Sprintf("scbus %2d target %3d lun %2x", pathID, targetID, lun)

	if unit, ok := unitOf(name, "nda"); ok {
		return r.resolveNVMe(name, unit, driver, path, size)
	}

	var pre probe.Outcome
	if _, ok := unitOf(name, "ada"); ok {
		pre = probe.IdentifyATA(cam)
		if pre.Status != probe.Identified {
			r.log.Debug().Err(pre.Err).Str("device", name).
				Stringer("status", pre.Status).Msg("ata identify unavailable")
		}
	}

	out := probe.Inquiry(cam)

	vendor, product, revision := pre.Vendor, pre.Product, pre.Revision
	if vendor == "" {
		vendor = out.Vendor
	}
	if product == "" {
		product = out.Product
	}
	if revision == "" {
		revision = out.Revision
	}
	vendor, product = r.fixups.Apply(vendor, product)

	rec, _ := r.reg.LookupOrCreate(out.Identity)
	rec.Merge(name, driver, path)
	rec.SetVendor(vendor)
	rec.SetProduct(product)
	rec.SetRevision(revision)
	r.finish(rec, name, size)
	return nil
}

// resolveNVMe identifies a drive through its controller node. The
// driver and path strings were decided by the caller: CAM-observed
// for nda devices, synthesized from the controller's PCI identity for
// raw nvd fallbacks.
func (r *Resolver) resolveNVMe(name string, unit uint32, driver, path string, size int64) error {
	ctrl := "nvme" + strconv.FormatUint(uint64(unit), 10)
	nvme, err := r.sys.OpenNVMe(ctrl)
	if err != nil {
		return fmt.Errorf("%s: open controller %s: %w", name, ctrl, err)
	}
	defer nvme.Close()

	out, info := probe.IdentifyController(nvme)
	if out.Status != probe.Identified {
		return fmt.Errorf("%s: %s: %w", name, ctrl, out.Err)
	}
	if path == "" {
		path = info.PathString()
	}

	vendor, product := r.fixups.Apply(out.Vendor, out.Product)

	rec, _ := r.reg.LookupOrCreate(out.Identity)
	rec.Merge(name, driver, path)
	rec.SetVendor(vendor)
	rec.SetProduct(product)
	rec.SetRevision(out.Revision)
	r.finish(rec, name, size)
	return nil
}

// resolveRaw is the fallback for devices the CAM layer refused. NVMe
// block devices redirect to their controller; everything else gets
// the generic disk ident ioctl, which yields identity only.
func (r *Resolver) resolveRaw(name string, size int64) error {
	for _, prefix := range []string{"nvd", "nda"} {
		if unit, ok := unitOf(name, prefix); ok {
			ctrl := "nvme" + strconv.FormatUint(uint64(unit), 10)
			return r.resolveNVMe(name, unit, ctrl, "", size)
		}
	}

	out := probe.RawIdent(probe.IdentFunc(func() (string, error) {
		return r.sys.RawIdent(name)
	}))
	if out.Status != probe.Identified {
		return fmt.Errorf("%s: %w: %w", name, ErrUnidentified, out.Err)
	}

	rec, _ := r.reg.LookupOrCreate(out.Identity)
	rec.Merge(name, "", "")
	r.finish(rec, name, size)
	return nil
}

// finish records the per-node attributes shared by every branch.
func (r *Resolver) finish(rec *registry.Record, name string, size int64) {
	if r.opts.Phys {
		if phys, err := r.sys.PhysPath(name); err == nil {
			rec.SetPhys(phys)
		}
	}
	if size > 0 {
		rec.SetSize(strutil.SizeString(size))
	}
}

// unitOf matches names like "ada12" against a driver prefix and
// extracts the unit number.
func unitOf(name, prefix string) (uint32, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	unit, err := strconv.ParseUint(name[len(prefix):], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(unit), true
}
