// Package registry aggregates per-device-node observations into one
// record per physical drive, keyed by the hardware identity token
// (vendor-assigned serial number). Several OS device names can map to
// the same drive through multipath or dual-ported attachments; the
// registry is where those observations converge.
package registry

import (
	"github.com/drvkit/drvlist/internal/strutil"
)

// Record is the aggregated view of one physical drive. Identity is
// immutable once the record exists; the descriptive fields follow
// first-writer-wins semantics and the name/driver/path sets grow by
// merge only. Records are never removed during a run.
type Record struct {
	Identity string

	Vendor   string
	Product  string
	Revision string

	Phys string
	Size string

	names   []string
	drivers []string
	paths   []string
}

// Merge records one contributing device-node observation. Each of
// name, driver and path is appended to its set only when not already
// present, so re-merging the same observation is a no-op.
func (r *Record) Merge(name, driver, path string) {
	if name != "" {
		r.names = strutil.AppendUnique(r.names, name)
	}
	if driver != "" {
		r.drivers = strutil.AppendUnique(r.drivers, driver)
	}
	if path != "" {
		r.paths = strutil.AppendUnique(r.paths, path)
	}
}

// SetVendor sets the vendor if no earlier probe provided one.
func (r *Record) SetVendor(v string) {
	if r.Vendor == "" && v != "" {
		r.Vendor = v
	}
}

// SetProduct sets the product if no earlier probe provided one.
func (r *Record) SetProduct(p string) {
	if r.Product == "" && p != "" {
		r.Product = p
	}
}

// SetRevision sets the firmware revision if no earlier probe provided one.
func (r *Record) SetRevision(rev string) {
	if r.Revision == "" && rev != "" {
		r.Revision = rev
	}
}

// SetPhys sets the physical topology path if not already known.
func (r *Record) SetPhys(phys string) {
	if r.Phys == "" && phys != "" {
		r.Phys = phys
	}
}

// SetSize sets the rendered capacity from the first successful media
// size query.
func (r *Record) SetSize(size string) {
	if r.Size == "" && size != "" {
		r.Size = size
	}
}

// Names returns the contributing device names, sorted and comma-joined
// so the rendering is deterministic regardless of enumeration order.
func (r *Record) Names() string { return strutil.JoinSorted(r.names) }

// Drivers returns the contributing transport descriptors, sorted and
// comma-joined.
func (r *Record) Drivers() string { return strutil.JoinSorted(r.drivers) }

// Paths returns the contributing topology descriptors, sorted and
// comma-joined.
func (r *Record) Paths() string { return strutil.JoinSorted(r.paths) }

// PathCount reports how many distinct topology paths reach the drive.
func (r *Record) PathCount() int { return len(r.paths) }

// Registry is the append-mostly collection of drive records. Lookup is
// by identity; iteration preserves first-observation order. It is not
// safe for concurrent use: resolution is sequential by design and a
// lookup-then-merge is a read-modify-write sequence.
type Registry struct {
	byIdentity map[string]*Record
	order      []*Record
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byIdentity: make(map[string]*Record)}
}

// LookupOrCreate returns the record for identity, inserting a blank one
// on first observation. The second result reports whether the record
// was just created.
func (g *Registry) LookupOrCreate(identity string) (*Record, bool) {
	if rec, ok := g.byIdentity[identity]; ok {
		return rec, false
	}
	rec := &Record{Identity: identity}
	g.byIdentity[identity] = rec
	g.order = append(g.order, rec)
	return rec, true
}

// Records returns a snapshot slice in first-observation order.
func (g *Registry) Records() []*Record {
	out := make([]*Record, len(g.order))
	copy(out, g.order)
	return out
}

// Len reports the number of distinct drives observed so far.
func (g *Registry) Len() int { return len(g.order) }
